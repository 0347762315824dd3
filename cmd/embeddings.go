package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/recommender"
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Manage the vector cache of the catalog",
}

var embeddingsComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute vectors for every posting that has none, backing up the current file first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := bootstrap()
		autoApprove := cmd.Flag("yes").Value.String() == "true"

		svc := newService(ctx, config, logger)

		report, err := svc.Compute(ctx, config.Backup, func(error) bool {
			ok, err := confirm("Backup failed. Continue without backup?", autoApprove)
			if err != nil {
				logger.Warn("prompt failed", zap.Error(err))
				return false
			}
			return ok
		})
		if errors.Is(err, recommender.ErrCancelled) {
			logger.Info("exiting", zap.String("reason", "operation cancelled"))
			return
		}
		fatalOnServiceError(logger, "computing vectors", err)

		logger.Info("vectors computed",
			zap.Int("computed", report.Computed),
			zap.Int("total", report.TotalEmbeddings),
			zap.Float64("coverage_percentage", report.CoveragePercentage),
		)
		if err := printJSON(report); err != nil {
			logger.Fatal("printing report", zap.Error(err))
		}
	},
}

var embeddingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every posting has a well-formed vector",
	Run: func(_ *cobra.Command, _ []string) {
		config, logger := bootstrap()

		report, err := newOfflineService(config, logger).Validate(config.Embedder.Dimensions)
		fatalOnServiceError(logger, "validating vectors", err)

		if err := printJSON(report); err != nil {
			logger.Fatal("printing report", zap.Error(err))
		}
		if !report.OK() {
			logger.Fatal("vectors need recomputation",
				zap.Int("invalid", report.Invalid),
				zap.Int("missing", report.Missing),
			)
		}
		logger.Info("all vectors are valid", zap.Int("valid", report.Valid))
	},
}

var embeddingsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove vectors of postings that are no longer in the catalog",
	Run: func(_ *cobra.Command, _ []string) {
		config, logger := bootstrap()

		report, err := newOfflineService(config, logger).Clean()
		fatalOnServiceError(logger, "cleaning vectors", err)

		if len(report.Removed) == 0 {
			logger.Info("no orphaned vectors found")
		}
		if err := printJSON(report); err != nil {
			logger.Fatal("printing report", zap.Error(err))
		}
	},
}

var embeddingsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print how many postings have a vector",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := bootstrap()

		status, err := newService(ctx, config, logger).EmbeddingStatus(ctx)
		fatalOnServiceError(logger, "embedding status", err)

		if err := printJSON(status); err != nil {
			logger.Fatal("printing status", zap.Error(err))
		}
	},
}

var embeddingsRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Drop every cached vector and embed the whole catalog again",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := bootstrap()

		ok, err := confirm("Recompute all vectors? This calls the embedding provider for every posting", cmd.Flag("yes").Value.String() == "true")
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if !ok {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}

		result, err := newService(ctx, config, logger).Recompute(ctx)
		fatalOnServiceError(logger, "recomputing vectors", err)

		logger.Info("vectors recomputed successfully", zap.Int("total", result.TotalEmbeddings))
		if err := printJSON(result); err != nil {
			logger.Fatal("printing result", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(embeddingsCmd)
	embeddingsCmd.AddCommand(embeddingsComputeCmd, embeddingsValidateCmd, embeddingsCleanCmd, embeddingsStatusCmd, embeddingsRecomputeCmd)

	embeddingsComputeCmd.Flags().BoolP("yes", "y", false, "continue without asking when the backup fails")
	embeddingsRecomputeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
