package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var internshipsCmd = &cobra.Command{
	Use:   "internships",
	Short: "Print the loaded catalog",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := bootstrap()

		list, err := newService(ctx, config, logger).Internships(ctx)
		fatalOnServiceError(logger, "listing internships", err)

		if err := printJSON(list); err != nil {
			logger.Fatal("printing internships", zap.Error(err))
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog statistics",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := bootstrap()

		stats, err := newService(ctx, config, logger).Stats(ctx)
		fatalOnServiceError(logger, "collecting stats", err)

		if err := printJSON(stats); err != nil {
			logger.Fatal("printing stats", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(internshipsCmd)
	rootCmd.AddCommand(statsCmd)
}
