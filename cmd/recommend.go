package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/recommender"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank internships for a candidate profile and print them as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("education", "e", "", "education of the candidate, e.g. \"B.Tech Computer Science\"")
	recommendCmd.Flags().StringP("skills", "s", "", "comma separated skills of the candidate")
	recommendCmd.Flags().StringP("location", "l", "", "preferred location")
	recommendCmd.Flags().IntP("top-k", "k", 0, "number of recommendations, clamped to 3..7 (default from config)")

	viper.BindPFlag("top-k", recommendCmd.Flags().Lookup("top-k"))
}

func recommend(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := bootstrap()

	req := recommender.Request{
		Education: cmd.Flag("education").Value.String(),
		Skills:    cmd.Flag("skills").Value.String(),
		Location:  cmd.Flag("location").Value.String(),
		TopK:      config.TopK,
	}

	svc := newService(ctx, config, logger)

	resp, err := svc.Recommend(ctx, req)
	fatalOnServiceError(logger, "recommendation", err)

	logger.Info("done", zap.Int("recommendations", resp.Metadata.ReturnedRecommendations))

	if err := printJSON(resp); err != nil {
		logger.Fatal("printing recommendations", zap.Error(err))
	}
}
