package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/vectorcache"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the vector cache in line with the catalog while it changes",
	Run: func(_ *cobra.Command, _ []string) {
		watch()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watch() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := bootstrap()
	svc := newService(ctx, config, logger)

	refresh := func(ctx context.Context) {
		refreshed, err := svc.Refresh(ctx)
		if err != nil {
			logger.Error("refreshing vectors", zap.Error(err))
			return
		}
		logger.Info("catalog checked", zap.Bool("refreshed", refreshed))
	}

	// Bring the cache up to date before waiting for changes.
	refresh(ctx)

	watcher, err := vectorcache.NewWatcher(config.Catalog, config.Watch.Debounce, logger)
	if err != nil {
		logger.Fatal("watching the catalog", zap.Error(err))
	}

	logger.Info("watching the catalog", zap.String("catalog", config.Catalog))
	if err := watcher.Run(ctx, refresh); err != nil {
		logger.Fatal("watcher stopped", zap.Error(err))
	}
	logger.Info("exiting", zap.String("reason", "interrupted"))
}
