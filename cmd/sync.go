package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"dlss-updater/logger"
	"dlss-updater/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncCmd refreshes the local cache of latest library files.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download the latest library releases into the local repository",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, store := bootstrap(".")
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client, err := repository.NewClient(cfg)
		if err != nil {
			logger.Log.Fatalw("Failed to create repository client", zap.Error(err))
		}
		source := repository.NewSource(cfg.CacheDir, logger.Log)
		if err := source.Sync(ctx, client); err != nil {
			logger.Log.Fatalw("Repository sync failed", zap.Error(err))
		}
		fmt.Println("Repository cache is up to date.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
