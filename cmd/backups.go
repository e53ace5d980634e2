package cmd

import (
	"context"
	"fmt"
	"strconv"

	"dlss-updater/backup"
	"dlss-updater/logger"
	"dlss-updater/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect and restore library backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active backups",
	Run: func(cmd *cobra.Command, args []string) {
		_, store := bootstrap(".")
		defer store.Close()

		records, err := store.ActiveBackups()
		if err != nil {
			logger.Log.Fatalw("Failed to list backups", zap.Error(err))
		}
		if len(records) == 0 {
			fmt.Println("No active backups.")
			return
		}
		for _, rec := range records {
			version := "unknown"
			if rec.OriginalVersion != nil {
				version = *rec.OriginalVersion
			}
			fmt.Printf("%4d  library %d  %s  (%d bytes, version %s)\n",
				rec.ID, rec.LibraryID, rec.BackupPath, rec.Size, version)
		}
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore a single backup over the live file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		cfg, store := bootstrap(".")
		defer store.Close()

		manager := backup.NewManager(store, cfg.BackupDir, logger.Log)
		if err := manager.Restore(uint(id)); err != nil {
			logger.Log.Fatalw("Restore failed", zap.Uint64("backup_id", id), zap.Error(err))
		}
		fmt.Printf("%s backup %d\n", ui.Good("Restored"), id)
	},
}

var backupsRestoreAllCmd = &cobra.Command{
	Use:   "restore-all <game-id>",
	Short: "Restore every active backup for a game",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		cfg, store := bootstrap(".")
		defer store.Close()

		manager := backup.NewManager(store, cfg.BackupDir, logger.Log)
		results, err := manager.RestoreAll(uint(id))
		if err != nil {
			logger.Log.Fatalw("Restore failed", zap.Uint64("game_id", id), zap.Error(err))
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%s backup %d: %v\n", ui.Bad("failed"), r.BackupID, r.Err)
			} else {
				fmt.Printf("%s backup %d\n", ui.Good("restored"), r.BackupID)
			}
		}
	},
}

var backupsDeleteCmd = &cobra.Command{
	Use:   "delete <backup-id>",
	Short: "Delete one backup and its file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		cfg, store := bootstrap(".")
		defer store.Close()

		manager := backup.NewManager(store, cfg.BackupDir, logger.Log)
		if err := manager.Delete(uint(id)); err != nil {
			logger.Log.Fatalw("Delete failed", zap.Uint64("backup_id", id), zap.Error(err))
		}
		fmt.Printf("Deleted backup %d\n", id)
	},
}

var backupsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deactivate all backups and remove their files",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, store := bootstrap(".")
		defer store.Close()

		manager := backup.NewManager(store, cfg.BackupDir, logger.Log)
		cleared, err := manager.ClearAll(context.Background())
		if err != nil {
			logger.Log.Fatalw("Clear failed", zap.Error(err))
		}
		fmt.Printf("Cleared %d backups\n", cleared)
	},
}

func parseID(arg string) uint64 {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		logger.Log.Fatalw("Invalid numeric ID", zap.String("arg", arg), zap.Error(err))
	}
	return id
}

func init() {
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
	backupsCmd.AddCommand(backupsRestoreAllCmd)
	backupsCmd.AddCommand(backupsDeleteCmd)
	backupsCmd.AddCommand(backupsClearCmd)
	rootCmd.AddCommand(backupsCmd)
}
