package cmd

import (
	"context"
	"fmt"
	"sort"

	"dlss-updater/logger"
	"dlss-updater/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Inspect the scanned game inventory",
}

var gamesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known games grouped by launcher",
	Run: func(cmd *cobra.Command, args []string) {
		_, store := bootstrap(".")
		defer store.Close()

		byLauncher, err := store.GamesByLauncher()
		if err != nil {
			logger.Log.Fatalw("Failed to list games", zap.Error(err))
		}
		if len(byLauncher) == 0 {
			fmt.Println("No games recorded. Run 'dlss-updater scan' first.")
			return
		}

		launchers := make([]string, 0, len(byLauncher))
		for name := range byLauncher {
			launchers = append(launchers, name)
		}
		sort.Strings(launchers)

		for _, name := range launchers {
			games := byLauncher[name]
			fmt.Printf("%s (%d)\n", ui.Colorize(name, name), len(games))
			for _, g := range games {
				libs, err := store.LibrariesForGame(g.ID)
				if err != nil {
					logger.Log.Warnw("Failed to load libraries", zap.Uint("game_id", g.ID), zap.Error(err))
				}
				fmt.Printf("  %4d  %s (%d libraries)\n", g.ID, g.Name, len(libs))
				for _, lib := range libs {
					version := "unknown"
					if lib.CurrentVersion != nil {
						version = *lib.CurrentVersion
					}
					fmt.Printf("        %s %s %s\n", lib.Filename, ui.Label(lib.Type), version)
				}
			}
		}
	},
}

var gamesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all scanned games, libraries, backups and history records",
	Run: func(cmd *cobra.Command, args []string) {
		_, store := bootstrap(".")
		defer store.Close()

		if err := store.DeleteAllGames(context.Background()); err != nil {
			logger.Log.Fatalw("Failed to clear games", zap.Error(err))
		}
		fmt.Println("Cleared all scanned games.")
	},
}

var gamesHistoryCmd = &cobra.Command{
	Use:   "history <library-id>",
	Short: "Show the update history for one library",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		_, store := bootstrap(".")
		defer store.Close()

		entries, err := store.HistoryForLibrary(uint(id))
		if err != nil {
			logger.Log.Fatalw("Failed to load history", zap.Uint64("library_id", id), zap.Error(err))
		}
		if len(entries) == 0 {
			fmt.Println("No history for this library.")
			return
		}
		for _, e := range entries {
			from, to := "unknown", "unknown"
			if e.FromVersion != nil {
				from = *e.FromVersion
			}
			if e.ToVersion != nil {
				to = *e.ToVersion
			}
			outcome := ui.Good("ok")
			if !e.Success {
				outcome = ui.Bad("failed")
			}
			fmt.Printf("%s  %s -> %s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), from, to, outcome)
		}
	},
}

func init() {
	gamesCmd.AddCommand(gamesListCmd)
	gamesCmd.AddCommand(gamesClearCmd)
	gamesCmd.AddCommand(gamesHistoryCmd)
	rootCmd.AddCommand(gamesCmd)
}
