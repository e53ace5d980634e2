package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"dlss-updater/config"
	"dlss-updater/db"
	"dlss-updater/logger"
	"dlss-updater/ui"
	"dlss-updater/updater"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Back up and update detected upscaler libraries",
	Long: `Re-scans configured launchers, then replaces every outdated library with
the latest cached release. Each replaced file is backed up first and the
change is written to the update history.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Log.Info("Running update command...")

		var sel updater.Selection
		if gameID, _ := cmd.Flags().GetUint("game"); gameID != 0 {
			sel.GameID = &gameID
		}
		sel.Technology, _ = cmd.Flags().GetString("tech")
		sel.IgnoreExclusions, _ = cmd.Flags().GetBool("include-excluded")
		noTUI, _ := cmd.Flags().GetBool("no-tui")

		if noTUI {
			runUpdatePlain(sel)
			return
		}

		p := tea.NewProgram(initialUpdateModel(sel))
		if _, err := p.Run(); err != nil {
			logger.Log.Fatalw("Failed to run update UI", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().Uint("game", 0, "Only update libraries belonging to this game ID")
	updateCmd.Flags().String("tech", "", "Only update one technology group (DLSS, XeSS, FSR, Streamline, DirectStorage)")
	updateCmd.Flags().Bool("include-excluded", false, "Update games on the exclusion list too")
	updateCmd.Flags().Bool("no-tui", false, "Plain log output instead of the interactive view")
}

// runUpdatePlain executes the pipeline without the interactive view.
func runUpdatePlain(sel updater.Selection) {
	cfg, store := bootstrap(".")
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := executeUpdate(ctx, &cfg, store, sel, func(current, total int, message string) {
		logger.Log.Infof("[%d/%d] %s", current, total, message)
	})
	if err != nil {
		logger.Log.Fatalw("Update run failed", zap.Error(err))
	}

	printReport(report)
}

// executeUpdate refreshes scan results and runs the update pipeline over them.
func executeUpdate(ctx context.Context, cfg *config.Config, store *db.Store, sel updater.Selection, progress updater.Progress) (*updater.RunReport, error) {
	if _, err := performScan(ctx, cfg, store, nil); err != nil {
		return nil, fmt.Errorf("pre-update scan: %w", err)
	}
	return newOrchestrator(cfg, store).Run(ctx, sel, progress)
}

func printReport(report *updater.RunReport) {
	for _, o := range report.Updated {
		fmt.Printf("%s %s %s: %s -> %s\n",
			ui.Good("updated"), o.GameName, o.Filename, o.FromVersion, o.ToVersion)
	}
	for _, o := range report.Skipped {
		fmt.Printf("%s %s %s: %s\n", ui.Label("skipped"), o.GameName, o.Filename, o.Reason)
	}
	for _, o := range report.Failed {
		fmt.Printf("%s %s %s: %s\n", ui.Bad("failed"), o.GameName, o.Filename, o.Reason)
	}
	fmt.Println(report.Summary())
}
