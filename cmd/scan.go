package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"dlss-updater/logger"
	"dlss-updater/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan launcher directories for upscaler libraries",
	Long: `Walks every configured launcher root, records discovered games and their
upscaling/frame-generation libraries, and prints a per-launcher summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		runScan()
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan() {
	cfg, store := bootstrap(".")
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Log.Info("Running scan command...")
	summary, err := performScan(ctx, &cfg, store, nil)
	if err != nil {
		logger.Log.Fatalw("Scan failed", zap.Error(err))
	}

	launchers := make([]string, 0, len(summary.PerLauncher))
	for name := range summary.PerLauncher {
		launchers = append(launchers, name)
	}
	sort.Strings(launchers)

	for _, name := range launchers {
		paths := summary.PerLauncher[name]
		fmt.Printf("%s (%d)\n", ui.Colorize(name, name), len(paths))
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
	}
	for _, cfgErr := range summary.ConfigErrs {
		fmt.Printf("%s %v\n", ui.Bad("skipped root:"), cfgErr)
	}

	fmt.Printf("\n%s examined %d files, found %d libraries in %d games",
		ui.Label("Scan finished:"), summary.Examined, summary.Matched, summary.Games)
	if summary.Merged > 0 {
		fmt.Printf(", merged %d duplicate game entries", summary.Merged)
	}
	fmt.Println()
}
