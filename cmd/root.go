package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; subcommands attach themselves in init.
var rootCmd = &cobra.Command{
	Use:   "dlss-updater",
	Short: "Keeps game upscaler libraries (DLSS, XeSS, FSR, DirectStorage) up to date",
	Long: `dlss-updater scans configured game launcher directories for upscaling and
frame-generation libraries, compares their versions against the latest known
releases, and replaces outdated files in place with a backup taken first.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
