package cmd

import (
	"github.com/spf13/cobra"
)

// defaultCmd represents the command that runs when no subcommand is specified
var defaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Default command when no subcommand is provided",
	Long:  `Runs the scan command by default.`,
	Run: func(cmd *cobra.Command, args []string) {
		scanCmd.Run(scanCmd, []string{})
	},
}

func init() {
	rootCmd.AddCommand(defaultCmd)
	cobra.OnInitialize(func() {
		// If there are no arguments (only program name), run the scan
		if len(rootCmd.Commands()) > 0 && len(rootCmd.Flags().Args()) == 0 {
			rootCmd.SetArgs([]string{"default"})
		}
	})
}
