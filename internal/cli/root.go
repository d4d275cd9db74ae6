// Package cli implements the maintlog command line.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "maintlog",
	Short: "Aircraft maintenance log analyzer",
	Long: `maintlog reads an aircraft maintenance log image with a team of five LLM agents:
analysis, risk assessment, reporting, notification and quality review.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the TOML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(recordsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
