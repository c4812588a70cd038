// Package cli implements the mlpipe command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "mlpipe",
	Short: "MLpipe - training pipeline driver",
	Long: `MLpipe drives a training pipeline assembled from independently packaged
units. It reads a YAML config, selects the steps to run, resolves each
step's parameters from the config, and executes the units one by one in
their fixed order.`,

	// A failed pipeline run is not a usage mistake.
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the pipeline config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: 'debug', 'info', 'warn' or 'error'")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: 'text' or 'json'")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
