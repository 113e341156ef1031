// Package commands implements the CLI commands for prefetchd.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mstellato/prefetchd/cmd/prefetchd/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "prefetchd",
	Short: "prefetchd - Adaptive resource prefetch daemon",
	Long: `prefetchd prefetches step resources for multi-step guided flows.

It watches streaming activity, navigation behavior, and resource conditions
(network class, save-data, idle budget) and schedules background loads of
the resources the next steps will need, with bounded concurrency, retry
backoff, and per-resource cooldown.

Use "prefetchd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/prefetchd/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(failuresCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
