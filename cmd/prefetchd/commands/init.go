package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mstellato/prefetchd/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Write a configuration file with sensible defaults.

Examples:
  # Write to the default location
  prefetchd init

  # Write to a custom path
  prefetchd init --config /etc/prefetchd/config.yaml

  # Overwrite an existing file
  prefetchd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point origin.http.base_url at your bundle server")
	fmt.Println("  2. Declare your wizard steps under scheduler.steps")
	fmt.Println("  3. Start the daemon with: prefetchd start")
	return nil
}
