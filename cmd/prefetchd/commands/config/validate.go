package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mstellato/prefetchd/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load and validate a prefetchd configuration file.

Exits non-zero when the configuration is invalid.

Examples:
  # Validate the default config
  prefetchd config validate

  # Validate a specific file
  prefetchd config validate --config /etc/prefetchd/config.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%d steps, origin: %s, cache: %s)\n",
		len(cfg.Scheduler.Steps), cfg.Origin.Type, cfg.Cache.Type)
	return nil
}
