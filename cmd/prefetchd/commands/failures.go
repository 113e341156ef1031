package commands

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mstellato/prefetchd/internal/cli/prompt"
)

var (
	failuresAddress string
	failuresForce   bool
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Manage the failure ledger of a running daemon",
}

var failuresClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear failure history and lift all cooldowns",
	Long: `Clear the daemon's failure ledger.

Every resource gets its attempt budget back immediately, including
resources currently excluded by a cooldown window.

Examples:
  prefetchd failures clear
  prefetchd failures clear --force`,
	RunE: runFailuresClear,
}

func init() {
	failuresCmd.PersistentFlags().StringVar(&failuresAddress, "address", "http://localhost:8080", "Daemon API address")
	failuresClearCmd.Flags().BoolVarP(&failuresForce, "force", "f", false, "Skip confirmation")
	failuresCmd.AddCommand(failuresClearCmd)
}

func runFailuresClear(cmd *cobra.Command, args []string) error {
	ok, err := prompt.ConfirmWithForce("Clear failure history and lift all cooldowns?", failuresForce)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	client := &http.Client{Timeout: 5 * time.Second}

	url := strings.TrimRight(failuresAddress, "/") + "/v1/failures"
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon at %s: %w", failuresAddress, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	fmt.Println("Failure history cleared.")
	return nil
}
