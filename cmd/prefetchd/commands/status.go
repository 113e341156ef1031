package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mstellato/prefetchd/internal/cli/output"
	"github.com/mstellato/prefetchd/pkg/prefetch"
)

var (
	statusAddress string
	statusOutput  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler status of a running daemon",
	Long: `Query a running prefetchd instance and display its scheduler counters.

Examples:
  # Status of the local daemon
  prefetchd status

  # Status of a remote daemon
  prefetchd status --address http://prefetchd.internal:8080

  # Machine readable output
  prefetchd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddress, "address", "http://localhost:8080", "Daemon API address")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	snap, err := fetchMetrics(statusAddress)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, snap)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, snap)
	default:
		return printStatusTable(snap)
	}
}

// fetchMetrics pulls the counters snapshot from the daemon API.
func fetchMetrics(address string) (*prefetch.Snapshot, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	url := strings.TrimRight(address, "/") + "/v1/metrics"
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to reach daemon at %s: %w", address, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Status string            `json:"status"`
		Data   prefetch.Snapshot `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}
	return &envelope.Data, nil
}

func printStatusTable(snap *prefetch.Snapshot) error {
	pairs := [][2]string{
		{"Phase", snap.Phase},
		{"Requested", fmt.Sprintf("%d", snap.TotalRequested)},
		{"Succeeded", fmt.Sprintf("%d", snap.TotalSucceeded)},
		{"Failed", fmt.Sprintf("%d", snap.TotalFailed)},
		{"Skipped", fmt.Sprintf("%d", snap.TotalSkipped)},
		{"Fallbacks", fmt.Sprintf("%d", snap.TotalFallback)},
		{"Cache hits", fmt.Sprintf("%d", snap.CacheHits)},
		{"Success rate", fmt.Sprintf("%.0f%%", snap.SuccessRate*100)},
		{"Active streams", fmt.Sprintf("%d", snap.ActiveStreams)},
		{"Streaming for", (time.Duration(snap.StreamingMillis) * time.Millisecond).String()},
		{"Avg load", fmt.Sprintf("%.1fms", snap.AvgLoadMillis)},
		{"In flight", fmt.Sprintf("%d", snap.InFlight)},
		{"Queue depth", fmt.Sprintf("%d", snap.QueueDepth)},
	}
	if err := output.SimpleTable(os.Stdout, pairs); err != nil {
		return err
	}

	if len(snap.FailureReasons) > 0 {
		fmt.Println("\nFailures by reason:")
		rows := make([][]string, 0, len(snap.FailureReasons))
		for reason, count := range snap.FailureReasons {
			rows = append(rows, []string{reason, fmt.Sprintf("%d", count)})
		}
		return output.PrintTable(os.Stdout, []string{"Reason", "Count"}, rows)
	}
	return nil
}
