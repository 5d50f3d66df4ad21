package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/server"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the running benchmark or pull",
	Long: `Ask the server to stop the active operation. A benchmark stops after the
inference call in flight; the results gathered so far are kept.`,
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().Post("/api/benchmark/cancel", nil)
	if err != nil {
		return fmt.Errorf("failed to cancel: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		fmt.Println(string(data))
		return nil
	}

	var resp server.CancelResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Active {
		fmt.Println("Cancellation requested")
	} else {
		fmt.Println("Nothing is running")
	}
	return nil
}
