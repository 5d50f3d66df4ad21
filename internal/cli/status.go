package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/server"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Ollama availability and the current operation",
	Long:  `Query the running benchfox server for Ollama availability and the progress of the active benchmark or pull.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := NewClient()

	var status server.StatusResponse
	if err := client.GetJSON("/api/status", &status); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	var st progress.State
	if err := client.GetJSON("/api/progress/snapshot", &st); err != nil {
		return fmt.Errorf("failed to get progress: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"ollama":   status,
			"progress": st,
		})
	}

	fmt.Println("=== Benchfox Status ===")
	fmt.Printf("\nOllama: %s\n", status.Message)
	fmt.Printf("\nOperation:\n")
	printState(st)

	return nil
}

// printState renders a progress snapshot for humans.
func printState(st progress.State) {
	if st.Status == progress.StatusIdle {
		fmt.Println("  idle")
		return
	}

	fmt.Printf("  %s %s (%s)\n", st.Operation, st.Status, st.ID)
	if st.TotalSteps > 0 {
		fmt.Printf("  Step: %d/%d\n", st.Step, st.TotalSteps)
	}
	fmt.Printf("  Progress: %.0f%%\n", st.Progress*100)
	if st.TotalBytes > 0 {
		fmt.Printf("  Downloaded: %s\n", formatTransfer(st.CompletedBytes, st.TotalBytes))
	}
	if st.Message != "" {
		fmt.Printf("  %s\n", st.Message)
	}
	if st.Error != "" {
		fmt.Printf("  Error: %s\n", st.Error)
	}
	if st.CancelRequested && !st.Status.Terminal() {
		fmt.Println("  Cancellation requested")
	}
}
