package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/server"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past benchmark runs",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	var resp server.HistoryResponse
	if err := NewClient().GetJSON(fmt.Sprintf("/api/history?limit=%d", historyLimit), &resp); err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	if len(resp.Runs) == 0 {
		fmt.Println("No benchmark runs recorded")
		return nil
	}

	fmt.Printf("%-36s %-10s %-28s %7s %s\n", "ID", "STATUS", "STARTED", "SAMPLES", "MODELS")
	for _, e := range resp.Runs {
		fmt.Printf("%-36s %-10s %-28s %7d %s\n",
			e.ID, e.Status, formatTime(e.StartedAt), e.Samples, strings.Join(e.Models, ","))
	}
	return nil
}
