package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/server"
)

var resultsCmd = &cobra.Command{
	Use:   "results [ID]",
	Short: "Show the results of a benchmark",
	Long: `Show the statistics of the latest benchmark, or of the run with the given
id from history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	path := "/api/results"
	if len(args) > 0 {
		path = "/api/history/" + args[0]
	}
	return printResults(NewClient(), path)
}

func printResults(client *Client, path string) error {
	data, status, err := client.Get(path)
	if err != nil {
		return fmt.Errorf("failed to get results: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		fmt.Println(string(data))
		return nil
	}

	var resp server.RunResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to parse results: %w", err)
	}

	fmt.Printf("Run %s: %s\n", resp.ID, resp.Status)
	fmt.Printf("  Host:     %s (%s, %d cores, %.0f GB RAM, %s)\n",
		resp.SystemInfo.Name, resp.SystemInfo.CPUModel, resp.SystemInfo.CPUCores,
		resp.SystemInfo.RAMGB, firstNonEmpty(resp.SystemInfo.GPUModel, "no GPU"))
	fmt.Printf("  Started:  %s\n", formatTime(resp.StartedAt))
	fmt.Printf("  Tests:    %d, %d failed\n", resp.TotalTests, len(resp.Failures))
	if resp.Error != "" {
		fmt.Printf("  Error:    %s\n", resp.Error)
	}
	fmt.Println()

	writeSummary(os.Stdout, resp.Request.Models, resp.Request.Prompts, resp.Statistics)
	return nil
}

// writeSummary prints one row per model and prompt in request order.
func writeSummary(w io.Writer, models, prompts []string, sum benchmark.Summary) {
	fmt.Fprintf(w, "%-24s %-18s %4s %18s %10s %10s\n", "MODEL", "PROMPT", "N", "TOKENS/S", "TTFT", "LOAD")
	for _, m := range models {
		for _, p := range prompts {
			set := sum.PerModelPrompt[m][p]
			writeRow(w, m, p, set)
		}
		if len(prompts) > 1 {
			writeRow(w, m, "(all)", sum.PerModel[m])
		}
	}
}

func writeRow(w io.Writer, model, prompt string, set benchmark.MetricSet) {
	tps := set[benchmark.MetricTokensPerSecond]
	if tps.Count == 0 {
		fmt.Fprintf(w, "%-24s %-18s %4d %18s %10s %10s\n", model, prompt, 0, "-", "-", "-")
		return
	}

	fmt.Fprintf(w, "%-24s %-18s %4d %18s %9.3fs %9.3fs\n",
		model, prompt, tps.Count,
		fmt.Sprintf("%.2f ± %.2f", tps.Avg, tps.Stdev),
		set[benchmark.MetricTimeToFirstToken].Avg,
		set[benchmark.MetricLoadDuration].Avg,
	)
}
