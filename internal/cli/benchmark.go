package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/progress"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Start a benchmark",
	Long: `Start a benchmark of the given models over the given prompts. Every
model/prompt pair is run --runs times, one model at a time.

Exit codes:
  0   Benchmark started (or completed with --wait)
  1   Benchmark failed
  2   Benchmark cancelled (--wait)
  75  Another operation is already running`,
	Example: `  benchfox benchmark --model llama3.2:1b --prompt quick_qa
  benchfox benchmark -m llama3.2:1b -m mistral:7b -P reasoning -P analysis --runs 5 --wait
  benchfox benchmark -m qwen2.5:3b -P quick_qa --pull --wait`,
	RunE: runBenchmark,
}

var (
	benchModels  []string
	benchPrompts []string
	benchRuns    int
	benchPull    bool
	benchWait    bool
)

func init() {
	benchmarkCmd.Flags().StringSliceVarP(&benchModels, "model", "m", nil, "model to benchmark (repeatable)")
	benchmarkCmd.Flags().StringSliceVarP(&benchPrompts, "prompt", "P", nil, "prompt id to run (repeatable)")
	benchmarkCmd.Flags().IntVarP(&benchRuns, "runs", "n", 0, "runs per model and prompt (default: server default)")
	benchmarkCmd.Flags().BoolVar(&benchPull, "pull", false, "pull missing models first")
	benchmarkCmd.Flags().BoolVar(&benchWait, "wait", false, "follow progress and print results")
	_ = benchmarkCmd.MarkFlagRequired("model")
	_ = benchmarkCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	client := NewClient()

	req := benchmark.Request{
		Models:      benchModels,
		Prompts:     benchPrompts,
		Runs:        benchRuns,
		PullMissing: benchPull,
	}

	resp, err := startOperation(client, "/api/benchmark", req)
	if err != nil {
		return fmt.Errorf("failed to start benchmark: %w", err)
	}

	if !benchWait {
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(resp)
		}
		fmt.Printf("Benchmark %s started: %d tests (%d models x %d prompts x %d runs)\n",
			resp.ID, resp.TotalSteps, len(resp.Models), len(resp.Prompts), resp.Runs)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	last, err := follow(ctx, client, "/api/progress", resp.ID)
	if err != nil {
		return err
	}

	if last.Status == progress.StatusComplete && !jsonOut {
		fmt.Println()
		if err := printResults(client, "/api/history/"+resp.ID); err != nil {
			return err
		}
	}
	return terminalError(last)
}
