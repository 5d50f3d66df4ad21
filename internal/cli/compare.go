package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/benchmark"
)

var compareCmd = &cobra.Command{
	Use:   "compare FILE...",
	Short: "Compare exported benchmark documents",
	Long: `Load exported JSON documents, verify their statistics and print a per-model
comparison across machines. No server is needed.

Example:
  benchfox compare desktop.json laptop.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

// compareRow is one model measured on one machine.
type compareRow struct {
	Host            string                `json:"host"`
	RunID           string                `json:"run_id"`
	Model           string                `json:"model"`
	Samples         int                   `json:"samples"`
	TokensPerSecond benchmark.Statistics  `json:"tokens_per_second"`
	TTFT            benchmark.Statistics  `json:"time_to_first_token_s"`
	ComputeMode     benchmark.ComputeMode `json:"compute_mode"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	docs := make([]*benchmark.Document, 0, len(args))
	for _, path := range args {
		doc, err := loadDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	rows := compareRows(docs)

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}
	writeComparison(os.Stdout, rows)
	return nil
}

func loadDocument(path string) (*benchmark.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := benchmark.Import(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// compareRows flattens the per-model statistics of every document, grouped
// by model and fastest first.
func compareRows(docs []*benchmark.Document) []compareRow {
	var rows []compareRow
	for _, doc := range docs {
		host := firstNonEmpty(doc.Run.System.Name, doc.Run.ID)
		for _, model := range doc.Run.Request.Models {
			set := doc.Statistics.PerModel[model]
			rows = append(rows, compareRow{
				Host:            host,
				RunID:           doc.Run.ID,
				Model:           model,
				Samples:         set[benchmark.MetricTokensPerSecond].Count,
				TokensPerSecond: set[benchmark.MetricTokensPerSecond],
				TTFT:            set[benchmark.MetricTimeToFirstToken],
				ComputeMode:     computeMode(doc.Run.Samples, model),
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Model != rows[j].Model {
			return rows[i].Model < rows[j].Model
		}
		return rows[i].TokensPerSecond.Avg > rows[j].TokensPerSecond.Avg
	})
	return rows
}

// computeMode is the mode of the model's most recent sample.
func computeMode(samples []benchmark.Sample, model string) benchmark.ComputeMode {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Model == model {
			return samples[i].ComputeMode
		}
	}
	return benchmark.ComputeUnknown
}

func writeComparison(w io.Writer, rows []compareRow) {
	fmt.Fprintf(w, "%-24s %-20s %4s %18s %10s %s\n", "MODEL", "HOST", "N", "TOKENS/S", "TTFT", "COMPUTE")
	for _, r := range rows {
		if r.Samples == 0 {
			fmt.Fprintf(w, "%-24s %-20s %4d %18s %10s %s\n", r.Model, r.Host, 0, "-", "-", r.ComputeMode)
			continue
		}
		fmt.Fprintf(w, "%-24s %-20s %4d %18s %9.3fs %s\n",
			r.Model, r.Host, r.Samples,
			fmt.Sprintf("%.2f ± %.2f", r.TokensPerSecond.Avg, r.TokensPerSecond.Stdev),
			r.TTFT.Avg, r.ComputeMode)
	}
}
