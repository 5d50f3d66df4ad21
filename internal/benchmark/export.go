package benchmark

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"
)

// DocumentFormat identifies exported benchmark documents.
const DocumentFormat = "benchfox.benchmark/v1"

var ErrFormat = errors.New("unsupported document format")

// Document is the self-describing export of one benchmark: the run with
// every raw sample plus the statistics computed from them.
type Document struct {
	Format     string    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`
	Run        *Run      `json:"run"`
	Statistics Summary   `json:"statistics"`
}

func Export(run *Run, at time.Time) *Document {
	return &Document{
		Format:     DocumentFormat,
		ExportedAt: at.UTC(),
		Run:        run,
		Statistics: Aggregate(run),
	}
}

func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Import decodes a document and checks that its statistics match its
// samples.
func Import(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	if d.Format != DocumentFormat {
		return nil, fmt.Errorf("%w: %q", ErrFormat, d.Format)
	}
	if d.Run == nil {
		return nil, fmt.Errorf("document has no run")
	}

	if err := d.Verify(); err != nil {
		return nil, err
	}

	return &d, nil
}

// Verify re-aggregates the samples and compares with the stored statistics.
func (d *Document) Verify() error {
	if !reflect.DeepEqual(Aggregate(d.Run), d.Statistics) {
		return fmt.Errorf("statistics of run %s do not match its samples", d.Run.ID)
	}
	return nil
}

var csvHeader = []string{
	"run_id", "model", "prompt_id", "run_number", "timestamp",
	"total_duration_s", "load_duration_s",
	"prompt_eval_count", "prompt_eval_duration_s",
	"eval_count", "eval_duration_s",
	"time_to_first_token_s", "ttft_source",
	"tokens_per_second", "prompt_tokens_per_second",
	"model_size_mb", "model_size_vram_mb", "compute_mode",
}

// WriteCSV writes one row per sample.
func WriteCSV(w io.Writer, run *Run) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range run.Samples {
		record := []string{
			run.ID,
			s.Model,
			s.PromptID,
			strconv.Itoa(s.Run),
			s.Timestamp.Format(time.RFC3339),
			formatFloat(s.TotalDurationS),
			formatFloat(s.LoadDurationS),
			strconv.Itoa(s.PromptEvalCount),
			formatFloat(s.PromptEvalDurationS),
			strconv.Itoa(s.EvalCount),
			formatFloat(s.EvalDurationS),
			formatFloat(s.TimeToFirstTokenS),
			string(s.TTFTSource),
			formatFloat(s.TokensPerSecond),
			formatFloat(s.PromptTokensPerSecond),
			formatFloat(s.SizeMB),
			formatFloat(s.SizeVRAMMB),
			string(s.ComputeMode),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
