package benchmark

import (
	"math"
	"testing"
	"time"

	"github.com/haskel/benchfox/internal/catalog"
	"github.com/haskel/benchfox/internal/ollama"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Statistics
	}{
		{"empty", nil, Statistics{}},
		{"single", []float64{4}, Statistics{Count: 1, Avg: 4, Min: 4, Max: 4}},
		{"pair", []float64{2, 4}, Statistics{Count: 2, Avg: 3, Min: 2, Max: 4, Stdev: math.Sqrt2}},
		{"constant", []float64{5, 5, 5}, Statistics{Count: 3, Avg: 5, Min: 5, Max: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.values)
			if got.Count != tt.want.Count ||
				!near(got.Avg, tt.want.Avg, 1e-12) ||
				!near(got.Min, tt.want.Min, 1e-12) ||
				!near(got.Max, tt.want.Max, 1e-12) ||
				!near(got.Stdev, tt.want.Stdev, 1e-12) {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCompute_BesselCorrection(t *testing.T) {
	// population stdev of this set is 2; the sample stdev is sqrt(32/7)
	got := Compute([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !near(got.Avg, 5, 1e-12) {
		t.Errorf("expected avg 5, got %v", got.Avg)
	}
	if want := math.Sqrt(32.0 / 7.0); !near(got.Stdev, want, 1e-12) {
		t.Errorf("expected stdev %v, got %v", want, got.Stdev)
	}
}

func TestClassifyCompute(t *testing.T) {
	tests := []struct {
		size, vram int64
		want       ComputeMode
	}{
		{1000, 0, ComputeCPU},
		{1000, 1000, ComputeGPU},
		{1000, 950, ComputeGPU},
		{1000, 949, ComputeHybrid},
		{1000, 1, ComputeHybrid},
	}

	for _, tt := range tests {
		if got := ClassifyCompute(tt.size, tt.vram); got != tt.want {
			t.Errorf("size=%d vram=%d: expected %s, got %s", tt.size, tt.vram, tt.want, got)
		}
	}
}

func TestNewSample(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := catalog.Prompt{ID: "p1", Text: "hello"}

	t.Run("derived rates", func(t *testing.T) {
		res := &ollama.GenerateResult{
			Response:           "abc",
			TotalDuration:      3 * time.Second,
			PromptEvalCount:    20,
			PromptEvalDuration: 500 * time.Millisecond,
			EvalCount:          100,
			EvalDuration:       2 * time.Second,
		}
		s := NewSample("m", p, 1, res, &ollama.LoadedModel{Name: "m", SizeBytes: 2 << 20, SizeVRAMBytes: 2 << 20}, at)

		if !near(s.TokensPerSecond, 50, 1e-9) {
			t.Errorf("expected 50 tokens/s, got %v", s.TokensPerSecond)
		}
		if !near(s.PromptTokensPerSecond, 40, 1e-9) {
			t.Errorf("expected 40 prompt tokens/s, got %v", s.PromptTokensPerSecond)
		}
		if !near(s.TotalDurationS, 3, 1e-9) {
			t.Errorf("expected 3s total, got %v", s.TotalDurationS)
		}
		if !near(s.SizeMB, 2, 1e-9) {
			t.Errorf("expected 2 MB, got %v", s.SizeMB)
		}
		if s.ComputeMode != ComputeGPU {
			t.Errorf("expected %s, got %s", ComputeGPU, s.ComputeMode)
		}
		if s.TTFTSource != TTFTPromptEval {
			t.Errorf("expected TTFT source %s, got %s", TTFTPromptEval, s.TTFTSource)
		}
		if s.TimeToFirstToken != 500*time.Millisecond {
			t.Errorf("expected 500ms TTFT, got %v", s.TimeToFirstToken)
		}
		if s.ResponseChars != 3 {
			t.Errorf("expected 3 response chars, got %d", s.ResponseChars)
		}
	})

	t.Run("zero eval duration", func(t *testing.T) {
		res := &ollama.GenerateResult{EvalCount: 10}
		s := NewSample("m", p, 1, res, nil, at)

		if s.TokensPerSecond != 0 || s.PromptTokensPerSecond != 0 {
			t.Errorf("expected zero rates, got %v and %v", s.TokensPerSecond, s.PromptTokensPerSecond)
		}
		if s.ComputeMode != ComputeUnknown {
			t.Errorf("expected %s, got %s", ComputeUnknown, s.ComputeMode)
		}
	})

	t.Run("streamed first token", func(t *testing.T) {
		res := &ollama.GenerateResult{PromptEvalDuration: time.Second, FirstToken: 250 * time.Millisecond}
		s := NewSample("m", p, 1, res, nil, at)

		if s.TTFTSource != TTFTStream {
			t.Errorf("expected TTFT source %s, got %s", TTFTStream, s.TTFTSource)
		}
		if !near(s.TimeToFirstTokenS, 0.25, 1e-9) {
			t.Errorf("expected 0.25s TTFT, got %v", s.TimeToFirstTokenS)
		}
	})
}

func sampleRun() *Run {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(model, prompt string, run int, evalMs int64) Sample {
		res := &ollama.GenerateResult{
			TotalDuration:      time.Duration(evalMs+300) * time.Millisecond,
			LoadDuration:       120 * time.Millisecond,
			PromptEvalCount:    17,
			PromptEvalDuration: 73 * time.Millisecond,
			EvalCount:          91,
			EvalDuration:       time.Duration(evalMs) * time.Millisecond,
		}
		return NewSample(model, catalog.Prompt{ID: prompt, Text: prompt}, run, res,
			&ollama.LoadedModel{Name: model, SizeBytes: 3 << 30, SizeVRAMBytes: 1 << 30}, at)
	}

	return &Run{
		ID:     "run-1",
		Status: RunCompleted,
		Request: Request{
			Models:  []string{"a", "b"},
			Prompts: []string{"p1", "p2"},
			Runs:    2,
		},
		TotalSteps: 8,
		Samples: []Sample{
			mk("a", "p1", 1, 1013), mk("a", "p1", 2, 977),
			mk("a", "p2", 1, 2203), mk("a", "p2", 2, 2311),
			mk("b", "p1", 1, 701),
		},
		StartedAt:   at,
		CompletedAt: at.Add(time.Minute),
	}
}

func TestAggregate(t *testing.T) {
	run := sampleRun()
	sum := Aggregate(run)

	counts := []struct {
		name string
		got  int
		want int
	}{
		{"overall", sum.Overall[MetricTokensPerSecond].Count, 5},
		{"model a", sum.PerModel["a"][MetricTokensPerSecond].Count, 4},
		{"model b", sum.PerModel["b"][MetricTokensPerSecond].Count, 1},
		{"prompt p1", sum.PerPrompt["p1"][MetricTokensPerSecond].Count, 3},
	}
	for _, c := range counts {
		if c.got != c.want {
			t.Errorf("%s: expected count %d, got %d", c.name, c.want, c.got)
		}
	}
	if sd := sum.PerModel["b"][MetricTokensPerSecond].Stdev; sd != 0 {
		t.Errorf("expected zero stdev for a single sample, got %v", sd)
	}

	// requested but never sampled: all zeros
	empty := sum.PerModelPrompt["b"]["p2"]
	if empty == nil {
		t.Fatal("expected a metric set for the unsampled pair")
	}
	for _, m := range Metrics {
		if empty[m] != (Statistics{}) {
			t.Errorf("metric %s: expected zero statistics, got %+v", m, empty[m])
		}
	}

	pair := sum.PerModelPrompt["a"]["p1"][MetricEvalDuration]
	if pair.Count != 2 {
		t.Errorf("expected count 2, got %d", pair.Count)
	}
	if !near(pair.Avg, 0.995, 1e-9) || !near(pair.Min, 0.977, 1e-9) || !near(pair.Max, 1.013, 1e-9) {
		t.Errorf("expected avg 0.995 min 0.977 max 1.013, got %+v", pair)
	}
}

func TestAggregate_EmptyRun(t *testing.T) {
	sum := Aggregate(&Run{Request: Request{Models: []string{"a"}, Prompts: []string{"p1"}, Runs: 1}})

	for name, s := range map[string]Statistics{
		"overall":    sum.Overall[MetricTotalDuration],
		"per model":  sum.PerModel["a"][MetricTotalDuration],
		"per prompt": sum.PerPrompt["p1"][MetricTotalDuration],
	} {
		if s != (Statistics{}) {
			t.Errorf("%s: expected zero statistics, got %+v", name, s)
		}
	}
}
