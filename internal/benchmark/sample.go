package benchmark

import (
	"time"

	"github.com/haskel/benchfox/internal/catalog"
	"github.com/haskel/benchfox/internal/ollama"
)

// ComputeMode tells where inference ran, judged from memory residency.
type ComputeMode string

const (
	ComputeCPU     ComputeMode = "CPU-only"
	ComputeGPU     ComputeMode = "Full GPU"
	ComputeHybrid  ComputeMode = "Hybrid (GPU+CPU)"
	ComputeUnknown ComputeMode = "unknown"
)

// fullGPUTolerance is how close VRAM residency must be to the model size
// to count as fully offloaded.
const fullGPUTolerance = 0.05

// ClassifyCompute maps resident sizes to a compute mode.
func ClassifyCompute(sizeBytes, sizeVRAMBytes int64) ComputeMode {
	switch {
	case sizeVRAMBytes == 0:
		return ComputeCPU
	case float64(sizeVRAMBytes) >= float64(sizeBytes)*(1-fullGPUTolerance):
		return ComputeGPU
	default:
		return ComputeHybrid
	}
}

// TTFTSource records how TimeToFirstToken was obtained.
type TTFTSource string

const (
	// TTFTStream is the measured delay to the first streamed chunk.
	TTFTStream TTFTSource = "stream"
	// TTFTPromptEval approximates TTFT with the prompt evaluation time.
	TTFTPromptEval TTFTSource = "prompt_eval"
)

// Sample is one inference measurement. Derived fields are computed once by
// NewSample and stored, so an exported sample re-aggregates to the same
// numbers.
type Sample struct {
	Model      string    `json:"model"`
	PromptID   string    `json:"prompt_id"`
	PromptText string    `json:"prompt_text"`
	Run        int       `json:"run_number"`
	Timestamp  time.Time `json:"timestamp"`

	TotalDuration      time.Duration `json:"total_duration_ns"`
	LoadDuration       time.Duration `json:"load_duration_ns"`
	PromptEvalCount    int           `json:"prompt_eval_count"`
	PromptEvalDuration time.Duration `json:"prompt_eval_duration_ns"`
	EvalCount          int           `json:"eval_count"`
	EvalDuration       time.Duration `json:"eval_duration_ns"`
	TimeToFirstToken   time.Duration `json:"time_to_first_token_ns"`
	TTFTSource         TTFTSource    `json:"ttft_source"`
	ResponseChars      int           `json:"response_chars"`

	SizeBytes     int64 `json:"model_size_bytes"`
	SizeVRAMBytes int64 `json:"model_size_vram_bytes"`

	TotalDurationS        float64     `json:"total_duration_s"`
	LoadDurationS         float64     `json:"load_duration_s"`
	PromptEvalDurationS   float64     `json:"prompt_eval_duration_s"`
	EvalDurationS         float64     `json:"eval_duration_s"`
	TimeToFirstTokenS     float64     `json:"time_to_first_token_s"`
	TokensPerSecond       float64     `json:"tokens_per_second"`
	PromptTokensPerSecond float64     `json:"prompt_tokens_per_second"`
	SizeMB                float64     `json:"model_size_mb"`
	SizeVRAMMB            float64     `json:"model_size_vram_mb"`
	ComputeMode           ComputeMode `json:"compute_mode"`
}

// NewSample builds a sample from a generate result. resident is the
// loaded-model entry for the model, or nil when it could not be found.
func NewSample(model string, prompt catalog.Prompt, run int, res *ollama.GenerateResult, resident *ollama.LoadedModel, at time.Time) Sample {
	s := Sample{
		Model:              model,
		PromptID:           prompt.ID,
		PromptText:         prompt.Text,
		Run:                run,
		Timestamp:          at.UTC(),
		TotalDuration:      res.TotalDuration,
		LoadDuration:       res.LoadDuration,
		PromptEvalCount:    res.PromptEvalCount,
		PromptEvalDuration: res.PromptEvalDuration,
		EvalCount:          res.EvalCount,
		EvalDuration:       res.EvalDuration,
		ResponseChars:      len(res.Response),
	}

	if res.FirstToken > 0 {
		s.TimeToFirstToken = res.FirstToken
		s.TTFTSource = TTFTStream
	} else {
		s.TimeToFirstToken = res.PromptEvalDuration
		s.TTFTSource = TTFTPromptEval
	}

	s.ComputeMode = ComputeUnknown
	if resident != nil {
		s.SizeBytes = resident.SizeBytes
		s.SizeVRAMBytes = resident.SizeVRAMBytes
		s.ComputeMode = ClassifyCompute(resident.SizeBytes, resident.SizeVRAMBytes)
	}

	s.TotalDurationS = s.TotalDuration.Seconds()
	s.LoadDurationS = s.LoadDuration.Seconds()
	s.PromptEvalDurationS = s.PromptEvalDuration.Seconds()
	s.EvalDurationS = s.EvalDuration.Seconds()
	s.TimeToFirstTokenS = s.TimeToFirstToken.Seconds()
	s.TokensPerSecond = rate(s.EvalCount, s.EvalDuration)
	s.PromptTokensPerSecond = rate(s.PromptEvalCount, s.PromptEvalDuration)
	s.SizeMB = bytesToMB(s.SizeBytes)
	s.SizeVRAMMB = bytesToMB(s.SizeVRAMBytes)

	return s
}

// rate is tokens per second, defined as 0 when no time elapsed.
func rate(tokens int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(tokens) / d.Seconds()
}

func bytesToMB(b int64) float64 {
	return float64(b) / (1024 * 1024)
}
