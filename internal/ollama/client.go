// Package ollama is the contract the benchmark runner needs from an
// inference server, plus an implementation over the Ollama HTTP API.
package ollama

import (
	"context"
	"strings"
	"time"
)

// Client is the set of inference-server operations used by the runner.
// Every method may block; none should be called from a request handler.
type Client interface {
	// CheckAvailability reports whether the server answers.
	CheckAvailability(ctx context.Context) (bool, error)
	// ListModels returns the models installed on the server.
	ListModels(ctx context.Context) ([]Model, error)
	// Pull downloads a model, sending progress on events. Pull closes events
	// before returning. Cancelling ctx abandons the stream.
	Pull(ctx context.Context, model string, events chan<- PullProgress) error
	// Generate runs a single non-interactive completion and returns its
	// timing metrics.
	Generate(ctx context.Context, model, prompt string) (*GenerateResult, error)
	// Unload evicts a model from memory.
	Unload(ctx context.Context, model string) error
	// LoadedModels returns the models currently resident in memory.
	LoadedModels(ctx context.Context) ([]LoadedModel, error)
}

// Model is an installed model.
type Model struct {
	Name       string    `json:"name"`
	Downloaded bool      `json:"downloaded"`
	SizeBytes  int64     `json:"size"`
	Digest     string    `json:"digest,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// PullProgress is one line of a pull stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
}

// GenerateResult holds the response and the server-reported timings.
type GenerateResult struct {
	Response           string
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalCount    int
	PromptEvalDuration time.Duration
	EvalCount          int
	EvalDuration       time.Duration
	// FirstToken is the wall-clock delay until the first response chunk
	// arrived. Zero when the response was not streamed.
	FirstToken time.Duration
}

// LoadedModel is a model resident in memory.
type LoadedModel struct {
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size"`
	SizeVRAMBytes int64  `json:"size_vram"`
}

// FindLoaded finds model among loaded. A bare name matches any tag of it,
// so "mistral" matches "mistral:latest".
func FindLoaded(loaded []LoadedModel, model string) (LoadedModel, bool) {
	for _, m := range loaded {
		if m.Name == model || strings.HasPrefix(m.Name, model+":") {
			return m, true
		}
	}
	return LoadedModel{}, false
}

// HasModel reports whether model is among installed. It resolves names
// the way the server does: a bare name means the ":latest" tag, so
// "mistral" is not satisfied by "mistral:7b". FindLoaded is looser since
// residency only classifies a model that was already requested.
func HasModel(installed []Model, model string) bool {
	for _, m := range installed {
		if m.Name == model || strings.TrimSuffix(m.Name, ":latest") == model {
			return true
		}
	}
	return false
}
