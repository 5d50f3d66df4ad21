package benchmark

import (
	"errors"
	"fmt"
	"time"

	"github.com/haskel/benchfox/internal/sysinfo"
)

var (
	// ErrInvalidRequest matches every *ValidationError.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvariant means the runner reached a state it should never reach.
	ErrInvariant = errors.New("internal invariant violation")
	// ErrUnavailable means the inference server stopped answering mid-run.
	ErrUnavailable = errors.New("inference server unavailable")
)

// ValidationError describes why a request was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Request is what a caller asks the runner to execute.
type Request struct {
	Models  []string `json:"models"`
	Prompts []string `json:"prompts"`
	Runs    int      `json:"runs"`
	// PullMissing downloads models that are not installed before the first
	// step instead of failing.
	PullMissing bool `json:"pull,omitempty"`
}

// TotalSteps is the number of inference calls the request plans.
func (r Request) TotalSteps() int {
	return len(r.Models) * len(r.Prompts) * r.Runs
}

// RunStatus is the terminal state of a benchmark.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Phase is the runner state published in progress metadata.
type Phase string

const (
	PhasePlanning  Phase = "planning"
	PhasePulling   Phase = "pulling"
	PhaseExecuting Phase = "executing"
)

// StepFailure records a generate call that did not produce a sample.
type StepFailure struct {
	Step     int    `json:"step"`
	Model    string `json:"model"`
	PromptID string `json:"prompt_id"`
	Run      int    `json:"run_number"`
	Error    string `json:"error"`
}

// Run is the immutable outcome of one benchmark.
type Run struct {
	ID          string        `json:"id"`
	Status      RunStatus     `json:"status"`
	Request     Request       `json:"request"`
	System      sysinfo.Info  `json:"system_info"`
	TotalSteps  int           `json:"total_steps"`
	Samples     []Sample      `json:"results"`
	Failures    []StepFailure `json:"failures,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}
