package progress

import (
	"maps"
	"time"
)

// Status is the lifecycle position of the active operation.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// Operation names the kind of background work the store is tracking.
type Operation string

const (
	OperationPull      Operation = "pull"
	OperationBenchmark Operation = "benchmark"
)

// State is a point-in-time copy of the store. Readers always receive a
// State by value; mutating it never affects the store.
type State struct {
	ID              string         `json:"id,omitempty"`
	Operation       Operation      `json:"operation,omitempty"`
	Status          Status         `json:"status"`
	Step            int            `json:"step"`
	TotalSteps      int            `json:"total_steps"`
	CurrentStep     string         `json:"current_step,omitempty"`
	Message         string         `json:"message,omitempty"`
	Progress        float64        `json:"progress"`
	CompletedBytes  int64          `json:"completed_bytes,omitempty"`
	TotalBytes      int64          `json:"total_bytes,omitempty"`
	CancelRequested bool           `json:"cancel_requested"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Error           string         `json:"error,omitempty"`
	ResultRef       string         `json:"result_ref,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`

	// Seq increases by one on every mutation of the store.
	Seq uint64 `json:"seq"`
}

// Idle is the sentinel state reported when nothing has run yet.
func Idle() State {
	return State{Status: StatusIdle}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	if s.Metadata != nil {
		c.Metadata = maps.Clone(s.Metadata)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// ByteCounts carries download progress.
type ByteCounts struct {
	Completed int64
	Total     int64
}

// Update is one progress report from the operation that owns the store.
type Update struct {
	// Step is the 1-based index of the step in flight or just finished.
	// A step is announced and then finished under the same index, so it
	// repeats across those two updates but never decreases.
	Step int
	// Label is a short description of the step, e.g. "llama3.2:1b/quick_qa/2".
	Label    string
	Message  string
	Progress float64
	Bytes    *ByteCounts
	// Metadata entries are merged into the state's metadata.
	Metadata map[string]any
}
