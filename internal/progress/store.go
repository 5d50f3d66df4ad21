package progress

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrConflict is returned when an operation is already running.
	ErrConflict = errors.New("another operation is already running")
	// ErrTerminal is returned when mutating an operation that has finished.
	ErrTerminal = errors.New("operation already finished")
	// ErrStale is returned when a handle no longer owns the store.
	ErrStale = errors.New("operation is no longer current")
	// ErrStepOrder is returned when a step index moves backwards.
	ErrStepOrder = errors.New("step index decreased")
)

// Store holds the single progress record of the process. Writes come from
// the operation holding an *Op; any goroutine may read snapshots.
type Store struct {
	mu    sync.RWMutex
	state State
	seq   uint64
	subs  map[*Subscription]struct{}
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: Idle(),
		subs:  make(map[*Subscription]struct{}),
		now:   time.Now,
	}
}

// Reset begins a new operation and returns the handle that owns it.
func (s *Store) Reset(kind Operation, totalSteps int, metadata map[string]any) (*Op, error) {
	if totalSteps < 0 {
		return nil, fmt.Errorf("total steps must be non-negative, got %d", totalSteps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == StatusRunning {
		return nil, ErrConflict
	}

	started := s.now()
	id := uuid.NewString()

	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	s.state = State{
		ID:         id,
		Operation:  kind,
		Status:     StatusRunning,
		TotalSteps: totalSteps,
		Metadata:   md,
		StartedAt:  &started,
	}
	s.publishLocked()

	return &Op{store: s, id: id, kind: kind}, nil
}

// RequestCancel flags the running operation for cancellation. It is safe to
// call at any time and reports whether an operation was running.
func (s *Store) RequestCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != StatusRunning {
		return false
	}
	if s.state.CancelRequested {
		return true
	}

	s.state.CancelRequested = true
	s.publishLocked()
	return true
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Running reports whether an operation currently owns the store.
func (s *Store) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status == StatusRunning
}

func (s *Store) update(id string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwnerLocked(id); err != nil {
		return err
	}

	if u.Step < s.state.Step {
		return fmt.Errorf("%w: %d after %d", ErrStepOrder, u.Step, s.state.Step)
	}

	s.state.Step = u.Step
	if u.Label != "" {
		s.state.CurrentStep = u.Label
	}
	s.state.Message = u.Message

	p := clamp(u.Progress)
	if p > s.state.Progress {
		s.state.Progress = p
	}

	if u.Bytes != nil {
		s.state.CompletedBytes = u.Bytes.Completed
		s.state.TotalBytes = u.Bytes.Total
	}

	for k, v := range u.Metadata {
		s.state.Metadata[k] = v
	}

	s.publishLocked()
	return nil
}

func (s *Store) finish(id string, status Status, message, errMsg, resultRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwnerLocked(id); err != nil {
		return err
	}

	done := s.now()
	s.state.Status = status
	s.state.Message = message
	s.state.Error = errMsg
	s.state.ResultRef = resultRef
	s.state.CompletedAt = &done
	if status == StatusComplete {
		s.state.Progress = 1
	}

	s.publishLocked()
	return nil
}

func (s *Store) cancelRequested(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ID == id && s.state.CancelRequested
}

func (s *Store) checkOwnerLocked(id string) error {
	if s.state.ID != id {
		return ErrStale
	}
	if s.state.Status.Terminal() {
		return ErrTerminal
	}
	return nil
}

// publishLocked bumps the sequence and hands a copy to every subscriber.
// Callers hold s.mu for writing.
func (s *Store) publishLocked() {
	s.seq++
	s.state.Seq = s.seq

	if len(s.subs) == 0 {
		return
	}

	snap := s.state.Clone()
	for sub := range s.subs {
		sub.push(snap)
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Op is the write handle of one operation. Only the goroutine running the
// operation should use it.
type Op struct {
	store *Store
	id    string
	kind  Operation
}

func (o *Op) ID() string {
	return o.id
}

func (o *Op) Kind() Operation {
	return o.kind
}

func (o *Op) Update(u Update) error {
	return o.store.update(o.id, u)
}

// Complete marks the operation successful.
func (o *Op) Complete(resultRef, message string) error {
	return o.store.finish(o.id, StatusComplete, message, "", resultRef)
}

// Fail marks the operation failed with err.
func (o *Op) Fail(err error) error {
	msg := "operation failed"
	if err != nil {
		msg = err.Error()
	}
	return o.store.finish(o.id, StatusError, msg, msg, "")
}

// Cancelled marks the operation stopped early at the caller's request.
func (o *Op) Cancelled(resultRef, message string) error {
	return o.store.finish(o.id, StatusCancelled, message, "", resultRef)
}

// CancelRequested reports whether RequestCancel was called during this
// operation.
func (o *Op) CancelRequested() bool {
	return o.store.cancelRequested(o.id)
}
