// Package schedule starts a fixed benchmark on a cron expression.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/config"
	"github.com/haskel/benchfox/internal/progress"
)

// Starter begins a benchmark in the background.
type Starter interface {
	Start(req benchmark.Request) (*benchmark.Handle, error)
}

// Scheduler fires the configured benchmark on every cron tick. A tick
// that finds another operation running is skipped.
type Scheduler struct {
	starter Starter
	logger  *slog.Logger

	mu      sync.RWMutex
	cron    *cron.Cron
	cfg     config.ScheduleConfig
	entry   cron.EntryID
	sched   cron.Schedule
	running bool

	// Stats
	fired     int64
	skipped   int64
	lastFire  time.Time
	lastRunID string
	lastError error
}

func New(starter Starter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		starter: starter,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Apply replaces the schedule. A disabled config removes it.
func (s *Scheduler) Apply(cfg config.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
		s.sched = nil
	}
	s.cfg = config.ScheduleConfig{}

	if !cfg.Enabled {
		return nil
	}

	sched, err := cron.ParseStandard(cfg.Cron)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Cron, err)
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(s.Trigger))
	s.sched = sched
	s.cfg = cfg

	s.logger.Info("benchmark scheduled", "cron", cfg.Cron, "models", cfg.Models, "prompts", cfg.Prompts)
	return nil
}

// Start begins firing scheduled benchmarks.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
}

// Stop stops the cron loop. A benchmark it started keeps running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// Trigger starts the scheduled benchmark now.
func (s *Scheduler) Trigger() {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	req := benchmark.Request{
		Models:      cfg.Models,
		Prompts:     cfg.Prompts,
		Runs:        cfg.Runs,
		PullMissing: cfg.Pull,
	}

	h, err := s.starter.Start(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, progress.ErrConflict) {
		s.skipped++
		s.logger.Info("scheduled benchmark skipped, another operation is running")
		return
	}

	s.lastFire = time.Now()
	if err != nil {
		s.lastError = err
		s.logger.Error("scheduled benchmark rejected", "error", err)
		return
	}

	s.fired++
	s.lastRunID = h.ID
	s.lastError = nil
	s.logger.Info("scheduled benchmark started", "id", h.ID)
}

// Stats is the scheduler state reported by the status endpoint.
type Stats struct {
	Enabled   bool      `json:"enabled"`
	Running   bool      `json:"running"`
	Cron      string    `json:"cron,omitempty"`
	Fired     int64     `json:"fired"`
	Skipped   int64     `json:"skipped"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastFire  time.Time `json:"last_fire,omitempty"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Enabled:   s.cfg.Enabled,
		Running:   s.running,
		Cron:      s.cfg.Cron,
		Fired:     s.fired,
		Skipped:   s.skipped,
		LastFire:  s.lastFire,
		LastRunID: s.lastRunID,
	}
	if s.sched != nil {
		stats.NextRun = s.sched.Next(time.Now())
	}
	if s.lastError != nil {
		stats.LastError = s.lastError.Error()
	}

	return stats
}
