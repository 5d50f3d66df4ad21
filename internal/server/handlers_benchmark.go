package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/sysinfo"
)

type StartResponse struct {
	Status     string   `json:"status"`
	ID         string   `json:"id"`
	Operation  string   `json:"operation"`
	TotalSteps int      `json:"total_steps"`
	Models     []string `json:"models,omitempty"`
	Prompts    []string `json:"prompts,omitempty"`
	Runs       int      `json:"runs,omitempty"`
	Model      string   `json:"model,omitempty"`
}

type CancelResponse struct {
	Status string `json:"status"`
	Active bool   `json:"active"`
}

type PullRequest struct {
	Model string `json:"model"`
}

// RunResponse is a run with its statistics.
type RunResponse struct {
	ID          string                  `json:"id"`
	Status      benchmark.RunStatus     `json:"status"`
	SystemInfo  sysinfo.Info            `json:"system_info"`
	Request     benchmark.Request       `json:"request"`
	Results     []benchmark.Sample      `json:"results"`
	TotalTests  int                     `json:"total_tests"`
	Failures    []benchmark.StepFailure `json:"failures,omitempty"`
	Error       string                  `json:"error,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	Statistics  benchmark.Summary       `json:"statistics"`
}

func newRunResponse(run *benchmark.Run) RunResponse {
	return RunResponse{
		ID:          run.ID,
		Status:      run.Status,
		SystemInfo:  run.System,
		Request:     run.Request,
		Results:     run.Samples,
		TotalTests:  len(run.Samples),
		Failures:    run.Failures,
		Error:       run.Error,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Statistics:  benchmark.Aggregate(run),
	}
}

func (s *Server) handleStartBenchmark(w http.ResponseWriter, r *http.Request) {
	var req benchmark.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h, err := s.c.Runner.Start(req)
	if err != nil {
		s.writeStartError(w, err)
		return
	}

	// Start fills in default runs on its own copy.
	runs := req.Runs
	if n := len(req.Models) * len(req.Prompts); n > 0 {
		runs = h.TotalSteps / n
	}

	s.writeJSON(w, http.StatusOK, StartResponse{
		Status:     "started",
		ID:         h.ID,
		Operation:  string(h.Operation),
		TotalSteps: h.TotalSteps,
		Models:     req.Models,
		Prompts:    req.Prompts,
		Runs:       runs,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	active := s.c.Runner.Cancel()

	resp := CancelResponse{Status: "cancel_requested", Active: active}
	if !active {
		resp.Status = "idle"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h, err := s.c.Runner.Pull(req.Model)
	if err != nil {
		s.writeStartError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, StartResponse{
		Status:     "started",
		ID:         h.ID,
		Operation:  string(h.Operation),
		TotalSteps: h.TotalSteps,
		Model:      req.Model,
	})
}

// writeStartError separates rejected input from a busy runner.
func (s *Server) writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, benchmark.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, progress.ErrConflict):
		s.writeError(w, http.StatusConflict, "another operation is already running")
	default:
		s.logger.Error("failed to start operation", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleResults returns the latest run, falling back to history after a
// restart.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	run := s.c.Runner.Last()

	if run == nil && s.c.History != nil {
		entries, err := s.c.History.List(r.Context(), 1)
		if err == nil && len(entries) > 0 {
			run, _ = s.c.History.Get(r.Context(), entries[0].ID)
		}
	}

	if run == nil {
		s.writeError(w, http.StatusNotFound, "no benchmark has been run yet")
		return
	}

	s.writeJSON(w, http.StatusOK, newRunResponse(run))
}
