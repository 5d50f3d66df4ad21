package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/storage"
)

type HistoryResponse struct {
	Runs []storage.Entry `json:"runs"`
}

type ImportResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Samples int    `json:"samples"`
}

// trendSource is implemented by history backends that can aggregate
// across runs.
type trendSource interface {
	Trends(ctx context.Context) ([]storage.ModelTrend, error)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.c.History == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.c.History.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}

	s.writeJSON(w, http.StatusOK, HistoryResponse{Runs: entries})
}

func (s *Server) handleHistoryRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, newRunResponse(run))
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.c.History.(trendSource)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "trends require the sqlite persistence backend")
		return
	}

	trends, err := ts.Trends(r.Context())
	if err != nil {
		s.logger.Error("failed to compute trends", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to compute trends")
		return
	}
	if trends == nil {
		trends = []storage.ModelTrend{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"models": trends})
}

// handleExport writes a run as a benchmark document or as CSV. Without an
// id the latest run is exported.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var run *benchmark.Run
	if id := r.URL.Query().Get("id"); id != "" {
		var ok bool
		if run, ok = s.lookupRun(w, r, id); !ok {
			return
		}
	} else if run = s.c.Runner.Last(); run == nil {
		s.writeError(w, http.StatusNotFound, "no benchmark has been run yet")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="benchfox-%s.json"`, run.ID))
		w.Header().Set("Content-Type", "application/json")
		if err := benchmark.Export(run, time.Now()).Encode(w); err != nil {
			s.logger.Error("failed to encode export", "id", run.ID, "error", err)
		}
	case "csv":
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="benchfox-%s.csv"`, run.ID))
		w.Header().Set("Content-Type", "text/csv")
		if err := benchmark.WriteCSV(w, run); err != nil {
			s.logger.Error("failed to write csv export", "id", run.ID, "error", err)
		}
	default:
		s.writeError(w, http.StatusBadRequest, "format must be json or csv")
	}
}

// handleImport verifies an exported document and stores its run.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.c.History == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}

	doc, err := benchmark.Import(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.c.History.Save(r.Context(), doc.Run); err != nil {
		s.logger.Error("failed to store imported run", "id", doc.Run.ID, "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("imported run", "id", doc.Run.ID, "samples", len(doc.Run.Samples))
	s.writeJSON(w, http.StatusOK, ImportResponse{
		Status:  "imported",
		ID:      doc.Run.ID,
		Samples: len(doc.Run.Samples),
	})
}

// lookupRun finds a run in memory or in history, writing the error
// response itself when it cannot.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request, id string) (*benchmark.Run, bool) {
	if last := s.c.Runner.Last(); last != nil && last.ID == id {
		return last, true
	}

	if s.c.History == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}

	run, err := s.c.History.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to read run", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read run")
		return nil, false
	}

	return run, true
}
