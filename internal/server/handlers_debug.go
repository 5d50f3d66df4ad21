package server

import (
	"net/http"
	"runtime"
)

// handleDebugStatus handles GET /debug/status.
func (s *Server) handleDebugStatus(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := map[string]any{
		"debug_enabled": s.cfg().Debug.Enabled,
		"progress":      s.c.Progress.Snapshot(),
		"runtime": map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": mem.HeapAlloc,
			"num_gc":     mem.NumGC,
			"go_version": runtime.Version(),
		},
	}

	if last := s.c.Runner.Last(); last != nil {
		resp["last_run"] = map[string]any{
			"id":       last.ID,
			"status":   last.Status,
			"samples":  len(last.Samples),
			"failures": len(last.Failures),
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
