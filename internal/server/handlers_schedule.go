package server

import "net/http"

func (s *Server) handleScheduleStats(w http.ResponseWriter, r *http.Request) {
	if s.c.Scheduler == nil {
		s.writeError(w, http.StatusServiceUnavailable, "scheduler not enabled")
		return
	}

	s.writeJSON(w, http.StatusOK, s.c.Scheduler.Stats())
}

// handleScheduleRun fires the scheduled benchmark immediately.
func (s *Server) handleScheduleRun(w http.ResponseWriter, r *http.Request) {
	if s.c.Scheduler == nil {
		s.writeError(w, http.StatusServiceUnavailable, "scheduler not enabled")
		return
	}
	if !s.c.Scheduler.Stats().Enabled {
		s.writeError(w, http.StatusConflict, "no benchmark is scheduled")
		return
	}

	s.c.Scheduler.Trigger()
	s.writeJSON(w, http.StatusOK, s.c.Scheduler.Stats())
}
