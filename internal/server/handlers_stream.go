package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haskel/benchfox/internal/progress"
)

// streamScope reports whether a published state belongs to a stream.
// Out-of-scope states are shown as the idle sentinel.
type streamScope func(st progress.State) bool

func allOperations(progress.State) bool { return true }

func pullOperations(st progress.State) bool {
	return st.Operation == progress.OperationPull
}

// handleProgressStream streams every progress state until an operation
// reaches a terminal state.
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	s.streamProgress(w, r, allOperations)
}

// handlePullProgressStream is handleProgressStream restricted to pulls.
// Other operations show as idle, and the stream closes once one that was
// running ends.
func (s *Server) handlePullProgressStream(w http.ResponseWriter, r *http.Request) {
	s.streamProgress(w, r, pullOperations)
}

// handleProgressSnapshot is the polling alternative to the streams.
func (s *Server) handleProgressSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.c.Progress.Snapshot())
}

func (s *Server) streamProgress(w http.ResponseWriter, r *http.Request, inScope streamScope) {
	rc := http.NewResponseController(w)

	sub := s.c.Progress.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Error("streaming unsupported", "error", err)
		return
	}

	ctx := r.Context()
	idleSent := false
	// foreign is an out-of-scope operation seen running on this stream;
	// its end closes the stream like an in-scope terminal state would.
	foreign := ""

	for {
		st, err := s.nextState(ctx, sub)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.writeEvent(w, rc, "heartbeat", []byte("ping")) {
				return
			}
			continue
		}

		show := st
		foreignDone := false
		if !inScope(st) {
			if !st.Status.Terminal() {
				foreign = st.ID
			} else if foreign != "" && st.ID == foreign {
				foreignDone = true
			}
		}
		if !inScope(st) || st.Status == progress.StatusIdle {
			if idleSent {
				if foreignDone {
					return
				}
				continue
			}
			show = progress.Idle()
		}
		idleSent = show.Status == progress.StatusIdle

		data, err := json.Marshal(show)
		if err != nil {
			s.logger.Error("failed to encode progress state", "error", err)
			return
		}
		if !s.writeEvent(w, rc, "", data) {
			return
		}

		if show.Status.Terminal() || foreignDone {
			return
		}
	}
}

// nextState waits for the next published state. It fails with
// context.DeadlineExceeded when a heartbeat is due.
func (s *Server) nextState(ctx context.Context, sub *progress.Subscription) (progress.State, error) {
	wait, cancel := context.WithTimeout(ctx, s.heartbeat)
	defer cancel()
	return sub.Next(wait)
}

// writeEvent writes one server-sent event. An empty name sends a default
// message event.
func (s *Server) writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data []byte) bool {
	_ = rc.SetWriteDeadline(time.Now().Add(10 * time.Second))

	var err error
	if event != "" {
		_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	} else {
		_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	}
	if err == nil {
		err = rc.Flush()
	}
	if err != nil {
		s.logger.Debug("event stream closed", "error", err)
		return false
	}
	return true
}
