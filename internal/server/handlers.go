package server

import (
	"encoding/json"
	"net/http"

	"github.com/haskel/benchfox/internal/catalog"
)

type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse reports whether the inference server answers.
type StatusResponse struct {
	OllamaAvailable bool   `json:"ollama_available"`
	Message         string `json:"message"`
	Operation       string `json:"operation"`
}

type ModelsResponse struct {
	Models          []catalog.ModelStatus `json:"models"`
	OllamaAvailable bool                  `json:"ollama_available"`
	Error           string                `json:"error,omitempty"`
}

type PromptsResponse struct {
	Prompts     []catalog.Prompt `json:"prompts"`
	DefaultRuns int              `json:"default_runs"`
	RunOptions  []int            `json:"run_options"`
	MaxRuns     int              `json:"max_runs"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	resp := InfoResponse{
		Name:    "benchfox",
		Version: s.version,
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Message:   "Ollama is running",
		Operation: string(s.c.Progress.Snapshot().Status),
	}

	ok, err := s.c.Client.CheckAvailability(r.Context())
	resp.OllamaAvailable = ok
	if !ok {
		resp.Message = "Ollama is not available"
		if err != nil {
			s.logger.Debug("availability check failed", "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	resp := ModelsResponse{OllamaAvailable: true}

	installed, err := s.c.Client.ListModels(r.Context())
	if err != nil {
		s.logger.Warn("failed to list installed models", "error", err)
		resp.OllamaAvailable = false
		resp.Error = err.Error()
	}

	resp.Models = s.c.Catalog.Statuses(installed)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	bc := s.cfg().Benchmark

	s.writeJSON(w, http.StatusOK, PromptsResponse{
		Prompts:     s.c.Catalog.Prompts(),
		DefaultRuns: bc.DefaultRuns,
		RunOptions:  bc.RunOptions,
		MaxRuns:     bc.MaxRuns,
	})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.c.System.Snapshot(r.Context()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status,
		)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
