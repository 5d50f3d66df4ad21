package server

import (
	"net/http"
	"net/http/pprof"

	"github.com/haskel/benchfox/internal/server/middleware"
)

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleInfo)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Catalog and environment
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/prompts", s.handlePrompts)
	mux.HandleFunc("GET /api/system", s.handleSystem)

	// Operations
	mux.HandleFunc("POST /api/benchmark", s.handleStartBenchmark)
	mux.HandleFunc("POST /api/benchmark/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/pull", s.handlePull)
	mux.HandleFunc("GET /api/progress", s.handleProgressStream)
	mux.HandleFunc("GET /api/progress/snapshot", s.handleProgressSnapshot)
	mux.HandleFunc("GET /api/pull/progress", s.handlePullProgressStream)

	// Results
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/trends", s.handleTrends)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryRun)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	// Schedule
	mux.HandleFunc("GET /api/schedule", s.handleScheduleStats)
	mux.HandleFunc("POST /api/schedule/run", s.handleScheduleRun)

	// Setup debug routes with separate authentication
	s.setupDebugRoutes(mux)

	return mux
}

// setupDebugRoutes configures debug and profiling endpoints with authentication.
func (s *Server) setupDebugRoutes(mux *http.ServeMux) {
	cfg := s.cfg()
	profilingEnabled := cfg.Server.Profiling.Enabled
	debugEnabled := cfg.Debug.Enabled

	if !profilingEnabled && !debugEnabled {
		return
	}

	debugAuthConfig := &middleware.DebugAuthConfig{
		Token:              cfg.Debug.Auth.Token,
		FallbackAuthConfig: s.authConfig,
	}
	debugAuth := middleware.DebugAuth(debugAuthConfig)

	if profilingEnabled {
		s.logger.Info("profiling endpoints enabled at /debug/pprof/ (auth required)")
		mux.Handle("GET /debug/pprof/{$}", debugAuth(http.HandlerFunc(pprof.Index)))
		mux.Handle("GET /debug/pprof/cmdline", debugAuth(http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("GET /debug/pprof/profile", debugAuth(http.HandlerFunc(pprof.Profile)))
		mux.Handle("GET /debug/pprof/symbol", debugAuth(http.HandlerFunc(pprof.Symbol)))
		mux.Handle("POST /debug/pprof/symbol", debugAuth(http.HandlerFunc(pprof.Symbol)))
		mux.Handle("GET /debug/pprof/trace", debugAuth(http.HandlerFunc(pprof.Trace)))
		mux.Handle("GET /debug/pprof/{name...}", debugAuth(http.HandlerFunc(pprof.Index)))
	}

	if debugEnabled {
		s.logger.Warn("debug mode enabled - debug endpoints require authentication")
		mux.Handle("GET /debug/status", debugAuth(http.HandlerFunc(s.handleDebugStatus)))
	}
}
