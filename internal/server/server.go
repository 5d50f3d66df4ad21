package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haskel/benchfox/internal/config"
	"github.com/haskel/benchfox/internal/server/middleware"
)

// heartbeatInterval is how often an idle event stream sends a keepalive.
const heartbeatInterval = 15 * time.Second

type Server struct {
	httpServer *http.Server
	c          Components
	logger     *slog.Logger
	version    string
	authConfig *middleware.AuthConfig
	limiter    *middleware.Limiter
	heartbeat  time.Duration

	mu     sync.RWMutex
	config *config.Config
}

func New(cfg *config.Config, c Components, logger *slog.Logger, version string) *Server {
	authConfig := &middleware.AuthConfig{
		Enabled:  cfg.Auth.Enabled,
		User:     cfg.Auth.User,
		Password: cfg.Auth.Password,
	}

	s := &Server{
		c:          c,
		config:     cfg,
		logger:     logger,
		version:    version,
		authConfig: authConfig,
		limiter:    middleware.NewLimiter(cfg.Server.RateLimit),
		heartbeat:  heartbeatInterval,
	}

	mux := s.setupRoutes()

	handler := middleware.Chain(
		mux,
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.SecurityHeaders(),
		middleware.RateLimit(s.limiter),
		middleware.Auth(authConfig, "/health"), // Exclude /health from auth
		middleware.MaxBody(cfg.Server.MaxBodyBytes),
	)

	// WriteTimeout stays zero: event streams outlive any fixed deadline.
	// Regular handlers are bounded by their own contexts.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Event streams watch the request context; cancel it on shutdown so
	// they end instead of holding Shutdown until its deadline.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	s.httpServer.BaseContext = func(net.Listener) context.Context { return streamCtx }
	s.httpServer.RegisterOnShutdown(cancelStreams)

	return s
}

// ReloadConfig applies the settings that can change at runtime.
// Host and port changes require a restart.
func (s *Server) ReloadConfig(cfg *config.Config) {
	s.logger.Info("reloading configuration")

	s.authConfig.Update(cfg.Auth.Enabled, cfg.Auth.User, cfg.Auth.Password)
	s.limiter.Update(cfg.Server.RateLimit)

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	s.logger.Info("configuration reloaded",
		"auth_enabled", cfg.Auth.Enabled,
		"rate_limit_enabled", cfg.Server.RateLimit.Enabled,
	)
}

func (s *Server) cfg() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("server starting",
		"addr", s.httpServer.Addr,
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
