package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/catalog"
	"github.com/haskel/benchfox/internal/config"
	"github.com/haskel/benchfox/internal/logger"
	"github.com/haskel/benchfox/internal/ollama"
	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/schedule"
	"github.com/haskel/benchfox/internal/server"
	"github.com/haskel/benchfox/internal/storage"
	"github.com/haskel/benchfox/internal/sysinfo"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the benchfox server",
	Long: `Start the benchfox server in foreground mode.

The server reloads its configuration on SIGHUP, and on every change of the
config file when --watch-config is set. Host and port changes need a restart.`,
	RunE: runStart,
}

var (
	watchConfig bool
	envFile     string
)

func init() {
	startCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "reload when the config file changes")
	startCmd.Flags().StringVar(&envFile, "env-file", ".env", "env file loaded before the config")
	rootCmd.AddCommand(startCmd)
}

// app holds the long-lived components whose settings can be reloaded.
type app struct {
	level     *slog.LevelVar
	catalog   *catalog.Catalog
	runner    *benchmark.Runner
	system    *sysinfo.Collector
	scheduler *schedule.Scheduler
	server    *server.Server
	logger    *slog.Logger

	// reloads come from SIGHUP and the file watcher concurrently
	mu sync.Mutex
}

func runnerOptions(cfg *config.Config) benchmark.Options {
	return benchmark.Options{
		DefaultRuns:      cfg.Benchmark.DefaultRuns,
		MaxRuns:          cfg.Benchmark.MaxRuns,
		FailureThreshold: cfg.Benchmark.FailureThreshold,
		UnloadBeforeRun:  cfg.Benchmark.UnloadBeforeRun,
	}
}

func ollamaConfig(cfg *config.Config) ollama.Config {
	return ollama.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		RequestTimeout: cfg.RequestTimeout(),
		ProbeTimeout:   cfg.ProbeTimeout(),
		StreamGenerate: cfg.Ollama.StreamGenerate,
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}

	return cfg, cfg.Validate()
}

func runStart(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Logging.Level))
	if verbose {
		level.Set(slog.LevelDebug)
	}
	log := logger.NewWithLevel(os.Stdout, level, cfg.Logging.Format)

	log.Info("benchfox starting",
		"version", Version,
		"config", cfgFile,
		"ollama", cfg.Ollama.BaseURL,
	)

	client := ollama.NewHTTPClient(ollamaConfig(cfg))
	store := progress.NewStore()
	cat := catalog.FromConfig(cfg.Benchmark)
	system := sysinfo.NewCollector(sysinfo.DefaultProbes(), cfg.System, log)

	history, err := storage.Open(cfg.Persistence, log)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	runner := benchmark.NewRunner(client, store, cat, system, history, runnerOptions(cfg), log)

	scheduler := schedule.New(runner, log)
	if err := scheduler.Apply(cfg.Schedule); err != nil {
		return fmt.Errorf("failed to configure schedule: %w", err)
	}
	scheduler.Start()

	// Warm the system snapshot so the first benchmark does not pay for it.
	go system.Snapshot(context.Background())

	// Write PID file if configured
	if cfg.Server.PIDFile != "" {
		if err := writePIDFile(cfg.Server.PIDFile); err != nil {
			log.Warn("failed to write PID file", "error", err)
		} else {
			defer os.Remove(cfg.Server.PIDFile)
		}
	}

	srv := server.New(cfg, server.Components{
		Runner:    runner,
		Progress:  store,
		Client:    client,
		Catalog:   cat,
		System:    system,
		History:   history,
		Scheduler: scheduler,
	}, log, Version)

	a := &app{
		level:     level,
		catalog:   cat,
		runner:    runner,
		system:    system,
		scheduler: scheduler,
		server:    srv,
		logger:    log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if watchConfig {
		if cfgFile == "" {
			log.Warn("--watch-config needs --config; file watching disabled")
		} else {
			cw, err := newConfigWatcher(cfgFile, 500*time.Millisecond, func() { a.reload(cmd, "config file changed") }, log)
			if err != nil {
				return err
			}
			go cw.Run(ctx)
			log.Info("watching config file", "path", cfgFile)
		}
	}

	// Signal channels
	sighupCh := make(chan os.Signal, 1)
	sigCh := make(chan os.Signal, 1)
	shutdownDone := make(chan struct{})

	signal.Notify(sighupCh, syscall.SIGHUP)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Handle SIGHUP for hot-reload
	go func() {
		for {
			select {
			case <-sighupCh:
				a.reload(cmd, "SIGHUP received")
			case <-shutdownDone:
				return
			}
		}
	}()

	// Handle shutdown signals
	go func() {
		<-sigCh

		log.Info("shutdown signal received")

		// Stop receiving signals
		signal.Stop(sighupCh)
		signal.Stop(sigCh)
		close(shutdownDone)

		scheduler.Stop()

		// Ends a running benchmark as cancelled and persists it.
		runner.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}

		if err := history.Close(); err != nil {
			log.Error("history shutdown error", "error", err)
		}

		cancel()
	}()

	log.Info("benchfox ready", "addr", srv.Addr())

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()
	log.Info("benchfox stopped")
	return nil
}

// reload re-reads the config and applies everything that can change at
// runtime. An invalid file leaves the running settings untouched.
func (a *app) reload(cmd *cobra.Command, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("reloading configuration", "reason", reason)

	cfg, err := loadConfig(cmd)
	if err != nil {
		a.logger.Error("invalid configuration, reload aborted", "error", err)
		return
	}

	a.level.Set(logger.ParseLevel(cfg.Logging.Level))
	a.catalog.Update(cfg.Benchmark.Models, catalog.PromptsFromConfig(cfg.Benchmark.Prompts))
	a.runner.SetOptions(runnerOptions(cfg))
	a.system.SetOverrides(cfg.System)
	if err := a.scheduler.Apply(cfg.Schedule); err != nil {
		a.logger.Error("failed to apply schedule", "error", err)
	}
	a.server.ReloadConfig(cfg)
}
