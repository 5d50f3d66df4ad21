package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Ollama.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ollama: %w", err))
	}

	if err := c.Benchmark.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("benchmark: %w", err))
	}

	if err := c.Persistence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("persistence: %w", err))
	}

	if err := c.Schedule.Validate(c.Benchmark.MaxRuns); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	return errors.Join(errs...)
}

func (s *ServerConfig) Validate() error {
	var errs []error

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", s.Port))
	}

	if s.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be non-negative"))
	}

	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be positive"))
		}
		if s.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1"))
		}
	}

	return errors.Join(errs...)
}

func (o *OllamaConfig) Validate() error {
	var errs []error

	u, err := url.Parse(o.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute URL, got %q", o.BaseURL))
	}

	if o.RequestTimeoutSec < 1 {
		errs = append(errs, fmt.Errorf("request_timeout_sec must be at least 1"))
	}

	if o.ProbeTimeoutSec < 1 {
		errs = append(errs, fmt.Errorf("probe_timeout_sec must be at least 1"))
	}

	return errors.Join(errs...)
}

func (b *BenchmarkConfig) Validate() error {
	var errs []error

	if len(b.Models) == 0 {
		errs = append(errs, fmt.Errorf("models cannot be empty"))
	}

	if len(b.Prompts) == 0 {
		errs = append(errs, fmt.Errorf("prompts cannot be empty"))
	}

	seen := make(map[string]bool, len(b.Prompts))
	for i, p := range b.Prompts {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("prompts[%d]: id cannot be empty", i))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("prompts[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
		if p.Prompt == "" {
			errs = append(errs, fmt.Errorf("prompts[%d]: prompt text cannot be empty", i))
		}
	}

	if b.MaxRuns < 1 {
		errs = append(errs, fmt.Errorf("max_runs must be at least 1"))
	}

	if b.DefaultRuns < 1 || b.DefaultRuns > b.MaxRuns {
		errs = append(errs, fmt.Errorf("default_runs must be between 1 and max_runs (%d), got %d", b.MaxRuns, b.DefaultRuns))
	}

	for _, r := range b.RunOptions {
		if r < 1 || r > b.MaxRuns {
			errs = append(errs, fmt.Errorf("run_options entry %d outside 1..%d", r, b.MaxRuns))
		}
	}

	if b.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("failure_threshold must be at least 1"))
	}

	return errors.Join(errs...)
}

func (p *PersistenceConfig) Validate() error {
	var errs []error

	switch p.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("invalid backend: %s (valid: file, sqlite)", p.Backend))
	}

	if p.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir cannot be empty"))
	}

	if p.FlushIntervalSec < 1 {
		errs = append(errs, fmt.Errorf("flush_interval_sec must be at least 1"))
	}

	return errors.Join(errs...)
}

func (s *ScheduleConfig) Validate(maxRuns int) error {
	if !s.Enabled {
		return nil
	}

	var errs []error

	if _, err := cron.ParseStandard(s.Cron); err != nil {
		errs = append(errs, fmt.Errorf("invalid cron expression %q: %w", s.Cron, err))
	}

	if len(s.Models) == 0 {
		errs = append(errs, fmt.Errorf("models cannot be empty when schedule is enabled"))
	}

	if len(s.Prompts) == 0 {
		errs = append(errs, fmt.Errorf("prompts cannot be empty when schedule is enabled"))
	}

	if s.Runs < 1 || s.Runs > maxRuns {
		errs = append(errs, fmt.Errorf("runs must be between 1 and %d, got %d", maxRuns, s.Runs))
	}

	return errors.Join(errs...)
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", l.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", l.Format)
	}

	return nil
}

func (a *AuthConfig) Validate() error {
	if a.Enabled {
		if a.User == "" {
			return fmt.Errorf("user cannot be empty when auth is enabled")
		}
		if a.Password == "" {
			return fmt.Errorf("password cannot be empty when auth is enabled")
		}
	}
	return nil
}
