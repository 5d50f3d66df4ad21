package config

import "time"

type Config struct {
	Server      ServerConfig      `yaml:"server" json:"server"`
	Auth        AuthConfig        `yaml:"auth" json:"auth"`
	Ollama      OllamaConfig      `yaml:"ollama" json:"ollama"`
	Benchmark   BenchmarkConfig   `yaml:"benchmark" json:"benchmark"`
	System      SystemConfig      `yaml:"system" json:"system"`
	Persistence PersistenceConfig `yaml:"persistence" json:"persistence"`
	Schedule    ScheduleConfig    `yaml:"schedule" json:"schedule"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Debug       DebugConfig       `yaml:"debug" json:"debug"`
}

// DebugConfig holds debug mode configuration.
type DebugConfig struct {
	// Enabled exposes /debug/status.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Auth holds debug-specific authentication.
	// If not set but main auth is enabled, main auth is used.
	Auth DebugAuthConfig `yaml:"auth" json:"auth"`
}

// DebugAuthConfig holds debug endpoint authentication.
type DebugAuthConfig struct {
	// Token for Bearer authentication on debug endpoints.
	Token string `yaml:"token" json:"-"`
}

type ServerConfig struct {
	Host         string          `yaml:"host" json:"host"`
	Port         int             `yaml:"port" json:"port"`
	PIDFile      string          `yaml:"pid_file" json:"pid_file"`
	MaxBodyBytes int64           `yaml:"max_body_bytes" json:"max_body_bytes"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Profiling    ProfilingConfig `yaml:"profiling" json:"profiling"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

type ProfilingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
}

// OllamaConfig describes how to reach the inference server.
type OllamaConfig struct {
	BaseURL           string `yaml:"base_url" json:"base_url"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec" json:"request_timeout_sec"`
	ProbeTimeoutSec   int    `yaml:"probe_timeout_sec" json:"probe_timeout_sec"`
	// StreamGenerate measures time to first token from the response stream
	// instead of approximating it with prompt evaluation time.
	StreamGenerate bool `yaml:"stream_generate" json:"stream_generate"`
}

type BenchmarkConfig struct {
	Models           []string       `yaml:"models" json:"models"`
	Prompts          []PromptConfig `yaml:"prompts" json:"prompts"`
	DefaultRuns      int            `yaml:"default_runs" json:"default_runs"`
	RunOptions       []int          `yaml:"run_options" json:"run_options"`
	MaxRuns          int            `yaml:"max_runs" json:"max_runs"`
	FailureThreshold int            `yaml:"failure_threshold" json:"failure_threshold"`
	UnloadBeforeRun  bool           `yaml:"unload_before_run" json:"unload_before_run"`
	PullMissing      bool           `yaml:"pull_missing" json:"pull_missing"`
}

type PromptConfig struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Icon        string `yaml:"icon" json:"icon"`
	Description string `yaml:"description" json:"description"`
	Complexity  string `yaml:"complexity" json:"complexity"`
	Prompt      string `yaml:"prompt" json:"prompt"`
}

// SystemConfig overrides detected hardware facts. GPU details cannot be
// discovered portably, so they come from here.
type SystemConfig struct {
	Name      string  `yaml:"name" json:"name"`
	GPUModel  string  `yaml:"gpu_model" json:"gpu_model"`
	GPUVRAMGB float64 `yaml:"gpu_vram_gb" json:"gpu_vram_gb"`
	GPUDriver string  `yaml:"gpu_driver" json:"gpu_driver"`
}

type PersistenceConfig struct {
	Backend          string `yaml:"backend" json:"backend"`
	DataDir          string `yaml:"data_dir" json:"data_dir"`
	FlushIntervalSec int    `yaml:"flush_interval_sec" json:"flush_interval_sec"`
}

// ScheduleConfig runs a fixed benchmark on a cron expression.
type ScheduleConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Cron    string   `yaml:"cron" json:"cron"`
	Models  []string `yaml:"models" json:"models"`
	Prompts []string `yaml:"prompts" json:"prompts"`
	Runs    int      `yaml:"runs" json:"runs"`
	Pull    bool     `yaml:"pull" json:"pull"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Ollama.RequestTimeoutSec) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Ollama.ProbeTimeoutSec) * time.Second
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Persistence.FlushIntervalSec) * time.Second
}
