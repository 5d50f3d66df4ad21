package config

import (
	"strings"
	"testing"
)

func TestValidateDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidateServerPort(t *testing.T) {
	tests := []struct {
		port    int
		wantErr bool
	}{
		{0, true},
		{-1, true},
		{65536, true},
		{1, false},
		{5555, false},
		{65535, false},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Server.Port = tt.port
		err := cfg.Server.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("port %d: wantErr=%v, got %v", tt.port, tt.wantErr, err)
		}
	}
}

func TestValidateRateLimit(t *testing.T) {
	cfg := Default()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerSecond = 0
	if err := cfg.Server.Validate(); err == nil {
		t.Error("expected error for zero requests_per_second")
	}

	cfg.Server.RateLimit.RequestsPerSecond = 10
	cfg.Server.RateLimit.Burst = 0
	if err := cfg.Server.Validate(); err == nil {
		t.Error("expected error for zero burst")
	}

	cfg.Server.RateLimit.Enabled = false
	if err := cfg.Server.Validate(); err != nil {
		t.Errorf("disabled rate limit should not be validated: %v", err)
	}
}

func TestValidateOllama(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*OllamaConfig)
		wantErr bool
	}{
		{"valid defaults", func(o *OllamaConfig) {}, false},
		{"relative url", func(o *OllamaConfig) { o.BaseURL = "localhost:11434" }, true},
		{"empty url", func(o *OllamaConfig) { o.BaseURL = "" }, true},
		{"zero request timeout", func(o *OllamaConfig) { o.RequestTimeoutSec = 0 }, true},
		{"zero probe timeout", func(o *OllamaConfig) { o.ProbeTimeoutSec = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.Ollama)
			err := cfg.Ollama.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateBenchmark(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*BenchmarkConfig)
		wantErr bool
	}{
		{"valid defaults", func(b *BenchmarkConfig) {}, false},
		{"no models", func(b *BenchmarkConfig) { b.Models = nil }, true},
		{"no prompts", func(b *BenchmarkConfig) { b.Prompts = nil }, true},
		{
			name: "duplicate prompt id",
			modify: func(b *BenchmarkConfig) {
				b.Prompts = append(b.Prompts, PromptConfig{ID: "quick_qa", Prompt: "again"})
			},
			wantErr: true,
		},
		{
			name: "empty prompt text",
			modify: func(b *BenchmarkConfig) {
				b.Prompts = []PromptConfig{{ID: "x"}}
			},
			wantErr: true,
		},
		{"default runs zero", func(b *BenchmarkConfig) { b.DefaultRuns = 0 }, true},
		{"default runs above max", func(b *BenchmarkConfig) { b.DefaultRuns = 11 }, true},
		{"run option above max", func(b *BenchmarkConfig) { b.RunOptions = []int{1, 20} }, true},
		{"failure threshold zero", func(b *BenchmarkConfig) { b.FailureThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.Benchmark)
			err := cfg.Benchmark.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidatePersistence(t *testing.T) {
	tests := []struct {
		backend string
		dataDir string
		wantErr bool
	}{
		{"file", "/tmp/bf", false},
		{"sqlite", "/tmp/bf", false},
		{"postgres", "/tmp/bf", true},
		{"file", "", true},
	}

	for _, tt := range tests {
		p := PersistenceConfig{Backend: tt.backend, DataDir: tt.dataDir, FlushIntervalSec: 10}
		err := p.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("backend=%s dir=%q: wantErr=%v, got %v", tt.backend, tt.dataDir, tt.wantErr, err)
		}
	}
}

func TestValidateSchedule(t *testing.T) {
	valid := ScheduleConfig{
		Enabled: true,
		Cron:    "*/30 * * * *",
		Models:  []string{"llama3.2:1b"},
		Prompts: []string{"quick_qa"},
		Runs:    2,
	}
	if err := valid.Validate(10); err != nil {
		t.Errorf("expected valid schedule, got %v", err)
	}

	bad := valid
	bad.Cron = "every tuesday"
	if err := bad.Validate(10); err == nil {
		t.Error("expected error for bad cron expression")
	}

	bad = valid
	bad.Runs = 11
	if err := bad.Validate(10); err == nil {
		t.Error("expected error for runs above max")
	}

	disabled := ScheduleConfig{Enabled: false, Cron: "nonsense"}
	if err := disabled.Validate(10); err != nil {
		t.Errorf("disabled schedule should not be validated: %v", err)
	}
}

func TestValidateLogging(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"debug", "json", false},
		{"info", "text", false},
		{"warn", "json", false},
		{"error", "text", false},
		{"trace", "json", true},
		{"info", "xml", true},
	}

	for _, tt := range tests {
		l := LoggingConfig{Level: tt.level, Format: tt.format}
		err := l.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("level=%s format=%s: wantErr=%v, got %v", tt.level, tt.format, tt.wantErr, err)
		}
	}
}

func TestValidateAuth(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{Enabled: false}, false},
		{"enabled with creds", AuthConfig{Enabled: true, User: "admin", Password: "secret"}, false},
		{"enabled no user", AuthConfig{Enabled: true, Password: "secret"}, true},
		{"enabled no password", AuthConfig{Enabled: true, User: "admin"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.auth.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	for _, want := range []string{"server:", "logging:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}
