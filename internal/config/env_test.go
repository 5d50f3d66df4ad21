package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSubstituteEnvVars(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		input string
		want  string
	}{
		{
			name:  "single",
			env:   map[string]string{"BF_TEST_VAR": "test_value"},
			input: "value: ${BF_TEST_VAR}",
			want:  "value: test_value",
		},
		{
			name:  "multiple",
			env:   map[string]string{"BF_VAR1": "value1", "BF_VAR2": "value2"},
			input: "first: ${BF_VAR1}\nsecond: ${BF_VAR2}",
			want:  "first: value1\nsecond: value2",
		},
		{
			name:  "unset left unchanged",
			input: "value: ${BF_NONEXISTENT_VAR}",
			want:  "value: ${BF_NONEXISTENT_VAR}",
		},
		{
			name:  "unset uses fallback",
			input: "url: ${BF_OLLAMA_URL:-http://gpu-box:11434}",
			want:  "url: http://gpu-box:11434",
		},
		{
			name:  "empty uses fallback",
			env:   map[string]string{"BF_EMPTY": ""},
			input: "level: ${BF_EMPTY:-debug}",
			want:  "level: debug",
		},
		{
			name:  "set ignores fallback",
			env:   map[string]string{"BF_LEVEL": "warn"},
			input: "level: ${BF_LEVEL:-debug}",
			want:  "level: warn",
		},
		{
			name:  "no vars",
			input: "value: plain_text",
			want:  "value: plain_text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got := substituteEnvVars([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("BF_TEST_HOST", "192.168.1.1")
	t.Setenv("BF_TEST_OLLAMA", "http://10.0.0.5:11434")

	content := `
server:
  host: "${BF_TEST_HOST}"
  port: 9999

ollama:
  base_url: "${BF_TEST_OLLAMA}"

logging:
  level: "info"
  format: "json"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("expected host 192.168.1.1, got %s", cfg.Server.Host)
	}

	if cfg.Ollama.BaseURL != "http://10.0.0.5:11434" {
		t.Errorf("expected ollama url http://10.0.0.5:11434, got %s", cfg.Ollama.BaseURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("BF_DOTENV_URL=http://dotenv:11434\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BF_DOTENV_URL") })

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	if got := os.Getenv("BF_DOTENV_URL"); got != "http://dotenv:11434" {
		t.Errorf("expected value from env file, got %q", got)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should not fail, got %v", err)
	}
}
