package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewManager_Defaults(t *testing.T) {
	cm, err := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := cm.Get()

	if cfg.Transcribe.Backend != "openai" {
		t.Errorf("Transcribe.Backend = %q", cfg.Transcribe.Backend)
	}
	if cfg.Gemini.MaxRetries != 3 {
		t.Errorf("Gemini.MaxRetries = %d", cfg.Gemini.MaxRetries)
	}
	if cfg.Scenes.MinDuration() != 15*time.Second || cfg.Scenes.MaxDuration() != 25*time.Second {
		t.Errorf("scene bounds = %v/%v", cfg.Scenes.MinDuration(), cfg.Scenes.MaxDuration())
	}
	if cfg.Browser.Image == "" || cfg.Browser.DebugPort == 0 {
		t.Errorf("browser defaults missing: %+v", cfg.Browser)
	}
}

func TestNewManager_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `log_level: debug
gemini:
  api_keys:
    - key-one
    - key-two
  models:
    - gemini-2.0-flash
  max_retries: 5
scenes:
  min_duration_seconds: 10
  max_duration_seconds: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := cm.Get()

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if len(cfg.Gemini.APIKeys) != 2 || cfg.Gemini.APIKeys[1] != "key-two" {
		t.Errorf("APIKeys = %v", cfg.Gemini.APIKeys)
	}
	if len(cfg.Gemini.Models) != 1 || cfg.Gemini.Models[0] != "gemini-2.0-flash" {
		t.Errorf("Models = %v", cfg.Gemini.Models)
	}
	if cfg.Gemini.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", cfg.Gemini.MaxRetries)
	}
	if cfg.Scenes.MaxDuration() != 30*time.Second {
		t.Errorf("MaxDuration = %v", cfg.Scenes.MaxDuration())
	}
	// Unset sections keep their defaults.
	if cfg.Transcribe.Model != "whisper-1" {
		t.Errorf("Transcribe.Model = %q", cfg.Transcribe.Model)
	}
}

func TestNewManager_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("gemini: [not: a: map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("VX_TEST_KEY", "secret-123")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain-value", "plain-value"},
		{"${VX_TEST_KEY}", "secret-123"},
		{"prefix-${VX_TEST_KEY}-suffix", "prefix-secret-123-suffix"},
		{"${VX_UNSET_VAR}", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.in); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGeminiConfig_ResolvedKeys(t *testing.T) {
	t.Setenv("VX_TEST_GEMINI", "gk-1")
	g := GeminiConfig{APIKeys: []string{"${VX_TEST_GEMINI}", "literal-key"}}
	keys := g.ResolvedKeys()
	if keys[0] != "gk-1" || keys[1] != "literal-key" {
		t.Errorf("ResolvedKeys = %v", keys)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	// The written file must load back cleanly with the same defaults.
	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager on written default: %v", err)
	}
	cfg := cm.Get()
	if cfg.Transcribe.Backend != "openai" || cfg.Scenes.MaxDurationSecs != 25 {
		t.Errorf("round-tripped defaults wrong: %+v", cfg)
	}
}
