package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvCollabURL, "")
	t.Setenv(EnvDBPath, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collaborator.BaseURL != "http://localhost:8000" {
		t.Errorf("base url = %q", cfg.Collaborator.BaseURL)
	}
	if cfg.Collaborator.Timeout != 5*time.Minute {
		t.Errorf("timeout = %v", cfg.Collaborator.Timeout)
	}
	if cfg.Regeneration.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Regeneration.Concurrency)
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	t.Setenv(EnvCollabURL, "")
	t.Setenv(EnvDBPath, "")

	path := writeFile(t, "config.yaml", `
collaborator:
  base_url: https://dub.example.com/api/
  timeout: 90s
log_level: DEBUG
regeneration:
  concurrency: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collaborator.BaseURL != "https://dub.example.com/api" {
		t.Errorf("base url = %q, want trailing slash trimmed", cfg.Collaborator.BaseURL)
	}
	if cfg.Collaborator.Timeout != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", cfg.Collaborator.Timeout)
	}
	if cfg.Regeneration.Concurrency != 8 {
		t.Errorf("concurrency = %d, want 8", cfg.Regeneration.Concurrency)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.Level())
	}
	if cfg.LogPath == "" {
		t.Error("log path should keep its default")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvCollabURL, "http://env:9000")
	t.Setenv(EnvDBPath, "/tmp/env/redub.sqlite")

	path := writeFile(t, "config.yaml", "collaborator:\n  base_url: http://file:1\ndatabase_path: /tmp/file.sqlite\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collaborator.BaseURL != "http://env:9000" {
		t.Errorf("base url = %q", cfg.Collaborator.BaseURL)
	}
	if cfg.DatabasePath != "/tmp/env/redub.sqlite" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "collaborator: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestNormalizeFixesInvalidValues(t *testing.T) {
	cfg := Default()
	cfg.Collaborator.Timeout = -1
	cfg.Regeneration.Concurrency = -3
	cfg.LogLevel = "  "
	cfg.normalize()

	if cfg.Collaborator.Timeout != 5*time.Minute {
		t.Errorf("timeout = %v", cfg.Collaborator.Timeout)
	}
	if cfg.Regeneration.Concurrency != 0 {
		t.Errorf("concurrency = %d, want 0 (unlimited)", cfg.Regeneration.Concurrency)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("level = %v, want info", cfg.Level())
	}
}

func TestOpenLogWritesToFile(t *testing.T) {
	cfg := Default()
	cfg.LogPath = filepath.Join(t.TempDir(), "logs", "redub.log")

	log, closeLog, err := cfg.OpenLog()
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	log.Info("hello", "k", "v")
	closeLog()

	data, err := os.ReadFile(cfg.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
