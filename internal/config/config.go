// Package config loads redub settings from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvCollabURL = "REDUB_COLLAB_URL"
	EnvDBPath    = "REDUB_DB_PATH"
	EnvAPIToken  = "REDUB_API_TOKEN"
)

// Config holds runtime settings.
type Config struct {
	Collaborator struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"collaborator"`

	DatabasePath string `yaml:"database_path"`
	LogPath      string `yaml:"log_path"`
	LogLevel     string `yaml:"log_level"`

	Regeneration struct {
		// Concurrency caps parallel collaborator calls in a batch.
		Concurrency int `yaml:"concurrency"`
	} `yaml:"regeneration"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.Collaborator.BaseURL = "http://localhost:8000"
	c.Collaborator.Timeout = 5 * time.Minute
	c.DatabasePath = ""
	c.LogPath = filepath.Join(os.TempDir(), "redub.log")
	c.LogLevel = "info"
	c.Regeneration.Concurrency = 4
	return c
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "redub.yaml"
	}
	return filepath.Join(dir, "redub", "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error. Values
// from .env files in the working directory and the environment win over the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		// Fields absent from the file keep their defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; variables already set are not overwritten.
	_ = godotenv.Load()

	cfg.applyEnv(os.Getenv)
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvCollabURL); v != "" {
		c.Collaborator.BaseURL = v
	}
	if v := getenv(EnvDBPath); v != "" {
		c.DatabasePath = v
	}
}

func (c *Config) normalize() {
	c.Collaborator.BaseURL = strings.TrimRight(strings.TrimSpace(c.Collaborator.BaseURL), "/")
	if c.Collaborator.Timeout <= 0 {
		c.Collaborator.Timeout = 5 * time.Minute
	}
	if c.Regeneration.Concurrency < 0 {
		c.Regeneration.Concurrency = 0
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DatabasePath != "" {
		c.DatabasePath = filepath.Clean(c.DatabasePath)
	}
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// OpenLog opens the log file for appending and returns a text logger on it.
// The terminal belongs to the UI, so nothing is logged to stdout.
func (c *Config) OpenLog() (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: c.Level()}))
	return log, f.Close, nil
}
