// Package config loads optional repository and user configuration from
// TOML, with environment overrides. Missing files are not an error: every
// field has a default, so the tool works in a bare environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults preserved from the reference implementation; commits produced
// without any configuration hash identically to it.
const (
	DefaultName     = "John Doe"
	DefaultEmail    = "john@example.com"
	DefaultWhen     = 1234567890
	DefaultTimezone = "+0000"
)

// Identity is the author/committer identity stamped into commits.
type Identity struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// HTTP tunes the Smart HTTP transport.
type HTTP struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxAttempts    int `toml:"max_attempts"`
}

// Config is the merged view of the config file and environment.
type Config struct {
	User Identity `toml:"user"`
	HTTP HTTP     `toml:"http"`
}

// FileName is the per-repository config file under .git.
const FileName = "grit.toml"

// userConfigName is the fallback in the user's home directory.
const userConfigName = ".gritconfig"

// Load reads configuration for the repository whose metadata directory is
// gitDir. Precedence: environment, then <gitDir>/grit.toml, then
// ~/.gritconfig, then built-in defaults. gitDir may be empty (clone runs
// before a repository exists).
func Load(gitDir string) (*Config, error) {
	cfg := &Config{}

	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(cfg, filepath.Join(home, userConfigName)); err != nil {
			return nil, err
		}
	}
	if gitDir != "" {
		if err := mergeFile(cfg, filepath.Join(gitDir, FileName)); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("GRIT_AUTHOR_NAME")); v != "" {
		cfg.User.Name = v
	}
	if v := strings.TrimSpace(os.Getenv("GRIT_AUTHOR_EMAIL")); v != "" {
		cfg.User.Email = v
	}

	if cfg.User.Name == "" {
		cfg.User.Name = DefaultName
	}
	if cfg.User.Email == "" {
		cfg.User.Email = DefaultEmail
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// CommitClock returns the timestamp and timezone offset for new commits.
// GRIT_COMMIT_TIMESTAMP pins the clock (as the default does when unset);
// the fixed default keeps commit digests reproducible.
func CommitClock() (int64, string) {
	if v := strings.TrimSpace(os.Getenv("GRIT_COMMIT_TIMESTAMP")); v != "" {
		if when, err := strconv.ParseInt(v, 10, 64); err == nil {
			return when, DefaultTimezone
		}
	}
	return DefaultWhen, DefaultTimezone
}

// Timeout converts the configured HTTP timeout, zero meaning unset.
func (h HTTP) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}
