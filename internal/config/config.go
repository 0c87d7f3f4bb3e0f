package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all client configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Vault  VaultConfig  `yaml:"vault"`
	State  StateConfig  `yaml:"state"`
	Auth   AuthConfig   `yaml:"auth"`
	Sync   SyncConfig   `yaml:"sync"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig describes the remote service.
type ServerConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"COOKSYNC_SERVER_URL"`
	ClientTarget   string        `yaml:"client_target" envconfig:"COOKSYNC_CLIENT_TARGET"`
	ClientIDHeader string        `yaml:"client_id_header" envconfig:"COOKSYNC_CLIENT_ID_HEADER"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"COOKSYNC_HTTP_TIMEOUT"`
}

// VaultConfig locates the local document store.
type VaultConfig struct {
	Root string `yaml:"root" envconfig:"COOKSYNC_VAULT"`
}

// StateConfig locates the client's own files. Relative paths are
// resolved against the vault root.
type StateConfig struct {
	Backend      string `yaml:"backend" envconfig:"COOKSYNC_STATE_BACKEND"`
	Path         string `yaml:"path" envconfig:"COOKSYNC_STATE_PATH"`
	IdentityPath string `yaml:"identity_path" envconfig:"COOKSYNC_IDENTITY_PATH"`
	ActivityPath string `yaml:"activity_path" envconfig:"COOKSYNC_ACTIVITY_PATH"`
}

// AuthConfig controls token polling.
type AuthConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"COOKSYNC_AUTH_MAX_ATTEMPTS"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"COOKSYNC_AUTH_POLL_INTERVAL"`
}

// SyncConfig controls the startup policy.
type SyncConfig struct {
	StaleAfter time.Duration `yaml:"stale_after" envconfig:"COOKSYNC_STALE_AFTER"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"COOKSYNC_LOG_LEVEL"`
	Format     string `yaml:"format" envconfig:"COOKSYNC_LOG_FORMAT"`
	File       string `yaml:"file" envconfig:"COOKSYNC_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"COOKSYNC_LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"COOKSYNC_LOG_MAX_BACKUPS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        "http://localhost:3000",
			ClientTarget:   "obsidian",
			ClientIDHeader: "Obsidian-Client",
			Timeout:        30 * time.Second,
		},
		Vault: VaultConfig{Root: "."},
		State: StateConfig{
			Backend:      "json",
			Path:         ".cooksync/data.json",
			IdentityPath: ".cooksync/identity.json",
			ActivityPath: ".cooksync/activity.jsonl",
		},
		Auth: AuthConfig{
			MaxAttempts:  51,
			PollInterval: 3 * time.Second,
		},
		Sync: SyncConfig{StaleAfter: 2 * time.Hour},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads configuration from file and environment variables.
// Environment variables override file values, which override defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("COOKSYNC_SERVER_URL is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Server.ClientTarget == "" {
		return fmt.Errorf("server client_target is required")
	}
	if c.Server.ClientIDHeader == "" {
		return fmt.Errorf("server client_id_header is required")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive")
	}
	if c.Vault.Root == "" {
		return fmt.Errorf("COOKSYNC_VAULT is required")
	}
	switch c.State.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("state backend must be json or sqlite, got %q", c.State.Backend)
	}
	if c.State.Path == "" {
		return fmt.Errorf("state path is required")
	}
	if c.Auth.MaxAttempts < 1 {
		return fmt.Errorf("auth max_attempts must be at least 1")
	}
	if c.Auth.PollInterval <= 0 {
		return fmt.Errorf("auth poll_interval must be positive")
	}
	if c.Sync.StaleAfter <= 0 {
		return fmt.Errorf("sync stale_after must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ResolvePath returns p unchanged when absolute, otherwise joined to the
// vault root.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Vault.Root, p)
}
