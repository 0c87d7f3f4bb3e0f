package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() should pass for defaults, got %v", err)
	}
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()
	if cfg.Auth.MaxAttempts != 51 {
		t.Errorf("MaxAttempts = %d, want 51", cfg.Auth.MaxAttempts)
	}
	if cfg.Auth.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.Auth.PollInterval)
	}
	if cfg.Sync.StaleAfter != 2*time.Hour {
		t.Errorf("StaleAfter = %v, want 2h", cfg.Sync.StaleAfter)
	}
	if cfg.Server.ClientIDHeader != "Obsidian-Client" {
		t.Errorf("ClientIDHeader = %q", cfg.Server.ClientIDHeader)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"non-http base url", func(c *Config) { c.Server.BaseURL = "ftp://example.com" }},
		{"empty client target", func(c *Config) { c.Server.ClientTarget = "" }},
		{"empty client header", func(c *Config) { c.Server.ClientIDHeader = "" }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"empty vault", func(c *Config) { c.Vault.Root = "" }},
		{"unknown backend", func(c *Config) { c.State.Backend = "redis" }},
		{"empty state path", func(c *Config) { c.State.Path = "" }},
		{"zero attempts", func(c *Config) { c.Auth.MaxAttempts = 0 }},
		{"zero poll interval", func(c *Config) { c.Auth.PollInterval = 0 }},
		{"zero stale after", func(c *Config) { c.Sync.StaleAfter = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooksync.yaml")
	content := `
server:
  base_url: https://cooksync.example.com
vault:
  root: /notes
state:
  backend: sqlite
  path: .cooksync/state.db
auth:
  poll_interval: 1s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.BaseURL != "https://cooksync.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.State.Backend != "sqlite" {
		t.Errorf("Backend = %q", cfg.State.Backend)
	}
	if cfg.Auth.PollInterval != time.Second {
		t.Errorf("PollInterval = %v", cfg.Auth.PollInterval)
	}
	// untouched keys keep their defaults
	if cfg.Auth.MaxAttempts != 51 || cfg.Server.ClientTarget != "obsidian" {
		t.Errorf("defaults lost: %+v", cfg.Auth)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooksync.yaml")
	if err := os.WriteFile(path, []byte("server:\n  base_url: https://file.example.com\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COOKSYNC_SERVER_URL", "https://env.example.com")
	t.Setenv("COOKSYNC_STALE_AFTER", "30m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q, want env value", cfg.Server.BaseURL)
	}
	if cfg.Sync.StaleAfter != 30*time.Minute {
		t.Errorf("StaleAfter = %v", cfg.Sync.StaleAfter)
	}
}

func TestLoad_InvalidBackendFromEnv(t *testing.T) {
	t.Setenv("COOKSYNC_STATE_BACKEND", "redis")
	if _, err := Load(""); err == nil {
		t.Error("Load() should reject unknown backend")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server: [unclosed"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestResolvePath(t *testing.T) {
	cfg := Default()
	cfg.Vault.Root = "/notes"

	if got := cfg.ResolvePath(".cooksync/data.json"); got != filepath.Join("/notes", ".cooksync/data.json") {
		t.Errorf("relative = %q", got)
	}
	if got := cfg.ResolvePath("/var/state.json"); got != "/var/state.json" {
		t.Errorf("absolute = %q", got)
	}
}
