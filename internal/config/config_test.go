package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
port: 8317
auth-dir: ~/.gitsphere
debug: true
backend:
  base-url: https://api.gitsphere.dev/
  timeout-seconds: 10
github:
  client-id: Iv1.abc123
session:
  cookie-name: gs_session
  cookie-secure: true
  refresh-threshold-minutes: 15
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != 8317 {
		t.Errorf("Port = %d, want 8317", cfg.Port)
	}
	if cfg.Backend.BaseURL != "https://api.gitsphere.dev" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Backend.BaseURL)
	}
	if cfg.Session.CookieName != "gs_session" {
		t.Errorf("CookieName = %q, want gs_session", cfg.Session.CookieName)
	}
	if got := cfg.BackendTimeout(); got != 10*time.Second {
		t.Errorf("BackendTimeout() = %v, want 10s", got)
	}
	if got := cfg.RefreshThreshold(); got != 15*time.Minute {
		t.Errorf("RefreshThreshold() = %v, want 15m", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, "port: 8080\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Session.CookieName != DefaultCookieName {
		t.Errorf("CookieName = %q, want default %q", cfg.Session.CookieName, DefaultCookieName)
	}
	if len(cfg.GitHub.Scopes) != 2 || cfg.GitHub.Scopes[0] != "public_repo" || cfg.GitHub.Scopes[1] != "read:user" {
		t.Errorf("Scopes = %v, want default scopes", cfg.GitHub.Scopes)
	}
	if got := cfg.BackendTimeout(); got != DefaultBackendTimeout {
		t.Errorf("BackendTimeout() = %v, want default", got)
	}
	if got := cfg.RefreshThreshold(); got != DefaultRefreshThreshold {
		t.Errorf("RefreshThreshold() = %v, want default", got)
	}
}

func TestLoadConfigOptional(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "missing.yaml"), true)
	if err != nil {
		t.Fatalf("LoadConfigOptional() error = %v", err)
	}
	if cfg == nil || cfg.Port != 0 {
		t.Fatalf("LoadConfigOptional() = %+v, want empty config", cfg)
	}

	if _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadConfig() on missing file expected error")
	}
}
