// Package config provides configuration management for the GitSphere gateway.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including server port, authentication directory,
// debug settings, proxy configuration, and the analytics backend endpoint.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the network port on which the gateway server listens.
	Port int `yaml:"port" json:"port"`

	// AuthDir is the directory where authentication token files are stored.
	AuthDir string `yaml:"auth-dir" json:"auth-dir"`

	// Debug enables or disables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile switches log output from stdout to rotating files.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB caps the total size of the logs directory. <= 0 disables cleanup.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// RequestLog enables detailed request logging for dashboard API calls.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// Backend configures the remote analytics service this gateway fronts.
	Backend BackendConfig `yaml:"backend" json:"backend"`

	// GitHub configures the OAuth application used for the login handshake.
	GitHub GitHubConfig `yaml:"github" json:"github"`

	// Session configures cookie-based token storage.
	Session SessionConfig `yaml:"session" json:"session"`
}

// BackendConfig holds the analytics backend endpoint settings.
type BackendConfig struct {
	// BaseURL is the root URL of the analytics backend, e.g. "https://api.gitsphere.dev".
	BaseURL string `yaml:"base-url" json:"base-url"`

	// TimeoutSeconds bounds a single backend request. <= 0 uses the default of 30 seconds.
	TimeoutSeconds int `yaml:"timeout-seconds,omitempty" json:"timeout-seconds,omitempty"`
}

// GitHubConfig holds the OAuth application settings for the GitHub login flow.
type GitHubConfig struct {
	// ClientID identifies the OAuth application registered with GitHub.
	ClientID string `yaml:"client-id" json:"client-id"`

	// CallbackURL is the redirect URL registered with the OAuth application.
	// When empty, the gateway derives it from the incoming request host.
	CallbackURL string `yaml:"callback-url,omitempty" json:"callback-url,omitempty"`

	// OAuthCallbackPort is the local port used by the CLI login callback server.
	OAuthCallbackPort int `yaml:"oauth-callback-port,omitempty" json:"oauth-callback-port,omitempty"`

	// Scopes lists the OAuth scopes requested during authorization.
	// Defaults to public_repo and read:user, the minimum the backend verifies.
	Scopes []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// SessionConfig holds cookie settings for browser sessions.
type SessionConfig struct {
	// CookieName is the name of the cookie carrying the session token.
	CookieName string `yaml:"cookie-name,omitempty" json:"cookie-name,omitempty"`

	// CookieDomain scopes the session cookie. Empty uses the request host.
	CookieDomain string `yaml:"cookie-domain,omitempty" json:"cookie-domain,omitempty"`

	// CookieSecure marks the session cookie Secure; enable behind TLS.
	CookieSecure bool `yaml:"cookie-secure" json:"cookie-secure"`

	// RefreshThresholdMinutes triggers proactive refresh when the token expires
	// within this window. <= 0 uses the default of 30 minutes.
	RefreshThresholdMinutes int `yaml:"refresh-threshold-minutes,omitempty" json:"refresh-threshold-minutes,omitempty"`
}

const (
	// DefaultCookieName is used when session.cookie-name is not configured.
	DefaultCookieName = "gitsphere_token"

	// DefaultRefreshThreshold mirrors the backend's proactive rotation window.
	DefaultRefreshThreshold = 30 * time.Minute

	// DefaultBackendTimeout bounds a single analytics backend request.
	DefaultBackendTimeout = 30 * time.Second
)

// DefaultScopes are the OAuth scopes the analytics backend requires of a token.
var DefaultScopes = []string{"public_repo", "read:user"}

// LoadConfig reads the configuration file at the given path and parses it.
func LoadConfig(configFile string) (*Config, error) {
	return loadConfig(configFile, false)
}

// LoadConfigOptional behaves like LoadConfig but tolerates a missing or empty
// file when optional is true, returning an empty configuration instead.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	return loadConfig(configFile, optional)
}

func loadConfig(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: read %s failed: %w", configFile, err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		if optional {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: parse %s failed: %w", configFile, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Session.CookieName) == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if len(c.GitHub.Scopes) == 0 {
		c.GitHub.Scopes = append([]string(nil), DefaultScopes...)
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
}

// BackendTimeout returns the configured backend request timeout.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds > 0 {
		return time.Duration(c.Backend.TimeoutSeconds) * time.Second
	}
	return DefaultBackendTimeout
}

// RefreshThreshold returns the configured proactive refresh window.
func (c *Config) RefreshThreshold() time.Duration {
	if c.Session.RefreshThresholdMinutes > 0 {
		return time.Duration(c.Session.RefreshThresholdMinutes) * time.Minute
	}
	return DefaultRefreshThreshold
}
