// config_diff.go computes human-readable diffs for configuration changes.
package watcher

import (
	"fmt"
	"strings"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
)

// buildConfigChangeDetails computes a human-readable list of config field
// changes between reloads. Only fields that affect runtime behavior are
// tracked.
func buildConfigChangeDetails(oldCfg, newCfg *config.Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	changes := make([]string, 0, 8)

	if oldCfg.Port != newCfg.Port {
		changes = append(changes, fmt.Sprintf("port: %d -> %d (restart required)", oldCfg.Port, newCfg.Port))
	}
	if oldCfg.Debug != newCfg.Debug {
		changes = append(changes, fmt.Sprintf("debug: %t -> %t", oldCfg.Debug, newCfg.Debug))
	}
	if oldCfg.RequestLog != newCfg.RequestLog {
		changes = append(changes, fmt.Sprintf("request-log: %t -> %t", oldCfg.RequestLog, newCfg.RequestLog))
	}
	if oldCfg.LoggingToFile != newCfg.LoggingToFile {
		changes = append(changes, fmt.Sprintf("logging-to-file: %t -> %t", oldCfg.LoggingToFile, newCfg.LoggingToFile))
	}
	if oldCfg.AuthDir != newCfg.AuthDir {
		changes = append(changes, fmt.Sprintf("auth-dir: %s -> %s", oldCfg.AuthDir, newCfg.AuthDir))
	}
	if oldCfg.ProxyURL != newCfg.ProxyURL {
		changes = append(changes, fmt.Sprintf("proxy-url: %s -> %s", formatProxyURL(oldCfg.ProxyURL), formatProxyURL(newCfg.ProxyURL)))
	}
	if oldCfg.Backend.BaseURL != newCfg.Backend.BaseURL {
		changes = append(changes, fmt.Sprintf("backend.base-url: %s -> %s", oldCfg.Backend.BaseURL, newCfg.Backend.BaseURL))
	}
	if oldCfg.Backend.TimeoutSeconds != newCfg.Backend.TimeoutSeconds {
		changes = append(changes, fmt.Sprintf("backend.timeout-seconds: %d -> %d", oldCfg.Backend.TimeoutSeconds, newCfg.Backend.TimeoutSeconds))
	}
	if oldCfg.GitHub.ClientID != newCfg.GitHub.ClientID {
		changes = append(changes, "github.client-id changed")
	}
	if oldCfg.GitHub.CallbackURL != newCfg.GitHub.CallbackURL {
		changes = append(changes, fmt.Sprintf("github.callback-url: %s -> %s", oldCfg.GitHub.CallbackURL, newCfg.GitHub.CallbackURL))
	}
	if !equalStrings(oldCfg.GitHub.Scopes, newCfg.GitHub.Scopes) {
		changes = append(changes, fmt.Sprintf("github.scopes: [%s] -> [%s]",
			strings.Join(oldCfg.GitHub.Scopes, " "), strings.Join(newCfg.GitHub.Scopes, " ")))
	}
	if oldCfg.Session.CookieName != newCfg.Session.CookieName {
		changes = append(changes, fmt.Sprintf("session.cookie-name: %s -> %s", oldCfg.Session.CookieName, newCfg.Session.CookieName))
	}
	if oldCfg.Session.CookieSecure != newCfg.Session.CookieSecure {
		changes = append(changes, fmt.Sprintf("session.cookie-secure: %t -> %t", oldCfg.Session.CookieSecure, newCfg.Session.CookieSecure))
	}

	return changes
}

// formatProxyURL redacts credentials embedded in a proxy URL before logging.
func formatProxyURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "(none)"
	}
	if at := strings.Index(raw, "@"); at != -1 {
		if scheme := strings.Index(raw, "://"); scheme != -1 && scheme+3 < at {
			return raw[:scheme+3] + "***@" + raw[at+1:]
		}
	}
	return raw
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
