// Package session manages the cookie that carries the backend-issued session
// token. The token is a JWT minted and verified by the analytics backend; the
// gateway only decodes its registered claims to learn expiry, so the cookie's
// presence and structural validity are the whole authentication signal here.
package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the payload the analytics backend signs into session tokens.
type Claims struct {
	Scopes    []string `json:"scopes,omitempty"`
	TokenType string   `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Manager reads and writes the session cookie according to the configured
// name, domain, and security attributes.
type Manager struct {
	cookieName   string
	cookieDomain string
	secure       bool
	refreshLead  time.Duration
}

// NewManager builds a cookie manager from the session configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cookieName:   cfg.Session.CookieName,
		cookieDomain: cfg.Session.CookieDomain,
		secure:       cfg.Session.CookieSecure,
		refreshLead:  cfg.RefreshThreshold(),
	}
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string { return m.cookieName }

// Token extracts the session token from the request: the session cookie wins,
// with an Authorization bearer header as the API-client fallback.
func (m *Manager) Token(c *gin.Context) string {
	if cookie, err := c.Cookie(m.cookieName); err == nil {
		if token := strings.TrimSpace(cookie); token != "" {
			return token
		}
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Write sets the session cookie. The cookie lifetime follows the token's own
// expiry so the browser drops both together.
func (m *Manager) Write(c *gin.Context, token string) {
	maxAge := 0
	if claims, err := Decode(token); err == nil && claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			maxAge = int(remaining / time.Second)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, token, maxAge, "/", m.cookieDomain, m.secure, true)
}

// Clear expires the session cookie.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", m.cookieDomain, m.secure, true)
}

// NeedsRefresh reports whether the token expires within the refresh window.
// Structurally invalid tokens need replacing, so they report true.
func (m *Manager) NeedsRefresh(token string) bool {
	claims, err := Decode(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return time.Until(claims.ExpiresAt.Time) < m.refreshLead
}

// Decode parses the token's claims without verifying its signature. The
// signing secret lives on the analytics backend; the gateway only needs the
// registered claims to schedule refreshes and size cookies.
func Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("session: decode token failed: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is in the past. Tokens
// without a parsable expiry count as expired.
func Expired(token string) bool {
	claims, err := Decode(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return time.Now().After(claims.ExpiresAt.Time)
}
