// Package handlers implements the gateway's HTTP endpoints: the GitHub OAuth
// popup flow, session management, and the proxied analytics API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	log "github.com/sirupsen/logrus"
)

// stateCookieName holds the CSRF state between the login redirect and the
// popup callback.
const stateCookieName = "gitsphere_oauth_state"

// stateCookieMaxAge bounds how long a pending login may take.
const stateCookieMaxAge = int(10 * time.Minute / time.Second)

// AuthHandler serves the OAuth popup flow and session lifecycle endpoints.
type AuthHandler struct {
	cfg      *config.Config
	auth     *github.GitHubAuth
	client   *gitsphere.Client
	sessions *session.Manager
}

// NewAuthHandler builds the auth handler from shared gateway components.
func NewAuthHandler(cfg *config.Config, client *gitsphere.Client, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		auth:     github.NewGitHubAuth(cfg),
		client:   client,
		sessions: sessions,
	}
}

// Login starts the OAuth handshake. It generates a CSRF state, remembers it
// in a short-lived cookie, and returns the GitHub authorization URL for the
// dashboard to open in a popup window.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := github.GenerateRandomState()
	if err != nil {
		log.Errorf("failed to generate oauth state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to start authentication"})
		return
	}

	redirectURI := h.callbackURL(c)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieMaxAge, "/", h.cfg.Session.CookieDomain, h.cfg.Session.CookieSecure, true)

	c.JSON(http.StatusOK, gin.H{
		"authorize_url": h.auth.AuthorizeURL(redirectURI, state),
		"state":         state,
	})
}

// Callback receives GitHub's redirect inside the popup window. It serves a
// page that relays the code and state to the opener via postMessage and then
// closes itself. The opener finishes the handshake through CreateSession.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	payload := map[string]string{
		"type":  "gitsphere:oauth",
		"code":  code,
		"state": state,
		"error": errParam,
	}
	if code == "" && errParam == "" {
		payload["error"] = "missing_code"
	}

	message, err := json.Marshal(payload)
	if err != nil {
		c.String(http.StatusInternalServerError, "callback encoding failed")
		return
	}

	page := strings.Replace(popupRelayHTML, "{{MESSAGE}}", string(message), 1)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// sessionRequest is the opener's follow-up to the popup callback.
type sessionRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// CreateSession exchanges the authorization code for a backend-issued session
// token and stores it in the session cookie. The state must match the value
// issued by Login.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "code and state are required"})
		return
	}

	expected, err := c.Cookie(stateCookieName)
	if err != nil || expected == "" || expected != req.State {
		log.Warn("oauth state mismatch on session creation")
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid OAuth state"})
		return
	}
	// State is single use.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, "/", h.cfg.Session.CookieDomain, h.cfg.Session.CookieSecure, true)

	tokenData, err := h.auth.ExchangeCode(c.Request.Context(), req.Code, req.State)
	if err != nil {
		log.Errorf("code exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "GitHub authentication failed"})
		return
	}

	h.sessions.Write(c, tokenData.AccessToken)

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"scopes":        tokenData.Scopes,
	})
}

// Refresh rotates the current session token ahead of expiry. The dashboard
// rarely needs to call this; the proxy refreshes transparently on 401.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := h.sessions.Token(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active session"})
		return
	}

	// The client's coalesced path keeps this refresh from racing a
	// 401-triggered refresh of the same token inside the proxy.
	newToken, err := h.client.RefreshSession(c.Request.Context(), token)
	if err != nil {
		log.Errorf("session refresh failed: %v", err)
		h.sessions.Clear(c)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Session expired. Please sign in again."})
		return
	}

	h.sessions.Write(c, newToken)
	c.Header(gitsphere.HeaderNewToken, newToken)
	c.Header(gitsphere.HeaderTokenRefreshed, "true")

	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

// Status reports the current session's validity and time to expiry.
func (h *AuthHandler) Status(c *gin.Context) {
	token := h.sessions.Token(c)
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	status, err := h.auth.TokenStatusProbe(c.Request.Context(), token)
	if err != nil {
		// A backend rejection carries a verdict; only transport failures
		// fall back to the local expiry read.
		var backendErr *github.BackendError
		if errors.As(err, &backendErr) {
			c.JSON(http.StatusOK, gin.H{"authenticated": false, "detail": backendErr.Detail})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"authenticated": !session.Expired(token),
			"degraded":      true,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated":          status.Valid,
		"expires_at":             status.ExpiresAt,
		"time_to_expiry_minutes": status.TimeToExpiryMinutes,
		"needs_refresh":          h.sessions.NeedsRefresh(token),
	})
}

// Logout clears the session cookie. The backend token simply ages out.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// callbackURL resolves the redirect URI GitHub sends the popup back to.
// The configured callback wins; otherwise it is derived from the request host.
func (h *AuthHandler) callbackURL(c *gin.Context) string {
	if h.cfg.GitHub.CallbackURL != "" {
		return h.cfg.GitHub.CallbackURL
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/api/auth/callback"
}

// popupRelayHTML hands the OAuth result to the window that opened the popup.
// The message is embedded as JSON and posted to the opener's origin only.
const popupRelayHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Signing in - GitSphere</title>
</head>
<body>
    <p>Completing sign in&hellip;</p>
    <script>
        (function () {
            const message = {{MESSAGE}};
            if (window.opener) {
                window.opener.postMessage(message, window.location.origin);
            }
            window.close();
        })();
    </script>
</body>
</html>`
