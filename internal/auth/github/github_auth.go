package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
)

const (
	// AuthEndpoint is the backend route that exchanges a GitHub authorization
	// code for a session token.
	AuthEndpoint = "/api/auth/github"
	// RefreshEndpoint is the backend route that rotates a session token.
	RefreshEndpoint = "/api/auth/refresh"
	// TokenStatusEndpoint is the backend route that reports token validity.
	TokenStatusEndpoint = "/api/auth/token/status"
)

// TokenData represents a session token returned by the analytics backend.
type TokenData struct {
	// AccessToken is the backend-issued session JWT.
	AccessToken string `json:"access_token"`
	// Scopes lists the GitHub scopes the backend verified during the exchange.
	Scopes []string `json:"scopes,omitempty"`
}

// TokenStatus describes the backend's view of a session token.
type TokenStatus struct {
	Valid               bool   `json:"valid"`
	ExpiresAt           string `json:"expires_at,omitempty"`
	TimeToExpiryMinutes int    `json:"time_to_expiry_minutes,omitempty"`
	Message             string `json:"message,omitempty"`
}

// GitHubAuth manages the OAuth handshake and session token lifecycle
// against the analytics backend.
type GitHubAuth struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	scopes     []string
}

// NewGitHubAuth creates a new GitHubAuth instance with a proxy-configured HTTP client.
func NewGitHubAuth(cfg *config.Config) *GitHubAuth {
	return &GitHubAuth{
		httpClient: util.SetProxy(cfg, &http.Client{Timeout: cfg.BackendTimeout()}),
		baseURL:    cfg.Backend.BaseURL,
		clientID:   cfg.GitHub.ClientID,
		scopes:     cfg.GitHub.Scopes,
	}
}

// AuthorizeURL builds the GitHub authorization URL for the popup or CLI flow.
// The client secret stays on the analytics backend; only the public client ID
// is embedded here.
func (ga *GitHubAuth) AuthorizeURL(redirectURI, state string) string {
	conf := &oauth2.Config{
		ClientID:    ga.clientID,
		Endpoint:    oauthgithub.Endpoint,
		RedirectURL: redirectURI,
		Scopes:      ga.scopes,
	}
	return conf.AuthCodeURL(state)
}

// ExchangeCode exchanges a GitHub authorization code for a backend-issued
// session token. The backend performs the secret-bearing half of the OAuth
// handshake and verifies the granted scopes before minting the token.
func (ga *GitHubAuth) ExchangeCode(ctx context.Context, code, state string) (*TokenData, error) {
	payload, err := json.Marshal(map[string]string{"code": code, "state": state})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ga.baseURL+AuthEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := ga.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backendError("token exchange", resp.StatusCode, body)
	}

	var tokenData TokenData
	if err = json.Unmarshal(body, &tokenData); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenData.AccessToken == "" {
		return nil, fmt.Errorf("token exchange failed: access_token not found in response")
	}

	return &tokenData, nil
}

// RefreshToken exchanges an expiring session token for a new one.
// The old token travels as a query parameter because that is the contract the
// analytics backend exposes; request logs mask it.
func (ga *GitHubAuth) RefreshToken(ctx context.Context, oldToken string) (*TokenData, error) {
	endpoint := ga.baseURL + RefreshEndpoint + "?old_token=" + url.QueryEscape(oldToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ga.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backendError("token refresh", resp.StatusCode, body)
	}

	var tokenData TokenData
	if err = json.Unmarshal(body, &tokenData); err != nil {
		return nil, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if tokenData.AccessToken == "" {
		return nil, fmt.Errorf("token refresh failed: access_token not found in response")
	}

	return &tokenData, nil
}

// RefreshTokenWithRetry attempts to refresh the session token with a specified
// number of retries upon failure, backing off linearly between attempts.
func (ga *GitHubAuth) RefreshTokenWithRetry(ctx context.Context, oldToken string, maxRetries int) (*TokenData, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		tokenData, err := ga.RefreshToken(ctx, oldToken)
		if err == nil {
			return tokenData, nil
		}

		lastErr = err
		log.Warnf("Token refresh attempt %d failed: %v", attempt+1, err)
	}

	return nil, fmt.Errorf("token refresh failed after %d attempts: %w", maxRetries, lastErr)
}

// TokenStatusProbe asks the backend whether a session token is still valid
// and how close it is to expiry.
func (ga *GitHubAuth) TokenStatusProbe(ctx context.Context, token string) (*TokenStatus, error) {
	endpoint := ga.baseURL + TokenStatusEndpoint + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ga.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token status request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backendError("token status", resp.StatusCode, body)
	}

	var status TokenStatus
	if err = json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}

// CreateTokenStorage builds a persistable token record from token data.
func (ga *GitHubAuth) CreateTokenStorage(tokenData *TokenData) *GitHubTokenStorage {
	storage := &GitHubTokenStorage{
		AccessToken: tokenData.AccessToken,
		Scopes:      tokenData.Scopes,
		LastRefresh: time.Now().Format(time.RFC3339),
		Type:        "github",
	}
	return storage
}

// UpdateTokenStorage updates an existing token record with rotated token data.
func (ga *GitHubAuth) UpdateTokenStorage(storage *GitHubTokenStorage, tokenData *TokenData) {
	storage.AccessToken = tokenData.AccessToken
	if len(tokenData.Scopes) > 0 {
		storage.Scopes = tokenData.Scopes
	}
	storage.LastRefresh = time.Now().Format(time.RFC3339)
}

// BackendError is a non-2xx response from the analytics backend. Callers can
// distinguish it from transport failures to surface the backend's message.
type BackendError struct {
	Op     string
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed: %d - %s", e.Op, e.Status, e.Detail)
}

// backendError shapes a backend failure into a BackendError carrying the
// FastAPI style "detail" message when one is present.
func backendError(op string, status int, body []byte) error {
	detail := gjson.GetBytes(body, "detail").String()
	if detail == "" {
		detail = gjson.GetBytes(body, "error").String()
	}
	if detail == "" {
		detail = string(body)
	}
	return &BackendError{Op: op, Status: status, Detail: detail}
}
