package gitsphere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/cache"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// Rotation headers the backend sets when a request caused a token refresh.
// The gateway propagates them to the browser so the dashboard can replace
// its stored token.
const (
	HeaderNewToken       = "X-New-Token"
	HeaderTokenRefreshed = "X-Token-Refreshed"
)

// refreshRetries is how many times a single refresh attempt is retried
// before the original 401 is surfaced.
const refreshRetries = 3

// APIError is a non-2xx response from the analytics backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Result carries a backend response body together with any token rotation
// that happened while serving it.
type Result struct {
	// Body is the raw response payload.
	Body []byte
	// StatusCode is the backend's HTTP status.
	StatusCode int
	// NewToken is non-empty when the session token was rotated, either by
	// the backend's proactive refresh headers or by this client's 401
	// recovery. Callers must hand the new token back to the browser.
	NewToken string
}

// Client is the authenticated HTTP client for the analytics backend.
// A single Client is shared by all gateway handlers; concurrent requests
// that hit an expired token coalesce into one refresh call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	auth       *github.GitHubAuth

	// refreshGroup collapses concurrent refreshes of the same stale token
	// into a single backend call.
	refreshGroup singleflight.Group
	// refreshCache remembers recent rotations so stragglers that raced the
	// refresh still pick up the replacement token.
	refreshCache *cache.RefreshCache
	// analysisCache holds recent analysis payloads keyed by backend path.
	analysisCache *cache.AnalysisCache
}

// NewClient creates a backend client from the gateway configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:    util.SetProxy(cfg, &http.Client{Timeout: cfg.BackendTimeout()}),
		baseURL:       strings.TrimRight(cfg.Backend.BaseURL, "/"),
		auth:          github.NewGitHubAuth(cfg),
		refreshCache:  cache.NewRefreshCache(),
		analysisCache: cache.NewAnalysisCache(cache.AnalysisCacheTTL),
	}
}

// Do sends an authenticated request to the backend. When the backend rejects
// the token with 401, the client refreshes the token once and replays the
// original request with the replacement. The rotated token, if any, is
// reported in the Result so the caller can update the browser's cookie.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte, token string) (*Result, error) {
	result, err := c.send(ctx, method, path, query, body, token)
	if err != nil {
		return nil, err
	}

	if result.StatusCode != http.StatusUnauthorized || token == "" {
		return result, nil
	}

	newToken, err := c.RefreshSession(ctx, token)
	if err != nil {
		// Refresh failed; surface the original 401 so the caller clears
		// the session and restarts the login flow.
		log.Debugf("session refresh failed: %v", err)
		return result, nil
	}

	retried, err := c.send(ctx, method, path, query, body, newToken)
	if err != nil {
		return nil, err
	}
	if retried.NewToken == "" {
		retried.NewToken = newToken
	}
	return retried, nil
}

// DoJSON sends an authenticated request and decodes a successful response
// into out. Non-2xx responses become an *APIError.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body []byte, token string, out any) (*Result, error) {
	result, err := c.Do(ctx, method, path, query, body, token)
	if err != nil {
		return nil, err
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return result, decodeAPIError(result)
	}
	if out != nil {
		if err = json.Unmarshal(result.Body, out); err != nil {
			return result, fmt.Errorf("failed to decode backend response: %w", err)
		}
	}
	return result, nil
}

// send performs one request attempt without any refresh handling.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, token string) (*Result, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	log.Debugf("backend %s %s -> %d (%s)", method, maskedEndpoint(req.URL), resp.StatusCode, time.Since(start).Round(time.Millisecond))

	result := &Result{
		Body:       payload,
		StatusCode: resp.StatusCode,
	}
	if resp.Header.Get(HeaderTokenRefreshed) == "true" {
		if rotated := resp.Header.Get(HeaderNewToken); rotated != "" {
			result.NewToken = rotated
			c.refreshCache.Put(token, rotated)
		}
	}
	return result, nil
}

// RefreshSession exchanges a stale session token for a fresh one. Concurrent
// callers holding the same stale token share a single refresh call, and the
// result is cached briefly so requests that were already in flight when the
// rotation happened can recover without another round trip. Every refresh in
// the gateway must go through here so the coalescing holds across the proxy's
// 401 recovery and explicit refresh requests alike.
func (c *Client) RefreshSession(ctx context.Context, staleToken string) (string, error) {
	if rotated, ok := c.refreshCache.Get(staleToken); ok {
		return rotated, nil
	}

	value, err, shared := c.refreshGroup.Do(staleToken, func() (any, error) {
		if rotated, ok := c.refreshCache.Get(staleToken); ok {
			return rotated, nil
		}
		tokenData, errRefresh := c.auth.RefreshTokenWithRetry(ctx, staleToken, refreshRetries)
		if errRefresh != nil {
			return nil, errRefresh
		}
		c.refreshCache.Put(staleToken, tokenData.AccessToken)
		return tokenData.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug("coalesced concurrent session refresh")
	}
	return value.(string), nil
}

// Health probes the backend's health endpoint. No token is required.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if _, err := c.DoJSON(ctx, http.MethodGet, "/api/v1/health", nil, nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// maskedEndpoint renders a request URL for debug logs with credential-bearing
// query values masked. MaskSensitiveQuery expects a raw query string, so the
// path is carried separately.
func maskedEndpoint(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + util.MaskSensitiveQuery(u.RawQuery)
}

// decodeAPIError shapes a non-2xx backend response into an APIError,
// preferring the FastAPI style "detail" field when present.
func decodeAPIError(result *Result) error {
	detail := gjson.GetBytes(result.Body, "detail").String()
	if detail == "" {
		detail = gjson.GetBytes(result.Body, "error").String()
	}
	if detail == "" {
		detail = strings.TrimSpace(string(result.Body))
	}
	if detail == "" {
		detail = http.StatusText(result.StatusCode)
	}
	return &APIError{StatusCode: result.StatusCode, Detail: detail}
}
