// Package github implements the GitHub OAuth handshake for the GitSphere
// gateway. It builds authorize URLs, exchanges authorization codes for
// backend-issued session tokens, refreshes those tokens, and runs the local
// callback server used by the CLI login flow.
package github

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// GitHubTokenStorage represents the persisted credential produced by a login.
// The access token is the backend-issued session JWT, not the raw GitHub token;
// the raw token never leaves the analytics backend.
type GitHubTokenStorage struct {
	// AccessToken is the session JWT minted by the analytics backend.
	AccessToken string `json:"access_token"`
	// Scopes lists the GitHub OAuth scopes the backend verified on the token.
	Scopes []string `json:"scopes,omitempty"`
	// LastRefresh records when the token was last obtained or rotated.
	LastRefresh string `json:"last_refresh,omitempty"`
	// Expire indicates the expiration date and time of the session token.
	Expire string `json:"expired,omitempty"`
	// Type identifies the credential type for the token store.
	Type string `json:"type"`
}

// SaveTokenToFile persists the token storage as JSON at the given path.
func (ts *GitHubTokenStorage) SaveTokenToFile(authFilePath string) error {
	ts.Type = "github"
	ts.LastRefresh = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return fmt.Errorf("github token storage: marshal failed: %w", err)
	}
	if err = os.WriteFile(authFilePath, data, 0o600); err != nil {
		return fmt.Errorf("github token storage: write failed: %w", err)
	}
	return nil
}
