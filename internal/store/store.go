// Package store persists GitHub session token records. The default backend is
// the local auth directory; Postgres and S3-compatible object storage backends
// exist for deployments where the gateway runs on ephemeral hosts.
package store

import (
	"context"
	"errors"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
)

// ErrNotFound is returned when a token record does not exist.
var ErrNotFound = errors.New("store: token record not found")

// DefaultTokenFile is the record name used when none is given.
const DefaultTokenFile = "github.json"

// TokenStore persists and retrieves GitHub session token records by name.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	// Save writes a token record and returns the location it was stored at.
	Save(ctx context.Context, name string, record *github.GitHubTokenStorage) (string, error)
	// Load reads a token record. Returns ErrNotFound when absent.
	Load(ctx context.Context, name string) (*github.GitHubTokenStorage, error)
	// Delete removes a token record. Deleting an absent record is not an error.
	Delete(ctx context.Context, name string) error
	// UpdateAccessToken rewrites only the token fields of an existing record,
	// used when a rotation must not clobber unrelated fields.
	UpdateAccessToken(ctx context.Context, name, accessToken string) error
}
