package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
	"github.com/tidwall/sjson"
)

// FileTokenStore persists token records as JSON files in the auth directory.
type FileTokenStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileTokenStore creates a token store rooted at the given directory.
func NewFileTokenStore(baseDir string) *FileTokenStore {
	return &FileTokenStore{baseDir: strings.TrimSpace(baseDir)}
}

// Save persists a token record to the resolved auth file path.
func (s *FileTokenStore) Save(_ context.Context, name string, record *github.GitHubTokenStorage) (string, error) {
	if record == nil {
		return "", fmt.Errorf("file store: record is nil")
	}
	path, err := s.resolvePath(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("file store: create dir failed: %w", err)
	}
	if err = record.SaveTokenToFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a token record from disk.
func (s *FileTokenStore) Load(_ context.Context, name string) (*github.GitHubTokenStorage, error) {
	path, err := s.resolvePath(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("file store: read failed: %w", err)
	}

	var record github.GitHubTokenStorage
	if err = json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("file store: parse %s failed: %w", filepath.Base(path), err)
	}
	return &record, nil
}

// Delete removes a token record file.
func (s *FileTokenStore) Delete(_ context.Context, name string) error {
	path, err := s.resolvePath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: delete failed: %w", err)
	}
	return nil
}

// UpdateAccessToken rewrites the token fields in place, leaving any other
// fields in the file untouched.
func (s *FileTokenStore) UpdateAccessToken(_ context.Context, name, accessToken string) error {
	path, err := s.resolvePath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("file store: read failed: %w", err)
	}

	updated, err := sjson.SetBytes(data, "access_token", accessToken)
	if err != nil {
		return fmt.Errorf("file store: set access_token failed: %w", err)
	}
	updated, err = sjson.SetBytes(updated, "last_refresh", time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("file store: set last_refresh failed: %w", err)
	}

	if err = os.WriteFile(path, updated, 0o600); err != nil {
		return fmt.Errorf("file store: write failed: %w", err)
	}
	return nil
}

// resolvePath maps a record name onto the auth directory, rejecting names
// that would escape it.
func (s *FileTokenStore) resolvePath(name string) (string, error) {
	if s.baseDir == "" {
		return "", fmt.Errorf("file store: directory not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTokenFile
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("file store: invalid record name %s", name)
	}
	return filepath.Join(s.baseDir, clean), nil
}
