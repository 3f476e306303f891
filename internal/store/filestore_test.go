package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
)

func TestFileTokenStoreSaveLoad(t *testing.T) {
	t.Parallel()

	s := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	record := &github.GitHubTokenStorage{
		AccessToken: "session-jwt",
		Scopes:      []string{"public_repo", "read:user"},
	}

	path, err := s.Save(ctx, "github.json", record)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	loaded, err := s.Load(ctx, "github.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.AccessToken != "session-jwt" {
		t.Errorf("AccessToken = %q", loaded.AccessToken)
	}
	if loaded.Type != "github" {
		t.Errorf("Type = %q, want set on save", loaded.Type)
	}
	if loaded.LastRefresh == "" {
		t.Error("LastRefresh should be stamped on save")
	}
}

func TestFileTokenStoreLoadMissing(t *testing.T) {
	t.Parallel()

	s := NewFileTokenStore(t.TempDir())
	_, err := s.Load(context.Background(), "absent.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileTokenStoreDefaultName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewFileTokenStore(dir)
	ctx := context.Background()

	if _, err := s.Save(ctx, "", &github.GitHubTokenStorage{AccessToken: "jwt"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultTokenFile)); err != nil {
		t.Errorf("default record file missing: %v", err)
	}
}

func TestFileTokenStoreRejectsEscapingNames(t *testing.T) {
	t.Parallel()

	s := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"../outside.json", "/etc/passwd", "a/../../b.json"} {
		if _, err := s.Save(ctx, name, &github.GitHubTokenStorage{AccessToken: "jwt"}); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
	}
}

func TestFileTokenStoreUpdateAccessToken(t *testing.T) {
	t.Parallel()

	s := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	record := &github.GitHubTokenStorage{
		AccessToken: "old-jwt",
		Scopes:      []string{"public_repo"},
	}
	if _, err := s.Save(ctx, "github.json", record); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateAccessToken(ctx, "github.json", "new-jwt"); err != nil {
		t.Fatalf("UpdateAccessToken failed: %v", err)
	}

	loaded, err := s.Load(ctx, "github.json")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AccessToken != "new-jwt" {
		t.Errorf("AccessToken = %q", loaded.AccessToken)
	}
	if len(loaded.Scopes) != 1 || loaded.Scopes[0] != "public_repo" {
		t.Errorf("Scopes = %v, rotation must not clobber other fields", loaded.Scopes)
	}
}

func TestFileTokenStoreUpdateMissing(t *testing.T) {
	t.Parallel()

	s := NewFileTokenStore(t.TempDir())
	err := s.UpdateAccessToken(context.Background(), "absent.json", "jwt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileTokenStoreDeleteIdempotent(t *testing.T) {
	t.Parallel()

	s := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	if _, err := s.Save(ctx, "github.json", &github.GitHubTokenStorage{AccessToken: "jwt"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "github.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "github.json"); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}
