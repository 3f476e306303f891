package cache

import (
	"testing"
	"time"
)

func TestRefreshCachePutGet(t *testing.T) {
	t.Parallel()

	c := NewRefreshCache()
	c.Put("stale-token", "fresh-token")

	got, ok := c.Get("stale-token")
	if !ok || got != "fresh-token" {
		t.Fatalf("Get() = %q, %t; want fresh-token, true", got, ok)
	}

	if _, ok = c.Get("unknown-token"); ok {
		t.Fatal("Get() on unknown token should miss")
	}
}

func TestRefreshCacheRejectsDegenerateEntries(t *testing.T) {
	t.Parallel()

	c := NewRefreshCache()
	c.Put("", "fresh")
	c.Put("stale", "")
	c.Put("same", "same")

	if _, ok := c.Get(""); ok {
		t.Error("empty stale token should never hit")
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("empty replacement should not be stored")
	}
	if _, ok := c.Get("same"); ok {
		t.Error("identity rotation should not be stored")
	}
}

func TestRefreshCacheExpiry(t *testing.T) {
	t.Parallel()

	c := NewRefreshCache()
	c.ttl = 10 * time.Millisecond
	c.Put("stale", "fresh")

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("stale"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestAnalysisCache(t *testing.T) {
	t.Parallel()

	c := NewAnalysisCache(50 * time.Millisecond)
	c.Put("profile/octocat", []byte(`{"login":"octocat"}`))

	if got, ok := c.Get("profile/octocat"); !ok || string(got) != `{"login":"octocat"}` {
		t.Fatalf("Get() = %s, %t; want cached payload", got, ok)
	}

	c.Invalidate("profile/octocat")
	if _, ok := c.Get("profile/octocat"); ok {
		t.Fatal("invalidated entry should miss")
	}

	c.Put("repo/golang/go", []byte(`{}`))
	time.Sleep(80 * time.Millisecond)
	if _, ok := c.Get("repo/golang/go"); ok {
		t.Fatal("expired entry should miss")
	}
}
