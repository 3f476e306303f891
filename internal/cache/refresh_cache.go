// Package cache provides small in-memory TTL caches for the gateway: one for
// token-refresh results and one for analytics payloads. Both exist to absorb
// bursts of identical work, not to be a durable store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const (
	// RefreshResultTTL is how long a rotation outcome stays addressable by the
	// stale token that triggered it. Long enough for in-flight requests still
	// carrying the old token, short enough that a revoked token cannot keep
	// minting sessions.
	RefreshResultTTL = 30 * time.Second

	// tokenHashLen is the length of the hashed cache key (16 hex chars).
	tokenHashLen = 16

	// refreshCleanupInterval controls how often stale entries are purged.
	refreshCleanupInterval = time.Minute
)

type refreshEntry struct {
	newToken  string
	timestamp time.Time
}

// RefreshCache remembers which fresh token replaced a given stale token.
// Requests that raced a refresh look up the replacement here instead of
// issuing a second refresh for the same credential.
type RefreshCache struct {
	mu          sync.Mutex
	entries     map[string]refreshEntry
	ttl         time.Duration
	cleanupOnce sync.Once
}

// NewRefreshCache creates a refresh cache with the default TTL.
func NewRefreshCache() *RefreshCache {
	return &RefreshCache{
		entries: make(map[string]refreshEntry),
		ttl:     RefreshResultTTL,
	}
}

// hashToken creates a stable key from a token without retaining the token itself.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])[:tokenHashLen]
}

// Put records that staleToken was replaced by newToken.
func (c *RefreshCache) Put(staleToken, newToken string) {
	if staleToken == "" || newToken == "" || staleToken == newToken {
		return
	}
	c.cleanupOnce.Do(c.startCleanup)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hashToken(staleToken)] = refreshEntry{newToken: newToken, timestamp: time.Now()}
}

// Get returns the replacement for staleToken, if one was recorded recently.
func (c *RefreshCache) Get(staleToken string) (string, bool) {
	if staleToken == "" {
		return "", false
	}
	key := hashToken(staleToken)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.newToken, true
}

func (c *RefreshCache) startCleanup() {
	go func() {
		ticker := time.NewTicker(refreshCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			c.purgeExpired()
		}
	}()
}

func (c *RefreshCache) purgeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.entries, key)
		}
	}
}
