package cache

import (
	"sync"
	"time"
)

// AnalysisCacheTTL bounds how stale a served analysis may be. Dashboard loads
// within the window reuse the backend's previous answer.
const AnalysisCacheTTL = 5 * time.Minute

type analysisEntry struct {
	payload   []byte
	timestamp time.Time
}

// AnalysisCache is a TTL cache for raw analytics payloads keyed by the
// backend path that produced them ("profile/octocat", "repo/golang/go", ...).
// Payloads are cached verbatim; the gateway never rewrites backend results.
type AnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]analysisEntry
	ttl     time.Duration
}

// NewAnalysisCache creates an analysis cache with the given TTL.
// A non-positive TTL falls back to AnalysisCacheTTL.
func NewAnalysisCache(ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = AnalysisCacheTTL
	}
	return &AnalysisCache{
		entries: make(map[string]analysisEntry),
		ttl:     ttl,
	}
}

// Get returns the cached payload for key when it is still fresh.
func (c *AnalysisCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another writer may have replaced it.
		if current, still := c.entries[key]; still && time.Since(current.timestamp) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.payload, true
}

// Put stores a payload under key, replacing any previous entry.
func (c *AnalysisCache) Put(key string, payload []byte) {
	if key == "" || len(payload) == 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = analysisEntry{payload: payload, timestamp: time.Now()}
	c.mu.Unlock()
}

// Invalidate drops the entry for key, if present.
func (c *AnalysisCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of live entries, counting expired ones not yet purged.
func (c *AnalysisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
