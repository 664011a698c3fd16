// Package responsecache implements the gateway's request/response cache:
// a fixed-capacity, fingerprint-keyed store with TTL expiration and
// hit-count-aware eviction. It is grounded on the same SHA-256 fingerprint
// idea as internal/plugins/cache, extended with hit-count tracking and a
// bottom-10%-by-(hit_count, insertion time) eviction policy instead of
// plain LRU, per the gateway's cache data model.
package responsecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/providers"
)

// Entry mirrors the Cache Entry data model: fingerprint, response,
// the original request's end-to-end latency, insertion time, hit count,
// and TTL. LatencyMS is replayed verbatim on every hit so a cached
// response's latency_ms always reflects the request that produced it,
// never the (near-zero) time spent serving the hit.
type Entry struct {
	Fingerprint string
	Response    providers.Response
	LatencyMS   int64
	InsertedAt  time.Time
	HitCount    int
	TTL         time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) >= e.TTL
}

// Stats reports the cache's hit/miss accounting, per the Cache component's
// Stats() operation.
type Stats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
}

// HitRate returns Hits / (Hits + Misses), or 0 when no requests were served.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the gateway's fingerprint-keyed response cache.
type Cache struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	taskTTL    map[string]time.Duration
	entries    map[string]*Entry
	hits       int64
	misses     int64
}

// New creates a Cache with the given capacity and default TTL.
// taskTTL supplies per-task-type TTL overrides (may be nil).
func New(maxSize int, defaultTTL time.Duration, taskTTL map[string]time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if taskTTL == nil {
		taskTTL = map[string]time.Duration{}
	}
	return &Cache{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		taskTTL:    taskTTL,
		entries:    make(map[string]*Entry),
	}
}

// Fingerprint computes the deterministic cache key for a request. It covers
// only prompt bytes, max_tokens, and temperature — user identity is
// deliberately excluded so responses are shareable across users. Uses a
// fixed cryptographic hash (SHA-256) so the fingerprint is stable across
// processes, per the gateway's portability requirement.
func Fingerprint(prompt string, maxTokens int, temperature float64) string {
	raw := fmt.Sprintf("%s\x00%d\x00%.6f", prompt, maxTokens, temperature)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached entry for fingerprint if present and unexpired.
// A hit increments the entry's hit count; the caller is responsible for
// marking the returned response cached=true and must reuse entry.LatencyMS
// verbatim rather than timing the hit itself. Streaming requests must never
// be looked up here (callers enforce that by not calling Get for
// stream=true requests).
func (c *Cache) Get(fingerprint string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return Entry{}, false
	}
	if entry.expired(time.Now()) {
		delete(c.entries, fingerprint)
		c.misses++
		return Entry{}, false
	}

	entry.HitCount++
	c.hits++
	return *entry, true
}

// Set inserts resp under fingerprint, recording latencyMS as the value to
// replay on future hits. taskType selects a TTL override if one is
// configured; ttlOverride, if non-zero, takes precedence over both. At
// capacity, the bottom 10% of entries ranked by (hit_count ascending,
// insertion time ascending) are evicted before the insert.
func (c *Cache) Set(fingerprint string, resp providers.Response, latencyMS int64, taskType string, ttlOverride time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.defaultTTL
	if taskType != "" {
		if override, ok := c.taskTTL[taskType]; ok {
			ttl = override
		}
	}
	if ttlOverride > 0 {
		ttl = ttlOverride
	}

	if _, exists := c.entries[fingerprint]; !exists && len(c.entries) >= c.maxSize {
		c.evictBottomTenPercent()
	}

	c.entries[fingerprint] = &Entry{
		Fingerprint: fingerprint,
		Response:    resp,
		LatencyMS:   latencyMS,
		InsertedAt:  time.Now(),
		HitCount:    0,
		TTL:         ttl,
	}
}

// evictBottomTenPercent must be called with c.mu held.
func (c *Cache) evictBottomTenPercent() {
	if len(c.entries) == 0 {
		return
	}
	ranked := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].HitCount != ranked[j].HitCount {
			return ranked[i].HitCount < ranked[j].HitCount
		}
		return ranked[i].InsertedAt.Before(ranked[j].InsertedAt)
	})

	evictCount := len(ranked) / 10
	if evictCount < 1 {
		evictCount = 1
	}
	for i := 0; i < evictCount && i < len(ranked); i++ {
		delete(c.entries, ranked[i].Fingerprint)
	}
}

// Delete removes an entry unconditionally.
func (c *Cache) Delete(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Stats returns the cache's current size/hit/miss accounting.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
