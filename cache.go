package linkml

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ValidatorCacheKey identifies one compiled ClassValidator uniquely: two
// schemas with the same content hash but different IDs, or the same class
// compiled with different CompileOptions, never collide (component I).
type ValidatorCacheKey struct {
	SchemaID    string
	SchemaHash  Fingerprint
	ClassName   string
	OptionsHash string
}

type cacheEntry struct {
	validator  *ClassValidator
	insertedAt time.Time
}

// ValidatorCache is the L1 compiled-validator cache fronting Compiler.Compile.
// It is bounded by entry count (LRU eviction) and by a TTL so a schema that
// is reloaded under the same ID eventually falls out even without an
// explicit invalidation call.
type ValidatorCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[ValidatorCacheKey, cacheEntry]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// defaultValidatorCacheTTL is the lifetime of a cached validator; a cache
// entry older than this is treated as a miss and recompiled.
const defaultValidatorCacheTTL = 10 * time.Minute

// NewValidatorCache returns a cache holding up to size compiled validators.
func NewValidatorCache(size int) *ValidatorCache {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[ValidatorCacheKey, cacheEntry](size)
	return &ValidatorCache{lru: c, ttl: defaultValidatorCacheTTL}
}

// Get returns the cached validator for key, if present and not expired.
func (vc *ValidatorCache) Get(key ValidatorCacheKey) (*ClassValidator, bool) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	entry, ok := vc.lru.Get(key)
	if !ok {
		vc.misses.Add(1)
		return nil, false
	}
	if time.Since(entry.insertedAt) > vc.ttl {
		vc.lru.Remove(key)
		vc.misses.Add(1)
		return nil, false
	}
	vc.hits.Add(1)
	return entry.validator, true
}

// Put stores a freshly compiled validator, evicting the least recently used
// entry if the cache is at capacity.
func (vc *ValidatorCache) Put(key ValidatorCacheKey, validator *ClassValidator) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.lru.Add(key, cacheEntry{validator: validator, insertedAt: time.Now()})
}

// Invalidate drops every cached validator for a schema ID, used when a
// schema is reloaded with new content under the same identifier.
func (vc *ValidatorCache) Invalidate(schemaID string) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	for _, key := range vc.lru.Keys() {
		if key.SchemaID == schemaID {
			vc.lru.Remove(key)
		}
	}
}

// HitRate reports the fraction of Get calls that returned a live entry,
// exposed through ReportStats.CacheHitRate.
func (vc *ValidatorCache) HitRate() float64 {
	hits, misses := vc.hits.Load(), vc.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Len reports the current number of cached entries.
func (vc *ValidatorCache) Len() int {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.lru.Len()
}
