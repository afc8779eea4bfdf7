package reconciler

import (
	"sync"
	"time"

	"github.com/grammirror/gram-mirror/app/source"
)

const DefaultProfileTTL = 300 * time.Second

// CachedProfile is a profile snapshot together with its avatar bytes.
type CachedProfile struct {
	Profile source.Profile
	Avatar  *source.Media
}

type cacheEntry struct {
	value     CachedProfile
	fetchedAt time.Time
}

// ProfileCache is a TTL cache for creator profiles. Stale entries are
// reported as absent and overwritten on the next Put.
type ProfileCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewProfileCache(ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock overrides the time source. Used in tests.
func (c *ProfileCache) WithClock(now func() time.Time) *ProfileCache {
	c.now = now
	return c
}

func (c *ProfileCache) Get(creator string) (CachedProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[creator]
	if !ok {
		return CachedProfile{}, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		return CachedProfile{}, false
	}
	return e.value, true
}

func (c *ProfileCache) Put(creator string, value CachedProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[creator] = cacheEntry{value: value, fetchedAt: c.now()}
}
