package groupcache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	"golang.org/x/sync/singleflight"
)

// Fetcher performs the actual remote group-info fetch for one key.
type Fetcher func(ctx context.Context) (*domainProvider.GroupInfo, error)

type entry struct {
	info      *domainProvider.GroupInfo
	fetchedAt time.Time
}

// Cache is a per-process TTL cache of provider group metadata, keyed by
// (instance, group JID). Concurrent misses for the same key are coalesced
// into one fetch, and fetch failures fall back to the last known value.
// Fetch errors never reach the caller; this layer is best-effort
// enrichment only.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	attempts map[string]time.Time // last fetch attempt, success or not
	flight   singleflight.Group

	ttl         time.Duration
	minInterval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func New(ttl, minInterval time.Duration) *Cache {
	return &Cache{
		entries:     make(map[string]*entry),
		attempts:    make(map[string]time.Time),
		ttl:         ttl,
		minInterval: minInterval,
		stop:        make(chan struct{}),
	}
}

func key(instanceID, groupJid string) string {
	return instanceID + ":" + groupJid
}

// GetGroupInfo returns cached metadata when fresh, otherwise fetches.
// An expired entry whose last fetch attempt is younger than the minimum
// refetch interval is served stale rather than hammering the provider.
// Returns nil only when nothing was ever fetched successfully and the
// fetch fails.
func (c *Cache) GetGroupInfo(ctx context.Context, instanceID, groupJid string, fetch Fetcher) *domainProvider.GroupInfo {
	k := key(instanceID, groupJid)

	c.mu.RLock()
	cached, ok := c.entries[k]
	lastAttempt := c.attempts[k]
	c.mu.RUnlock()

	if ok {
		if time.Since(cached.fetchedAt) < c.ttl {
			return cached.info
		}
		if time.Since(lastAttempt) < c.minInterval {
			// Expired but attempted too recently. Serve stale.
			return cached.info
		}
	}

	result, err, _ := c.flight.Do(k, func() (any, error) {
		// Another goroutine may have stored a fresh value while this one
		// waited on the flight lock.
		c.mu.RLock()
		current, ok := c.entries[k]
		c.mu.RUnlock()
		if ok && time.Since(current.fetchedAt) < c.ttl {
			return current.info, nil
		}

		c.mu.Lock()
		c.attempts[k] = time.Now()
		c.mu.Unlock()

		info, err := fetch(ctx)
		if err != nil || info == nil {
			if err != nil {
				logrus.Warnf("[GROUP_CACHE] Fetch failed for %s: %v", k, err)
			}
			if ok {
				return current.info, nil
			}
			return (*domainProvider.GroupInfo)(nil), nil
		}

		c.mu.Lock()
		c.entries[k] = &entry{info: info, fetchedAt: time.Now()}
		c.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return nil
	}
	info, _ := result.(*domainProvider.GroupInfo)
	return info
}

// Invalidate drops one entry, forcing the next lookup to refetch.
func (c *Cache) Invalidate(instanceID, groupJid string) {
	k := key(instanceID, groupJid)
	c.mu.Lock()
	delete(c.entries, k)
	delete(c.attempts, k)
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper launches the periodic cleanup removing entries past TTL.
// Call Stop to terminate it.
func (c *Cache) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweep() {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for k, e := range c.entries {
		if now.Sub(e.fetchedAt) > c.ttl {
			delete(c.entries, k)
			delete(c.attempts, k)
			removed++
		}
	}
	remaining := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		logrus.Infof("[GROUP_CACHE] Sweep removed %d expired entries, %d remaining", removed, remaining)
	}
}
