package valkey

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SyncLimiter caps how often a full sync may be started per instance.
// Backed by a shared valkey counter when a client is available so the
// limit holds across nodes; otherwise it degrades to an in-process window.
type SyncLimiter struct {
	client *Client
	max    int
	window time.Duration

	mu    sync.Mutex
	local map[string][]time.Time
}

func NewSyncLimiter(client *Client, max int, window time.Duration) *SyncLimiter {
	return &SyncLimiter{
		client: client,
		max:    max,
		window: window,
		local:  make(map[string][]time.Time),
	}
}

// Allow reports whether another sync may start for the instance and, when
// it may, consumes one slot.
func (l *SyncLimiter) Allow(ctx context.Context, instanceID string) bool {
	if l.client != nil {
		if allowed, ok := l.allowShared(ctx, instanceID); ok {
			return allowed
		}
		// Valkey unreachable: fall through to the local window rather
		// than blocking syncs entirely.
	}
	return l.allowLocal(instanceID)
}

func (l *SyncLimiter) allowShared(ctx context.Context, instanceID string) (allowed, ok bool) {
	inner := l.client.Inner()
	key := l.client.Key("sync", "ratelimit", instanceID)

	count, err := inner.Do(ctx, inner.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		logrus.Warnf("[SYNC] Rate limit counter unavailable: %v", err)
		return false, false
	}
	if count == 1 {
		seconds := int64(l.window / time.Second)
		if err := inner.Do(ctx, inner.B().Expire().Key(key).Seconds(seconds).Build()).Error(); err != nil {
			logrus.Warnf("[SYNC] Failed to set rate limit expiry: %v", err)
		}
	}
	return count <= int64(l.max), true
}

func (l *SyncLimiter) allowLocal(instanceID string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.local[instanceID][:0]
	for _, t := range l.local[instanceID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.local[instanceID] = kept
		return false
	}
	l.local[instanceID] = append(kept, now)
	return true
}
