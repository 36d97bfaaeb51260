package msgworker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDispatchNonBlocking(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	start := time.Now()
	pool.Dispatch(Job{
		InstanceID: "inst1",
		ChatJID:    "5511999@s.whatsapp.net",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Millisecond, "dispatch must not wait for the handler")
}

func TestPoolSameChatSequentialProcessing(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	var mu sync.Mutex
	var results []int

	for i := 1; i <= 5; i++ {
		val := i
		pool.Dispatch(Job{
			InstanceID: "inst1",
			ChatJID:    "1234-5678@g.us",
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		})
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3, 4, 5}, results, "jobs for one chat must keep order")
}

func TestPoolDifferentChatsRunInParallel(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	var active int32
	for i := 0; i < 4; i++ {
		pool.Dispatch(Job{
			InstanceID: "inst1",
			ChatJID:    fmt.Sprintf("chat-%d@s.whatsapp.net", i),
			Handler: func(ctx context.Context) error {
				atomic.AddInt32(&active, 1)
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			},
		})
	}

	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&active), int32(2), "different chats should run in parallel")
}

func TestPoolBackpressureDropsWhenQueueFull(t *testing.T) {
	// One worker, queue of one: the third dispatch for the same chat
	// cannot be accepted while the first is still running.
	pool := NewPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	block := make(chan struct{})
	accepted := pool.TryDispatch(Job{
		InstanceID: "inst1",
		ChatJID:    "chat1",
		Handler: func(ctx context.Context) error {
			<-block
			return nil
		},
	})
	require.True(t, accepted)

	time.Sleep(10 * time.Millisecond) // let the worker pick it up
	assert.True(t, pool.TryDispatch(Job{InstanceID: "inst1", ChatJID: "chat1", Handler: func(context.Context) error { return nil }}))
	assert.False(t, pool.TryDispatch(Job{InstanceID: "inst1", ChatJID: "chat1", Handler: func(context.Context) error { return nil }}))

	close(block)

	stats := pool.GetStats()
	assert.Equal(t, int64(1), stats.TotalDropped)
}

func TestPoolGracefulShutdownCompletesInFlightJobs(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())

	pool.Start(ctx)

	var completed int32
	for i := 0; i < 2; i++ {
		pool.Dispatch(Job{
			InstanceID: "inst1",
			ChatJID:    fmt.Sprintf("chat-%d", i),
			Handler: func(ctx context.Context) error {
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt32(&completed, 1)
				return nil
			},
		})
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	pool.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&completed), "in-flight jobs must finish during shutdown")
}

func TestPoolPanicInHandlerIsContained(t *testing.T) {
	pool := NewPool(1, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	pool.Dispatch(Job{
		InstanceID: "inst1",
		ChatJID:    "chat1",
		Handler:    func(context.Context) error { panic("boom") },
	})

	var done int32
	pool.Dispatch(Job{
		InstanceID: "inst1",
		ChatJID:    "chat1",
		Handler: func(context.Context) error {
			atomic.StoreInt32(&done, 1)
			return nil
		},
	})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&done), "worker must survive a panicking job")
	assert.Equal(t, int64(1), pool.GetStats().TotalErrors)
}

func TestPoolConsistentHashing(t *testing.T) {
	pool := NewPool(4, 100)

	shard1 := pool.shardFor("inst1", "chat123")
	shard2 := pool.shardFor("inst1", "chat123")
	assert.Equal(t, shard1, shard2, "same chat must map to the same shard")
	assert.GreaterOrEqual(t, shard1, 0)
	assert.Less(t, shard1, 4)

	other := pool.shardFor("inst2", "chat123")
	_ = other // may collide; only determinism is guaranteed
}

func TestPoolFairDistribution(t *testing.T) {
	pool := NewPool(4, 100)

	shardCounts := make(map[int]int)
	for i := 0; i < 100; i++ {
		shard := pool.shardFor("inst1", fmt.Sprintf("chat-%d@s.whatsapp.net", i))
		shardCounts[shard]++
	}

	for shard, count := range shardCounts {
		assert.Greater(t, count, 10, "worker %d should get a reasonable share", shard)
		assert.Less(t, count, 45, "worker %d should not dominate", shard)
	}
}
