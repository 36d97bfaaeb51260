package msgworker

import (
	"context"
	"sync"

	"github.com/wppweb/gateway/config"
)

var (
	globalPool   *Pool
	globalOnce   sync.Once
	globalCancel context.CancelFunc
)

// GetGlobalPool returns the process-wide worker pool, starting it on first
// use with the configured size.
func GetGlobalPool() *Pool {
	globalOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		globalPool = NewPool(config.MessageWorkerPoolSize, config.MessageWorkerQueueSize)
		globalPool.Start(ctx)
	})
	return globalPool
}

// StopGlobalPool stops the singleton pool.
func StopGlobalPool() {
	if globalCancel != nil {
		globalCancel()
	}
	if globalPool != nil {
		globalPool.Stop()
	}
}
