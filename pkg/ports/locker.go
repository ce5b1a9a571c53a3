package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one player across server replicas
// that share a save store.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl if the holder dies; the returned UnlockFunc must be called otherwise.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
