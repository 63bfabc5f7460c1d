package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a session across processes.
// The session manager uses it so two replicas never apply edits to the same
// wizard state concurrently.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The lock
	// expires after ttl even if never released. The returned UnlockFunc must
	// be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
