package store

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock is an advisory lock shared with other processes that write the
// same data directory.
type FileLock interface {
	// TryLockContext polls for the exclusive lock every retryInterval until
	// it is acquired or ctx ends
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases the lock
	Unlock() error
}

// FileLockFactory creates FileLock instances
type FileLockFactory interface {
	// New creates a FileLock backed by the file at path
	New(path string) FileLock
}

// FlockWrapper adapts github.com/gofrs/flock to FileLock
type FlockWrapper struct {
	flock *flock.Flock
}

// TryLockContext implements FileLock.TryLockContext
func (f *FlockWrapper) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	return f.flock.TryLockContext(ctx, retryInterval)
}

// Unlock implements FileLock.Unlock
func (f *FlockWrapper) Unlock() error {
	return f.flock.Unlock()
}

// FlockFactory is the default factory. Lock files are created next to the
// collection file and are left in place after unlock.
type FlockFactory struct{}

// New implements FileLockFactory.New
func (FlockFactory) New(path string) FileLock {
	return &FlockWrapper{
		flock: flock.New(path),
	}
}
