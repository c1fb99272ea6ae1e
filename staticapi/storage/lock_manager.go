package storage

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// OperationType defines whether an operation is read or write.
// Reads on the same key share access, writes are exclusive.
type OperationType int

const (
	// ReadOperation indicates an operation that only reads data.
	// Multiple read operations on a key can proceed concurrently.
	ReadOperation OperationType = iota

	// WriteOperation indicates a read-modify-write sequence.
	// It excludes every other operation on the same key.
	WriteOperation
)

func (o OperationType) String() string {
	if o == WriteOperation {
		return "write"
	}
	return "read"
}

// State is the observable state of a single key.
type State int

const (
	// Idle means no operation holds or waits for the key
	Idle State = iota
	// Busy means at least one operation holds or waits for the key
	Busy
)

func (s State) String() string {
	if s == Busy {
		return "busy"
	}
	return "idle"
}

// writeWeight is the semaphore weight taken by a writer. It bounds the
// number of concurrent readers per key.
const writeWeight = 1 << 20

// AcquireError is returned when the lock for a key could not be taken
// before the context ended.
type AcquireError struct {
	Key string
	Op  OperationType
	Err error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("failed to acquire %s lock on %q: %v", e.Op, e.Key, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// LockManager serializes operations per key (one key per collection).
// Operations on different keys never block each other. Entries are
// reference counted and dropped once the last operation on a key finishes,
// so the map only holds keys with work in flight.
//
// Each key is guarded by a weighted semaphore: a read takes weight 1 and a
// write takes the full weight. The semaphore is FIFO, so a waiting writer is
// not starved by a stream of readers, and acquisition honours the context.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewLockManager creates a new lock manager instance.
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*keyLock),
	}
}

// Execute runs fn while holding the lock for key.
//
// The lock is released via defer when fn returns, including when fn panics.
// If ctx ends before the lock is acquired, fn is not run and an
// *AcquireError wrapping ctx.Err() is returned.
//
// Example:
//
//	err := lm.Execute(ctx, "widgets", WriteOperation, func() error {
//	    // exclusive access to the widgets collection
//	    return nil
//	})
func (lm *LockManager) Execute(ctx context.Context, key string, opType OperationType, fn func() error) error {
	kl := lm.ref(key)
	defer lm.unref(key, kl)

	weight := int64(1)
	if opType == WriteOperation {
		weight = writeWeight
	}
	if err := kl.sem.Acquire(ctx, weight); err != nil {
		return &AcquireError{Key: key, Op: opType, Err: err}
	}
	defer kl.sem.Release(weight)

	return fn()
}

// ExecuteWithResult is Execute for functions that also return a value.
func ExecuteWithResult[T any](ctx context.Context, lm *LockManager, key string, opType OperationType, fn func() (T, error)) (T, error) {
	var result T
	err := lm.Execute(ctx, key, opType, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// State reports whether any operation currently holds or waits for key.
func (lm *LockManager) State(key string) State {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if _, ok := lm.locks[key]; ok {
		return Busy
	}
	return Idle
}

func (lm *LockManager) ref(key string) *keyLock {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	kl, ok := lm.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(writeWeight)}
		lm.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (lm *LockManager) unref(key string, kl *keyLock) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(lm.locks, key)
	}
}
