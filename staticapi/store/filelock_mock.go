package store

import (
	"context"
	"sync"
	"time"
)

// MockFileLock is an in-process FileLock for tests
type MockFileLock struct {
	mu          sync.Mutex
	isLocked    bool
	lockError   error
	unlockError error

	// For tracking lock attempts
	LockAttempts   int
	UnlockAttempts int
}

// TryLockContext implements FileLock.TryLockContext. A held lock makes the
// call wait for ctx, the way flock polls until its deadline.
func (m *MockFileLock) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	for {
		m.mu.Lock()
		m.LockAttempts++
		if m.lockError != nil {
			err := m.lockError
			m.mu.Unlock()
			return false, err
		}
		if !m.isLocked {
			m.isLocked = true
			m.mu.Unlock()
			return true, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Unlock implements FileLock.Unlock
func (m *MockFileLock) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UnlockAttempts++

	if m.unlockError != nil {
		return m.unlockError
	}

	m.isLocked = false
	return nil
}

// IsLocked returns whether the lock is currently held (for testing)
func (m *MockFileLock) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLocked
}

// Hold marks the lock as taken by someone else (for testing)
func (m *MockFileLock) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isLocked = true
}

// SetLockError sets an error to be returned on lock attempts (for testing)
func (m *MockFileLock) SetLockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockError = err
}

// MockFileLockFactory hands out one MockFileLock per path
type MockFileLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockFileLock

	// Default error to inject into new locks
	DefaultLockError error
}

// NewMockFileLockFactory creates a new mock factory
func NewMockFileLockFactory() *MockFileLockFactory {
	return &MockFileLockFactory{
		locks: make(map[string]*MockFileLock),
	}
}

// New implements FileLockFactory.New
func (f *MockFileLockFactory) New(path string) FileLock {
	return f.GetLock(path)
}

// GetLock returns the mock lock for a path, creating it if needed
func (f *MockFileLockFactory) GetLock(path string) *MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lock, exists := f.locks[path]; exists {
		return lock
	}
	lock := &MockFileLock{lockError: f.DefaultLockError}
	f.locks[path] = lock
	return lock
}
