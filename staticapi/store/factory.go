package store

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/arthur-debert/static-api/staticapi/ids"
)

// DefaultLockTimeout bounds the wait for a collection lock
const DefaultLockTimeout = 3 * time.Second

// Default permissions for collection files and the data directory
const (
	DefaultFilePerm fs.FileMode = 0o644
	DefaultDirPerm  fs.FileMode = 0o755
)

// Config is the store configuration. It is passed explicitly to New; the
// store keeps no process-wide state.
type Config struct {
	// DataDir holds one file per collection. Created by New if missing.
	DataDir string

	// IDStrategy selects the id generator: "sequential" (default) or "random"
	IDStrategy string

	// RandomIDMax is the upper bound of the random strategy (default 100000)
	RandomIDMax uint64

	// LockTimeout bounds how long an operation waits for a collection lock
	LockTimeout time.Duration

	// FilePerm is the mode of collection files
	FilePerm fs.FileMode
}

// New creates a Store backed by JSON files in cfg.DataDir.
func New(cfg Config) (Store, error) {
	return newCollectionStore(cfg)
}

// NewWithOptions creates a Store with custom options.
// This is useful for testing with mock file systems and locks.
func NewWithOptions(cfg Config, opts ...Option) (Store, error) {
	return newCollectionStore(cfg, opts...)
}

func (c Config) withDefaults() (Config, error) {
	if c.DataDir == "" {
		return c, fmt.Errorf("data directory is required")
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.FilePerm == 0 {
		c.FilePerm = DefaultFilePerm
	}
	if c.RandomIDMax == 0 {
		c.RandomIDMax = ids.DefaultRandomMax
	}
	return c, nil
}
