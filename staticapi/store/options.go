package store

import (
	"log/slog"

	"github.com/arthur-debert/static-api/staticapi/ids"
)

// Option is a function that modifies the collection store
type Option func(*collectionStore)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) Option {
	return func(s *collectionStore) {
		s.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(s *collectionStore) {
		s.lockFactory = factory
	}
}

// WithIDGenerator overrides the generator selected by Config.IDStrategy
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *collectionStore) {
		s.idGen = gen
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(s *collectionStore) {
		s.logger = logger
	}
}

// WithTempName sets the function that names temp files during writes
func WithTempName(fn func(path string) string) Option {
	return func(s *collectionStore) {
		s.tempName = fn
	}
}
