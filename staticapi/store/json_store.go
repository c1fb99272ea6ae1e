package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/arthur-debert/static-api/staticapi/ids"
	"github.com/arthur-debert/static-api/staticapi/storage"
	"github.com/arthur-debert/static-api/types"
	"github.com/google/uuid"
)

// collectionStore implements Store on top of one JSON array file per
// collection. It caches nothing between operations.
type collectionStore struct {
	cfg         Config
	fs          FileSystem
	lockFactory FileLockFactory
	locks       *storage.LockManager
	idGen       ids.Generator
	logger      *slog.Logger
	tempName    func(path string) string
}

func newCollectionStore(cfg Config, opts ...Option) (*collectionStore, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	s := &collectionStore{
		cfg:   cfg,
		locks: storage.NewLockManager(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Set defaults for dependencies not provided via options
	if s.fs == nil {
		s.fs = OSFileSystem{}
	}
	if s.lockFactory == nil {
		s.lockFactory = FlockFactory{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.tempName == nil {
		s.tempName = func(path string) string {
			return path + "." + uuid.NewString() + tempSuffix
		}
	}
	if s.idGen == nil {
		gen, err := ids.New(cfg.IDStrategy, cfg.RandomIDMax)
		if err != nil {
			return nil, err
		}
		s.idGen = gen
	}

	if err := s.fs.MkdirAll(cfg.DataDir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return s, nil
}

// Constants for file locking
const (
	lockMaxRetries = 3
	lockRetryDelay = 20 * time.Millisecond
)

// List implements Store.List
func (s *collectionStore) List(ctx context.Context, collection string, opts types.ListOptions) (types.Page, error) {
	coll, err := s.readVivified(ctx, "list", collection)
	if err != nil {
		return types.Page{}, err
	}
	return coll.Slice(opts), nil
}

// Get implements Store.Get
func (s *collectionStore) Get(ctx context.Context, collection string, id uint64) (types.Record, error) {
	coll, err := s.readVivified(ctx, "get", collection)
	if err != nil {
		return nil, err
	}
	idx := coll.IndexOf(id)
	if idx < 0 {
		return nil, types.NewStoreError("get", collection, types.KindNotFound, &types.RecordNotFoundError{ID: id})
	}
	rec, _ := types.AsRecord(coll[idx])
	return rec, nil
}

// Insert implements Store.Insert
func (s *collectionStore) Insert(ctx context.Context, collection string, payload types.Record) (types.Record, error) {
	const op = "insert"
	if payload == nil {
		return nil, types.NewStoreError(op, collection, types.KindInvalid, fmt.Errorf("%w: record must be a JSON object", types.ErrInvalidPayload))
	}

	var stored types.Record
	err := s.withWriteLock(ctx, op, collection, func(path string) error {
		coll, _, err := s.load(op, collection, path)
		if err != nil {
			return err
		}

		rec := payload.Clone()
		if !rec.HasID() {
			id, err := s.idGen.Next(coll.IDs())
			if err != nil {
				return types.NewStoreError(op, collection, types.KindConflict, fmt.Errorf("failed to generate id: %w", err))
			}
			rec.SetID(id)
		} else if id, ok := rec.ID(); ok && coll.IndexOf(id) >= 0 {
			return types.NewStoreError(op, collection, types.KindConflict, fmt.Errorf("%w: %d", types.ErrDuplicateID, id))
		}

		coll = append(coll, map[string]any(rec))
		if err := s.save(op, collection, path, coll); err != nil {
			return err
		}
		stored = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update implements Store.Update
func (s *collectionStore) Update(ctx context.Context, collection string, id uint64, payload types.Record) (bool, error) {
	const op = "update"
	if payload == nil {
		return false, types.NewStoreError(op, collection, types.KindInvalid, fmt.Errorf("%w: record must be a JSON object", types.ErrInvalidPayload))
	}

	var found bool
	err := s.withWriteLock(ctx, op, collection, func(path string) error {
		coll, exists, err := s.load(op, collection, path)
		if err != nil || !exists {
			return err
		}

		idx := coll.IndexOf(id)
		if idx < 0 {
			return nil
		}
		coll[idx] = map[string]any(payload.Clone())
		if err := s.save(op, collection, path, coll); err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Delete implements Store.Delete
func (s *collectionStore) Delete(ctx context.Context, collection string, id uint64) (bool, error) {
	const op = "delete"

	var removed bool
	err := s.withWriteLock(ctx, op, collection, func(path string) error {
		coll, exists, err := s.load(op, collection, path)
		if err != nil || !exists {
			return err
		}

		kept := make(types.Collection, 0, len(coll))
		for _, el := range coll {
			if got, ok := types.ElementID(el); ok && got == id {
				removed = true
				continue
			}
			kept = append(kept, el)
		}

		// Rewritten even when nothing matched
		return s.save(op, collection, path, kept)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Replace implements Store.Replace
func (s *collectionStore) Replace(ctx context.Context, collection string, items types.Collection) error {
	const op = "replace"
	return s.withWriteLock(ctx, op, collection, func(path string) error {
		return s.save(op, collection, path, items)
	})
}

// DeleteCollection implements Store.DeleteCollection
func (s *collectionStore) DeleteCollection(ctx context.Context, collection string) error {
	const op = "delete collection"
	return s.withWriteLock(ctx, op, collection, func(path string) error {
		if err := s.fs.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return types.NewStoreError(op, collection, types.KindNotFound, fmt.Errorf("collection %q does not exist", collection))
			}
			return types.NewStoreError(op, collection, types.KindIO, fmt.Errorf("failed to remove file: %w", err))
		}
		s.logger.Debug("collection deleted", "collection", collection, "path", path)
		return nil
	})
}

// Collections implements Store.Collections
func (s *collectionStore) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(s.cfg.DataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, types.NewStoreError("collections", "", types.KindIO, fmt.Errorf("failed to read data directory: %w", err))
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := collectionName(e.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store.Close
func (s *collectionStore) Close() error {
	// Nothing is held open between operations
	return nil
}

// readVivified loads a collection under the read lock. A missing file is
// created as [] under the write lock, re-checking first so that a concurrent
// insert is never overwritten.
func (s *collectionStore) readVivified(ctx context.Context, op, collection string) (types.Collection, error) {
	path, err := s.resolve(op, collection)
	if err != nil {
		return nil, err
	}

	var coll types.Collection
	var exists bool
	err = s.execute(ctx, op, collection, storage.ReadOperation, func() error {
		var err error
		coll, exists, err = s.load(op, collection, path)
		return err
	})
	if err != nil || exists {
		return coll, err
	}

	err = s.withWriteLock(ctx, op, collection, func(path string) error {
		var err error
		coll, exists, err = s.load(op, collection, path)
		if err != nil || exists {
			return err
		}
		s.logger.Debug("creating empty collection", "collection", collection, "path", path)
		return s.save(op, collection, path, coll)
	})
	return coll, err
}

// withWriteLock runs fn with exclusive access to the collection: the
// in-process lock first, then the cross-process file lock.
func (s *collectionStore) withWriteLock(ctx context.Context, op, collection string, fn func(path string) error) error {
	path, err := s.resolve(op, collection)
	if err != nil {
		return err
	}

	return s.execute(ctx, op, collection, storage.WriteOperation, func() error {
		lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
		defer cancel()

		lock, err := s.acquireFileLock(lockCtx, path+lockSuffix)
		if err != nil {
			return types.NewStoreError(op, collection, types.KindLock, err)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				s.logger.Warn("failed to release file lock", "collection", collection, "error", err)
			}
		}()

		return fn(path)
	})
}

// execute wraps the lock manager, bounding the wait by the lock timeout and
// turning acquisition failures into lock errors.
func (s *collectionStore) execute(ctx context.Context, op, collection string, opType storage.OperationType, fn func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()

	err := s.locks.Execute(waitCtx, collection, opType, fn)
	var acqErr *storage.AcquireError
	if errors.As(err, &acqErr) {
		return types.NewStoreError(op, collection, types.KindLock, err)
	}
	return err
}

// acquireFileLock attempts to acquire the file lock with retry logic
func (s *collectionStore) acquireFileLock(ctx context.Context, lockPath string) (FileLock, error) {
	lock := s.lockFactory.New(lockPath)
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire file lock: %w", err)
		}
		if locked {
			return lock, nil
		}

		// Wait before retrying
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire file lock: %w", ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to acquire file lock after %d attempts", lockMaxRetries)
}

func (s *collectionStore) resolve(op, collection string) (string, error) {
	path, err := ResolvePath(s.cfg.DataDir, collection)
	if err != nil {
		return "", types.NewStoreError(op, collection, types.KindInvalid, err)
	}
	return path, nil
}

// load reads and decodes a collection file. exists is false when the file
// is missing, in which case the returned collection is empty.
// No locking here - caller must handle locking.
func (s *collectionStore) load(op, collection, path string) (coll types.Collection, exists bool, err error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Collection{}, false, nil
		}
		return nil, false, types.NewStoreError(op, collection, types.KindIO, fmt.Errorf("failed to read file: %w", err))
	}

	coll, err = DecodeCollection(data)
	if err != nil {
		return nil, true, types.NewStoreError(op, collection, types.KindParse, err)
	}
	return coll, true, nil
}

// save writes the whole collection to a temp file and renames it over path.
// No locking here - caller must handle locking.
func (s *collectionStore) save(op, collection, path string, coll types.Collection) error {
	data, err := encodeCollection(coll)
	if err != nil {
		return types.NewStoreError(op, collection, types.KindIO, fmt.Errorf("failed to marshal JSON: %w", err))
	}

	// Write to file atomically (write to temp file, then rename)
	tmpFile := s.tempName(path)
	if err := s.fs.WriteFile(tmpFile, data, s.cfg.FilePerm); err != nil {
		_ = s.fs.Remove(tmpFile)
		return types.NewStoreError(op, collection, types.KindIO, fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := s.fs.Rename(tmpFile, path); err != nil {
		_ = s.fs.Remove(tmpFile) // Clean up temp file
		return types.NewStoreError(op, collection, types.KindIO, fmt.Errorf("failed to rename file: %w", err))
	}

	s.logger.Debug("collection written", "op", op, "collection", collection, "records", len(coll))
	return nil
}

// DecodeCollection parses collection file content. Blank files decode as an
// empty collection; anything whose root is not an array is a parse error.
func DecodeCollection(data []byte) (types.Collection, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Collection{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %w", types.ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after JSON value", types.ErrParse)
	}

	arr, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: collection root is %s, not a JSON array", types.ErrParse, jsonKind(root))
	}
	return types.Collection(arr), nil
}

// encodeCollection pretty-prints the collection. A nil collection is
// written as [] so the file root is always an array.
func encodeCollection(coll types.Collection) ([]byte, error) {
	if coll == nil {
		coll = types.Collection{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(coll); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "an object"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
