package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies store failures so callers can map them to responses.
type ErrorKind int

const (
	// KindIO is a filesystem failure other than a missing file on read
	KindIO ErrorKind = iota
	// KindParse means the file is not JSON or its root is not an array
	KindParse
	// KindNotFound means the record id or collection does not exist
	KindNotFound
	// KindInvalid means the caller supplied an unusable collection name or payload
	KindInvalid
	// KindConflict means the payload would break id uniqueness
	KindConflict
	// KindLock means exclusive access could not be acquired in time
	KindLock
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindLock:
		return "lock"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels matched by StoreError.Is
var (
	ErrIO                = errors.New("io error")
	ErrParse             = errors.New("parse error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrLockTimeout       = errors.New("lock timeout")
)

// StoreError is returned by every store operation that fails.
type StoreError struct {
	Op         string // operation, e.g. "insert"
	Collection string
	Kind       ErrorKind
	Err        error
}

func (e *StoreError) Error() string {
	msg := e.Op
	if e.Collection != "" {
		msg += " " + e.Collection
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + ": " + e.Kind.String()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error's kind.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrParse:
		return e.Kind == KindParse
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrLockTimeout:
		return e.Kind == KindLock
	}
	return false
}

// NewStoreError builds a StoreError.
func NewStoreError(op, collection string, kind ErrorKind, err error) *StoreError {
	return &StoreError{Op: op, Collection: collection, Kind: kind, Err: err}
}

// RecordNotFoundError reports a missing record id.
type RecordNotFoundError struct {
	ID uint64
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("item not found with id: %d", e.ID)
}

func (e *RecordNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// KindOf returns the kind of a store error, or KindIO for foreign errors.
func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindIO
}
