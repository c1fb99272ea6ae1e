package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// IDField is the record field used by id-based operations.
const IDField = "id"

// DefaultLimit is the page size used when ListOptions.Limit is nil.
const DefaultLimit = 30

// Record is one JSON object within a collection.
// Numbers decoded from disk are json.Number so that 64-bit ids survive a
// load/save cycle without float rounding.
type Record map[string]any

// Collection is the decoded root array of a collection file. Elements are
// usually Records but any JSON value is preserved as-is.
type Collection []any

// ID returns the record's numeric id. The second result is false when the id
// is missing or is not a non-negative integer that fits in 64 bits.
func (r Record) ID() (uint64, bool) {
	v, ok := r[IDField]
	if !ok {
		return 0, false
	}
	return ParseID(v)
}

// HasID reports whether the id field is present with a non-null value,
// regardless of whether it is numeric.
func (r Record) HasID() bool {
	v, ok := r[IDField]
	return ok && v != nil
}

// SetID stores id in the record's id field.
func (r Record) SetID(id uint64) {
	r[IDField] = json.Number(strconv.FormatUint(id, 10))
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ParseID converts a decoded JSON value into an id.
// Strings, floats and negative numbers are not ids.
func ParseID(v any) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		id, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// ElementID extracts the id of an array element. Non-object elements never
// have an id.
func ElementID(v any) (uint64, bool) {
	switch rec := v.(type) {
	case Record:
		return rec.ID()
	case map[string]any:
		return Record(rec).ID()
	default:
		return 0, false
	}
}

// AsRecord returns the element as a Record when it is a JSON object.
func AsRecord(v any) (Record, bool) {
	switch rec := v.(type) {
	case Record:
		return rec, true
	case map[string]any:
		return Record(rec), true
	default:
		return nil, false
	}
}

// IDs collects the numeric ids present in the collection.
// Elements without a parseable id are skipped.
func (c Collection) IDs() map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(c))
	for _, el := range c {
		if id, ok := ElementID(el); ok {
			set[id] = struct{}{}
		}
	}
	return set
}

// IndexOf returns the position of the first element whose id equals id,
// or -1.
func (c Collection) IndexOf(id uint64) int {
	for i, el := range c {
		if got, ok := ElementID(el); ok && got == id {
			return i
		}
	}
	return -1
}

// ListOptions configures how a collection is listed
type ListOptions struct {
	// Skip is the number of records to skip.
	// nil or negative values mean start from the beginning
	Skip *int

	// Limit is the maximum number of records to return.
	// nil means DefaultLimit, negative values mean DefaultLimit,
	// 0 returns no records
	Limit *int
}

// NewListOptions creates ListOptions with the given skip and limit
func NewListOptions(skip, limit int) ListOptions {
	return ListOptions{Skip: &skip, Limit: &limit}
}

// Bounds resolves the effective skip and limit.
func (o ListOptions) Bounds() (skip, limit int) {
	limit = DefaultLimit
	if o.Skip != nil && *o.Skip > 0 {
		skip = *o.Skip
	}
	if o.Limit != nil && *o.Limit >= 0 {
		limit = *o.Limit
	}
	return skip, limit
}

// Page is one slice of a collection together with its total size.
type Page struct {
	Items []any `json:"data"`
	Total int   `json:"total"`
	Limit int   `json:"limit"`
	Skip  int   `json:"skip"`
}

// Slice cuts the page described by opts out of c, clamped to bounds.
func (c Collection) Slice(opts ListOptions) Page {
	skip, limit := opts.Bounds()
	page := Page{Items: []any{}, Total: len(c), Skip: skip, Limit: limit}
	if skip >= len(c) {
		return page
	}
	end := len(c)
	if limit < end-skip {
		end = skip + limit
	}
	page.Items = append(page.Items, c[skip:end]...)
	return page
}

// MaxID is the largest representable record id.
const MaxID uint64 = math.MaxUint64
