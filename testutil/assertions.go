package testutil

import (
	"testing"

	"github.com/arthur-debert/static-api/types"
)

// AssertRecordCount checks that the slice contains the expected number of records
func AssertRecordCount(t *testing.T, items []any, expected int, context ...string) {
	t.Helper()
	if len(items) != expected {
		ctx := ""
		if len(context) > 0 {
			ctx = " " + context[0]
		}
		t.Errorf("expected %d records%s, got %d", expected, ctx, len(items))
	}
}

// AssertUniqueIDs verifies that no two records share a numeric id
func AssertUniqueIDs(t *testing.T, items []any) {
	t.Helper()
	seen := make(map[uint64]bool, len(items))
	for _, el := range items {
		id, ok := types.ElementID(el)
		if !ok {
			continue
		}
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

// AssertRecordExists verifies that a record with the given id is in the slice
func AssertRecordExists(t *testing.T, items []any, id uint64) {
	t.Helper()
	if types.Collection(items).IndexOf(id) < 0 {
		t.Errorf("record %d not found in results", id)
	}
}

// AssertRecordNotExists verifies that no record with the given id is in the slice
func AssertRecordNotExists(t *testing.T, items []any, id uint64) {
	t.Helper()
	if types.Collection(items).IndexOf(id) >= 0 {
		t.Errorf("record %d should not be in results", id)
	}
}
