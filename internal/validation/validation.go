package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/arthur-debert/static-api/types"
)

// maxCollectionNameLen leaves room for the ".json" suffix and the temp/lock
// suffixes appended next to it within a 255 byte file name.
const maxCollectionNameLen = 200

// ValidateCollectionName checks that name can be used as a file stem under the
// data directory without escaping it. Names are rejected, never rewritten.
func ValidateCollectionName(name string) error {
	if name == "" {
		return invalid(name, "name cannot be empty")
	}
	if len(name) > maxCollectionNameLen {
		return invalid(name, fmt.Sprintf("name longer than %d bytes", maxCollectionNameLen))
	}
	if strings.Contains(name, "..") {
		return invalid(name, "name cannot contain '..'")
	}
	if strings.HasPrefix(name, ".") {
		return invalid(name, "name cannot start with '.'")
	}
	if strings.ContainsAny(name, `/\`) {
		return invalid(name, "name cannot contain path separators")
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return invalid(name, "name cannot contain control characters")
		}
	}
	if IsReservedName(name) {
		return invalid(name, "name is reserved")
	}
	return nil
}

// reservedNames are device names that cannot be used as file stems on Windows.
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"lpt1": true, "lpt2": true, "lpt3": true,
}

// IsReservedName checks if a collection name is a reserved device name
func IsReservedName(name string) bool {
	return reservedNames[strings.ToLower(name)]
}

func invalid(name, reason string) error {
	return fmt.Errorf("%w %q: %s", types.ErrInvalidCollection, name, reason)
}
