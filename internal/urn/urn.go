// Package urn implements the uniform resource names used to identify
// feed entities (sport events, sports, competitors, tournaments).
//
// A URN has the form "prefix:type:id", e.g. "sr:match:1234".
package urn

import (
	"fmt"
	"strconv"
	"strings"
)

// URN identifies a single feed entity.
type URN struct {
	Prefix string // Namespace prefix (e.g., "sr")
	Type   string // Entity type (e.g., "match", "sport", "competitor")
	ID     int64  // Numeric identifier
}

// Zero is the invalid zero-value URN.
var Zero = URN{}

// Parse parses a string of the form "prefix:type:id".
func Parse(s string) (URN, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Zero, fmt.Errorf("urn %q: expected 3 segments, got %d", s, len(parts))
	}
	if parts[0] == "" || parts[1] == "" {
		return Zero, fmt.Errorf("urn %q: empty prefix or type", s)
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("urn %q: numeric id: %w", s, err)
	}

	return URN{Prefix: parts[0], Type: parts[1], ID: id}, nil
}

// MustParse parses s and panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) URN {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the canonical "prefix:type:id" form, or "" for the
// zero value.
func (u URN) String() string {
	if !u.Valid() {
		return ""
	}
	return u.Prefix + ":" + u.Type + ":" + strconv.FormatInt(u.ID, 10)
}

// Valid reports whether the URN carries a prefix and type.
func (u URN) Valid() bool {
	return u.Prefix != "" && u.Type != ""
}

// IsType reports whether the URN identifies an entity of the given type.
func (u URN) IsType(t string) bool {
	return u.Type == t
}
