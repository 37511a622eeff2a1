package engine

import (
	"sort"

	"github.com/vovakirdan/tui-battleships/internal/core"
)

// KeySet is a set of coordinate keys ("row,col").
// The zero value is an empty, read-only set; use Clone or NewKeySet before adding.
type KeySet map[string]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// HasCoord reports whether c's key is in the set.
func (s KeySet) HasCoord(c core.Coord) bool {
	return s.Has(c.Key())
}

// Add inserts key into the set.
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// Len returns the number of keys.
func (s KeySet) Len() int {
	return len(s)
}

// Clone returns an independent copy. Cloning a nil set yields an empty set.
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the keys in a stable order (row-major) for wire transport.
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := core.ParseKey(keys[i])
		b, errB := core.ParseKey(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	return keys
}

// Equal reports whether both sets hold exactly the same keys.
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}
