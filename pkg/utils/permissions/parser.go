// Package permissions handles the permission identifiers an application
// declares and the authority grants.
package permissions

import (
	"sort"
	"strings"
)

// Set is a set of permission identifiers.
type Set map[string]struct{}

// NewSet builds a Set holding every identifier of ids as given.
func NewSet(ids []string) Set {
	set := make(Set, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ParseList parses a desktop-entry style list such as "Internet;Camera;".
// Commas are accepted as separators too and surrounding whitespace is
// trimmed. Duplicates are kept in first-seen order only once.
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ','
	})

	seen := make(map[string]bool, len(fields))
	ids := make([]string, 0, len(fields))
	for _, field := range fields {
		id := strings.TrimSpace(field)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Contains reports whether id is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// FirstMissing returns the first identifier of required, in order, that is
// not in the set. ok is false when every identifier is present.
func (s Set) FirstMissing(required []string) (missing string, ok bool) {
	for _, id := range required {
		if !s.Contains(id) {
			return id, true
		}
	}
	return "", false
}

// Sorted returns the identifiers in lexical order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
