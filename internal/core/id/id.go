// Package id wraps UUID generation for entity identifiers.
package id

import "github.com/google/uuid"

// ID identifies every entity and document in the system.
type ID = uuid.UUID

// New returns a time-ordered UUIDv7. The embedded timestamp keeps
// B-tree inserts mostly append-only on the Postgres side.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse validates and converts a string identifier.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// Nil returns the zero identifier.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero identifier.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
