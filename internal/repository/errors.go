// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// bot dispatcher and the admin API to distinguish between different
// failure scenarios without string matching.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id, hash or public id matches
// no row. Call sites decide whether that is a user error ("unknown FAKE
// ID") or simply "nothing to do".
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a uniqueness
// constraint, e.g. a public id already taken by another user. The
// allocator treats it as a signal to retry with a fresh candidate.
var ErrConflict = errors.New("conflict")
