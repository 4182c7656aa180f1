package identity

import (
	"crypto/rand"
	"encoding/binary"
)

// PublicIDDigits is the fixed width of a public id.  Every external-facing
// surface (support headers, admin commands, the panel "email" field) uses
// this exact format, and the reply-chain reconstructor depends on it.
const PublicIDDigits = 8

const (
	publicIDMin  = 10000000 // smallest 8-digit value
	publicIDSpan = 90000000 // number of 8-digit values
)

// NewPublicID returns a random 8-decimal-digit candidate id.  Uniqueness is
// not guaranteed here; the persistence layer enforces it and the allocator
// retries on collision.
func NewPublicID() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; if it does the
		// process cannot safely mint identifiers at all.
		panic(err)
	}
	n := binary.BigEndian.Uint64(buf[:])
	return publicIDMin + int64(n%publicIDSpan)
}

// ValidPublicID reports whether n is in the 8-digit public id range.
func ValidPublicID(n int64) bool {
	return n >= publicIDMin && n < publicIDMin+publicIDSpan
}
