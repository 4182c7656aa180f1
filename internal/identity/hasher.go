// Package identity implements the one-way transform from a caller's real
// Telegram id to the storage key persisted in the users table, and the
// generator for the opaque public id shown everywhere else.  The real id
// itself is never written to disk; only the salted hash is.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/argon2"
)

// SaltLen is the required length of the process-wide hashing salt.  A salt
// of any other length is rejected at startup by the config loader.
const SaltLen = 32

// Argon2id cost parameters.  Changing these invalidates every stored hash,
// so they are constants rather than configuration.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	argonKeyLen  = 32
)

// HashRealID derives the storage key for a real Telegram id.  The id is
// first fingerprinted with SHA-256 (hex form), then run through argon2id
// with the fixed salt.  The result is hex-encoded.  The same real id always
// produces the same hash, which is what makes resolve-or-create idempotent.
func HashRealID(salt []byte, realID int64) string {
	fp := sha256.Sum256([]byte(strconv.FormatInt(realID, 10)))
	fpHex := []byte(hex.EncodeToString(fp[:]))

	key := argon2.IDKey(fpHex, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}
