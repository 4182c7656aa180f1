package utils // package utils provides helper functions for password hashing and token creation

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for admin passwords.  These match the identity
// hasher's cost profile; password verification is rare enough that the
// memory-hard settings cost nothing in practice.
const (
	passTime    = 3
	passMemory  = 64 * 1024
	passThreads = 1
	passKeyLen  = 32
	passSaltLen = 16
)

// HashPassword returns an encoded argon2id hash of the plain password,
// including a fresh random salt, in the standard
// $argon2id$v=19$m=...,t=...,p=...$salt$hash form.
func HashPassword(plain string) (string, error) {
	salt := make([]byte, passSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, passTime, passMemory, passThreads, passKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, passMemory, passTime, passThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword safely compares an encoded argon2id hash and a plain
// password.  Malformed hashes verify as false, never as an error the
// caller could confuse with a wrong password.
func VerifyPassword(encoded, plain string) bool {
	salt, key, memory, timeCost, threads, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(plain), salt, timeCost, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

func decodeHash(encoded string) (salt, key []byte, memory, timeCost uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, errors.New("malformed argon2id hash")
	}
	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, errors.New("unsupported argon2 version")
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return nil, nil, 0, 0, 0, err
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, err
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, err
	}
	return salt, key, memory, timeCost, threads, nil
}

// NewAdminPassword generates the random password handed to an admin on
// first login.  URL-safe so it pastes cleanly into a chat command.
func NewAdminPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
