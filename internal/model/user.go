package model

import "time"

// User represents a row in the `users` table.  The table deliberately has
// no column for the caller's real Telegram id: only the salted one-way hash
// is stored, alongside the opaque public id every other surface uses.
//
// Fields:
//  ID         – primary key identifier of the user.
//  TgHash     – hex argon2id hash of the real Telegram id (unique, indexed).
//  PublicID   – 8-digit opaque identifier (unique, indexed).
//  CreatedAt  – timestamp of first contact.
type User struct {
	ID        uint64    // users.id
	TgHash    string    // users.tg_hash
	PublicID  int64     // users.public_id
	CreatedAt time.Time // users.created_at
}
