package model

import "time"

// Subscription represents a row in the `subscriptions` table.  A nil
// ExpiresAt means the unlimited tier; a set value means the timed (Plus)
// tier.  Rows are soft-deactivated and kept for audit, never deleted.
// At most one row per user may have Active true at any time; every
// transition that activates a row deactivates the others in the same
// transaction.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the subscription.
//  Active    – whether this row is the user's current entitlement.
//  ExpiresAt – expiry timestamp, nil for the unlimited tier.
//  XUIEmail  – the credential's "email" in the panel (the public id as text).
//              Enough to find the client remotely; the connection link
//              itself is not persisted.
//  CreatedAt – when this credential was (re)issued.
type Subscription struct {
	ID        uint64     // subscriptions.id
	UserID    uint64     // subscriptions.user_id
	Active    bool       // subscriptions.active
	ExpiresAt *time.Time // subscriptions.expires_at (nullable)
	XUIEmail  string     // subscriptions.xui_email
	CreatedAt time.Time  // subscriptions.created_at
}

// Unlimited reports whether the subscription is on the unlimited tier.
func (s *Subscription) Unlimited() bool { return s.ExpiresAt == nil }
