package model

import "time"

// SupportTicket models an entry in the `support_tickets` table.  The ticket
// stores no message content and no reverse link to the real chat; routing
// back to the user goes through the in-memory support track only.
type SupportTicket struct {
	ID        uint64     // support_tickets.id
	UserID    uint64     // support_tickets.user_id
	IsOpen    bool       // support_tickets.is_open
	CreatedAt time.Time  // support_tickets.created_at
	ClosedAt  *time.Time // support_tickets.closed_at (nullable)
}

// AdminAuth holds the argon2id password hash for an administrator's login.
// Keyed by the admin's own Telegram id, which is not sensitive here: admins
// are configured operators, not anonymized end users.
type AdminAuth struct {
	TgID         int64      // admin_auth.tg_id
	PasswordHash string     // admin_auth.password_hash
	CreatedAt    time.Time  // admin_auth.created_at
	LastLoginAt  *time.Time // admin_auth.last_login_at (nullable)
}
