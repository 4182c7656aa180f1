package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/model"
)

// SubscriptionRepo provides CRUD operations for subscription rows and the
// transactional multi-row updates the state machine's transitions require.
// The deactivate-then-activate sequences run inside a single transaction so
// a concurrent "active subscription" lookup never observes two active rows
// nor zero rows mid-transition.  All timestamp fields are stored in UTC.
type SubscriptionRepo struct {
	db *sql.DB
}

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise.  This is the transaction boundary the state machine
// builds its atomic transitions on.
func (r *SubscriptionRepo) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeactivateAllTx soft-deactivates every subscription row of the user.
func (r *SubscriptionRepo) DeactivateAllTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE subscriptions SET active=0 WHERE user_id=?", userID)
	return err
}

// InsertTx inserts a new subscription row and populates the generated ID
// and CreatedAt on the provided record.
func (r *SubscriptionRepo) InsertTx(ctx context.Context, tx *sql.Tx, sub *model.Subscription) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO subscriptions (user_id, active, expires_at, xui_email) VALUES (?,?,?,?)",
		sub.UserID, sub.Active, sub.ExpiresAt, sub.XUIEmail)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sub.ID = uint64(id)

	// Query back to populate defaults.
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM subscriptions WHERE id=?", sub.ID).
		Scan(&sub.CreatedAt)
}

// UpdateExpiryTx advances only the expiry of an existing row, preserving
// its credential identity.
func (r *SubscriptionRepo) UpdateExpiryTx(ctx context.Context, tx *sql.Tx, subID uint64, expiresAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE subscriptions SET expires_at=?, active=1 WHERE id=?", expiresAt, subID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeactivateOthersTx deactivates every row of the user except keepID.
func (r *SubscriptionRepo) DeactivateOthersTx(ctx context.Context, tx *sql.Tx, userID, keepID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE subscriptions SET active=0 WHERE user_id=? AND id<>?", userID, keepID)
	return err
}

// UpdateCredential replaces the credential reference of a row in place and
// stamps the reissue time.  Used by regenerate, which changes the remote
// credential but not the entitlement, so no transaction spanning other
// rows is needed.
func (r *SubscriptionRepo) UpdateCredential(ctx context.Context, subID uint64, xuiEmail string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET xui_email=?, created_at=UTC_TIMESTAMP() WHERE id=?",
		xuiEmail, subID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeactivateAll is the non-Tx variant used by refund, where local
// deactivation must happen unconditionally even if the remote revoke
// failed.
func (r *SubscriptionRepo) DeactivateAll(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET active=0 WHERE user_id=?", userID)
	return err
}

// GetActive returns the user's newest active subscription.
func (r *SubscriptionRepo) GetActive(ctx context.Context, userID uint64) (model.Subscription, error) {
	return r.getOne(ctx,
		"SELECT id,user_id,active,expires_at,xui_email,created_at FROM subscriptions WHERE user_id=? AND active=1 ORDER BY id DESC LIMIT 1",
		userID)
}

// GetLast returns the user's newest subscription regardless of state.
func (r *SubscriptionRepo) GetLast(ctx context.Context, userID uint64) (model.Subscription, error) {
	return r.getOne(ctx,
		"SELECT id,user_id,active,expires_at,xui_email,created_at FROM subscriptions WHERE user_id=? ORDER BY id DESC LIMIT 1",
		userID)
}

// CountActive returns the number of active rows for the user.  The state
// machine checks this after every transition; any value above one is an
// invariant violation.
func (r *SubscriptionRepo) CountActive(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions WHERE user_id=? AND active=1", userID).Scan(&n)
	return n, err
}

func (r *SubscriptionRepo) getOne(ctx context.Context, query string, args ...any) (model.Subscription, error) {
	var s model.Subscription
	var expires sql.NullTime
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&s.ID, &s.UserID, &s.Active, &expires, &email, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscription{}, ErrNotFound
	}
	if err != nil {
		return model.Subscription{}, err
	}
	if expires.Valid {
		t := expires.Time
		s.ExpiresAt = &t
	}
	if email.Valid {
		s.XUIEmail = email.String
	}
	return s, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
