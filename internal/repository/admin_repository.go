package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/model"
)

// AdminRepo stores administrator password hashes for the /login flow and
// the admin HTTP API.
type AdminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

// Get fetches the auth row for an admin Telegram id.
func (r *AdminRepo) Get(ctx context.Context, tgID int64) (model.AdminAuth, error) {
	var a model.AdminAuth
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx,
		"SELECT tg_id,password_hash,created_at,last_login_at FROM admin_auth WHERE tg_id=? LIMIT 1",
		tgID).Scan(&a.TgID, &a.PasswordHash, &a.CreatedAt, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AdminAuth{}, ErrNotFound
	}
	if err != nil {
		return model.AdminAuth{}, err
	}
	if last.Valid {
		t := last.Time
		a.LastLoginAt = &t
	}
	return a, nil
}

// Create inserts the auth row on an admin's first login.
func (r *AdminRepo) Create(ctx context.Context, tgID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO admin_auth (tg_id, password_hash) VALUES (?,?)", tgID, passwordHash)
	if err != nil && isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// MarkLogin stamps a successful login.
func (r *AdminRepo) MarkLogin(ctx context.Context, tgID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE admin_auth SET last_login_at=? WHERE tg_id=?", time.Now().UTC(), tgID)
	return err
}
