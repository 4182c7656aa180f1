package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/KynixVPN/Kynix-Bot/internal/identity"
	"github.com/KynixVPN/Kynix-Bot/internal/model"
)

// UserRepo resolves callers to persisted users.  It is the only component
// that ever sees a real Telegram id together with database access, and it
// uses the id solely to compute the hash before any query runs.
type UserRepo struct {
	db   *sql.DB
	salt []byte
}

func NewUserRepo(db *sql.DB, salt []byte) *UserRepo {
	return &UserRepo{db: db, salt: salt}
}

// maxAllocRetries bounds public-id generation against pathological
// collision streaks.  With 90M candidate ids this is never hit in practice.
const maxAllocRetries = 50

// ResolveOrCreate returns the user for realID, creating the row on first
// contact.  Lookups key on the identity hash, so repeated calls with the
// same real id always return the same user.  New users get a fresh random
// public id; candidate collisions are detected by the uniqueness
// constraint and retried.  A row is only ever inserted with both the hash
// and the public id set.
func (r *UserRepo) ResolveOrCreate(ctx context.Context, realID int64) (model.User, error) {
	tgHash := identity.HashRealID(r.salt, realID)

	if u, err := r.getByHash(ctx, tgHash); err == nil {
		return u, nil
	} else if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	for i := 0; i < maxAllocRetries; i++ {
		publicID := identity.NewPublicID()
		res, err := r.db.ExecContext(ctx,
			"INSERT INTO users (tg_hash, public_id) VALUES (?,?)",
			tgHash, publicID)
		if err != nil {
			if isDuplicateKey(err) {
				// Either the public id collided or a concurrent handler
				// created this same user first. Re-check the hash before
				// retrying with a new candidate.
				if u, lookupErr := r.getByHash(ctx, tgHash); lookupErr == nil {
					return u, nil
				}
				continue
			}
			return model.User{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return model.User{}, err
		}
		return r.GetByID(ctx, uint64(id))
	}
	return model.User{}, ErrConflict
}

// GetByPublicID fetches a user addressed by their public id, as admin
// commands do.
func (r *UserRepo) GetByPublicID(ctx context.Context, publicID int64) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id,tg_hash,public_id,created_at FROM users WHERE public_id=? LIMIT 1",
		publicID).Scan(&u.ID, &u.TgHash, &u.PublicID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func (r *UserRepo) getByHash(ctx context.Context, tgHash string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id,tg_hash,public_id,created_at FROM users WHERE tg_hash=? LIMIT 1",
		tgHash).Scan(&u.ID, &u.TgHash, &u.PublicID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by surrogate key, as ticket rows reference them.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id,tg_hash,public_id,created_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.TgHash, &u.PublicID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
