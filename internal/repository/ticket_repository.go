package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/model"
)

// TicketRepo manages support_tickets rows.  Tickets carry no message
// content; they exist so the support conversation has a durable identifier
// that survives restarts and shows up in the service headers the
// reply-chain reconstructor parses.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Open inserts a new open ticket for the user and returns it.
func (r *TicketRepo) Open(ctx context.Context, userID uint64) (model.SupportTicket, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO support_tickets (user_id, is_open) VALUES (?,1)", userID)
	if err != nil {
		return model.SupportTicket{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.SupportTicket{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// FirstOpen returns the user's oldest open ticket.
func (r *TicketRepo) FirstOpen(ctx context.Context, userID uint64) (model.SupportTicket, error) {
	var t model.SupportTicket
	var closed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		"SELECT id,user_id,is_open,created_at,closed_at FROM support_tickets WHERE user_id=? AND is_open=1 ORDER BY id ASC LIMIT 1",
		userID).Scan(&t.ID, &t.UserID, &t.IsOpen, &t.CreatedAt, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SupportTicket{}, ErrNotFound
	}
	if err != nil {
		return model.SupportTicket{}, err
	}
	if closed.Valid {
		ct := closed.Time
		t.ClosedAt = &ct
	}
	return t, nil
}

// GetByID fetches a single ticket.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.SupportTicket, error) {
	var t model.SupportTicket
	var closed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		"SELECT id,user_id,is_open,created_at,closed_at FROM support_tickets WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.UserID, &t.IsOpen, &t.CreatedAt, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SupportTicket{}, ErrNotFound
	}
	if err != nil {
		return model.SupportTicket{}, err
	}
	if closed.Valid {
		ct := closed.Time
		t.ClosedAt = &ct
	}
	return t, nil
}

// CloseAllOpen closes every open ticket of the user and returns the closed
// ids, oldest first.
func (r *TicketRepo) CloseAllOpen(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM support_tickets WHERE user_id=? AND is_open=1 ORDER BY id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE support_tickets SET is_open=0, closed_at=? WHERE user_id=? AND is_open=1",
		time.Now().UTC(), userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
