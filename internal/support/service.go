// Package support owns the ticket lifecycle.  Tickets are the durable
// handle for a support conversation: while one is open the user's
// public-to-real mapping is pinned in the in-memory store so admin
// replies keep routing after the general sweep; closing the last ticket
// releases the pin.
package support

import (
	"context"
	"errors"

	"github.com/KynixVPN/Kynix-Bot/internal/memstore"
	"github.com/KynixVPN/Kynix-Bot/internal/model"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
)

// ErrNoOpenTicket is returned when a close targets a user with nothing
// open.
var ErrNoOpenTicket = errors.New("support: no open ticket")

// Users resolves persistent identity records; satisfied by
// repository.UserRepo.
type Users interface {
	GetByPublicID(ctx context.Context, publicID int64) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Service coordinates ticket rows with the support-track reverse map.
type Service struct {
	tickets *repository.TicketRepo
	users   Users
	store   *memstore.Store
}

func New(tickets *repository.TicketRepo, users Users, store *memstore.Store) *Service {
	return &Service{tickets: tickets, users: users, store: store}
}

// EnsureOpen returns the user's open ticket, creating one if none
// exists, and pins the support-track mapping either way.  The second
// return reports whether a new ticket was created.
func (s *Service) EnsureOpen(ctx context.Context, user model.User, realID int64) (model.SupportTicket, bool, error) {
	s.store.RememberSupport(user.PublicID, realID)
	t, err := s.tickets.FirstOpen(ctx, user.ID)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.SupportTicket{}, false, err
	}
	t, err = s.tickets.Open(ctx, user.ID)
	if err != nil {
		return model.SupportTicket{}, false, err
	}
	return t, true, nil
}

// CloseForUser closes every open ticket of the user and releases the
// support-track mapping.  Returns the closed ticket ids.
func (s *Service) CloseForUser(ctx context.Context, user model.User) ([]uint64, error) {
	ids, err := s.tickets.CloseAllOpen(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoOpenTicket
	}
	s.store.ForgetSupport(user.PublicID)
	return ids, nil
}

// CloseByPublicID resolves the public id to its user and closes their
// open tickets.  Used when an admin reply only carries a FAKE ID line.
func (s *Service) CloseByPublicID(ctx context.Context, publicID int64) ([]uint64, model.User, error) {
	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, model.User{}, err
	}
	ids, err := s.CloseForUser(ctx, user)
	return ids, user, err
}

// CloseByTicketID closes the ticket's owner's open tickets.  The whole
// set closes, not just the named ticket, because one conversation pin
// backs them all.
func (s *Service) CloseByTicketID(ctx context.Context, ticketID uint64) ([]uint64, model.User, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, model.User{}, err
	}
	user, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		return nil, model.User{}, err
	}
	ids, err := s.CloseForUser(ctx, user)
	return ids, user, err
}

// HasOpen reports whether the user currently has an open ticket.
func (s *Service) HasOpen(ctx context.Context, user model.User) (bool, error) {
	_, err := s.tickets.FirstOpen(ctx, user.ID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}
