// Package subscription owns the lifecycle of a user's access entitlement
// and drives the provisioning panel.  Every operation here is keyed by the
// user's public id; real chat identities never enter this package.
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/model"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
	"github.com/KynixVPN/Kynix-Bot/internal/xui"
)

// Gateway is the narrow contract to the provisioning panel.  xui.Client
// satisfies it through the Adapter below; tests use fakes.
type Gateway interface {
	// CreateTimed mints a new credential in the timed pool expiring after
	// the given number of days.
	CreateTimed(ctx context.Context, publicID int64, days int) (xui.Credential, error)
	// CreateTimedUntil mints a timed credential expiring at the given time.
	CreateTimedUntil(ctx context.Context, publicID int64, until time.Time) (xui.Credential, error)
	// CreateUnlimited mints a credential with no expiry in the unlimited pool.
	CreateUnlimited(ctx context.Context, publicID int64) (xui.Credential, error)
	// RenewExpiry advances only the expiry of an existing timed credential.
	// Returns xui.ErrNotFound if the credential no longer exists remotely.
	RenewExpiry(ctx context.Context, email string, until time.Time) error
	// Revoke removes the credential addressed by email from the tier's
	// pool.  Returns xui.ErrNotFound when it is already gone.
	Revoke(ctx context.Context, email string, unlimited bool) error
}

// Store is the persistence surface the state machine needs.  The
// *sql.Tx-scoped methods make the deactivate-then-activate sequences
// atomic; repository.SubscriptionRepo is the production implementation.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	DeactivateAllTx(ctx context.Context, tx *sql.Tx, userID uint64) error
	InsertTx(ctx context.Context, tx *sql.Tx, sub *model.Subscription) error
	UpdateExpiryTx(ctx context.Context, tx *sql.Tx, subID uint64, expiresAt time.Time) error
	DeactivateOthersTx(ctx context.Context, tx *sql.Tx, userID, keepID uint64) error
	UpdateCredential(ctx context.Context, subID uint64, xuiEmail string) error
	DeactivateAll(ctx context.Context, userID uint64) error
	GetActive(ctx context.Context, userID uint64) (model.Subscription, error)
	GetLast(ctx context.Context, userID uint64) (model.Subscription, error)
	CountActive(ctx context.Context, userID uint64) (int, error)
}

// Alerter carries operator notifications.  Failures to notify are logged
// and ignored; notification is never allowed to break a transition.
type Alerter interface {
	Alert(ctx context.Context, kind string, publicID int64, detail string)
}

// ErrNoActiveSubscription is returned by operations that require a current
// entitlement.
var ErrNoActiveSubscription = errors.New("no active subscription")

// Service is the subscription state machine.
type Service struct {
	store   Store
	gateway Gateway
	alerts  Alerter

	// now is swappable in tests.
	now func() time.Time
}

func NewService(store Store, gateway Gateway, alerts Alerter) *Service {
	return &Service{store: store, gateway: gateway, alerts: alerts, now: time.Now}
}

// Purchase activates a timed subscription for the user: any previous
// subscription is deactivated and a brand-new credential is minted.  The
// gateway create is the mandatory step; if it fails the transition aborts
// with local state untouched.  The returned link is handed to the user
// exactly once and is never persisted.
func (s *Service) Purchase(ctx context.Context, user model.User, days int) (model.Subscription, string, error) {
	cred, err := s.gateway.CreateTimed(ctx, user.PublicID, days)
	if err != nil {
		return model.Subscription{}, "", fmt.Errorf("create timed credential: %w", err)
	}

	expires := s.now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	sub := model.Subscription{
		UserID:    user.ID,
		Active:    true,
		ExpiresAt: &expires,
		XUIEmail:  cred.Email,
	}
	if err := s.replaceActive(ctx, user.ID, &sub); err != nil {
		return model.Subscription{}, "", err
	}
	s.checkInvariant(ctx, user)
	return sub, cred.Link, nil
}

// GrantUnlimited activates the unlimited tier for the user, deactivating
// everything prior and minting a fresh credential in the unlimited pool.
func (s *Service) GrantUnlimited(ctx context.Context, user model.User) (model.Subscription, string, error) {
	cred, err := s.gateway.CreateUnlimited(ctx, user.PublicID)
	if err != nil {
		return model.Subscription{}, "", fmt.Errorf("create unlimited credential: %w", err)
	}

	sub := model.Subscription{
		UserID:   user.ID,
		Active:   true,
		XUIEmail: cred.Email,
	}
	if err := s.replaceActive(ctx, user.ID, &sub); err != nil {
		return model.Subscription{}, "", err
	}
	s.checkInvariant(ctx, user)
	return sub, cred.Link, nil
}

// RenewUntil extends the user's timed subscription to the given time
// without changing its credential identity when possible; the returned
// link is empty in that case because the user's existing one still works.
// If the remote credential is gone (NotFound), it falls back to full
// recreation: revoke best-effort, then mint a fresh timed credential and
// return its new link.  Transient gateway failures abort the transition so
// the caller can retry.
func (s *Service) RenewUntil(ctx context.Context, user model.User, until time.Time) (model.Subscription, string, error) {
	last, err := s.store.GetLast(ctx, user.ID)
	renewable := err == nil && !last.Unlimited() && last.XUIEmail != ""
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Subscription{}, "", err
	}

	if renewable {
		renewErr := s.gateway.RenewExpiry(ctx, last.XUIEmail, until)
		if renewErr == nil {
			until := until.UTC()
			err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
				if err := s.store.UpdateExpiryTx(ctx, tx, last.ID, until); err != nil {
					return err
				}
				return s.store.DeactivateOthersTx(ctx, tx, user.ID, last.ID)
			})
			if err != nil {
				return model.Subscription{}, "", err
			}
			last.Active = true
			last.ExpiresAt = &until
			s.checkInvariant(ctx, user)
			return last, "", nil
		}
		if !errors.Is(renewErr, xui.ErrNotFound) {
			// Transient failure is indistinguishable from success on the
			// remote side; do not blindly recreate on top of it.
			return model.Subscription{}, "", fmt.Errorf("renew credential: %w", renewErr)
		}
		// Credential deleted out of band: clear the stale reference
		// best-effort and mint a fresh one below.
		s.revokeBestEffort(ctx, last.XUIEmail, false, user.PublicID)
	}

	cred, err := s.gateway.CreateTimedUntil(ctx, user.PublicID, until)
	if err != nil {
		return model.Subscription{}, "", fmt.Errorf("recreate timed credential: %w", err)
	}
	expires := until.UTC()
	sub := model.Subscription{
		UserID:    user.ID,
		Active:    true,
		ExpiresAt: &expires,
		XUIEmail:  cred.Email,
	}
	if err := s.replaceActive(ctx, user.ID, &sub); err != nil {
		return model.Subscription{}, "", err
	}
	s.checkInvariant(ctx, user)
	return sub, cred.Link, nil
}

// Active returns the user's currently active subscription, or
// ErrNoActiveSubscription.
func (s *Service) Active(ctx context.Context, user model.User) (model.Subscription, error) {
	sub, err := s.store.GetActive(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Subscription{}, ErrNoActiveSubscription
	}
	return sub, err
}

// RemainingDays converts the time left on a timed subscription into whole
// days, rounding up, with a floor of one day.
func RemainingDays(expiresAt, now time.Time) int {
	left := expiresAt.Sub(now).Seconds()
	days := int(math.Ceil(left / 86400))
	if days < 1 {
		days = 1
	}
	return days
}

// Regenerate recreates the credential of the user's active subscription,
// preserving its tier and remaining duration: a timed subscription gets
// ceil(remaining days) with a one-day floor, an unlimited one gets no
// expiry.  The old credential is revoked best-effort first; its absence or
// even a revoke failure never blocks the replacement.
func (s *Service) Regenerate(ctx context.Context, user model.User) (model.Subscription, string, error) {
	sub, err := s.store.GetActive(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Subscription{}, "", ErrNoActiveSubscription
	}
	if err != nil {
		return model.Subscription{}, "", err
	}

	if sub.XUIEmail != "" {
		s.revokeBestEffort(ctx, sub.XUIEmail, sub.Unlimited(), user.PublicID)
	}

	var cred xui.Credential
	if sub.Unlimited() {
		cred, err = s.gateway.CreateUnlimited(ctx, user.PublicID)
	} else {
		days := RemainingDays(*sub.ExpiresAt, s.now().UTC())
		cred, err = s.gateway.CreateTimed(ctx, user.PublicID, days)
	}
	if err != nil {
		return model.Subscription{}, "", fmt.Errorf("recreate credential: %w", err)
	}

	if err := s.store.UpdateCredential(ctx, sub.ID, cred.Email); err != nil {
		return model.Subscription{}, "", err
	}
	sub.XUIEmail = cred.Email
	s.checkInvariant(ctx, user)
	return sub, cred.Link, nil
}

// Refund ends the user's entitlement: the remote credential is revoked
// best-effort, and the local rows are deactivated unconditionally even
// when the revoke fails.  Remote failures go to the operator channel; they
// are not retried here.
func (s *Service) Refund(ctx context.Context, user model.User) error {
	if sub, err := s.store.GetActive(ctx, user.ID); err == nil && sub.XUIEmail != "" {
		s.revokeBestEffort(ctx, sub.XUIEmail, sub.Unlimited(), user.PublicID)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("subscription: refund lookup for %d failed: %v", user.PublicID, err)
	}

	if err := s.store.DeactivateAll(ctx, user.ID); err != nil {
		return fmt.Errorf("deactivate subscriptions: %w", err)
	}
	return nil
}

// replaceActive atomically swaps the user's active subscription for sub.
func (s *Service) replaceActive(ctx context.Context, userID uint64, sub *model.Subscription) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.DeactivateAllTx(ctx, tx, userID); err != nil {
			return err
		}
		return s.store.InsertTx(ctx, tx, sub)
	})
}

// revokeBestEffort deletes a remote credential, swallowing NotFound and
// reporting any other failure to the operator channel without propagating.
func (s *Service) revokeBestEffort(ctx context.Context, email string, unlimited bool, publicID int64) {
	err := s.gateway.Revoke(ctx, email, unlimited)
	if err == nil || errors.Is(err, xui.ErrNotFound) {
		return
	}
	log.Printf("subscription: best-effort revoke of %s failed: %v", email, err)
	if s.alerts != nil {
		s.alerts.Alert(ctx, "revoke_failed", publicID, err.Error())
	}
}

// checkInvariant verifies the at-most-one-active rule after a transition.
// A violation indicates a bug; it is reported loudly, never silently
// repaired.
func (s *Service) checkInvariant(ctx context.Context, user model.User) {
	n, err := s.store.CountActive(ctx, user.ID)
	if err != nil {
		log.Printf("subscription: invariant check for %d failed: %v", user.PublicID, err)
		return
	}
	if n > 1 {
		log.Printf("subscription: INVARIANT VIOLATION: user %d has %d active subscriptions", user.PublicID, n)
		if s.alerts != nil {
			s.alerts.Alert(ctx, "invariant_violation", user.PublicID,
				fmt.Sprintf("%d active subscriptions", n))
		}
	}
}
