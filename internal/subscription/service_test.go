package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynixVPN/Kynix-Bot/internal/model"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
	"github.com/KynixVPN/Kynix-Bot/internal/xui"
)

// fakeStore keeps subscription rows in memory.  Tx methods ignore the tx
// argument; WithTx simply runs the function, which matches the atomicity
// contract closely enough for state-machine logic tests.
type fakeStore struct {
	subs   []*model.Subscription
	nextID uint64
	txErr  error
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(nil)
}

func (f *fakeStore) DeactivateAllTx(_ context.Context, _ *sql.Tx, userID uint64) error {
	for _, s := range f.subs {
		if s.UserID == userID {
			s.Active = false
		}
	}
	return nil
}

func (f *fakeStore) InsertTx(_ context.Context, _ *sql.Tx, sub *model.Subscription) error {
	f.nextID++
	sub.ID = f.nextID
	sub.CreatedAt = time.Now().UTC()
	cp := *sub
	f.subs = append(f.subs, &cp)
	return nil
}

func (f *fakeStore) UpdateExpiryTx(_ context.Context, _ *sql.Tx, subID uint64, expiresAt time.Time) error {
	for _, s := range f.subs {
		if s.ID == subID {
			t := expiresAt
			s.ExpiresAt = &t
			s.Active = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) DeactivateOthersTx(_ context.Context, _ *sql.Tx, userID, keepID uint64) error {
	for _, s := range f.subs {
		if s.UserID == userID && s.ID != keepID {
			s.Active = false
		}
	}
	return nil
}

func (f *fakeStore) UpdateCredential(_ context.Context, subID uint64, xuiEmail string) error {
	for _, s := range f.subs {
		if s.ID == subID {
			s.XUIEmail = xuiEmail
			s.CreatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) DeactivateAll(ctx context.Context, userID uint64) error {
	return f.DeactivateAllTx(ctx, nil, userID)
}

func (f *fakeStore) GetActive(_ context.Context, userID uint64) (model.Subscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].UserID == userID && f.subs[i].Active {
			return *f.subs[i], nil
		}
	}
	return model.Subscription{}, repository.ErrNotFound
}

func (f *fakeStore) GetLast(_ context.Context, userID uint64) (model.Subscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].UserID == userID {
			return *f.subs[i], nil
		}
	}
	return model.Subscription{}, repository.ErrNotFound
}

func (f *fakeStore) CountActive(_ context.Context, userID uint64) (int, error) {
	n := 0
	for _, s := range f.subs {
		if s.UserID == userID && s.Active {
			n++
		}
	}
	return n, nil
}

// fakeGateway records calls and returns configurable results.
type fakeGateway struct {
	created      int
	createErr    error
	renewErr     error
	revokeErr    error
	revoked      []string
	renewedEmail string
	lastDays     int
	lastUnlim    bool
}

func (g *fakeGateway) mint() xui.Credential {
	g.created++
	email := fmt.Sprintf("cred-%d", g.created)
	return xui.Credential{ClientID: email + "-uuid", Email: email, Link: "vless://" + email}
}

func (g *fakeGateway) CreateTimed(_ context.Context, _ int64, days int) (xui.Credential, error) {
	if g.createErr != nil {
		return xui.Credential{}, g.createErr
	}
	g.lastDays = days
	g.lastUnlim = false
	return g.mint(), nil
}

func (g *fakeGateway) CreateTimedUntil(_ context.Context, _ int64, _ time.Time) (xui.Credential, error) {
	if g.createErr != nil {
		return xui.Credential{}, g.createErr
	}
	g.lastUnlim = false
	return g.mint(), nil
}

func (g *fakeGateway) CreateUnlimited(_ context.Context, _ int64) (xui.Credential, error) {
	if g.createErr != nil {
		return xui.Credential{}, g.createErr
	}
	g.lastUnlim = true
	return g.mint(), nil
}

func (g *fakeGateway) RenewExpiry(_ context.Context, email string, _ time.Time) error {
	if g.renewErr != nil {
		return g.renewErr
	}
	g.renewedEmail = email
	return nil
}

func (g *fakeGateway) Revoke(_ context.Context, email string, _ bool) error {
	g.revoked = append(g.revoked, email)
	return g.revokeErr
}

func newTestService(store *fakeStore, gw *fakeGateway) *Service {
	svc := NewService(store, gw, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func testUser() model.User {
	return model.User{ID: 1, PublicID: 12345678}
}

func TestPurchase_DeactivatesPredecessors(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	_, link1, err := svc.Purchase(ctx, testUser(), 31)
	require.NoError(t, err)
	assert.NotEmpty(t, link1)

	_, _, err = svc.Purchase(ctx, testUser(), 31)
	require.NoError(t, err)

	n, _ := store.CountActive(ctx, 1)
	assert.Equal(t, 1, n, "at most one active subscription")
	assert.Equal(t, 31, gw.lastDays)
}

func TestPurchase_GatewayFailureLeavesStateIntact(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	_, _, err := svc.Purchase(ctx, testUser(), 31)
	require.NoError(t, err)

	gw.createErr = errors.New("panel down")
	_, _, err = svc.Purchase(ctx, testUser(), 31)
	require.Error(t, err)

	// The previous subscription must still be the active one.
	active, err := store.GetActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", active.XUIEmail)
}

func TestGrantUnlimited_NoExpiry(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)

	sub, link, err := svc.GrantUnlimited(context.Background(), testUser())
	require.NoError(t, err)
	assert.True(t, sub.Unlimited())
	assert.True(t, gw.lastUnlim)
	assert.NotEmpty(t, link)
}

func TestRenewUntil_PreservesCredential(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	_, _, err := svc.Purchase(ctx, testUser(), 31)
	require.NoError(t, err)

	until := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	sub, link, err := svc.RenewUntil(ctx, testUser(), until)
	require.NoError(t, err)

	assert.Equal(t, "cred-1", sub.XUIEmail, "credential identity preserved")
	assert.Empty(t, link, "no new link when the credential survives")
	assert.Equal(t, "cred-1", gw.renewedEmail)
	require.NotNil(t, sub.ExpiresAt)
	assert.Equal(t, until, *sub.ExpiresAt)

	n, _ := store.CountActive(ctx, 1)
	assert.Equal(t, 1, n)
}

func TestRenewUntil_RecreatesOnNotFound(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	_, _, err := svc.Purchase(ctx, testUser(), 31)
	require.NoError(t, err)

	gw.renewErr = fmt.Errorf("wrapped: %w", xui.ErrNotFound)
	sub, link, err := svc.RenewUntil(ctx, testUser(), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "cred-2", sub.XUIEmail, "new credential after fallback")
	assert.NotEmpty(t, link)
	assert.Contains(t, gw.revoked, "cred-1", "stale reference revoked best-effort")

	n, _ := store.CountActive(ctx, 1)
	assert.Equal(t, 1, n)
}

func TestRenewUntil_TransientErrorAborts(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	_, _, err := svc.Purchase(ctx, testUser(), 31)
	require.NoError(t, err)

	gw.renewErr = errors.New("connection reset")
	_, _, err = svc.RenewUntil(ctx, testUser(), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)

	// No recreation happened and the original credential is untouched.
	assert.Equal(t, 1, gw.created)
	active, _ := store.GetActive(ctx, 1)
	assert.Equal(t, "cred-1", active.XUIEmail)
}

func TestRenewUntil_UnlimitedPriorMintsFresh(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	_, _, err := svc.GrantUnlimited(ctx, testUser())
	require.NoError(t, err)

	sub, link, err := svc.RenewUntil(ctx, testUser(), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "cred-2", sub.XUIEmail)
	assert.NotEmpty(t, link)
	assert.False(t, sub.Unlimited())
	assert.Empty(t, gw.renewedEmail, "renew is never attempted against an unlimited prior")
}

func TestRemainingDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		left time.Duration
		want int
	}{
		{"whole days", 72 * time.Hour, 3},
		{"partial day rounds up", 49 * time.Hour, 3},
		{"under a day floors to one", 6 * time.Hour, 1},
		{"already expired floors to one", -2 * time.Hour, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RemainingDays(now.Add(tc.left), now))
		})
	}
}

func TestRegenerate_TimedKeepsRemainingDuration(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	expires := svc.now().Add(49 * time.Hour) // 2 days and 1 hour left
	store.InsertTx(ctx, nil, &model.Subscription{UserID: 1, Active: true, ExpiresAt: &expires, XUIEmail: "old"})

	sub, link, err := svc.Regenerate(ctx, testUser())
	require.NoError(t, err)

	assert.Equal(t, 3, gw.lastDays, "ceil of remaining days")
	assert.Equal(t, "cred-1", sub.XUIEmail)
	assert.NotEmpty(t, link)
	assert.Contains(t, gw.revoked, "old")
}

func TestRegenerate_FloorOneDay(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	expires := svc.now().Add(30 * time.Minute)
	store.InsertTx(ctx, nil, &model.Subscription{UserID: 1, Active: true, ExpiresAt: &expires, XUIEmail: "old"})

	_, _, err := svc.Regenerate(ctx, testUser())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.lastDays)
}

func TestRegenerate_Unlimited(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	store.InsertTx(ctx, nil, &model.Subscription{UserID: 1, Active: true, XUIEmail: "old"})

	sub, _, err := svc.Regenerate(ctx, testUser())
	require.NoError(t, err)
	assert.True(t, gw.lastUnlim)
	assert.True(t, sub.Unlimited())
}

func TestRegenerate_RevokeFailureDoesNotBlock(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{revokeErr: errors.New("panel flaky")}
	svc := newTestService(store, gw)
	ctx := context.Background()

	expires := svc.now().Add(24 * time.Hour)
	store.InsertTx(ctx, nil, &model.Subscription{UserID: 1, Active: true, ExpiresAt: &expires, XUIEmail: "old"})

	sub, _, err := svc.Regenerate(ctx, testUser())
	require.NoError(t, err)
	assert.Equal(t, "cred-1", sub.XUIEmail)
}

func TestRegenerate_NoActiveSubscription(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeGateway{})

	_, _, err := svc.Regenerate(context.Background(), testUser())
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestRefund_DeactivatesEvenWhenRevokeFails(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{revokeErr: errors.New("panel down")}
	svc := newTestService(store, gw)
	ctx := context.Background()

	expires := svc.now().Add(24 * time.Hour)
	store.InsertTx(ctx, nil, &model.Subscription{UserID: 1, Active: true, ExpiresAt: &expires, XUIEmail: "old"})

	require.NoError(t, svc.Refund(ctx, testUser()))

	n, _ := store.CountActive(ctx, 1)
	assert.Zero(t, n, "local entitlement must end regardless of gateway outcome")
	assert.Contains(t, gw.revoked, "old")
}
