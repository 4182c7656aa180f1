package subscription

import (
	"context"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/xui"
)

// Tags decorate the connection link's display name per tier.
const (
	timedTag     = "Plus"
	unlimitedTag = "Inf"
)

// Adapter binds the panel client to the Gateway contract, carrying the
// configured inbound selectors for the two tiers.  Switching a user
// between tiers always means operating against the other inbound.
type Adapter struct {
	client           *xui.Client
	timedInbound     int
	unlimitedInbound int
}

func NewAdapter(client *xui.Client, timedInbound, unlimitedInbound int) *Adapter {
	return &Adapter{client: client, timedInbound: timedInbound, unlimitedInbound: unlimitedInbound}
}

func (a *Adapter) CreateTimed(ctx context.Context, publicID int64, days int) (xui.Credential, error) {
	expiry := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	return a.client.CreateClient(ctx, publicID, expiry.UnixMilli(), timedTag, a.timedInbound)
}

func (a *Adapter) CreateTimedUntil(ctx context.Context, publicID int64, until time.Time) (xui.Credential, error) {
	return a.client.CreateClient(ctx, publicID, until.UnixMilli(), timedTag, a.timedInbound)
}

func (a *Adapter) CreateUnlimited(ctx context.Context, publicID int64) (xui.Credential, error) {
	// Expiry of zero means the panel never disables the client.
	return a.client.CreateClient(ctx, publicID, 0, unlimitedTag, a.unlimitedInbound)
}

func (a *Adapter) RenewExpiry(ctx context.Context, email string, until time.Time) error {
	return a.client.RenewClient(ctx, email, a.timedInbound, until.UnixMilli())
}

func (a *Adapter) Revoke(ctx context.Context, email string, unlimited bool) error {
	inbound := a.timedInbound
	if unlimited {
		inbound = a.unlimitedInbound
	}
	return a.client.DeleteClient(ctx, email, inbound)
}
