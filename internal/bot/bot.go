// Package bot is the command layer: it routes inbound Telegram updates to
// the identity, subscription and support services.  Everything here is
// glue; the invariants live in the services it calls.
package bot

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/memstore"
	"github.com/KynixVPN/Kynix-Bot/internal/payments"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
	"github.com/KynixVPN/Kynix-Bot/internal/subscription"
	"github.com/KynixVPN/Kynix-Bot/internal/support"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

// API is the outbound Telegram surface the bot uses.  *transport.Client
// is the production implementation; tests substitute a recorder.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts ...transport.SendOption) (*transport.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts ...transport.SendOption) error
	CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64, replyTo int64) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []transport.LabeledPrice) error
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errMessage string) error
	RefundStarPayment(ctx context.Context, realUserID int64, chargeID string) error
}

// Alerter mirrors notify.Publisher: operator-channel notifications that
// must never fail the calling handler.
type Alerter interface {
	Alert(ctx context.Context, kind string, publicID int64, detail string)
}

// Options carries the static bot configuration.
type Options struct {
	AdminIDs       []int64
	CooldownWindow time.Duration
	InstructionURL string
	PrivacyURL     string
	TermsURL       string
}

// Bot dispatches updates.  One instance serves all conversations; every
// handler is safe for concurrent use because all mutable state lives in
// the injected stores.
type Bot struct {
	tg       API
	users    *repository.UserRepo
	subs     *subscription.Service
	support  *support.Service
	adminDB  *repository.AdminRepo
	store    *memstore.Store
	buy      *payments.SettingsStore
	alerts   Alerter
	sessions *adminSessions
	opts     Options
}

func New(tg API, users *repository.UserRepo, subs *subscription.Service, sup *support.Service,
	adminDB *repository.AdminRepo, store *memstore.Store, buy *payments.SettingsStore,
	alerts Alerter, opts Options) *Bot {
	return &Bot{
		tg:       tg,
		users:    users,
		subs:     subs,
		support:  sup,
		adminDB:  adminDB,
		store:    store,
		buy:      buy,
		alerts:   alerts,
		sessions: newAdminSessions(),
		opts:     opts,
	}
}

// Dispatch routes one update.  Handler errors are logged, never returned:
// the webhook must always acknowledge or Telegram redelivers forever.
func (b *Bot) Dispatch(ctx context.Context, upd transport.Update) {
	switch {
	case upd.PreCheckoutQuery != nil:
		b.handlePreCheckout(ctx, upd.PreCheckoutQuery)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *transport.Message) {
	if msg.From == nil {
		return
	}
	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, msg)
		return
	}

	cmd, args := splitCommand(msg.Text)
	switch cmd {
	case "/start":
		b.cmdStart(ctx, msg)
	case "/buy":
		b.cmdBuy(ctx, msg)
	case "/refresh":
		b.cmdRefresh(ctx, msg, args)
	case "/support":
		b.cmdSupport(ctx, msg)
	case "/close":
		b.cmdClose(ctx, msg)
	case "/inf":
		b.cmdInf(ctx, msg, args)
	case "/refund":
		b.cmdRefund(ctx, msg, args)
	case "/closebuy":
		b.cmdCloseBuy(ctx, msg)
	case "/editbuy":
		b.cmdEditBuy(ctx, msg, args)
	case "/testbuy":
		b.cmdTestBuy(ctx, msg)
	case "/login":
		b.cmdLogin(ctx, msg, args)
	default:
		b.relay(ctx, msg)
	}
}

// splitCommand extracts a leading slash command and its arguments.
// "/cmd@BotName arg" yields ("/cmd", ["arg"]); non-command text yields
// an empty command.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.SplitN(fields[0], "@", 2)[0]
	return cmd, fields[1:]
}

func (b *Bot) isAdmin(tgID int64) bool {
	for _, id := range b.opts.AdminIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

// requireAdminLogin answers with a login prompt when an admin has not
// authenticated this process lifetime.  Non-admins get a flat refusal.
func (b *Bot) requireAdminLogin(ctx context.Context, msg *transport.Message) bool {
	if !b.isAdmin(msg.From.ID) {
		b.send(ctx, msg.Chat.ID, "❌ У вас нет прав для этой команды.")
		return false
	}
	if !b.sessions.IsLoggedIn(msg.From.ID) {
		b.send(ctx, msg.Chat.ID, "🔐 Сначала авторизуйтесь: <code>/login</code>")
		return false
	}
	return true
}

// send is the fire-and-forget variant used by handlers that have nothing
// useful to do with a delivery failure.
func (b *Bot) send(ctx context.Context, chatID int64, text string, opts ...transport.SendOption) {
	if _, err := b.tg.SendMessage(ctx, chatID, text, opts...); err != nil {
		log.Printf("bot: send to %d failed: %v", chatID, err)
	}
}

// fanoutAdmins delivers an internal notice to every admin, tolerating
// per-admin failures.
func (b *Bot) fanoutAdmins(ctx context.Context, text string) {
	for _, adminID := range b.opts.AdminIDs {
		if _, err := b.tg.SendMessage(ctx, adminID, text); err != nil {
			log.Printf("bot: admin notice to %d failed: %v", adminID, err)
		}
	}
}
