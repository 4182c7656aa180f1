package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KynixVPN/Kynix-Bot/internal/model"
	"github.com/KynixVPN/Kynix-Bot/internal/payments"
	"github.com/KynixVPN/Kynix-Bot/internal/subscription"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

func (b *Bot) cmdStart(ctx context.Context, msg *transport.Message) {
	user, err := b.users.ResolveOrCreate(ctx, msg.From.ID)
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}
	b.store.RememberGeneral(user.PublicID, msg.From.ID)

	tariff := payments.Tariffs[0]
	b.send(ctx, msg.Chat.ID, welcomeText(user.PublicID, b.buy.PriceFor(tariff)),
		transport.WithKeyboard(mainMenuKB()))
}

func (b *Bot) cmdBuy(ctx context.Context, msg *transport.Message) {
	if !b.buy.Get().Enabled {
		b.send(ctx, msg.Chat.ID, "🚫 Покупка временно закрыта. Попробуйте позже.")
		return
	}
	if _, err := b.users.ResolveOrCreate(ctx, msg.From.ID); err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}
	b.sendInvoice(ctx, msg.Chat.ID)
}

func (b *Bot) sendInvoice(ctx context.Context, chatID int64) {
	tariff := payments.Tariffs[0]
	stars := b.buy.PriceFor(tariff)
	prices := []transport.LabeledPrice{{Label: tariff.Title, Amount: int64(stars)}}
	err := b.tg.SendInvoice(ctx, chatID,
		"Kynix VPN — "+tariff.Title, "Подписка на 31 день",
		"tariff:"+tariff.Code, prices)
	if err != nil {
		b.send(ctx, chatID, provisioningApology)
	}
}

// cooldownMinutes converts a remaining cooldown into the minutes shown to
// the user: rounded up, never below five so rapid retry is not invited.
func cooldownMinutes(remaining time.Duration) int {
	min := int((remaining + time.Minute - 1) / time.Minute)
	if min < 5 {
		min = 5
	}
	return min
}

func (b *Bot) cmdRefresh(ctx context.Context, msg *transport.Message, args []string) {
	if len(args) > 0 {
		b.send(ctx, msg.Chat.ID, "Использование: /refresh")
		return
	}
	realID := msg.From.ID
	user, err := b.users.ResolveOrCreate(ctx, realID)
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}
	b.store.RememberGeneral(user.PublicID, realID)

	// Cooldown is keyed by the real id so knowing a public id alone never
	// bypasses it.
	ok, remaining := b.store.CanRun(realID, b.opts.CooldownWindow)
	if !ok {
		b.send(ctx, msg.Chat.ID, fmt.Sprintf(
			"⏳ Команду можно использовать раз в %d минут.\n"+
				"Попробуйте снова примерно через <b>%d</b> мин.",
			int(b.opts.CooldownWindow/time.Minute), cooldownMinutes(remaining)))
		return
	}

	_, link, err := b.subs.Regenerate(ctx, user)
	if errors.Is(err, subscription.ErrNoActiveSubscription) {
		b.send(ctx, msg.Chat.ID,
			"❌ У вас нет активной подписки.\n\n"+
				"Откройте меню и оформите тариф <b>Plus</b>.")
		return
	}
	if err != nil {
		b.alerts.Alert(ctx, "refresh_failed", user.PublicID, err.Error())
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}

	b.store.MarkRun(realID)
	b.send(ctx, msg.Chat.ID, "✅ Конфиг обновлён!\n\n<code>"+link+"</code>")
}

func (b *Bot) cmdSupport(ctx context.Context, msg *transport.Message) {
	realID := msg.From.ID
	user, err := b.users.ResolveOrCreate(ctx, realID)
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}

	ticket, created, err := b.support.EnsureOpen(ctx, user, realID)
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}

	b.send(ctx, msg.Chat.ID, fmt.Sprintf(
		"✅ Тикет создан.\nTicket ID: %d\n\n"+
			"Опишите вашу проблему. Администраторы скоро ответят.", ticket.ID))

	if created {
		b.fanoutAdmins(ctx, fmt.Sprintf(
			"📩 Обращение в поддержку\nFAKE ID: %d\nTicket ID: %d",
			user.PublicID, ticket.ID))
	}
}

func (b *Bot) handlePreCheckout(ctx context.Context, q *transport.PreCheckoutQuery) {
	if err := b.tg.AnswerPreCheckoutQuery(ctx, q.ID, true, ""); err != nil {
		b.alerts.Alert(ctx, "precheckout_failed", 0, err.Error())
	}
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *transport.Message) {
	payload := msg.SuccessfulPayment.InvoicePayload
	code := strings.TrimPrefix(payload, "tariff:")
	tariff, ok := payments.TariffByCode(code)
	if !ok {
		b.alerts.Alert(ctx, "unknown_tariff", 0, payload)
		return
	}

	user, err := b.users.ResolveOrCreate(ctx, msg.From.ID)
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}
	b.store.RememberGeneral(user.PublicID, msg.From.ID)
	b.deliverPurchase(ctx, msg.Chat.ID, user, tariff)
}

// deliverPurchase runs the paid (or test) provisioning flow: activate the
// subscription, hand the config to the user, and post the internal
// notice.  Failure detail goes to the operator channel only; the user
// gets the terse apology.
func (b *Bot) deliverPurchase(ctx context.Context, chatID int64, user model.User, tariff payments.Tariff) {
	_, link, err := b.subs.Purchase(ctx, user, tariff.Days)
	if err != nil {
		b.alerts.Alert(ctx, "provision_failed", user.PublicID, err.Error())
		b.fanoutAdmins(ctx, fmt.Sprintf(
			"❗ Ошибка 3x-ui\nFAKE ID: %d\nОшибка: %v", user.PublicID, err))
		b.send(ctx, chatID, provisioningApology)
		return
	}

	b.send(ctx, chatID,
		"✅ Подписка активирована!\n"+
			"Вот ваш VPN-конфиг:\n\n"+
			"<code>"+link+"</code>\n\n"+
			"- <a href=\""+b.opts.InstructionURL+"\">Инструкция по подключению Kynix VPN и приложения</a>")

	b.fanoutAdmins(ctx, fmt.Sprintf(
		"💸 Успешная (в том числе тестовая) выдача конфига\nFAKE ID: %d\nТариф: %s",
		user.PublicID, tariff.Title))
}

func (b *Bot) handleCallback(ctx context.Context, call *transport.CallbackQuery) {
	if call.From == nil {
		return
	}
	chatID := call.From.ID
	if call.Message != nil {
		chatID = call.Message.Chat.ID
	}

	toast := ""
	if call.Data == "support_close_user" {
		toast = "Обращение закрыто"
	}
	if err := b.tg.AnswerCallbackQuery(ctx, call.ID, toast); err != nil {
		return
	}

	user, err := b.users.ResolveOrCreate(ctx, call.From.ID)
	if err != nil {
		b.send(ctx, chatID, provisioningApology)
		return
	}
	b.store.RememberGeneral(user.PublicID, call.From.ID)

	tariff := payments.Tariffs[0]
	switch call.Data {
	case "menu_home":
		b.send(ctx, chatID, welcomeText(user.PublicID, b.buy.PriceFor(tariff)),
			transport.WithKeyboard(mainMenuKB()))
	case "menu_plus":
		b.send(ctx, chatID, plusTariffText(b.buy.PriceFor(tariff), b.opts.PrivacyURL, b.opts.TermsURL),
			transport.WithKeyboard(plusMenuKB()))
	case "menu_buy_plus":
		if !b.buy.Get().Enabled {
			b.send(ctx, chatID, "🚫 Покупка временно закрыта. Попробуйте позже.")
			return
		}
		b.sendInvoice(ctx, chatID)
	case "menu_profile":
		b.callbackProfile(ctx, chatID, user)
	case "menu_support":
		b.callbackSupport(ctx, chatID, call.From.ID, user)
	case "support_close_user":
		b.callbackSupportClose(ctx, call, chatID, user)
	}
}

func (b *Bot) callbackProfile(ctx context.Context, chatID int64, user model.User) {
	subType := "Нет"
	expires := "Нет"
	if sub, err := b.subs.Active(ctx, user); err == nil {
		if sub.Unlimited() {
			subType = "Infinite ♾️"
		} else {
			subType = "Plus"
			expires = sub.ExpiresAt.Format("2006-01-02 15:04")
		}
	}
	b.send(ctx, chatID, fmt.Sprintf(
		"<b>Ваш профиль</b>\n\n"+
			"• FakeID: <code>%d</code>\n"+
			"• Тип подписки: %s\n"+
			"• Срок окончания: %s", user.PublicID, subType, expires),
		transport.WithKeyboard(profileMenuKB()))
}

func (b *Bot) callbackSupport(ctx context.Context, chatID, realID int64, user model.User) {
	ticket, created, err := b.support.EnsureOpen(ctx, user, realID)
	if err != nil {
		b.send(ctx, chatID, provisioningApology)
		return
	}
	b.send(ctx, chatID, supportIntroText, transport.WithKeyboard(supportMenuKB()))
	if created {
		b.fanoutAdmins(ctx, fmt.Sprintf(
			"📩 Обращение в поддержку\nFAKE ID: %d\nTicket ID: %d",
			user.PublicID, ticket.ID))
	}
}

func (b *Bot) callbackSupportClose(ctx context.Context, call *transport.CallbackQuery, chatID int64, user model.User) {
	ids, err := b.support.CloseForUser(ctx, user)
	if err != nil {
		b.send(ctx, chatID, "У вас нет активных обращений.")
		return
	}

	b.send(ctx, chatID, fmt.Sprintf("✅ Обращение закрыто.\nTicket ID: %d", ids[0]))
	for _, tid := range ids {
		b.fanoutAdmins(ctx, fmt.Sprintf(
			"✅ Тикет закрыт пользователем\nFAKE ID: %d\nTicket ID: %d",
			user.PublicID, tid))
	}

	if call.Message != nil {
		// Drop the close button from the menu message if it is still
		// editable; failure just leaves the stale keyboard.
		_ = b.tg.EditMessageText(ctx, chatID, call.Message.MessageID,
			"Ваше обращение закрыто.\nЕсли появятся новые вопросы — используйте /support.")
	}
}
