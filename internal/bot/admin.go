package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/KynixVPN/Kynix-Bot/internal/payments"
	"github.com/KynixVPN/Kynix-Bot/internal/replychain"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
	"github.com/KynixVPN/Kynix-Bot/internal/utils"
)

// cmdInf grants an unlimited subscription to the user addressed by their
// public id.
func (b *Bot) cmdInf(ctx context.Context, msg *transport.Message, args []string) {
	if !b.requireAdminLogin(ctx, msg) {
		return
	}
	if len(args) != 1 {
		b.send(ctx, msg.Chat.ID, "Использование: /inf FAKE_ID")
		return
	}
	publicID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.send(ctx, msg.Chat.ID, "❌ FAKE_ID должен быть числом.")
		return
	}

	user, err := b.users.GetByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrNotFound) {
		b.send(ctx, msg.Chat.ID, "❌ Пользователь не найден.")
		return
	}
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}

	_, link, err := b.subs.GrantUnlimited(ctx, user)
	if err != nil {
		b.alerts.Alert(ctx, "grant_failed", publicID, err.Error())
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}
	b.send(ctx, msg.Chat.ID,
		"🎁 Выдана <b>бессрочная подписка</b>!\n\n<code>"+link+"</code>")
}

// cmdRefund ends the entitlement and returns the Stars payment.  The real
// id and charge id come from the admin (out of the payment notice); the
// local deactivation happens even when the remote revoke fails, and only
// then is the Telegram refund attempted.
func (b *Bot) cmdRefund(ctx context.Context, msg *transport.Message, args []string) {
	if !b.requireAdminLogin(ctx, msg) {
		return
	}
	if len(args) != 3 {
		b.send(ctx, msg.Chat.ID,
			"Использование:\n<code>/refund FAKE_ID REAL_ID CHARGE_ID</code>")
		return
	}
	publicID, err1 := strconv.ParseInt(args[0], 10, 64)
	realID, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		b.send(ctx, msg.Chat.ID, "❌ FAKE_ID и REAL_ID должны быть числами.")
		return
	}
	chargeID := args[2]

	user, err := b.users.GetByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrNotFound) {
		b.send(ctx, msg.Chat.ID, "❌ Пользователь с таким FAKE_ID не найден.")
		return
	}
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}

	if err := b.subs.Refund(ctx, user); err != nil {
		b.send(ctx, msg.Chat.ID, "❌ Не удалось деактивировать подписку:\n<code>"+err.Error()+"</code>")
		return
	}

	if err := b.tg.RefundStarPayment(ctx, realID, chargeID); err != nil {
		b.send(ctx, msg.Chat.ID,
			"❌ Telegram отклонил возврат:\n<code>"+err.Error()+"</code>\n"+
				"Подписка уже деактивирована.")
		return
	}

	b.send(ctx, msg.Chat.ID,
		"✅ Возврат выполнен!\n"+
			"• Конфиг удалён\n"+
			"• Подписка деактивирована\n"+
			"• Средства возвращены пользователю")
}

// cmdClose closes a ticket from an admin reply to a service notice.  The
// identifiers are reconstructed from the replied message's text; they
// route the close and the courtesy notification, nothing more.
func (b *Bot) cmdClose(ctx context.Context, msg *transport.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	if msg.ReplyTo == nil {
		b.send(ctx, msg.Chat.ID, "Команда /close работает реплаем на служебное сообщение.")
		return
	}

	publicID, ok := replychain.ExtractPublicID(msg.ReplyTo, replychain.DefaultDepth)
	if !ok {
		b.send(ctx, msg.Chat.ID, "Не удалось определить FAKE ID.")
		return
	}

	realID, reachable := b.store.ResolveReal(publicID)

	_, user, err := b.support.CloseByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrNotFound) {
		b.send(ctx, msg.Chat.ID, "Пользователь не найден.")
		return
	}
	if err != nil {
		b.send(ctx, msg.Chat.ID, "Нет открытых тикетов у этого пользователя.")
		return
	}

	if reachable {
		b.send(ctx, realID,
			"Ваше обращение закрыто.\n"+
				"Если появятся новые вопросы — вы можете снова открыть поддержку.")
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf("Тикет пользователя %d закрыт.", user.PublicID))
}

func (b *Bot) cmdCloseBuy(ctx context.Context, msg *transport.Message) {
	if !b.requireAdminLogin(ctx, msg) {
		return
	}
	cur := b.buy.Get()
	if err := b.buy.SetEnabled(!cur.Enabled); err != nil {
		b.send(ctx, msg.Chat.ID, "❌ Не удалось сохранить настройки: "+err.Error())
		return
	}
	state := "закрыта ❌"
	if !cur.Enabled {
		state = "открыта ✅"
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf(
		"Покупка %s.\nТекущая цена: %d ⭐", state, b.buy.PriceFor(payments.Tariffs[0])))
}

func (b *Bot) cmdEditBuy(ctx context.Context, msg *transport.Message, args []string) {
	if !b.requireAdminLogin(ctx, msg) {
		return
	}
	if len(args) != 1 {
		b.send(ctx, msg.Chat.ID, "Использование: /editbuy <стоимость в ⭐>")
		return
	}
	price, err := strconv.Atoi(args[0])
	if err != nil {
		b.send(ctx, msg.Chat.ID, "❌ Стоимость должна быть целым числом.")
		return
	}
	if price <= 0 {
		b.send(ctx, msg.Chat.ID, "❌ Стоимость должна быть больше 0.")
		return
	}
	if err := b.buy.SetPrice(price); err != nil {
		b.send(ctx, msg.Chat.ID, "❌ Не удалось сохранить настройки: "+err.Error())
		return
	}
	state := "закрыта ❌"
	if b.buy.Get().Enabled {
		state = "открыта ✅"
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf(
		"✅ Цена обновлена.\nПокупка: %s\nНовая цена: %d ⭐", state, price))
}

// cmdTestBuy runs the full provisioning flow without a payment.
func (b *Bot) cmdTestBuy(ctx context.Context, msg *transport.Message) {
	if !b.requireAdminLogin(ctx, msg) {
		return
	}
	user, err := b.users.ResolveOrCreate(ctx, msg.From.ID)
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}
	b.store.RememberGeneral(user.PublicID, msg.From.ID)

	b.send(ctx, msg.Chat.ID, "⚠️ Тестовая покупка...\nБез Stars, без оплаты.")
	b.deliverPurchase(ctx, msg.Chat.ID, user, payments.Tariffs[0])
}

// cmdLogin authenticates an admin.  First contact mints a random password
// and stores only its argon2id hash; the plaintext is shown exactly once.
func (b *Bot) cmdLogin(ctx context.Context, msg *transport.Message, args []string) {
	uid := msg.From.ID
	if !b.isAdmin(uid) {
		b.send(ctx, msg.Chat.ID, "❌ У вас нет прав для этой команды.")
		return
	}
	if b.sessions.IsLoggedIn(uid) {
		b.send(ctx, msg.Chat.ID, "✅ Вы уже авторизованы.")
		return
	}

	auth, err := b.adminDB.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		password, err := utils.NewAdminPassword()
		if err != nil {
			b.send(ctx, msg.Chat.ID, provisioningApology)
			return
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			b.send(ctx, msg.Chat.ID, provisioningApology)
			return
		}
		if err := b.adminDB.Create(ctx, uid, hash); err != nil {
			b.send(ctx, msg.Chat.ID, provisioningApology)
			return
		}
		b.sessions.MarkLoggedIn(uid)
		b.send(ctx, msg.Chat.ID,
			"🔐 <b>Создан пароль администратора</b> (первый вход).\n\n"+
				"Пароль: <code>"+password+"</code>\n\n"+
				"Сохраните его в надёжном месте. Повторно показать пароль нельзя.\n"+
				"Для следующих входов: <code>/login пароль</code>")
		return
	}
	if err != nil {
		b.send(ctx, msg.Chat.ID, provisioningApology)
		return
	}

	if len(args) != 1 {
		b.send(ctx, msg.Chat.ID, "Использование: <code>/login пароль</code>")
		return
	}
	if !utils.VerifyPassword(auth.PasswordHash, args[0]) {
		b.send(ctx, msg.Chat.ID, "❌ Неверный пароль.")
		return
	}

	b.sessions.MarkLoggedIn(uid)
	if err := b.adminDB.MarkLogin(ctx, uid); err != nil {
		b.alerts.Alert(ctx, "admin_login_mark_failed", 0, err.Error())
	}
	b.send(ctx, msg.Chat.ID, "✅ Авторизация успешна.")
}
