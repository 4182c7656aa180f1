package bot

import (
	"fmt"

	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

func mainMenuKB() transport.InlineKeyboardMarkup {
	return transport.InlineKeyboardMarkup{InlineKeyboard: [][]transport.InlineKeyboardButton{
		{{Text: "Plus", CallbackData: "menu_plus"}},
		{{Text: "Профиль", CallbackData: "menu_profile"}},
		{{Text: "Support", CallbackData: "menu_support"}},
	}}
}

func plusMenuKB() transport.InlineKeyboardMarkup {
	return transport.InlineKeyboardMarkup{InlineKeyboard: [][]transport.InlineKeyboardButton{
		{{Text: "Купить", CallbackData: "menu_buy_plus"}},
		{{Text: "🏠 Главное меню", CallbackData: "menu_home"}},
	}}
}

func profileMenuKB() transport.InlineKeyboardMarkup {
	return transport.InlineKeyboardMarkup{InlineKeyboard: [][]transport.InlineKeyboardButton{
		{{Text: "🏠 Главное меню", CallbackData: "menu_home"}},
	}}
}

func supportMenuKB() transport.InlineKeyboardMarkup {
	return transport.InlineKeyboardMarkup{InlineKeyboard: [][]transport.InlineKeyboardButton{
		{{Text: "Закрыть обращение", CallbackData: "support_close_user"}},
		{{Text: "⬅️ Назад", CallbackData: "menu_home"}},
	}}
}

func welcomeText(publicID int64, stars int) string {
	return fmt.Sprintf(
		"<b>Добро пожаловать в Kynix VPN 💜</b>\n\n"+
			"<b>📦 Тарифный план:</b>\n\n"+
			"<b>Plus</b>\n"+
			"• Безлимитный трафик\n"+
			"• 10 устройств\n"+
			"• Цена: %d⭐ / месяц\n\n"+
			"Ваш Fake ID: <code>%d</code>", stars, publicID)
}

func plusTariffText(stars int, privacyURL, termsURL string) string {
	return fmt.Sprintf(
		"<b>Тариф Plus</b>\n\n"+
			"• Безлимитный трафик\n"+
			"• До 10 устройств\n"+
			"• Приоритетная поддержка\n"+
			"• Цена: %d⭐ / месяц\n\n"+
			"Нажатие на кнопку «Купить» или последующая покупка "+
			"подразумевает согласие с:\n"+
			"• <a href=\"%s\">Политикой конфиденциальности</a>\n"+
			"• <a href=\"%s\">Правилами использования</a>", stars, privacyURL, termsURL)
}

const supportIntroText = "🛠 <b>Поддержка</b>\n\n" +
	"Опишите вашу проблему в сообщении.\n" +
	"Ваши сообщения будут отправлены администратору.\n\n" +
	"Если вопрос решён — закройте обращение кнопкой ниже."

const provisioningApology = "Произошла ошибка при выдаче VPN-конфига. " +
	"Мы уже занимаемся этим, попробуйте позже."
