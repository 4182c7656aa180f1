// Package transport speaks the subset of the Telegram Bot API this bot
// needs: inbound update payloads delivered to the webhook and an outbound
// client for sends, invoices and Stars refunds.
package transport

// Update is a single inbound event from the Bot API.
type Update struct {
	UpdateID         int64             `json:"update_id"`
	Message          *Message          `json:"message,omitempty"`
	CallbackQuery    *CallbackQuery    `json:"callback_query,omitempty"`
	PreCheckoutQuery *PreCheckoutQuery `json:"pre_checkout_query,omitempty"`
}

// Message mirrors the fields the bot reads.  ReplyTo links to the message
// this one replies to; Telegram populates only one level, so deeper reply
// chains are reconstructed from text content instead.
type Message struct {
	MessageID int64    `json:"message_id"`
	From      *ChatUser `json:"from,omitempty"`
	Chat      Chat     `json:"chat"`
	Text      string   `json:"text,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	ReplyTo   *Message `json:"reply_to_message,omitempty"`

	Photo             []PhotoSize        `json:"photo,omitempty"`
	Document          *Attachment        `json:"document,omitempty"`
	Video             *Attachment        `json:"video,omitempty"`
	Audio             *Attachment        `json:"audio,omitempty"`
	Voice             *Attachment        `json:"voice,omitempty"`
	Sticker           *Attachment        `json:"sticker,omitempty"`
	SuccessfulPayment *SuccessfulPayment `json:"successful_payment,omitempty"`
}

// Body returns the primary text content of a message: the text for plain
// messages, the caption for media.
func (m *Message) Body() string {
	if m == nil {
		return ""
	}
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// HasPayload reports whether the message carries anything worth relaying to
// support (text or any attachment kind).
func (m *Message) HasPayload() bool {
	if m == nil {
		return false
	}
	return m.Text != "" || m.Caption != "" || len(m.Photo) > 0 ||
		m.Document != nil || m.Video != nil || m.Audio != nil ||
		m.Voice != nil || m.Sticker != nil
}

type ChatUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
}

// Attachment covers the file-bearing message kinds the bot only ever
// forwards, never inspects.
type Attachment struct {
	FileID string `json:"file_id"`
}

type CallbackQuery struct {
	ID      string    `json:"id"`
	From    *ChatUser `json:"from"`
	Message *Message  `json:"message,omitempty"`
	Data    string    `json:"data,omitempty"`
}

type PreCheckoutQuery struct {
	ID             string    `json:"id"`
	From           *ChatUser `json:"from"`
	Currency       string    `json:"currency"`
	TotalAmount    int64     `json:"total_amount"`
	InvoicePayload string    `json:"invoice_payload"`
}

type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}

// LabeledPrice is a single invoice line item.
type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// InlineKeyboard types for menu buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}
