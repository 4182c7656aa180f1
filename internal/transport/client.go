package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender is the narrow outbound surface consumed by the bot and the alert
// consumer.  *Client is the production implementation.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts ...SendOption) (*Message, error)
	CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64, replyTo int64) error
}

// Client calls the Telegram Bot API over HTTPS.  Every request gets a
// bounded timeout; a non-ok API response is surfaced as an error, never
// swallowed.
type Client struct {
	baseURL string
	http    *http.Client
}

const apiTimeout = 15 * time.Second

// NewClient builds a client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: "https://api.telegram.org/bot" + token,
		http:    &http.Client{Timeout: apiTimeout},
	}
}

// NewClientWithBase is used by tests to point the client at a local server.
func NewClientWithBase(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: apiTimeout}}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram: decode %s: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram: %s rejected: %s", method, envelope.Description)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}

// SendOption mutates the sendMessage payload.
type SendOption func(map[string]any)

// WithKeyboard attaches an inline keyboard to the message.
func WithKeyboard(kb InlineKeyboardMarkup) SendOption {
	return func(p map[string]any) { p["reply_markup"] = kb }
}

// WithReplyTo makes the message a reply.
func WithReplyTo(messageID int64) SendOption {
	return func(p map[string]any) { p["reply_to_message_id"] = messageID }
}

// SendMessage sends an HTML-formatted text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts ...SendOption) (*Message, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	for _, opt := range opts {
		opt(payload)
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText rewrites a previously sent message in place.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts ...SendOption) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	for _, opt := range opts {
		opt(payload)
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// CopyMessage relays any message kind without revealing the origin chat.
// replyTo of zero means no reply linkage.
func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64, replyTo int64) error {
	payload := map[string]any{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}
	if replyTo != 0 {
		payload["reply_to_message_id"] = replyTo
	}
	return c.call(ctx, "copyMessage", payload, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SendInvoice issues a Stars invoice (currency XTR, empty provider token).
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []LabeledPrice) error {
	body := map[string]any{
		"chat_id":        chatID,
		"title":          title,
		"description":    description,
		"payload":        payload,
		"provider_token": "",
		"currency":       "XTR",
		"prices":         prices,
	}
	return c.call(ctx, "sendInvoice", body, nil)
}

// AnswerPreCheckoutQuery approves or declines a checkout.
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errMessage string) error {
	payload := map[string]any{"pre_checkout_query_id": queryID, "ok": ok}
	if !ok && errMessage != "" {
		payload["error_message"] = errMessage
	}
	return c.call(ctx, "answerPreCheckoutQuery", payload, nil)
}

// RefundStarPayment returns a Stars payment to the payer.  The real chat id
// is required by Telegram; it is supplied by the admin from the support
// thread and never persisted.
func (c *Client) RefundStarPayment(ctx context.Context, realUserID int64, chargeID string) error {
	payload := map[string]any{
		"user_id":                    realUserID,
		"telegram_payment_charge_id": chargeID,
	}
	return c.call(ctx, "refundStarPayment", payload, nil)
}
