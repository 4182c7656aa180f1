package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KynixVPN/Kynix-Bot/internal/bot"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

// WebhookHandler receives Telegram updates.  The secret path segment is
// the only authentication Telegram offers for webhooks; a mismatch is
// answered 404 so the endpoint does not confirm its own existence.
type WebhookHandler struct {
	Bot    *bot.Bot
	Secret string
}

func NewWebhookHandler(b *bot.Bot, secret string) *WebhookHandler {
	return &WebhookHandler{Bot: b, Secret: secret}
}

// Receive parses one update and dispatches it.  It always answers 200 for
// well-formed updates: handler failures are dealt with internally, and a
// non-2xx would make Telegram redeliver the same update indefinitely.
func (h *WebhookHandler) Receive(c echo.Context) error {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.Secret)) != 1 {
		return c.NoContent(http.StatusNotFound)
	}

	var upd transport.Update
	if err := c.Bind(&upd); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid update"})
	}

	// Dispatch detached from the request context: Telegram only needs the
	// ack, and slow provisioning calls must not hit its webhook timeout.
	go h.Bot.Dispatch(context.Background(), upd)

	return c.NoContent(http.StatusOK)
}
