package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageOK(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 7},
		})
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	msg, err := c.SendMessage(context.Background(), 123, "hi",
		WithKeyboard(InlineKeyboardMarkup{}), WithReplyTo(9))
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.MessageID)

	assert.Equal(t, float64(123), got["chat_id"])
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, float64(9), got["reply_to_message_id"])
	assert.Contains(t, got, "reply_markup")
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	_, err := c.SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestRefundStarPaymentPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refundStarPayment", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	require.NoError(t, c.RefundStarPayment(context.Background(), 555, "ch_1"))
	assert.Equal(t, float64(555), got["user_id"])
	assert.Equal(t, "ch_1", got["telegram_payment_charge_id"])
}

func TestMessageBodyAndPayload(t *testing.T) {
	assert.Equal(t, "text", (&Message{Text: "text", Caption: "cap"}).Body())
	assert.Equal(t, "cap", (&Message{Caption: "cap"}).Body())
	assert.Equal(t, "", (*Message)(nil).Body())

	assert.False(t, (&Message{}).HasPayload())
	assert.True(t, (&Message{Caption: "c"}).HasPayload())
	assert.True(t, (&Message{Photo: []PhotoSize{{FileID: "f"}}}).HasPayload())
}
