package replychain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

func chainOfThree() *transport.Message {
	grandparent := &transport.Message{
		Text: "📩 Support request\nFAKE ID: 12345678\nTicket ID: 42",
	}
	parent := &transport.Message{
		Caption: "screenshot.png",
		ReplyTo: grandparent,
	}
	return &transport.Message{
		Text:    "please re-send your config",
		ReplyTo: parent,
	}
}

func TestExtractPublicID_FromGrandparent(t *testing.T) {
	msg := chainOfThree()

	id, ok := ExtractPublicID(msg, DefaultDepth)
	require.True(t, ok)
	assert.Equal(t, int64(12345678), id)

	_, ok = ExtractPublicID(msg, 0)
	assert.False(t, ok, "depth 0 must not reach the grandparent")
}

func TestExtractTicketID_FromGrandparent(t *testing.T) {
	msg := chainOfThree()

	id, ok := ExtractTicketID(msg, DefaultDepth)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ExtractTicketID(msg, 0)
	assert.False(t, ok)
}

func TestExtractPublicID_IgnoresWrongWidth(t *testing.T) {
	msg := &transport.Message{Text: "ids: 1234567 123456789 0042 99990000"}
	id, ok := ExtractPublicID(msg, 0)
	require.True(t, ok)
	assert.Equal(t, int64(99990000), id, "only the exactly-8-digit token counts")
}

func TestExtractPublicID_CaptionOnly(t *testing.T) {
	msg := &transport.Message{Caption: "FAKE ID: 87654321"}
	id, ok := ExtractPublicID(msg, 0)
	require.True(t, ok)
	assert.Equal(t, int64(87654321), id)
}

func TestExtractTicketID_TokenWindowFallback(t *testing.T) {
	msg := &transport.Message{Text: "closing ticket id 77 as resolved"}
	id, ok := ExtractTicketID(msg, 0)
	require.True(t, ok)
	assert.Equal(t, int64(77), id)
}

func TestExtractTicketID_LabeledLineWins(t *testing.T) {
	msg := &transport.Message{Text: "Ticket ID: 5\nticket id 9"}
	id, ok := ExtractTicketID(msg, 0)
	require.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestExtract_NoMatchAnywhere(t *testing.T) {
	msg := &transport.Message{
		Text:    "hello",
		ReplyTo: &transport.Message{Text: "world"},
	}
	_, ok := ExtractPublicID(msg, DefaultDepth)
	assert.False(t, ok)
	_, ok = ExtractTicketID(msg, DefaultDepth)
	assert.False(t, ok)
}

func TestExtract_IndependentDepths(t *testing.T) {
	// Public id at depth 1, ticket id at depth 2; both must be found.
	grandparent := &transport.Message{Text: "Ticket ID: 13"}
	parent := &transport.Message{Text: "FAKE ID: 11223344", ReplyTo: grandparent}
	msg := &transport.Message{Text: "ok", ReplyTo: parent}

	id, ok := ExtractPublicID(msg, DefaultDepth)
	require.True(t, ok)
	assert.Equal(t, int64(11223344), id)

	tid, ok := ExtractTicketID(msg, DefaultDepth)
	require.True(t, ok)
	assert.Equal(t, int64(13), tid)
}
