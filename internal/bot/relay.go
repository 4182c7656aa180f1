package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/KynixVPN/Kynix-Bot/internal/replychain"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

// relay handles every non-command message: admin replies go back to the
// user they answer, user messages flow into the open support ticket.
func (b *Bot) relay(ctx context.Context, msg *transport.Message) {
	if b.isAdmin(msg.From.ID) && msg.ReplyTo != nil {
		b.relayAdminReply(ctx, msg)
		return
	}
	b.relayUserMessage(ctx, msg)
}

// relayAdminReply routes an admin's reply to the user identified by the
// replied-to service notice.  The user sees a plain message with no
// service header; the full exchange is mirrored to every admin.
func (b *Bot) relayAdminReply(ctx context.Context, msg *transport.Message) {
	publicID, ok := replychain.ExtractPublicID(msg.ReplyTo, replychain.DefaultDepth)
	if !ok {
		return
	}
	ticketID, hasTicket := replychain.ExtractTicketID(msg.ReplyTo, replychain.DefaultDepth)

	realID, reachable := b.store.ResolveReal(publicID)
	if !reachable {
		b.send(ctx, msg.Chat.ID, "Не удалось доставить: real ID очищен (тикет закрыт/не открыт).")
		return
	}

	if msg.Text != "" {
		b.send(ctx, realID, msg.Text)
	} else if err := b.tg.CopyMessage(ctx, realID, msg.Chat.ID, msg.MessageID, 0); err != nil {
		log.Printf("bot: relay copy to user failed: %v", err)
		if fallback := msg.Body(); fallback != "" {
			b.send(ctx, realID, fallback)
		}
	}

	adminLabel := msg.From.Username
	if adminLabel == "" {
		adminLabel = msg.From.FirstName
	}
	ticketStr := "?"
	if hasTicket {
		ticketStr = fmt.Sprintf("%d", ticketID)
	}
	header := fmt.Sprintf(
		"💬 Ответ администратора\nАдмин: %s (%d)\nFAKE ID: %d\nTicket ID: %s",
		adminLabel, msg.From.ID, publicID, ticketStr)

	b.mirrorToAdmins(ctx, header, msg)
}

// relayUserMessage forwards a support-track user's message to the admins
// under a service header the reply-chain reconstructor can parse later.
// Users outside an open support conversation are ignored.
func (b *Bot) relayUserMessage(ctx context.Context, msg *transport.Message) {
	if !msg.HasPayload() || strings.HasPrefix(msg.Body(), "/") {
		return
	}

	user, err := b.users.ResolveOrCreate(ctx, msg.From.ID)
	if err != nil {
		return
	}
	if _, open := b.store.ResolveReal(user.PublicID); !open {
		return
	}

	ticket, _, err := b.support.EnsureOpen(ctx, user, msg.From.ID)
	if err != nil {
		log.Printf("bot: ensure ticket for %d failed: %v", user.PublicID, err)
		return
	}

	header := fmt.Sprintf(
		"🆘 Сообщение в поддержку\nFAKE ID: %d\nTicket ID: %d",
		user.PublicID, ticket.ID)
	b.mirrorToAdmins(ctx, header, msg)
}

// mirrorToAdmins delivers header+content to every admin: escaped text
// inline for plain messages, a header message with the attachment copied
// as a reply for everything else.
func (b *Bot) mirrorToAdmins(ctx context.Context, header string, msg *transport.Message) {
	for _, adminID := range b.opts.AdminIDs {
		if msg.Text != "" {
			safe := html.EscapeString(msg.Text)
			if _, err := b.tg.SendMessage(ctx, adminID, header+"\n\n<pre>"+safe+"</pre>"); err != nil {
				log.Printf("bot: mirror to admin %d failed: %v", adminID, err)
			}
			continue
		}

		headText := header
		if msg.Caption != "" {
			headText = header + "\n\n" + html.EscapeString(msg.Caption)
		}
		sent, err := b.tg.SendMessage(ctx, adminID, headText)
		if err != nil {
			log.Printf("bot: mirror header to admin %d failed: %v", adminID, err)
			continue
		}
		if err := b.tg.CopyMessage(ctx, adminID, msg.Chat.ID, msg.MessageID, sent.MessageID); err != nil {
			log.Printf("bot: mirror copy to admin %d failed: %v", adminID, err)
		}
	}
}
