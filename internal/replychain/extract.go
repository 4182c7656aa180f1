// Package replychain recovers identifiers from message text when no session
// state survives.  Support traffic to admins always carries a service header
// with "FAKE ID" and "Ticket ID" lines; an admin may reply to the header
// itself or to an attachment sent as a reply to it, so extraction walks the
// replied-to chain a bounded number of levels up.  After a restart this text
// is the only routing information left.
package replychain

import (
	"strconv"
	"strings"

	"github.com/KynixVPN/Kynix-Bot/internal/identity"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

// DefaultDepth is how many reply ancestors are inspected beyond the message
// itself.  Two levels cover the header + attachment layout admins actually
// produce; deeper chains are not walked.
const DefaultDepth = 2

// ExtractPublicID scans msg and up to maxDepth reply ancestors for the
// first whitespace token that is purely numeric and exactly the public id
// width.  The first ancestor with a match wins.  ok is false when nothing
// matched; callers must treat that as "cannot route" and fail soft.
func ExtractPublicID(msg *transport.Message, maxDepth int) (publicID int64, ok bool) {
	for cur, depth := msg, 0; cur != nil && depth <= maxDepth; cur, depth = cur.ReplyTo, depth+1 {
		payload := cur.Body()
		if payload == "" {
			continue
		}
		for _, word := range strings.Fields(payload) {
			if len(word) != identity.PublicIDDigits || !allDigits(word) {
				continue
			}
			n, err := strconv.ParseInt(word, 10, 64)
			if err != nil {
				continue
			}
			return n, true
		}
	}
	return 0, false
}

// ExtractTicketID scans msg and up to maxDepth reply ancestors for a ticket
// id.  Primary form is a labeled line ("Ticket ID: 42"): any line containing
// "ticket", "id" and a colon yields the numeric tail after the first colon.
// When no line matches, a token-window fallback looks for a token starting
// with "ticket" followed by one starting with "id" and then a numeric token
// within two positions.  The fallback is a routing convenience and is never
// used to authorize privileged actions.
func ExtractTicketID(msg *transport.Message, maxDepth int) (ticketID int64, ok bool) {
	for cur, depth := msg, 0; cur != nil && depth <= maxDepth; cur, depth = cur.ReplyTo, depth+1 {
		payload := cur.Body()
		if payload == "" {
			continue
		}

		for _, line := range strings.Split(payload, "\n") {
			lower := strings.ToLower(line)
			if !strings.Contains(lower, "ticket") || !strings.Contains(lower, "id") || !strings.Contains(line, ":") {
				continue
			}
			tail := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			if tail != "" && allDigits(tail) {
				if n, err := strconv.ParseInt(tail, 10, 64); err == nil {
					return n, true
				}
			}
		}

		tokens := strings.Fields(strings.ReplaceAll(payload, "\n", " "))
		for i, tok := range tokens {
			if !strings.HasPrefix(strings.ToLower(tok), "ticket") || i+2 >= len(tokens) {
				continue
			}
			if !strings.HasPrefix(strings.ToLower(tokens[i+1]), "id") {
				continue
			}
			cand := tokens[i+2]
			if allDigits(cand) {
				if n, err := strconv.ParseInt(cand, 10, 64); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
