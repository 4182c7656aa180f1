// Package notify carries operator alerts over the message broker.  The
// chat process publishes an alert whenever a gateway call fails or an
// invariant trips; the consumer side fans the alert out to admin chats and
// appends it to an ops log.  Alerts reference users only by public id.
package notify

// Alert is published to the ops.alert queue.
type Alert struct {
	Kind     string `json:"kind"`      // e.g. provision_failed, revoke_failed, refund_done
	PublicID int64  `json:"public_id"` // 0 when the alert is not about a specific user
	Detail   string `json:"detail"`
	At       string `json:"at"` // RFC3339 UTC
}
