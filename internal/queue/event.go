// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names. Both are durable; the consumer declares them on start so
// either side can come up first.
const (
	NotificationQueue = "reservation.notifications"
	AuditQueue        = "reservation.audit"
)

// NotificationEvent is published when a reservation decision produces a
// user-facing message. The consumer persists it to the notifications
// table; the API server never writes that table directly.
type NotificationEvent struct {
	UserID   uint64 `json:"user_id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Link     string `json:"link,omitempty"`
	QueuedAt string `json:"queued_at"`
}

// AuditEvent mirrors one audit_log row. EntryID is generated by the
// publisher so redelivered messages can be deduplicated downstream.
type AuditEvent struct {
	EntryID  string `json:"entry_id"`
	Action   string `json:"action"`
	Category string `json:"category"`
	Details  string `json:"details"`
	QueuedAt string `json:"queued_at"`
}
