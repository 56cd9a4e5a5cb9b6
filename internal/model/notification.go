package model

import "time"

// Notification types understood by the portal frontend.
const (
	NotifyReservationApproved = "RESERVATION_APPROVED"
	NotifyReservationDenied   = "RESERVATION_DENIED"
	NotifyReservationExpired  = "RESERVATION_EXPIRED"
	NotifyReservationUpdated  = "RESERVATION_UPDATED"
)

// Notification is a user-facing message created when a reservation
// decision is made.  Rows map to the `notifications` table.
type Notification struct {
	ID        uint64     // notifications.id
	UserID    uint64     // notifications.user_id
	Type      string     // notifications.type
	Title     string     // notifications.title
	Message   string     // notifications.message
	Link      *string    // notifications.link (nullable)
	ReadAt    *time.Time // notifications.read_at (nullable)
	CreatedAt time.Time  // notifications.created_at
}
