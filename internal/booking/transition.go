package booking

import "github.com/civicworks/facility-reservation/internal/model"

// Event names a lifecycle transition request.
type Event string

const (
	EventApprove    Event = "approve"
	EventDeny       Event = "deny"
	EventCancel     Event = "cancel"
	EventReschedule Event = "reschedule"
	EventComplete   Event = "complete"
)

// transitions is the authoritative lifecycle table.  Denied, cancelled
// and completed are terminal and therefore absent as source states.
// Reschedule maps back to pending even from approved: a moved booking
// always requires re-approval.
var transitions = map[model.ReservationStatus]map[Event]model.ReservationStatus{
	model.StatusPending: {
		EventApprove:    model.StatusApproved,
		EventDeny:       model.StatusDenied,
		EventCancel:     model.StatusCancelled,
		EventReschedule: model.StatusPending,
	},
	model.StatusApproved: {
		EventCancel:     model.StatusCancelled,
		EventReschedule: model.StatusPending,
		EventComplete:   model.StatusCompleted,
	},
}

// NextStatus resolves the target status for an event from the current
// status.  It returns false when the transition is not permitted.
func NextStatus(current model.ReservationStatus, event Event) (model.ReservationStatus, bool) {
	next, ok := transitions[current][event]
	return next, ok
}
