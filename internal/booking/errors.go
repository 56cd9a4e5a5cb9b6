// Package booking implements the reservation lifecycle: slot conflict
// detection, submission policy, the status state machine, auto-approval
// and the expiry sweep.  Persistence, notifications and auditing are
// consumed through the interfaces in store.go.
package booking

import (
	"errors"
	"fmt"

	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// RejectionCode identifies which business rule refused an operation.
type RejectionCode string

const (
	CodeInvalidTimeSlot      RejectionCode = "INVALID_TIME_SLOT"
	CodeFacilityUnavailable  RejectionCode = "FACILITY_UNAVAILABLE"
	CodeOverlap              RejectionCode = "OVERLAP"
	CodeOutsideBookingWindow RejectionCode = "OUTSIDE_BOOKING_WINDOW"
	CodeDailyLimitExceeded   RejectionCode = "DAILY_LIMIT_EXCEEDED"
	CodeActiveQuotaExceeded  RejectionCode = "ACTIVE_QUOTA_EXCEEDED"
	CodeRescheduleNotAllowed RejectionCode = "RESCHEDULE_NOT_ALLOWED"
	CodeUnauthorized         RejectionCode = "UNAUTHORIZED"
	CodeInvalidTransition    RejectionCode = "INVALID_TRANSITION"
)

// Rejection is a structured, recoverable refusal surfaced to the API
// layer.  It is never fatal: handlers translate the code into an HTTP
// status and echo the message to the caller.  For overlap rejections
// the conflicting reservation id and up to a few alternative slots are
// included so the frontend can offer them to the resident.
type Rejection struct {
	Code                     RejectionCode
	Message                  string
	ConflictingReservationID uint64
	Alternatives             []timeslot.TimeSlot
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Reject builds a plain rejection with a formatted message.
func Reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection when possible.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Sentinel errors shared between the engine and its Store
// implementations.
var (
	// ErrNotFound is returned by Store lookups when the facility or
	// reservation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotTaken is returned by Store.InsertReservation and
	// Store.UpdateSchedule when the persistence layer's exclusion
	// constraint rejects a write that passed the in-transaction
	// conflict check.  The engine translates it into the same overlap
	// rejection a detected conflict produces.
	ErrSlotTaken = errors.New("slot taken")
)
