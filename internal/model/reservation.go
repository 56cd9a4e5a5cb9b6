package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// DENIED, CANCELLED and COMPLETED are terminal; APPROVED may return to
// PENDING exactly once, when the reservation is rescheduled.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusApproved  ReservationStatus = "APPROVED"
	StatusDenied    ReservationStatus = "DENIED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// Active reports whether the status counts against conflict checks and
// user quotas.  Pending reservations are provisional holds and block
// overlapping submissions just like approved ones.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal reports whether no further transitions are permitted.
func (s ReservationStatus) Terminal() bool {
	return s == StatusDenied || s == StatusCancelled || s == StatusCompleted
}

// Reservation records one request to use a facility for a date and time
// interval.  The display string in TimeSlot is normalized into StartMin
// and EndMin at write time; comparisons never touch the string form.
//
// Fields:
//  ID                – primary key identifier.
//  Reference         – opaque booking reference returned to the resident.
//  FacilityID        – facility being reserved.
//  UserID            – resident who submitted the request.
//  ReservationDate   – calendar date of the booking (midnight UTC).
//  TimeSlot          – original display string, e.g. "10:00 - 11:00".
//  StartMin          – slot start in minutes from midnight.
//  EndMin            – slot end in minutes from midnight (exclusive).
//  Purpose           – free-text purpose supplied by the resident.
//  ExpectedAttendees – headcount supplied by the resident.
//  Status            – current lifecycle state.
//  RescheduleCount   – 0 or 1; at most one reschedule per reservation.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Reservation struct {
	ID                uint64            // reservations.id
	Reference         string            // reservations.reference
	FacilityID        uint64            // reservations.facility_id
	UserID            uint64            // reservations.user_id
	ReservationDate   time.Time         // reservations.reservation_date
	TimeSlot          string            // reservations.time_slot
	StartMin          int               // reservations.start_min
	EndMin            int               // reservations.end_min
	Purpose           string            // reservations.purpose
	ExpectedAttendees uint32            // reservations.expected_attendees
	Status            ReservationStatus // reservations.status
	RescheduleCount   uint8             // reservations.reschedule_count
	CreatedAt         time.Time         // reservations.created_at
	UpdatedAt         time.Time         // reservations.updated_at
}

// ReservationHistory is an append-only audit trail entry recording a
// single status change.  Rows are never mutated after insertion.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation this entry belongs to.
//  Status        – status the reservation entered.
//  Note          – human-readable explanation of the change.
//  ActorID       – user who caused the change (nil for system actions).
//  CreatedAt     – when the change happened.
type ReservationHistory struct {
	ID            uint64            // reservation_history.id
	ReservationID uint64            // reservation_history.reservation_id
	Status        ReservationStatus // reservation_history.status
	Note          string            // reservation_history.note
	ActorID       *uint64           // reservation_history.actor_id (nullable)
	CreatedAt     time.Time         // reservation_history.created_at
}
