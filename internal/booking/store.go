package booking

import (
	"context"
	"time"

	"github.com/civicworks/facility-reservation/internal/model"
)

// Store is the persistence contract the engine runs against.  All
// read-check-write sequences execute inside WithTx; implementations
// must make the callback's operations transactional so that a status
// update and its history entry commit or roll back together, and must
// back InsertReservation/UpdateSchedule with an exclusion constraint
// that returns ErrSlotTaken when two conflicting writes race past the
// in-transaction check.
type Store interface {
	// WithTx runs fn inside a transaction.  Nested calls reuse the
	// surrounding transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	FacilityByID(ctx context.Context, id uint64) (model.Facility, error)
	ReservationByID(ctx context.Context, id uint64) (model.Reservation, error)

	// ActiveByFacilityAndDate returns reservations for the facility on
	// the given calendar date whose status is in statuses.
	ActiveByFacilityAndDate(ctx context.Context, facilityID uint64, date time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error)

	// ActiveByUser returns the user's pending and approved reservations
	// with a reservation date in [from, to], across all facilities.
	ActiveByUser(ctx context.Context, userID uint64, from, to time.Time) ([]model.Reservation, error)

	// InsertReservation persists a new reservation and populates its ID
	// and timestamps.
	InsertReservation(ctx context.Context, r *model.Reservation) error

	// UpdateStatus moves a reservation to the given status.
	UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error

	// UpdateSchedule rewrites the reservation's date and slot bounds,
	// sets its status and increments the reschedule counter.
	UpdateSchedule(ctx context.Context, r model.Reservation) error

	// AppendHistory adds an audit-trail row for a status change.
	AppendHistory(ctx context.Context, h model.ReservationHistory) error

	// ExpiredPending returns every pending reservation whose slot end
	// is strictly before now.
	ExpiredPending(ctx context.Context, now time.Time) ([]model.Reservation, error)
}

// Notifier delivers user-facing messages.  It is fire-and-forget from
// the engine's perspective; failures are logged by callers, never
// propagated as engine errors.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, typ, title, message, link string) error
}

// Auditor records administrative and system actions.  Same
// fire-and-forget contract as Notifier.
type Auditor interface {
	LogAudit(ctx context.Context, action, category, details string) error
}

// IdentityVerifier reports whether a resident's identity has been
// verified by the municipality.  Consumed by the auto-approval
// evaluator only.
type IdentityVerifier interface {
	IsUserVerified(ctx context.Context, userID uint64) (bool, error)
}
