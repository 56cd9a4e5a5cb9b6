package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// PolicyConfig carries the tunable quota and timing rules.
type PolicyConfig struct {
	// BookingWindowDays is the furthest a reservation date may lie in
	// the future.  A date of exactly today+BookingWindowDays is allowed.
	BookingWindowDays int
	// ActiveQuota is the maximum number of pending+approved
	// reservations a user may hold inside the quota window.
	ActiveQuota int
	// QuotaWindowDays bounds the quota window: [today, today+N].
	QuotaWindowDays int
	// RescheduleCutoffDays is the minimum number of days the new date
	// must precede the currently booked date by.  The cutoff is
	// measured against the booked date, not against the request time.
	RescheduleCutoffDays int
}

// DefaultPolicyConfig mirrors the municipality's production settings.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		BookingWindowDays:    60,
		ActiveQuota:          3,
		QuotaWindowDays:      30,
		RescheduleCutoffDays: 3,
	}
}

// Policy validates submissions against quota and timing rules before
// the state machine is invoked.  It never mutates state; every check
// either passes or returns a *Rejection.  Policy failures
// short-circuit before the conflict detector runs, cheapest first.
type Policy struct {
	store Store
	clock clock.Clock
	cfg   PolicyConfig
}

// NewPolicy builds a Policy with the given rules.
func NewPolicy(store Store, clk clock.Clock, cfg PolicyConfig) *Policy {
	return &Policy{store: store, clock: clk, cfg: cfg}
}

// CheckSubmission validates a new reservation request for userID on
// date.  Rule order: advance window, per-user daily cap, active quota.
func (p *Policy) CheckSubmission(ctx context.Context, userID uint64, date time.Time) error {
	today := timeslot.DateOf(p.clock.Now())
	date = timeslot.DateOf(date)

	if date.Before(today) || date.After(today.AddDate(0, 0, p.cfg.BookingWindowDays)) {
		return Reject(CodeOutsideBookingWindow,
			"reservation date must be between today and %d days ahead", p.cfg.BookingWindowDays)
	}

	sameDay, err := p.store.ActiveByUser(ctx, userID, date, date)
	if err != nil {
		return fmt.Errorf("load same-day reservations for user %d: %w", userID, err)
	}
	if len(sameDay) > 0 {
		return Reject(CodeDailyLimitExceeded,
			"you already hold a reservation on %s", date.Format("2006-01-02"))
	}

	// The quota only caps near-term demand; a date past the window
	// cannot raise the in-window count, so it is exempt.
	if date.After(today.AddDate(0, 0, p.cfg.QuotaWindowDays)) {
		return nil
	}
	active, err := p.store.ActiveByUser(ctx, userID, today, today.AddDate(0, 0, p.cfg.QuotaWindowDays))
	if err != nil {
		return fmt.Errorf("load active reservations for user %d: %w", userID, err)
	}
	if len(active) >= p.cfg.ActiveQuota {
		return Reject(CodeActiveQuotaExceeded,
			"at most %d active reservations are allowed within %d days",
			p.cfg.ActiveQuota, p.cfg.QuotaWindowDays)
	}
	return nil
}

// CheckReschedule validates moving an existing reservation to newDate.
// Exactly one reschedule is allowed per reservation lifetime, the
// reservation must still be pending or approved, and the new date must
// precede the currently booked date by at least the configured cutoff.
func (p *Policy) CheckReschedule(r model.Reservation, newDate time.Time) error {
	if r.RescheduleCount > 0 {
		return Reject(CodeRescheduleNotAllowed, "reservation has already been rescheduled once")
	}
	if !r.Status.Active() {
		return Reject(CodeRescheduleNotAllowed, "only pending or approved reservations can be rescheduled")
	}
	newDate = timeslot.DateOf(newDate)
	cutoff := timeslot.DateOf(r.ReservationDate).AddDate(0, 0, -p.cfg.RescheduleCutoffDays)
	if newDate.After(cutoff) {
		return Reject(CodeRescheduleNotAllowed,
			"new date must be at least %d days before the booked date", p.cfg.RescheduleCutoffDays)
	}
	today := timeslot.DateOf(p.clock.Now())
	if newDate.Before(today) {
		return Reject(CodeOutsideBookingWindow, "new date must not be in the past")
	}
	return nil
}
