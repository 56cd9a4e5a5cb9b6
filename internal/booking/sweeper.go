package booking

import (
	"context"
	"fmt"
	"log"

	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// AutoDeclineNote is the history note recorded when the sweep denies
// an expired pending reservation.
const AutoDeclineNote = "Auto-declined: Reservation date/time has passed."

// Sweeper is the scheduled batch job that force-denies pending
// reservations whose slot end has elapsed.  Each reservation is
// processed in its own transaction so one failure never aborts the
// rest of the batch, and a second run over the same data is a no-op.
type Sweeper struct {
	store    Store
	clock    clock.Clock
	notifier Notifier
	auditor  Auditor
}

// SweeperOption configures optional collaborators.
type SweeperOption func(*Sweeper)

// SweeperNotifier attaches the notification sink.
func SweeperNotifier(n Notifier) SweeperOption {
	return func(s *Sweeper) { s.notifier = n }
}

// SweeperAuditor attaches the audit sink.
func SweeperAuditor(a Auditor) SweeperOption {
	return func(s *Sweeper) { s.auditor = a }
}

// NewSweeper builds a Sweeper.
func NewSweeper(store Store, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{store: store, clock: clk}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// SweepFailure records one reservation the sweep could not process.
type SweepFailure struct {
	ReservationID uint64
	Err           error
}

// SweepReport summarizes one sweep execution.  Declined counts
// reservations transitioned (or, in dry-run mode, that would be
// transitioned); Skipped counts rows that left pending between the
// scan and the per-record transaction.
type SweepReport struct {
	DryRun   bool
	Scanned  int
	Declined int
	Skipped  int
	Failures []SweepFailure
	Declines []model.Reservation
}

// Run executes one sweep.  The returned error is non-nil only for
// infrastructure failures that abort the whole batch; per-record
// failures are collected in the report.  In dry-run mode no mutating
// operation is called.
func (s *Sweeper) Run(ctx context.Context, dryRun bool) (SweepReport, error) {
	now := s.clock.Now()
	expired, err := s.store.ExpiredPending(ctx, now)
	if err != nil {
		return SweepReport{}, fmt.Errorf("scan expired pending reservations: %w", err)
	}

	report := SweepReport{DryRun: dryRun, Scanned: len(expired)}
	for _, r := range expired {
		if dryRun {
			report.Declined++
			report.Declines = append(report.Declines, r)
			continue
		}
		declined, err := s.declineOne(ctx, r.ID)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{ReservationID: r.ID, Err: err})
			continue
		}
		if !declined {
			report.Skipped++
			continue
		}
		report.Declined++
		report.Declines = append(report.Declines, r)
		s.sideEffects(ctx, r)
	}

	if !dryRun && s.auditor != nil {
		details := fmt.Sprintf("scanned=%d declined=%d skipped=%d failed=%d",
			report.Scanned, report.Declined, report.Skipped, len(report.Failures))
		if err := s.auditor.LogAudit(ctx, "sweep.completed", model.AuditCategorySweep, details); err != nil {
			log.Printf("sweep: audit summary failed: %v", err)
		}
	}
	return report, nil
}

// declineOne transitions a single reservation inside its own
// transaction.  It re-reads the row first so a reservation approved,
// cancelled or already declined since the scan is left untouched.
func (s *Sweeper) declineOne(ctx context.Context, id uint64) (bool, error) {
	declined := false
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.store.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != model.StatusPending {
			return nil
		}
		end := timeslot.New(r.ReservationDate, r.StartMin, r.EndMin).End()
		if !end.Before(s.clock.Now()) {
			return nil
		}
		if err := s.store.UpdateStatus(ctx, r.ID, model.StatusDenied); err != nil {
			return err
		}
		if err := s.store.AppendHistory(ctx, model.ReservationHistory{
			ReservationID: r.ID,
			Status:        model.StatusDenied,
			Note:          AutoDeclineNote,
		}); err != nil {
			return err
		}
		declined = true
		return nil
	})
	return declined, err
}

// sideEffects emits the user notification and audit entry for one
// declined reservation.  These are not transactionally coupled with
// the status change: a failure here is logged and reported, never
// rolled back.
func (s *Sweeper) sideEffects(ctx context.Context, r model.Reservation) {
	if s.notifier != nil {
		msg := fmt.Sprintf("Your pending reservation for %s %s was automatically declined because the date has passed.",
			r.ReservationDate.Format("2006-01-02"), r.TimeSlot)
		if err := s.notifier.Notify(ctx, r.UserID, model.NotifyReservationExpired, "Reservation expired", msg, r.Reference); err != nil {
			log.Printf("sweep: notify user %d for reservation %d failed: %v", r.UserID, r.ID, err)
		}
	}
	if s.auditor != nil {
		details := fmt.Sprintf("reservation=%d user=%d facility=%d date=%s slot=%q",
			r.ID, r.UserID, r.FacilityID, r.ReservationDate.Format("2006-01-02"), r.TimeSlot)
		if err := s.auditor.LogAudit(ctx, "sweep.auto_declined", model.AuditCategorySweep, details); err != nil {
			log.Printf("sweep: audit reservation %d failed: %v", r.ID, err)
		}
	}
}
