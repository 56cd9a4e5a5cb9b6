package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// RoleSystem marks transitions performed by the service itself, such
// as the expiry sweep.  It is never stored on a user row.
const RoleSystem = "SYSTEM"

// Actor identifies who is requesting a transition.  There is no
// ambient session state; every operation receives its actor
// explicitly.
type Actor struct {
	UserID uint64
	Role   string
}

// Staff reports whether the actor holds staff or admin capability.
func (a Actor) Staff() bool {
	return a.Role == model.RoleStaff || a.Role == model.RoleAdmin
}

// System reports whether the actor is the service itself.
func (a Actor) System() bool {
	return a.Role == RoleSystem
}

// SystemActor returns the actor used for scheduled maintenance.
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

// Service drives the reservation lifecycle.  Every mutating operation
// runs its read-check-write sequence inside a Store transaction so the
// status change and its history entry commit together; notifications
// and audit entries are dispatched after commit and never roll a
// committed change back.
type Service struct {
	store    Store
	detector *Detector
	policy   *Policy
	eval     *Evaluator
	clock    clock.Clock
	notifier Notifier
	auditor  Auditor
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithNotifier attaches the notification sink.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithAuditor attaches the audit sink.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) { s.auditor = a }
}

// NewService wires the engine together.
func NewService(store Store, detector *Detector, policy *Policy, eval *Evaluator, clk clock.Clock, opts ...ServiceOption) *Service {
	svc := &Service{
		store:    store,
		detector: detector,
		policy:   policy,
		eval:     eval,
		clock:    clk,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SubmitInput carries a resident's reservation request.
type SubmitInput struct {
	FacilityID        uint64
	Date              time.Time
	Slot              string
	Purpose           string
	ExpectedAttendees uint32
}

// Submit validates and persists a new reservation request.  The flow
// is policy engine, conflict detector, auto-approval evaluator, then
// the insert; a persistence-level exclusion violation is translated
// into the same overlap rejection a detected conflict produces.
func (s *Service) Submit(ctx context.Context, actor Actor, in SubmitInput) (model.Reservation, error) {
	slot, err := timeslot.Parse(in.Slot, in.Date)
	if err != nil {
		return model.Reservation{}, Reject(CodeInvalidTimeSlot, "%v", err)
	}

	var res model.Reservation
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.policy.CheckSubmission(ctx, actor.UserID, slot.Date); err != nil {
			return err
		}

		conflict, err := s.detector.Check(ctx, in.FacilityID, slot, 0)
		if err != nil {
			return err
		}
		if conflict.HasConflict {
			return rejectionFor(conflict)
		}

		fac, err := s.store.FacilityByID(ctx, in.FacilityID)
		if err != nil {
			return err
		}

		status := model.StatusPending
		note := "Submitted; awaiting staff review"
		if s.eval.Eligible(ctx, fac, actor.UserID, conflict, nil) {
			status = model.StatusApproved
			note = "Auto-approved: verified identity, no conflicts, within policy"
		}

		res = model.Reservation{
			Reference:         uuid.NewString(),
			FacilityID:        in.FacilityID,
			UserID:            actor.UserID,
			ReservationDate:   slot.Date,
			TimeSlot:          slot.String(),
			StartMin:          slot.StartMin,
			EndMin:            slot.EndMin,
			Purpose:           in.Purpose,
			ExpectedAttendees: in.ExpectedAttendees,
			Status:            status,
		}
		if err := s.store.InsertReservation(ctx, &res); err != nil {
			if err == ErrSlotTaken {
				return Reject(CodeOverlap, "the requested slot was booked by a concurrent request")
			}
			return err
		}
		return s.store.AppendHistory(ctx, model.ReservationHistory{
			ReservationID: res.ID,
			Status:        status,
			Note:          note,
			ActorID:       actorID(actor),
		})
	})
	if err != nil {
		return model.Reservation{}, err
	}

	if res.Status == model.StatusApproved {
		s.notify(ctx, res.UserID, model.NotifyReservationApproved,
			"Reservation approved",
			fmt.Sprintf("Your reservation for %s %s was approved automatically.", res.ReservationDate.Format("2006-01-02"), res.TimeSlot),
			res.Reference)
		s.audit(ctx, "reservation.auto_approved", res)
	} else {
		s.audit(ctx, "reservation.submitted", res)
	}
	return res, nil
}

// Approve moves a pending reservation to approved.  Staff only.
func (s *Service) Approve(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	res, err := s.transition(ctx, actor, id, EventApprove, "Approved by staff", requireStaff)
	if err != nil {
		return model.Reservation{}, err
	}
	s.notify(ctx, res.UserID, model.NotifyReservationApproved,
		"Reservation approved",
		fmt.Sprintf("Your reservation for %s %s has been approved.", res.ReservationDate.Format("2006-01-02"), res.TimeSlot),
		res.Reference)
	s.audit(ctx, "reservation.approved", res)
	return res, nil
}

// Deny moves a pending reservation to denied.  Permitted for staff and
// for the system (the expiry sweep).  The note is recorded verbatim in
// the history trail.
func (s *Service) Deny(ctx context.Context, actor Actor, id uint64, note string) (model.Reservation, error) {
	if note == "" {
		note = "Denied by staff"
	}
	res, err := s.transition(ctx, actor, id, EventDeny, note, requireStaffOrSystem)
	if err != nil {
		return model.Reservation{}, err
	}
	s.notify(ctx, res.UserID, model.NotifyReservationDenied,
		"Reservation denied",
		fmt.Sprintf("Your reservation for %s %s was denied: %s", res.ReservationDate.Format("2006-01-02"), res.TimeSlot, note),
		res.Reference)
	s.audit(ctx, "reservation.denied", res)
	return res, nil
}

// Cancel moves a pending or approved reservation to cancelled.  The
// owning resident and staff may cancel.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	res, err := s.transition(ctx, actor, id, EventCancel, "Cancelled", requireOwnerOrStaff)
	if err != nil {
		return model.Reservation{}, err
	}
	s.notify(ctx, res.UserID, model.NotifyReservationUpdated,
		"Reservation cancelled",
		fmt.Sprintf("Your reservation for %s %s was cancelled.", res.ReservationDate.Format("2006-01-02"), res.TimeSlot),
		res.Reference)
	s.audit(ctx, "reservation.cancelled", res)
	return res, nil
}

// Complete marks an approved reservation whose slot has fully elapsed
// as completed.  Housekeeping only; staff or system.
func (s *Service) Complete(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Staff() && !actor.System() {
			return Reject(CodeUnauthorized, "only staff can complete reservations")
		}
		end := timeslot.New(res.ReservationDate, res.StartMin, res.EndMin).End()
		if !end.Before(s.clock.Now()) {
			return Reject(CodeInvalidTransition, "reservation has not finished yet")
		}
		return s.apply(ctx, &res, EventComplete, "Completed", actor)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.audit(ctx, "reservation.completed", res)
	return res, nil
}

// RescheduleInput carries the new date and slot for a reschedule.
type RescheduleInput struct {
	Date time.Time
	Slot string
}

// Reschedule moves a pending or approved reservation to a new date and
// slot.  At most one reschedule is allowed per reservation; an
// approved reservation reverts to pending so staff must approve the
// new slot.
func (s *Service) Reschedule(ctx context.Context, actor Actor, id uint64, in RescheduleInput) (model.Reservation, error) {
	slot, err := timeslot.Parse(in.Slot, in.Date)
	if err != nil {
		return model.Reservation{}, Reject(CodeInvalidTimeSlot, "%v", err)
	}

	var res model.Reservation
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Staff() && actor.UserID != res.UserID {
			return Reject(CodeUnauthorized, "not your reservation")
		}
		if err := s.policy.CheckReschedule(res, slot.Date); err != nil {
			return err
		}
		conflict, err := s.detector.Check(ctx, res.FacilityID, slot, res.ID)
		if err != nil {
			return err
		}
		if conflict.HasConflict {
			return rejectionFor(conflict)
		}

		next, ok := NextStatus(res.Status, EventReschedule)
		if !ok {
			return Reject(CodeInvalidTransition, "cannot reschedule a %s reservation", res.Status)
		}
		res.ReservationDate = slot.Date
		res.TimeSlot = slot.String()
		res.StartMin = slot.StartMin
		res.EndMin = slot.EndMin
		res.Status = next
		res.RescheduleCount++
		if err := s.store.UpdateSchedule(ctx, res); err != nil {
			if err == ErrSlotTaken {
				return Reject(CodeOverlap, "the requested slot was booked by a concurrent request")
			}
			return err
		}
		return s.store.AppendHistory(ctx, model.ReservationHistory{
			ReservationID: res.ID,
			Status:        next,
			Note:          fmt.Sprintf("Rescheduled to %s %s; re-approval required", slot.Date.Format("2006-01-02"), slot.String()),
			ActorID:       actorID(actor),
		})
	})
	if err != nil {
		return model.Reservation{}, err
	}

	s.notify(ctx, res.UserID, model.NotifyReservationUpdated,
		"Reservation rescheduled",
		fmt.Sprintf("Your reservation was moved to %s %s and is pending re-approval.", res.ReservationDate.Format("2006-01-02"), res.TimeSlot),
		res.Reference)
	s.audit(ctx, "reservation.rescheduled", res)
	return res, nil
}

// guard decides whether the actor may fire an event on a reservation.
type guard func(actor Actor, r model.Reservation) error

func requireStaff(actor Actor, _ model.Reservation) error {
	if !actor.Staff() {
		return Reject(CodeUnauthorized, "staff capability required")
	}
	return nil
}

func requireStaffOrSystem(actor Actor, r model.Reservation) error {
	if actor.System() {
		return nil
	}
	return requireStaff(actor, r)
}

func requireOwnerOrStaff(actor Actor, r model.Reservation) error {
	if actor.Staff() || actor.UserID == r.UserID {
		return nil
	}
	return Reject(CodeUnauthorized, "not your reservation")
}

// transition runs the common load-guard-apply sequence for simple
// status changes.
func (s *Service) transition(ctx context.Context, actor Actor, id uint64, event Event, note string, g guard) (model.Reservation, error) {
	var res model.Reservation
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if err := g(actor, res); err != nil {
			return err
		}
		return s.apply(ctx, &res, event, note, actor)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// apply advances the state machine and appends the history entry.  The
// caller must already hold a transaction.
func (s *Service) apply(ctx context.Context, r *model.Reservation, event Event, note string, actor Actor) error {
	next, ok := NextStatus(r.Status, event)
	if !ok {
		return Reject(CodeInvalidTransition, "cannot %s a %s reservation", event, r.Status)
	}
	if err := s.store.UpdateStatus(ctx, r.ID, next); err != nil {
		return err
	}
	r.Status = next
	return s.store.AppendHistory(ctx, model.ReservationHistory{
		ReservationID: r.ID,
		Status:        next,
		Note:          note,
		ActorID:       actorID(actor),
	})
}

// rejectionFor converts a ConflictResult into the rejection surfaced
// to the caller.
func rejectionFor(c ConflictResult) *Rejection {
	if c.Reason == ReasonFacilityUnavailable {
		return Reject(CodeFacilityUnavailable, "facility is not accepting reservations")
	}
	return &Rejection{
		Code:                     CodeOverlap,
		Message:                  "the requested slot overlaps an existing reservation",
		ConflictingReservationID: c.ConflictingReservationID,
		Alternatives:             c.Alternatives,
	}
}

func actorID(a Actor) *uint64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// notify and audit are fire-and-forget: failures are logged, never
// returned, and never roll back the committed transition.
func (s *Service) notify(ctx context.Context, userID uint64, typ, title, message, link string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, typ, title, message, link); err != nil {
		log.Printf("booking: notify user %d (%s) failed: %v", userID, typ, err)
	}
}

func (s *Service) audit(ctx context.Context, action string, r model.Reservation) {
	if s.auditor == nil {
		return
	}
	details := fmt.Sprintf("reservation=%d user=%d facility=%d date=%s slot=%q status=%s",
		r.ID, r.UserID, r.FacilityID, r.ReservationDate.Format("2006-01-02"), r.TimeSlot, r.Status)
	if err := s.auditor.LogAudit(ctx, action, model.AuditCategoryReservation, details); err != nil {
		log.Printf("booking: audit %s failed: %v", action, err)
	}
}
