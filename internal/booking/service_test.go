package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/model"
)

var svcToday = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, verified map[uint64]bool) (*Service, *recordingNotifier, *recordingAuditor) {
	clk := clock.NewFixed(svcToday.Add(9 * time.Hour))
	notifier := &recordingNotifier{}
	auditor := &recordingAuditor{}
	svc := NewService(
		store,
		NewDetector(store),
		NewPolicy(store, clk, DefaultPolicyConfig()),
		NewEvaluator(&stubVerifier{verified: verified}),
		clk,
		WithNotifier(notifier),
		WithAuditor(auditor),
	)
	return svc, notifier, auditor
}

func resident(id uint64) Actor { return Actor{UserID: id, Role: model.RoleResident} }
func staff(id uint64) Actor    { return Actor{UserID: id, Role: model.RoleStaff} }

func TestServiceSubmit(t *testing.T) {
	t.Parallel()

	submitIn := func() SubmitInput {
		return SubmitInput{
			FacilityID:        1,
			Date:              svcToday.AddDate(0, 0, 5),
			Slot:              "10:00 - 11:00",
			Purpose:           "badminton practice",
			ExpectedAttendees: 8,
		}
	}

	t.Run("valid submission lands pending with history", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		svc, _, auditor := newTestService(store, nil)

		res, err := svc.Submit(context.Background(), resident(1), submitIn())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != model.StatusPending {
			t.Fatalf("status = %s, want PENDING", res.Status)
		}
		if res.Reference == "" {
			t.Fatal("reference not assigned")
		}
		if res.StartMin != 600 || res.EndMin != 660 {
			t.Fatalf("slot not normalized: [%d,%d)", res.StartMin, res.EndMin)
		}
		hist := store.historyFor(res.ID)
		if len(hist) != 1 || hist[0].Status != model.StatusPending {
			t.Fatalf("expected one pending history entry, got %+v", hist)
		}
		if len(auditor.actions) != 1 || auditor.actions[0] != "reservation.submitted" {
			t.Fatalf("audit actions = %v", auditor.actions)
		}
	})

	t.Run("malformed slot is rejected before policy", func(t *testing.T) {
		svc, _, _ := newTestService(newFakeStore(), nil)
		in := submitIn()
		in.Slot = "sometime in the afternoon"
		_, err := svc.Submit(context.Background(), resident(1), in)
		expectCode(t, err, CodeInvalidTimeSlot)
	})

	t.Run("auto-approval path", func(t *testing.T) {
		store := newFakeStore()
		fac := confFacility(1, model.FacilityAvailable)
		fac.AutoApprovalEnabled = true
		store.addFacility(fac)
		svc, notifier, auditor := newTestService(store, map[uint64]bool{1: true})

		res, err := svc.Submit(context.Background(), resident(1), submitIn())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != model.StatusApproved {
			t.Fatalf("status = %s, want APPROVED", res.Status)
		}
		if len(notifier.sent) != 1 || notifier.sent[0].Type != model.NotifyReservationApproved {
			t.Fatalf("notifications = %+v", notifier.sent)
		}
		if auditor.actions[0] != "reservation.auto_approved" {
			t.Fatalf("audit actions = %v", auditor.actions)
		}
	})

	t.Run("unverified user stays pending despite auto-approval flag", func(t *testing.T) {
		store := newFakeStore()
		fac := confFacility(1, model.FacilityAvailable)
		fac.AutoApprovalEnabled = true
		store.addFacility(fac)
		svc, _, _ := newTestService(store, map[uint64]bool{1: false})

		res, err := svc.Submit(context.Background(), resident(1), submitIn())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != model.StatusPending {
			t.Fatalf("status = %s, want PENDING", res.Status)
		}
	})

	t.Run("pending reservation blocks a second overlapping submission", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		svc, _, _ := newTestService(store, nil)

		first, err := svc.Submit(context.Background(), resident(1), submitIn())
		if err != nil {
			t.Fatalf("first submission failed: %v", err)
		}

		in := submitIn()
		in.Slot = "10:30 - 11:30"
		_, err = svc.Submit(context.Background(), resident(2), in)
		rej, ok := AsRejection(err)
		if !ok || rej.Code != CodeOverlap {
			t.Fatalf("expected overlap rejection, got %v", err)
		}
		if rej.ConflictingReservationID != first.ID {
			t.Fatalf("conflicting id = %d, want %d", rej.ConflictingReservationID, first.ID)
		}
		if len(rej.Alternatives) == 0 {
			t.Fatal("expected alternative slots in the rejection")
		}
	})

	t.Run("facility out of service rejects all slots", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityMaintenance))
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Submit(context.Background(), resident(1), submitIn())
		expectCode(t, err, CodeFacilityUnavailable)
	})

	t.Run("history failure rolls the insert back", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		store.historyErr = errors.New("history table gone")
		store.failHistoryOnce = true
		svc, _, _ := newTestService(store, nil)

		if _, err := svc.Submit(context.Background(), resident(1), submitIn()); err == nil {
			t.Fatal("expected error")
		}
		if len(store.reservations) != 0 {
			t.Fatalf("insert survived a failed history write: %+v", store.reservations)
		}
	})
}

func TestServiceTransitions(t *testing.T) {
	t.Parallel()

	seed := func(status model.ReservationStatus) (*fakeStore, model.Reservation) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		r := store.addReservation(model.Reservation{
			FacilityID:      1,
			UserID:          1,
			ReservationDate: svcToday.AddDate(0, 0, 5),
			TimeSlot:        "10:00 - 11:00",
			StartMin:        600, EndMin: 660,
			Status: status,
		})
		return store, r
	}

	t.Run("staff approves pending", func(t *testing.T) {
		store, r := seed(model.StatusPending)
		svc, notifier, _ := newTestService(store, nil)

		got, err := svc.Approve(context.Background(), staff(9), r.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != model.StatusApproved {
			t.Fatalf("status = %s", got.Status)
		}
		if len(store.historyFor(r.ID)) != 1 {
			t.Fatal("missing history entry")
		}
		if len(notifier.sent) != 1 || notifier.sent[0].UserID != 1 {
			t.Fatalf("notifications = %+v", notifier.sent)
		}
	})

	t.Run("resident cannot approve", func(t *testing.T) {
		store, r := seed(model.StatusPending)
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Approve(context.Background(), resident(1), r.ID)
		expectCode(t, err, CodeUnauthorized)
	})

	t.Run("staff denies pending with note", func(t *testing.T) {
		store, r := seed(model.StatusPending)
		svc, _, _ := newTestService(store, nil)
		got, err := svc.Deny(context.Background(), staff(9), r.ID, "double booking request")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != model.StatusDenied {
			t.Fatalf("status = %s", got.Status)
		}
		hist := store.historyFor(r.ID)
		if hist[0].Note != "double booking request" {
			t.Fatalf("note = %q", hist[0].Note)
		}
	})

	t.Run("system actor denies without a recorded user", func(t *testing.T) {
		store, r := seed(model.StatusPending)
		svc, _, _ := newTestService(store, nil)
		got, err := svc.Deny(context.Background(), SystemActor(), r.ID, "automated decline")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != model.StatusDenied {
			t.Fatalf("status = %s", got.Status)
		}
		if hist := store.historyFor(r.ID); hist[0].ActorID != nil {
			t.Fatalf("actor id = %v, want nil", *hist[0].ActorID)
		}
	})

	t.Run("approved cannot be denied", func(t *testing.T) {
		store, r := seed(model.StatusApproved)
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Deny(context.Background(), staff(9), r.ID, "")
		expectCode(t, err, CodeInvalidTransition)
	})

	t.Run("owner cancels, stranger cannot", func(t *testing.T) {
		store, r := seed(model.StatusApproved)
		svc, _, _ := newTestService(store, nil)

		_, err := svc.Cancel(context.Background(), resident(2), r.ID)
		expectCode(t, err, CodeUnauthorized)

		got, err := svc.Cancel(context.Background(), resident(1), r.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != model.StatusCancelled {
			t.Fatalf("status = %s", got.Status)
		}
	})

	t.Run("terminal states accept no further transitions", func(t *testing.T) {
		for _, st := range []model.ReservationStatus{model.StatusDenied, model.StatusCancelled, model.StatusCompleted} {
			store, r := seed(st)
			svc, _, _ := newTestService(store, nil)
			if _, err := svc.Approve(context.Background(), staff(9), r.ID); err == nil {
				t.Fatalf("approve on %s succeeded", st)
			}
			if _, err := svc.Cancel(context.Background(), staff(9), r.ID); err == nil {
				t.Fatalf("cancel on %s succeeded", st)
			}
		}
	})

	t.Run("complete requires an elapsed slot", func(t *testing.T) {
		store, r := seed(model.StatusApproved)
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Complete(context.Background(), staff(9), r.ID)
		expectCode(t, err, CodeInvalidTransition)

		// An approved reservation in the past completes fine.
		past := store.addReservation(model.Reservation{
			FacilityID:      1,
			UserID:          1,
			ReservationDate: svcToday.AddDate(0, 0, -2),
			StartMin:        600, EndMin: 660,
			Status: model.StatusApproved,
		})
		got, err := svc.Complete(context.Background(), staff(9), past.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != model.StatusCompleted {
			t.Fatalf("status = %s", got.Status)
		}
	})

	t.Run("unknown reservation", func(t *testing.T) {
		svc, _, _ := newTestService(newFakeStore(), nil)
		if _, err := svc.Approve(context.Background(), staff(9), 404); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestServiceReschedule(t *testing.T) {
	t.Parallel()

	seed := func() (*fakeStore, model.Reservation) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		r := store.addReservation(model.Reservation{
			FacilityID:      1,
			UserID:          1,
			ReservationDate: svcToday.AddDate(0, 0, 20),
			TimeSlot:        "10:00 - 11:00",
			StartMin:        600, EndMin: 660,
			Status: model.StatusApproved,
		})
		return store, r
	}
	newIn := func() RescheduleInput {
		return RescheduleInput{Date: svcToday.AddDate(0, 0, 10), Slot: "14:00 - 15:00"}
	}

	t.Run("approved reverts to pending and re-approval is required", func(t *testing.T) {
		store, r := seed()
		svc, notifier, _ := newTestService(store, nil)

		got, err := svc.Reschedule(context.Background(), resident(1), r.ID, newIn())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != model.StatusPending {
			t.Fatalf("status = %s, want PENDING", got.Status)
		}
		if got.RescheduleCount != 1 {
			t.Fatalf("rescheduleCount = %d", got.RescheduleCount)
		}
		if got.StartMin != 840 || got.EndMin != 900 {
			t.Fatalf("slot not updated: [%d,%d)", got.StartMin, got.EndMin)
		}
		if len(notifier.sent) != 1 || notifier.sent[0].Type != model.NotifyReservationUpdated {
			t.Fatalf("notifications = %+v", notifier.sent)
		}

		// A second reschedule must always fail.
		_, err = svc.Reschedule(context.Background(), resident(1), r.ID, RescheduleInput{
			Date: svcToday.AddDate(0, 0, 5), Slot: "09:00 - 10:00",
		})
		expectCode(t, err, CodeRescheduleNotAllowed)
	})

	t.Run("conflict against the new slot excludes the moved reservation", func(t *testing.T) {
		store, r := seed()
		// Occupy the target slot with someone else's booking.
		store.addReservation(model.Reservation{
			FacilityID:      1,
			UserID:          2,
			ReservationDate: svcToday.AddDate(0, 0, 10),
			StartMin:        840, EndMin: 900,
			Status: model.StatusPending,
		})
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Reschedule(context.Background(), resident(1), r.ID, newIn())
		expectCode(t, err, CodeOverlap)
	})

	t.Run("stranger cannot reschedule", func(t *testing.T) {
		store, r := seed()
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Reschedule(context.Background(), resident(2), r.ID, newIn())
		expectCode(t, err, CodeUnauthorized)
	})

	t.Run("inside cutoff rejected", func(t *testing.T) {
		store, r := seed()
		svc, _, _ := newTestService(store, nil)
		_, err := svc.Reschedule(context.Background(), resident(1), r.ID, RescheduleInput{
			Date: svcToday.AddDate(0, 0, 19), Slot: "14:00 - 15:00",
		})
		expectCode(t, err, CodeRescheduleNotAllowed)
	})
}
