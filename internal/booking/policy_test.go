package booking

import (
	"context"
	"testing"
	"time"

	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/model"
)

var polToday = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newPolicy(store *fakeStore) *Policy {
	// Clock mid-morning so date truncation matters.
	return NewPolicy(store, clock.NewFixed(polToday.Add(10*time.Hour)), DefaultPolicyConfig())
}

func expectCode(t *testing.T, err error, code RejectionCode) {
	t.Helper()
	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("expected rejection %s, got %v", code, err)
	}
	if rej.Code != code {
		t.Fatalf("rejection code = %s, want %s", rej.Code, code)
	}
}

func TestPolicyCheckSubmission(t *testing.T) {
	t.Parallel()

	t.Run("window boundaries", func(t *testing.T) {
		p := newPolicy(newFakeStore())
		ctx := context.Background()

		if err := p.CheckSubmission(ctx, 1, polToday); err != nil {
			t.Fatalf("today must be allowed: %v", err)
		}
		if err := p.CheckSubmission(ctx, 1, polToday.AddDate(0, 0, 60)); err != nil {
			t.Fatalf("today+60 must be allowed: %v", err)
		}
		expectCode(t, p.CheckSubmission(ctx, 1, polToday.AddDate(0, 0, 61)), CodeOutsideBookingWindow)
		expectCode(t, p.CheckSubmission(ctx, 1, polToday.AddDate(0, 0, -1)), CodeOutsideBookingWindow)
	})

	t.Run("daily cap counts pending and approved across facilities", func(t *testing.T) {
		for _, st := range []model.ReservationStatus{model.StatusPending, model.StatusApproved} {
			store := newFakeStore()
			store.addReservation(model.Reservation{
				UserID: 1, FacilityID: 5,
				ReservationDate: polToday.AddDate(0, 0, 10),
				StartMin:        600, EndMin: 660,
				Status: st,
			})
			p := newPolicy(store)
			expectCode(t, p.CheckSubmission(context.Background(), 1, polToday.AddDate(0, 0, 10)), CodeDailyLimitExceeded)
		}
	})

	t.Run("cancelled reservation does not count toward the daily cap", func(t *testing.T) {
		store := newFakeStore()
		store.addReservation(model.Reservation{
			UserID:          1,
			ReservationDate: polToday.AddDate(0, 0, 10),
			StartMin:        600, EndMin: 660,
			Status: model.StatusCancelled,
		})
		p := newPolicy(store)
		if err := p.CheckSubmission(context.Background(), 1, polToday.AddDate(0, 0, 10)); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	})

	t.Run("active quota inside 30 days", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 3; i++ {
			store.addReservation(model.Reservation{
				UserID:          1,
				FacilityID:      uint64(i + 1),
				ReservationDate: polToday.AddDate(0, 0, i+1),
				StartMin:        600, EndMin: 660,
				Status: model.StatusPending,
			})
		}
		p := newPolicy(store)
		expectCode(t, p.CheckSubmission(context.Background(), 1, polToday.AddDate(0, 0, 20)), CodeActiveQuotaExceeded)

		// A different user is unaffected.
		if err := p.CheckSubmission(context.Background(), 2, polToday.AddDate(0, 0, 20)); err != nil {
			t.Fatalf("other user rejected: %v", err)
		}
	})

	t.Run("quota does not block dates beyond the quota window", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 3; i++ {
			store.addReservation(model.Reservation{
				UserID:          1,
				FacilityID:      uint64(i + 1),
				ReservationDate: polToday.AddDate(0, 0, i+1),
				StartMin:        600, EndMin: 660,
				Status: model.StatusPending,
			})
		}
		p := newPolicy(store)
		// The quota counts reservations inside the window; a request for
		// a date past it leaves that count untouched and must go through.
		if err := p.CheckSubmission(context.Background(), 1, polToday.AddDate(0, 0, 40)); err != nil {
			t.Fatalf("date beyond the quota window rejected: %v", err)
		}
		// The window boundary itself is still covered by the quota.
		expectCode(t, p.CheckSubmission(context.Background(), 1, polToday.AddDate(0, 0, 30)), CodeActiveQuotaExceeded)
	})

	t.Run("reservations beyond the quota window do not count", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 3; i++ {
			store.addReservation(model.Reservation{
				UserID:          1,
				FacilityID:      uint64(i + 1),
				ReservationDate: polToday.AddDate(0, 0, 40+i),
				StartMin:        600, EndMin: 660,
				Status: model.StatusApproved,
			})
		}
		p := newPolicy(store)
		if err := p.CheckSubmission(context.Background(), 1, polToday.AddDate(0, 0, 5)); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	})
}

func TestPolicyCheckReschedule(t *testing.T) {
	t.Parallel()

	p := newPolicy(newFakeStore())
	booked := model.Reservation{
		ID: 1, UserID: 1,
		ReservationDate: polToday.AddDate(0, 0, 20),
		Status:          model.StatusApproved,
	}

	t.Run("allowed when cutoff satisfied", func(t *testing.T) {
		if err := p.CheckReschedule(booked, polToday.AddDate(0, 0, 10)); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
		// Exactly at the cutoff.
		if err := p.CheckReschedule(booked, polToday.AddDate(0, 0, 17)); err != nil {
			t.Fatalf("cutoff boundary rejected: %v", err)
		}
	})

	t.Run("inside the cutoff is rejected", func(t *testing.T) {
		expectCode(t, p.CheckReschedule(booked, polToday.AddDate(0, 0, 18)), CodeRescheduleNotAllowed)
		expectCode(t, p.CheckReschedule(booked, polToday.AddDate(0, 0, 25)), CodeRescheduleNotAllowed)
	})

	t.Run("second reschedule always rejected", func(t *testing.T) {
		moved := booked
		moved.RescheduleCount = 1
		expectCode(t, p.CheckReschedule(moved, polToday.AddDate(0, 0, 10)), CodeRescheduleNotAllowed)
	})

	t.Run("terminal statuses cannot be rescheduled", func(t *testing.T) {
		for _, st := range []model.ReservationStatus{model.StatusDenied, model.StatusCancelled, model.StatusCompleted} {
			r := booked
			r.Status = st
			expectCode(t, p.CheckReschedule(r, polToday.AddDate(0, 0, 10)), CodeRescheduleNotAllowed)
		}
	})

	t.Run("new date in the past is rejected", func(t *testing.T) {
		expectCode(t, p.CheckReschedule(booked, polToday.AddDate(0, 0, -1)), CodeOutsideBookingWindow)
	})
}
