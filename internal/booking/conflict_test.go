package booking

import (
	"context"
	"testing"
	"time"

	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

var confDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func confFacility(id uint64, status string) model.Facility {
	return model.Facility{
		ID:          id,
		Name:        "Community Hall",
		Status:      status,
		OpenMinute:  9 * 60,
		CloseMinute: 21 * 60,
	}
}

func TestDetectorCheck(t *testing.T) {
	t.Parallel()

	t.Run("facility status overrides slot checks", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityMaintenance))
		det := NewDetector(store)

		slot, _ := timeslot.Parse("10:00 - 11:00", confDate)
		got, err := det.Check(context.Background(), 1, slot, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.HasConflict || got.Reason != ReasonFacilityUnavailable {
			t.Fatalf("expected facility-unavailable conflict, got %+v", got)
		}
		if len(got.Alternatives) != 0 {
			t.Fatalf("unavailable facility must not suggest alternatives")
		}
	})

	t.Run("unknown facility is an error, not a conflict", func(t *testing.T) {
		det := NewDetector(newFakeStore())
		slot, _ := timeslot.Parse("10:00 - 11:00", confDate)
		if _, err := det.Check(context.Background(), 99, slot, 0); err == nil {
			t.Fatal("expected error for missing facility")
		}
	})

	t.Run("pending reservation blocks an overlapping slot", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		existing := store.addReservation(model.Reservation{
			FacilityID:      1,
			UserID:          7,
			ReservationDate: confDate,
			StartMin:        600, EndMin: 660,
			Status: model.StatusPending,
		})
		det := NewDetector(store)

		slot, _ := timeslot.Parse("10:30 - 11:30", confDate)
		got, err := det.Check(context.Background(), 1, slot, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.HasConflict || got.Reason != ReasonOverlap {
			t.Fatalf("expected overlap, got %+v", got)
		}
		if got.ConflictingReservationID != existing.ID {
			t.Fatalf("conflicting id = %d, want %d", got.ConflictingReservationID, existing.ID)
		}
	})

	t.Run("adjacent slots do not conflict", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		store.addReservation(model.Reservation{
			FacilityID: 1, ReservationDate: confDate,
			StartMin: 600, EndMin: 660, Status: model.StatusApproved,
		})
		det := NewDetector(store)

		slot, _ := timeslot.Parse("11:00 - 12:00", confDate)
		got, err := det.Check(context.Background(), 1, slot, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.HasConflict {
			t.Fatalf("adjacent slot flagged as conflict: %+v", got)
		}
	})

	t.Run("terminal statuses do not block", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		for _, st := range []model.ReservationStatus{model.StatusDenied, model.StatusCancelled, model.StatusCompleted} {
			store.addReservation(model.Reservation{
				FacilityID: 1, ReservationDate: confDate,
				StartMin: 600, EndMin: 660, Status: st,
			})
		}
		det := NewDetector(store)

		slot, _ := timeslot.Parse("10:00 - 11:00", confDate)
		got, err := det.Check(context.Background(), 1, slot, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.HasConflict {
			t.Fatalf("terminal reservation blocked the slot: %+v", got)
		}
	})

	t.Run("exclude id skips the reservation being moved", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		mine := store.addReservation(model.Reservation{
			FacilityID: 1, ReservationDate: confDate,
			StartMin: 600, EndMin: 660, Status: model.StatusApproved,
		})
		det := NewDetector(store)

		slot, _ := timeslot.Parse("10:00 - 11:00", confDate)
		got, err := det.Check(context.Background(), 1, slot, mine.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.HasConflict {
			t.Fatalf("reservation conflicted with itself during reschedule check: %+v", got)
		}
	})

	t.Run("alternatives are free, bounded and ordered by proximity", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(1, model.FacilityAvailable))
		// Occupy 10:00-11:00 and 11:00-12:00.
		store.addReservation(model.Reservation{
			FacilityID: 1, ReservationDate: confDate,
			StartMin: 600, EndMin: 660, Status: model.StatusPending,
		})
		store.addReservation(model.Reservation{
			FacilityID: 1, ReservationDate: confDate,
			StartMin: 660, EndMin: 720, Status: model.StatusApproved,
		})
		det := NewDetector(store)

		slot, _ := timeslot.Parse("10:00 - 11:00", confDate)
		got, err := det.Check(context.Background(), 1, slot, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.HasConflict {
			t.Fatal("expected conflict")
		}
		if len(got.Alternatives) == 0 || len(got.Alternatives) > 3 {
			t.Fatalf("expected 1..3 alternatives, got %d", len(got.Alternatives))
		}
		// Closest free hourly starts around 10:00 are 09:00 and 12:00.
		if got.Alternatives[0].StartMin != 540 {
			t.Fatalf("first alternative starts at %d, want 540 (09:00)", got.Alternatives[0].StartMin)
		}
		booked := []int{600, 660}
		for _, alt := range got.Alternatives {
			for _, b := range booked {
				if alt.StartMin < b+60 && b < alt.EndMin {
					t.Fatalf("alternative %s overlaps a booked slot", alt)
				}
			}
		}
	})
}

func TestDetectorDaySlots(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addFacility(confFacility(1, model.FacilityAvailable))
	store.addReservation(model.Reservation{
		FacilityID: 1, ReservationDate: confDate,
		StartMin: 600, EndMin: 660, Status: model.StatusPending,
	})
	det := NewDetector(store)

	slots, err := det.DaySlots(context.Background(), 1, confDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Operating day 09:00-21:00 on an hourly grid yields 12 slots.
	if len(slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(slots))
	}
	if slots["10:00 - 11:00"] {
		t.Fatal("booked slot reported available")
	}
	if !slots["09:00 - 10:00"] {
		t.Fatal("free slot reported unavailable")
	}

	t.Run("unavailable facility reports no slots", func(t *testing.T) {
		store := newFakeStore()
		store.addFacility(confFacility(2, model.FacilityUnavailable))
		det := NewDetector(store)
		slots, err := det.DaySlots(context.Background(), 2, confDate)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 0 {
			t.Fatalf("expected no slots, got %d", len(slots))
		}
	})
}
