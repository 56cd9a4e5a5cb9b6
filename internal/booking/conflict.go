package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// ConflictReason classifies why a candidate slot was refused.
type ConflictReason string

const (
	ReasonFacilityUnavailable ConflictReason = "FACILITY_UNAVAILABLE"
	ReasonOverlap             ConflictReason = "OVERLAP"
)

// ConflictResult is the outcome of a conflict check.  When the reason
// is an overlap it carries the first conflicting reservation id and up
// to a bounded number of free alternative slots ordered by proximity
// to the requested one.
type ConflictResult struct {
	HasConflict              bool
	Reason                   ConflictReason
	ConflictingReservationID uint64
	Alternatives             []timeslot.TimeSlot
}

// activeStatuses is the default status filter: pending reservations are
// provisional holds and block overlapping submissions just like
// approved ones.
var activeStatuses = []model.ReservationStatus{model.StatusPending, model.StatusApproved}

// Detector answers whether a candidate (facility, date, slot) collides
// with an existing active reservation.  It is read-only and safe to
// call for hypothetical dates, which is how the availability-preview
// endpoint uses it.
type Detector struct {
	store           Store
	granularityMin  int
	maxAlternatives int
}

// NewDetector builds a Detector.  Alternatives are generated on an
// hourly grid and capped at three suggestions.
func NewDetector(store Store) *Detector {
	return &Detector{store: store, granularityMin: 60, maxAlternatives: 3}
}

// Check runs the conflict algorithm for the candidate slot.
// excludeID, when non-zero, removes the reservation being rescheduled
// from consideration.  Facility status overrides everything: a
// facility that is not available refuses all slots with no overlap
// scan and no alternatives.
func (d *Detector) Check(ctx context.Context, facilityID uint64, slot timeslot.TimeSlot, excludeID uint64) (ConflictResult, error) {
	fac, err := d.store.FacilityByID(ctx, facilityID)
	if err != nil {
		return ConflictResult{}, fmt.Errorf("load facility %d: %w", facilityID, err)
	}
	if !fac.Bookable() {
		return ConflictResult{HasConflict: true, Reason: ReasonFacilityUnavailable}, nil
	}

	existing, err := d.store.ActiveByFacilityAndDate(ctx, facilityID, slot.Date, activeStatuses)
	if err != nil {
		return ConflictResult{}, fmt.Errorf("load reservations for facility %d on %s: %w",
			facilityID, slot.Date.Format("2006-01-02"), err)
	}

	for _, r := range existing {
		if r.ID == excludeID {
			continue
		}
		if slot.Overlaps(timeslot.New(r.ReservationDate, r.StartMin, r.EndMin)) {
			return ConflictResult{
				HasConflict:              true,
				Reason:                   ReasonOverlap,
				ConflictingReservationID: r.ID,
				Alternatives:             d.alternatives(fac, slot, existing, excludeID),
			}, nil
		}
	}
	return ConflictResult{}, nil
}

// DaySlots returns every candidate slot of the facility's operating day
// with its availability, for the read-only preview endpoint.  Slots are
// generated on the detector grid with the facility's default duration
// of one granularity step.
func (d *Detector) DaySlots(ctx context.Context, facilityID uint64, date time.Time) (map[string]bool, error) {
	fac, err := d.store.FacilityByID(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load facility %d: %w", facilityID, err)
	}
	out := make(map[string]bool)
	if !fac.Bookable() {
		return out, nil
	}
	existing, err := d.store.ActiveByFacilityAndDate(ctx, facilityID, timeslot.DateOf(date), activeStatuses)
	if err != nil {
		return nil, err
	}
	for _, cand := range d.grid(fac, timeslot.DateOf(date), d.granularityMin) {
		out[cand.String()] = !overlapsAny(cand, existing, 0)
	}
	return out, nil
}

// alternatives partitions the operating day into candidate slots with
// the same duration as the request and returns the closest free ones.
func (d *Detector) alternatives(fac model.Facility, requested timeslot.TimeSlot, existing []model.Reservation, excludeID uint64) []timeslot.TimeSlot {
	duration := requested.EndMin - requested.StartMin
	var free []timeslot.TimeSlot
	for _, cand := range d.grid(fac, requested.Date, duration) {
		if cand.StartMin == requested.StartMin {
			continue
		}
		if !overlapsAny(cand, existing, excludeID) {
			free = append(free, cand)
		}
	}
	sort.SliceStable(free, func(i, j int) bool {
		return distance(free[i].StartMin, requested.StartMin) < distance(free[j].StartMin, requested.StartMin)
	})
	if len(free) > d.maxAlternatives {
		free = free[:d.maxAlternatives]
	}
	return free
}

// grid generates candidate slots of the given duration across the
// facility's operating day, stepping by the detector granularity.
func (d *Detector) grid(fac model.Facility, date time.Time, durationMin int) []timeslot.TimeSlot {
	var out []timeslot.TimeSlot
	for start := fac.OpenMinute; start+durationMin <= fac.CloseMinute; start += d.granularityMin {
		out = append(out, timeslot.New(date, start, start+durationMin))
	}
	return out
}

func overlapsAny(cand timeslot.TimeSlot, existing []model.Reservation, excludeID uint64) bool {
	for _, r := range existing {
		if r.ID == excludeID {
			continue
		}
		if cand.Overlaps(timeslot.New(r.ReservationDate, r.StartMin, r.EndMin)) {
			return true
		}
	}
	return false
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
