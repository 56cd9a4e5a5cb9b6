// Package timeslot normalizes the portal's display form of a booking
// interval ("10:00 - 11:00") into a comparable value type.  All
// comparisons in the conflict engine run on minute-of-day bounds; the
// display string is kept only for rendering.
package timeslot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimeSlot is returned when a slot string cannot be parsed
// into a valid same-day interval.  Slots crossing midnight are not
// supported; an end at or before the start is an input error, not an
// overnight booking.
var ErrInvalidTimeSlot = errors.New("invalid time slot")

// TimeSlot is a value type describing one contiguous interval on a
// calendar date.  StartMin and EndMin are minutes from midnight and
// the interval is half-open: [StartMin, EndMin).
type TimeSlot struct {
	Date     time.Time // midnight UTC of the booking date
	StartMin int
	EndMin   int
}

// Parse converts a display string into a TimeSlot on the given date.
// The string must contain two wall-clock times separated by "-", e.g.
// "10:00 - 11:00" or "10:00-11:00".  The end must be strictly after
// the start.  The returned slot's Date is the date truncated to
// midnight UTC.
func Parse(raw string, date time.Time) (TimeSlot, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return TimeSlot{}, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, raw)
	}
	start, err := minuteOfDay(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeSlot{}, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, raw)
	}
	end, err := minuteOfDay(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeSlot{}, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, raw)
	}
	if end <= start {
		return TimeSlot{}, fmt.Errorf("%w: end must be after start in %q", ErrInvalidTimeSlot, raw)
	}
	return TimeSlot{Date: DateOf(date), StartMin: start, EndMin: end}, nil
}

// New builds a TimeSlot directly from minute bounds.  It is used when
// reading normalized bounds back from the database.
func New(date time.Time, startMin, endMin int) TimeSlot {
	return TimeSlot{Date: DateOf(date), StartMin: startMin, EndMin: endMin}
}

// Overlaps reports whether two slots intersect.  Slots on different
// dates never overlap.  The predicate is symmetric and total.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	if !s.Date.Equal(o.Date) {
		return false
	}
	return s.StartMin < o.EndMin && o.StartMin < s.EndMin
}

// End returns the instant at which the slot finishes.
func (s TimeSlot) End() time.Time {
	return s.Date.Add(time.Duration(s.EndMin) * time.Minute)
}

// String renders the slot back into the portal's display form.
func (s TimeSlot) String() string {
	return FormatMinute(s.StartMin) + " - " + FormatMinute(s.EndMin)
}

// FormatMinute renders a minute-of-day value as "HH:MM".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// DateOf truncates an instant to midnight UTC so that two bookings on
// the same calendar day always carry identical Date values.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// minuteOfDay parses a single "HH:MM" token.
func minuteOfDay(token string) (int, error) {
	t, err := time.Parse("15:04", token)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
