package model

import "time"

// Facility status values as stored in the facilities.status column.
// A facility accepts new reservations only while it is available;
// maintenance and unavailable facilities reject every slot.
const (
	FacilityAvailable   = "AVAILABLE"
	FacilityMaintenance = "MAINTENANCE"
	FacilityUnavailable = "UNAVAILABLE"
)

// Facility represents a bookable municipal resource such as a meeting
// room, sports court or community hall.  This struct corresponds to a
// row in the `facilities` table.
//
// Fields:
//  ID                  – primary key identifier.
//  Name                – display name of the facility.
//  Description         – optional description shown to residents.
//  Location            – optional address or building reference.
//  Capacity            – maximum number of attendees (nil if unspecified).
//  Status              – AVAILABLE, MAINTENANCE or UNAVAILABLE.
//  AutoApprovalEnabled – whether submissions may bypass manual review.
//  OpenMinute          – start of the operating day in minutes from midnight.
//  CloseMinute         – end of the operating day in minutes from midnight.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Facility struct {
	ID                  uint64    // facilities.id
	Name                string    // facilities.name
	Description         *string   // facilities.description (nullable)
	Location            *string   // facilities.location (nullable)
	Capacity            *uint32   // facilities.capacity (nullable)
	Status              string    // facilities.status
	AutoApprovalEnabled bool      // facilities.auto_approval_enabled
	OpenMinute          int       // facilities.open_minute
	CloseMinute         int       // facilities.close_minute
	CreatedAt           time.Time // facilities.created_at
	UpdatedAt           time.Time // facilities.updated_at
}

// Bookable reports whether the facility currently accepts new
// reservations.  Facility status overrides all slot-level checks.
func (f Facility) Bookable() bool {
	return f.Status == FacilityAvailable
}
