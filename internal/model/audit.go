package model

import "time"

// Audit categories used by the core workflow.
const (
	AuditCategoryReservation = "RESERVATION"
	AuditCategorySweep       = "SWEEP"
)

// AuditEntry records a single administrative or system action in the
// `audit_log` table.  Entries are append-only.  EntryID is a uuid
// string generated by the writer so entries can be referenced from
// logs without exposing row ids.
type AuditEntry struct {
	ID        uint64    // audit_log.id
	EntryID   string    // audit_log.entry_id (uuid)
	Action    string    // audit_log.action
	Category  string    // audit_log.category
	Details   string    // audit_log.details
	CreatedAt time.Time // audit_log.created_at
}
