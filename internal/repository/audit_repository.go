package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/civicworks/facility-reservation/internal/model"
)

// AuditRepo writes append-only audit_log rows.  LogAudit satisfies
// booking.Auditor for the sweeper; the API server publishes queue
// events instead and the consumer calls Insert.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert stores one audit entry.  An EntryID is generated when the
// caller did not set one.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_log (entry_id, action, category, details) VALUES (?,?,?,?)",
		e.EntryID, e.Action, e.Category, e.Details)
	return err
}

// LogAudit implements booking.Auditor.
func (r *AuditRepo) LogAudit(ctx context.Context, action, category, details string) error {
	return r.Insert(ctx, model.AuditEntry{Action: action, Category: category, Details: details})
}
