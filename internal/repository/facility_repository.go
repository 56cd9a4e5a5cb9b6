package repository

import (
	"context"
	"database/sql"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/model"
)

// FacilityRepo provides read access to the facilities catalogue.
// Facility management (create/update) is an admin back-office concern
// handled outside the reservation portal.
type FacilityRepo struct{ DB *sql.DB }

func NewFacilityRepo(db *sql.DB) *FacilityRepo { return &FacilityRepo{DB: db} }

const facilityCols = `id, name, description, location, capacity, status,
auto_approval_enabled, open_minute, close_minute, created_at, updated_at`

// GetByID fetches one facility.
func (r *FacilityRepo) GetByID(ctx context.Context, id uint64) (model.Facility, error) {
	var f model.Facility
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+facilityCols+" FROM facilities WHERE id=? LIMIT 1", id).Scan(
		&f.ID, &f.Name, &f.Description, &f.Location, &f.Capacity, &f.Status,
		&f.AutoApprovalEnabled, &f.OpenMinute, &f.CloseMinute, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Facility{}, booking.ErrNotFound
	}
	return f, err
}

// List returns the catalogue ordered by name.  Facilities in any
// status are returned; the portal shows unavailable ones greyed out.
func (r *FacilityRepo) List(ctx context.Context) ([]model.Facility, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+facilityCols+" FROM facilities ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Facility
	for rows.Next() {
		var f model.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.Location, &f.Capacity, &f.Status,
			&f.AutoApprovalEnabled, &f.OpenMinute, &f.CloseMinute, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
