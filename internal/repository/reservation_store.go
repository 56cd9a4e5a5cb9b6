package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// ReservationStore provides data access to the reservations and
// reservation_history tables and implements booking.Store.  All
// timestamp fields are stored in UTC; reservation_date is a DATE
// column and slot bounds are stored normalized as start_min/end_min at
// write time so the conflict engine never parses display strings at
// query time.
//
// The "at most one active reservation per overlapping slot" invariant
// is enforced twice: an overlap re-check runs under a FOR UPDATE lock
// of the facility row inside the caller's transaction, and a unique
// index on (facility_id, reservation_date, start_min, end_min,
// is_active) catches exact-bucket duplicates that race past the check.
// is_active is 1 for pending/approved rows and NULL for terminal ones,
// so terminal rows never collide.
type ReservationStore struct {
	db *sql.DB
}

// NewReservationStore returns a store bound to the given database.
func NewReservationStore(db *sql.DB) *ReservationStore { return &ReservationStore{db: db} }

// WithTx implements booking.Store.
func (s *ReservationStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

const reservationCols = `id, reference, facility_id, user_id, reservation_date, time_slot,
start_min, end_min, purpose, expected_attendees, status, reschedule_count, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var r model.Reservation
	var status string
	err := row.Scan(&r.ID, &r.Reference, &r.FacilityID, &r.UserID, &r.ReservationDate, &r.TimeSlot,
		&r.StartMin, &r.EndMin, &r.Purpose, &r.ExpectedAttendees, &status, &r.RescheduleCount,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	r.Status = model.ReservationStatus(status)
	r.ReservationDate = timeslot.DateOf(r.ReservationDate)
	return r, nil
}

// FacilityByID implements booking.Store.
func (s *ReservationStore) FacilityByID(ctx context.Context, id uint64) (model.Facility, error) {
	const q = `SELECT id, name, description, location, capacity, status, auto_approval_enabled,
open_minute, close_minute, created_at, updated_at FROM facilities WHERE id = ?`
	var f model.Facility
	err := pick(ctx, s.db).QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.Name, &f.Description, &f.Location, &f.Capacity, &f.Status,
		&f.AutoApprovalEnabled, &f.OpenMinute, &f.CloseMinute, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Facility{}, booking.ErrNotFound
	}
	if err != nil {
		return model.Facility{}, err
	}
	return f, nil
}

// ReservationByID implements booking.Store.
func (s *ReservationStore) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := scanReservation(pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, err
}

// ActiveByFacilityAndDate implements booking.Store.
func (s *ReservationStore) ActiveByFacilityAndDate(ctx context.Context, facilityID uint64, date time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations
WHERE facility_id = ? AND reservation_date = ? AND status IN (`
	args := []any{facilityID, timeslot.DateOf(date).Format("2006-01-02")}
	for i, st := range statuses {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, string(st))
	}
	q += `) ORDER BY start_min`
	return s.queryReservations(ctx, q, args...)
}

// ActiveByUser implements booking.Store.
func (s *ReservationStore) ActiveByUser(ctx context.Context, userID uint64, from, to time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE user_id = ? AND status IN ('PENDING','APPROVED') AND reservation_date BETWEEN ? AND ?
ORDER BY reservation_date, start_min`
	return s.queryReservations(ctx, q, userID,
		timeslot.DateOf(from).Format("2006-01-02"), timeslot.DateOf(to).Format("2006-01-02"))
}

// InsertReservation implements booking.Store.  The facility row is
// locked first so two racing submissions for the same facility
// serialize; the overlap re-check then runs against committed and
// in-flight rows.
func (s *ReservationStore) InsertReservation(ctx context.Context, r *model.Reservation) error {
	q := pick(ctx, s.db)
	if err := s.lockFacility(ctx, r.FacilityID); err != nil {
		return err
	}
	taken, err := s.overlapExists(ctx, r.FacilityID, r.ReservationDate, r.StartMin, r.EndMin, 0)
	if err != nil {
		return err
	}
	if taken {
		return booking.ErrSlotTaken
	}

	const ins = `INSERT INTO reservations
(reference, facility_id, user_id, reservation_date, time_slot, start_min, end_min,
 purpose, expected_attendees, status, reschedule_count, is_active)
VALUES (?,?,?,?,?,?,?,?,?,?,0,1)`
	res, err := q.ExecContext(ctx, ins,
		r.Reference, r.FacilityID, r.UserID, r.ReservationDate.Format("2006-01-02"),
		r.TimeSlot, r.StartMin, r.EndMin, r.Purpose, r.ExpectedAttendees, string(r.Status))
	if err != nil {
		if isDuplicateKey(err) {
			return booking.ErrSlotTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)

	// Query back to populate timestamps and defaults.
	got, err := s.ReservationByID(ctx, r.ID)
	if err != nil {
		return err
	}
	*r = got
	return nil
}

// UpdateStatus implements booking.Store.  Terminal statuses clear the
// is_active flag so the row leaves the exclusion index.
func (s *ReservationStore) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	var active any
	if status.Active() {
		active = 1
	}
	res, err := pick(ctx, s.db).ExecContext(ctx,
		`UPDATE reservations SET status = ?, is_active = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		string(status), active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// UpdateSchedule implements booking.Store.  Used by reschedule only;
// the same lock + re-check + constraint discipline as the insert path
// applies, with the moved reservation excluded from the overlap scan.
func (s *ReservationStore) UpdateSchedule(ctx context.Context, r model.Reservation) error {
	if err := s.lockFacility(ctx, r.FacilityID); err != nil {
		return err
	}
	taken, err := s.overlapExists(ctx, r.FacilityID, r.ReservationDate, r.StartMin, r.EndMin, r.ID)
	if err != nil {
		return err
	}
	if taken {
		return booking.ErrSlotTaken
	}
	var active any
	if r.Status.Active() {
		active = 1
	}
	_, err = pick(ctx, s.db).ExecContext(ctx,
		`UPDATE reservations SET reservation_date = ?, time_slot = ?, start_min = ?, end_min = ?,
status = ?, reschedule_count = ?, is_active = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		r.ReservationDate.Format("2006-01-02"), r.TimeSlot, r.StartMin, r.EndMin,
		string(r.Status), r.RescheduleCount, active, r.ID)
	if isDuplicateKey(err) {
		return booking.ErrSlotTaken
	}
	return err
}

// AppendHistory implements booking.Store.
func (s *ReservationStore) AppendHistory(ctx context.Context, h model.ReservationHistory) error {
	_, err := pick(ctx, s.db).ExecContext(ctx,
		`INSERT INTO reservation_history (reservation_id, status, note, actor_id) VALUES (?,?,?,?)`,
		h.ReservationID, string(h.Status), h.Note, h.ActorID)
	return err
}

// ExpiredPending implements booking.Store.  A reservation qualifies
// when its slot end instant lies strictly before now.
func (s *ReservationStore) ExpiredPending(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE status = 'PENDING'
  AND TIMESTAMPADD(MINUTE, end_min, TIMESTAMP(reservation_date)) < ?
ORDER BY reservation_date, start_min`
	return s.queryReservations(ctx, q, now.UTC().Format("2006-01-02 15:04:05"))
}

// ListByUser returns a resident's reservations, newest first.
func (s *ReservationStore) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE user_id = ? ORDER BY reservation_date DESC, start_min DESC`
	return s.queryReservations(ctx, q, userID)
}

// ListByStatus returns reservations in the given status, oldest first,
// for the staff review queue.
func (s *ReservationStore) ListByStatus(ctx context.Context, status model.ReservationStatus, limit int) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE status = ? ORDER BY reservation_date, start_min LIMIT ?`
	return s.queryReservations(ctx, q, string(status), limit)
}

// HistoryFor returns the audit trail of one reservation in insertion
// order.
func (s *ReservationStore) HistoryFor(ctx context.Context, reservationID uint64) ([]model.ReservationHistory, error) {
	rows, err := pick(ctx, s.db).QueryContext(ctx,
		`SELECT id, reservation_id, status, note, actor_id, created_at
FROM reservation_history WHERE reservation_id = ? ORDER BY id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReservationHistory
	for rows.Next() {
		var h model.ReservationHistory
		var status string
		if err := rows.Scan(&h.ID, &h.ReservationID, &status, &h.Note, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Status = model.ReservationStatus(status)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *ReservationStore) lockFacility(ctx context.Context, facilityID uint64) error {
	var id uint64
	err := pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT id FROM facilities WHERE id = ? FOR UPDATE`, facilityID).Scan(&id)
	if err == sql.ErrNoRows {
		return booking.ErrNotFound
	}
	return err
}

func (s *ReservationStore) overlapExists(ctx context.Context, facilityID uint64, date time.Time, startMin, endMin int, excludeID uint64) (bool, error) {
	var id uint64
	err := pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT id FROM reservations
WHERE facility_id = ? AND reservation_date = ? AND is_active = 1
  AND start_min < ? AND ? < end_min AND id <> ? LIMIT 1`,
		facilityID, timeslot.DateOf(date).Format("2006-01-02"), endMin, startMin, excludeID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ReservationStore) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := pick(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
