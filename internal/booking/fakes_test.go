package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// fakeStore is an in-memory Store.  WithTx snapshots state on entry
// and restores it when the callback fails, mirroring the rollback
// behavior of the real repository.
type fakeStore struct {
	mu           sync.Mutex
	facilities   map[uint64]model.Facility
	reservations map[uint64]model.Reservation
	history      []model.ReservationHistory
	nextID       uint64

	insertErr  error
	updateErr  error
	historyErr error
	// failHistoryOnce trips historyErr for a single call.
	failHistoryOnce bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		facilities:   make(map[uint64]model.Facility),
		reservations: make(map[uint64]model.Reservation),
	}
}

func (f *fakeStore) addFacility(fac model.Facility) {
	f.facilities[fac.ID] = fac
}

func (f *fakeStore) addReservation(r model.Reservation) model.Reservation {
	f.nextID++
	if r.ID == 0 {
		r.ID = f.nextID
	}
	if r.Reference == "" {
		r.Reference = fmt.Sprintf("ref-%d", r.ID)
	}
	f.reservations[r.ID] = r
	return r
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	resSnap := make(map[uint64]model.Reservation, len(f.reservations))
	for k, v := range f.reservations {
		resSnap[k] = v
	}
	histSnap := make([]model.ReservationHistory, len(f.history))
	copy(histSnap, f.history)
	idSnap := f.nextID
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.reservations = resSnap
		f.history = histSnap
		f.nextID = idSnap
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) FacilityByID(_ context.Context, id uint64) (model.Facility, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fac, ok := f.facilities[id]
	if !ok {
		return model.Facility{}, ErrNotFound
	}
	return fac, nil
}

func (f *fakeStore) ReservationByID(_ context.Context, id uint64) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ActiveByFacilityAndDate(_ context.Context, facilityID uint64, date time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := make(map[model.ReservationStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.FacilityID == facilityID && r.ReservationDate.Equal(timeslot.DateOf(date)) && allowed[r.Status] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveByUser(_ context.Context, userID uint64, from, to time.Time) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.UserID != userID || !r.Status.Active() {
			continue
		}
		if r.ReservationDate.Before(timeslot.DateOf(from)) || r.ReservationDate.After(timeslot.DateOf(to)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) InsertReservation(_ context.Context, r *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	// Emulate the slot-bucket exclusion constraint.
	cand := timeslot.New(r.ReservationDate, r.StartMin, r.EndMin)
	for _, ex := range f.reservations {
		if ex.FacilityID == r.FacilityID && ex.Status.Active() &&
			cand.Overlaps(timeslot.New(ex.ReservationDate, ex.StartMin, ex.EndMin)) {
			return ErrSlotTaken
		}
	}
	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	f.reservations[r.ID] = *r
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uint64, status model.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	r, ok := f.reservations[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	f.reservations[id] = r
	return nil
}

func (f *fakeStore) UpdateSchedule(_ context.Context, upd model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[upd.ID]; !ok {
		return ErrNotFound
	}
	cand := timeslot.New(upd.ReservationDate, upd.StartMin, upd.EndMin)
	for _, ex := range f.reservations {
		if ex.ID == upd.ID {
			continue
		}
		if ex.FacilityID == upd.FacilityID && ex.Status.Active() &&
			cand.Overlaps(timeslot.New(ex.ReservationDate, ex.StartMin, ex.EndMin)) {
			return ErrSlotTaken
		}
	}
	f.reservations[upd.ID] = upd
	return nil
}

func (f *fakeStore) AppendHistory(_ context.Context, h model.ReservationHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failHistoryOnce {
		f.failHistoryOnce = false
		err := f.historyErr
		f.historyErr = nil
		return err
	}
	if f.historyErr != nil {
		return f.historyErr
	}
	h.ID = uint64(len(f.history) + 1)
	h.CreatedAt = time.Now().UTC()
	f.history = append(f.history, h)
	return nil
}

func (f *fakeStore) ExpiredPending(_ context.Context, now time.Time) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.Status != model.StatusPending {
			continue
		}
		end := timeslot.New(r.ReservationDate, r.StartMin, r.EndMin).End()
		if end.Before(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) historyFor(id uint64) []model.ReservationHistory {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReservationHistory
	for _, h := range f.history {
		if h.ReservationID == id {
			out = append(out, h)
		}
	}
	return out
}

// recordingNotifier collects notifications in delivery order.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

type sentNotification struct {
	UserID uint64
	Type   string
	Title  string
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint64, typ, title, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: typ, Title: title})
	return nil
}

// recordingAuditor collects audit actions.
type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAuditor) LogAudit(_ context.Context, action, _, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

// stubVerifier answers identity verification from a fixed map.
type stubVerifier struct {
	verified map[uint64]bool
	err      error
}

func (v *stubVerifier) IsUserVerified(_ context.Context, userID uint64) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return v.verified[userID], nil
}
