package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/store"
)

// fakeStore is an in-memory stand-in for the Postgres store. The mutex makes
// ConfirmReservationTx atomic and the overlap check inside it plays the role
// of the exclusion constraint.
type fakeStore struct {
	mu           sync.Mutex
	statuses     map[string]*models.RequestStatus
	reservations []models.Reservation
	nextID       int64

	failWith error // when set, conflict checks and confirms fail with this
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: make(map[string]*models.RequestStatus)}
}

func (f *fakeStore) CreatePendingStatus(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.statuses[requestID]; ok {
		return nil
	}
	now := time.Now()
	f.statuses[requestID] = &models.RequestStatus{
		RequestID: requestID,
		State:     models.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (f *fakeStore) GetStatus(ctx context.Context, requestID string) (*models.RequestStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[requestID]
	if !ok {
		return nil, store.ErrStatusNotFound
	}
	copied := *status
	return &copied, nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, requestID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[requestID]
	if !ok {
		return store.ErrStatusNotFound
	}
	switch status.State {
	case models.StatePending:
		status.State = models.StateFailed
		status.Reason = &reason
		status.UpdatedAt = time.Now()
		return nil
	case models.StateFailed:
		return nil
	default:
		return fmt.Errorf("%w: request %s is %s, refused %s",
			store.ErrInvariantViolation, requestID, status.State, models.StateFailed)
	}
}

func (f *fakeStore) HasConflict(ctx context.Context, carID int64, start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.overlapsLocked(carID, start, end), nil
}

func (f *fakeStore) ConfirmReservationTx(ctx context.Context, requestID string, r *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.overlapsLocked(r.CarID, r.StartDate, r.EndDate) {
		return store.ErrRangeConflict
	}
	status, ok := f.statuses[requestID]
	if !ok || status.State != models.StatePending {
		return fmt.Errorf("%w: request %s not pending at confirm time",
			store.ErrInvariantViolation, requestID)
	}

	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now()
	f.reservations = append(f.reservations, *r)

	status.State = models.StateConfirmed
	status.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) overlapsLocked(carID int64, start, end time.Time) bool {
	for _, existing := range f.reservations {
		if existing.CarID == carID && models.Overlaps(existing.StartDate, existing.EndDate, start, end) {
			return true
		}
	}
	return false
}

func (f *fakeStore) seedReservation(carID, userID int64, start, end string) {
	s, e, _ := ParseRange(start, end)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.reservations = append(f.reservations, models.Reservation{
		ID: f.nextID, CarID: carID, UserID: userID, StartDate: s, EndDate: e,
	})
}

func (f *fakeStore) reservationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reservations)
}

func (f *fakeStore) allReservations() []models.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Reservation, len(f.reservations))
	copy(out, f.reservations)
	return out
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*models.ReservationRequestedEvent
	err    error
}

func (f *fakePublisher) PublishReservationRequested(ctx context.Context, event *models.ReservationRequestedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) published() []*models.ReservationRequestedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ReservationRequestedEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeLocker is an in-process per-car lock.
type fakeLocker struct {
	mu    sync.Mutex
	held  map[int64]string
	next  int
	never bool // when set, locks are never granted
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[int64]string)}
}

func (f *fakeLocker) AcquireCarLock(ctx context.Context, carID int64, ttl time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.never {
		return "", false, nil
	}
	if _, taken := f.held[carID]; taken {
		return "", false, nil
	}
	f.next++
	token := fmt.Sprintf("token-%d", f.next)
	f.held[carID] = token
	return token, true, nil
}

func (f *fakeLocker) ReleaseCarLock(ctx context.Context, carID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[carID] == token {
		delete(f.held, carID)
	}
	return nil
}
