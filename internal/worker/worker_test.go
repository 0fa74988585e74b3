package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/service"
	"reservation-service/internal/store"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore backs the end-to-end flow test: it serves both the intake and the
// consumer sides of the workflow.
type memStore struct {
	mu           sync.Mutex
	statuses     map[string]*models.RequestStatus
	reservations []models.Reservation
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{statuses: make(map[string]*models.RequestStatus)}
}

func (m *memStore) CreatePendingStatus(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.statuses[requestID]; !ok {
		now := time.Now()
		m.statuses[requestID] = &models.RequestStatus{
			RequestID: requestID, State: models.StatePending, CreatedAt: now, UpdatedAt: now,
		}
	}
	return nil
}

func (m *memStore) GetStatus(ctx context.Context, requestID string) (*models.RequestStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[requestID]
	if !ok {
		return nil, store.ErrStatusNotFound
	}
	copied := *status
	return &copied, nil
}

func (m *memStore) MarkFailed(ctx context.Context, requestID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[requestID]
	if !ok {
		return store.ErrStatusNotFound
	}
	if status.State == models.StatePending {
		status.State = models.StateFailed
		status.Reason = &reason
	} else if status.State != models.StateFailed {
		return fmt.Errorf("%w: %s", store.ErrInvariantViolation, status.State)
	}
	return nil
}

func (m *memStore) HasConflict(ctx context.Context, carID int64, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.CarID == carID && models.Overlaps(r.StartDate, r.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ConfirmReservationTx(ctx context.Context, requestID string, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reservations {
		if existing.CarID == r.CarID && models.Overlaps(existing.StartDate, existing.EndDate, r.StartDate, r.EndDate) {
			return store.ErrRangeConflict
		}
	}
	status, ok := m.statuses[requestID]
	if !ok || status.State != models.StatePending {
		return fmt.Errorf("%w: not pending", store.ErrInvariantViolation)
	}
	m.nextID++
	r.ID = m.nextID
	m.reservations = append(m.reservations, *r)
	status.State = models.StateConfirmed
	return nil
}

func pollState(t *testing.T, svc *service.ReservationService, requestID string) string {
	t.Helper()
	var state string
	require.Eventually(t, func() bool {
		status, err := svc.GetStatus(context.Background(), requestID)
		if err != nil {
			return false
		}
		state = status.State
		return state != models.StatePending
	}, 3*time.Second, 10*time.Millisecond)
	return state
}

// The full asynchronous round trip: submit through the intake service, drain
// through the worker, observe the terminal state by polling.
func TestWorkerResolvesSubmittedRequests(t *testing.T) {
	st := newMemStore()
	b := broker.NewMemoryBroker(16)

	svc := service.NewReservationService(st, broker.NewEventPublisher(b))
	processor := service.NewProcessor(st, nil, 5*time.Second, 30*time.Second)
	w := NewReservationWorker(b, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	first, err := svc.Submit(ctx, &service.SubmitRequest{
		CarID: 7, UserID: 42, StartDate: "2024-01-10", EndDate: "2024-01-15",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, pollState(t, svc, first.RequestID))

	// Overlapping follow-up resolves to failed.
	second, err := svc.Submit(ctx, &service.SubmitRequest{
		CarID: 7, UserID: 43, StartDate: "2024-01-14", EndDate: "2024-01-20",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, pollState(t, svc, second.RequestID))

	// Disjoint follow-up succeeds.
	third, err := svc.Submit(ctx, &service.SubmitRequest{
		CarID: 7, UserID: 44, StartDate: "2024-01-16", EndDate: "2024-01-20",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, pollState(t, svc, third.RequestID))
}

func TestWorkerRedeliveryDoesNotDuplicate(t *testing.T) {
	st := newMemStore()
	b := broker.NewMemoryBroker(16)

	svc := service.NewReservationService(st, broker.NewEventPublisher(b))
	processor := service.NewProcessor(st, nil, 5*time.Second, 30*time.Second)
	w := NewReservationWorker(b, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	resp, err := svc.Submit(ctx, &service.SubmitRequest{
		CarID: 7, UserID: 42, StartDate: "2024-01-10", EndDate: "2024-01-15",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateConfirmed, pollState(t, svc, resp.RequestID))

	// Simulate broker redelivery of the already-processed message.
	published := b.Published()
	require.Len(t, published, 1)
	b.Redeliver(published[0])

	require.Eventually(t, func() bool { return b.Committed() == 2 },
		3*time.Second, 10*time.Millisecond)

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Len(t, st.reservations, 1)
	assert.Equal(t, models.StateConfirmed, st.statuses[resp.RequestID].State)
}

func TestWorkerDropsMalformedPayload(t *testing.T) {
	st := newMemStore()
	b := broker.NewMemoryBroker(16)

	processor := service.NewProcessor(st, nil, 5*time.Second, 30*time.Second)
	w := NewReservationWorker(b, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Raw bytes that are not JSON: committed, never retried, never blocking
	// the queue.
	b.Redeliver(kafka.Message{Value: []byte("not json at all")})

	require.Eventually(t, func() bool { return b.Committed() == 1 },
		3*time.Second, 10*time.Millisecond)

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Empty(t, st.reservations)
}
