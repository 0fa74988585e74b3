package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/redisclient"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// ReasonUnavailable is the terminal reason recorded for range conflicts.
const ReasonUnavailable = "resource unavailable for range"

const lockAttempts = 5

// ReservationStore is the durable-store surface the consumer needs.
type ReservationStore interface {
	GetStatus(ctx context.Context, requestID string) (*models.RequestStatus, error)
	CreatePendingStatus(ctx context.Context, requestID string) error
	MarkFailed(ctx context.Context, requestID, reason string) error
	HasConflict(ctx context.Context, carID int64, start, end time.Time) (bool, error)
	ConfirmReservationTx(ctx context.Context, requestID string, r *models.Reservation) error
}

// Locker serializes processing per car across workers.
type Locker interface {
	AcquireCarLock(ctx context.Context, carID int64, ttl time.Duration) (string, bool, error)
	ReleaseCarLock(ctx context.Context, carID int64, token string) error
}

// Processor resolves queued reservation requests: conflict check, commit,
// terminal status write. It is the only writer of reservations and of
// terminal states.
type Processor struct {
	store          ReservationStore
	locker         Locker
	logger         *zap.Logger
	processTimeout time.Duration
	lockTTL        time.Duration
}

// NewProcessor creates a new reservation processor
func NewProcessor(store ReservationStore, locker Locker, processTimeout, lockTTL time.Duration) *Processor {
	return &Processor{
		store:          store,
		locker:         locker,
		logger:         util.GetLogger(),
		processTimeout: processTimeout,
		lockTTL:        lockTTL,
	}
}

// HandleReservationRequested runs the per-message state machine:
//
//	pending --(no conflict, insert commits)--> confirmed
//	pending --(conflict)--> failed
//	terminal --(redelivery)--> no-op
//
// A nil return acknowledges the message. Retryable infrastructure errors are
// returned as-is so the message is redelivered; unprocessable payloads are
// wrapped in broker.ErrPoison so they are acknowledged and dropped.
func (p *Processor) HandleReservationRequested(ctx context.Context, event *models.ReservationRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "Processor.HandleReservationRequested")
	defer span.End()

	begin := time.Now()
	defer func() {
		util.ResolutionLatency.Observe(time.Since(begin).Seconds())
	}()

	start, end, err := p.validate(event)
	if err != nil {
		util.PoisonMessagesTotal.Inc()
		p.logger.Warn("Dropping unprocessable reservation request",
			zap.String("request_id", event.RequestID),
			zap.Error(err))
		return fmt.Errorf("%v: %w", err, broker.ErrPoison)
	}

	status, err := p.store.GetStatus(ctx, event.RequestID)
	if err != nil {
		if !errors.Is(err, store.ErrStatusNotFound) {
			return fmt.Errorf("failed to load status: %w", err)
		}
		// Intake writes pending before publishing, so this should not
		// happen; recreate the row rather than resolve a request the
		// client cannot poll.
		p.logger.Warn("Status row missing for published request, recreating",
			zap.String("request_id", event.RequestID))
		if err := p.store.CreatePendingStatus(ctx, event.RequestID); err != nil {
			return fmt.Errorf("failed to recreate pending status: %w", err)
		}
	} else if status.IsTerminal() {
		// Redelivery of an already-resolved request. This check is what
		// makes at-least-once delivery safe.
		util.ReservationsRedeliveredTotal.Inc()
		p.logger.Info("Request already terminal, skipping redelivery",
			zap.String("request_id", event.RequestID),
			zap.String("state", status.State))
		return nil
	}

	token, locked := p.acquireLock(ctx, event.CarID)
	if locked {
		defer func() {
			if err := p.locker.ReleaseCarLock(context.Background(), event.CarID, token); err != nil {
				p.logger.Warn("Failed to release car lock",
					zap.Int64("car_id", event.CarID),
					zap.Error(err))
			}
		}()
	}

	// Bounded timeout so a wedged store connection cannot hold the worker
	// (and the lock) indefinitely.
	opCtx, cancel := context.WithTimeout(ctx, p.processTimeout)
	defer cancel()

	conflict, err := p.store.HasConflict(opCtx, event.CarID, start, end)
	if err != nil {
		return fmt.Errorf("conflict check failed: %w", err)
	}
	if conflict {
		return p.reject(opCtx, event)
	}

	reservation := &models.Reservation{
		CarID:     event.CarID,
		UserID:    event.UserID,
		StartDate: start,
		EndDate:   end,
	}

	err = p.store.ConfirmReservationTx(opCtx, event.RequestID, reservation)
	switch {
	case err == nil:
		util.ReservationsConfirmedTotal.Inc()
		p.logger.Info("Reservation confirmed",
			zap.String("request_id", event.RequestID),
			zap.Int64("reservation_id", reservation.ID),
			zap.Int64("car_id", event.CarID))
		return nil

	case errors.Is(err, store.ErrRangeConflict):
		// Lost the race: another request committed an overlapping range
		// between the check and the insert. First committer wins.
		p.logger.Info("Insert lost range race",
			zap.String("request_id", event.RequestID),
			zap.Int64("car_id", event.CarID))
		return p.reject(opCtx, event)

	case errors.Is(err, store.ErrInvariantViolation):
		return p.alertInvariant(event.RequestID, err)

	default:
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
}

// reject writes the failed terminal state for a conflicting request.
func (p *Processor) reject(ctx context.Context, event *models.ReservationRequestedEvent) error {
	err := p.store.MarkFailed(ctx, event.RequestID, ReasonUnavailable)
	if err != nil {
		if errors.Is(err, store.ErrInvariantViolation) {
			return p.alertInvariant(event.RequestID, err)
		}
		return fmt.Errorf("failed to mark request failed: %w", err)
	}

	util.ReservationsFailedTotal.WithLabelValues("conflict").Inc()
	p.logger.Info("Reservation rejected",
		zap.String("request_id", event.RequestID),
		zap.Int64("car_id", event.CarID),
		zap.String("reason", ReasonUnavailable))
	return nil
}

// alertInvariant records a detected invariant violation. The message is
// acknowledged: redelivery cannot repair disagreeing terminal states, it
// would only loop.
func (p *Processor) alertInvariant(requestID string, err error) error {
	util.InvariantViolationsTotal.Inc()
	p.logger.Error("Invariant violation detected",
		zap.String("request_id", requestID),
		zap.Error(err))
	return nil
}

// acquireLock serializes steps check+insert per car. Failure to lock is not
// fatal to correctness: the exclusion constraint converts a lost race into
// a failed request. Contention is returned to the caller as held=false only
// after the retry budget is spent.
func (p *Processor) acquireLock(ctx context.Context, carID int64) (string, bool) {
	if p.locker == nil {
		return "", false
	}

	for attempt := 0; attempt < lockAttempts; attempt++ {
		token, ok, err := p.locker.AcquireCarLock(ctx, carID, p.lockTTL)
		if err != nil {
			p.logger.Warn("Car lock unavailable, relying on store constraint",
				zap.Int64("car_id", carID),
				zap.Error(err))
			return "", false
		}
		if ok {
			return token, true
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}

	p.logger.Warn("Car lock contended past retry budget, relying on store constraint",
		zap.Int64("car_id", carID))
	return "", false
}

func (p *Processor) validate(event *models.ReservationRequestedEvent) (time.Time, time.Time, error) {
	if event.RequestID == "" {
		return time.Time{}, time.Time{}, errors.New("missing request_id")
	}
	if event.CarID <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("bad car_id %d", event.CarID)
	}
	return ParseRange(event.StartDate, event.EndDate)
}

// interface guards
var (
	_ ReservationStore = (*store.Store)(nil)
	_ Locker           = (*redisclient.Client)(nil)
)
