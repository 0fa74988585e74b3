package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidRange is returned synchronously at intake for unparseable dates
// or end before start. Requests failing this never reach the queue.
var ErrInvalidRange = errors.New("invalid date range")

// StatusStore is the durable-store surface the intake API needs.
type StatusStore interface {
	CreatePendingStatus(ctx context.Context, requestID string) error
	GetStatus(ctx context.Context, requestID string) (*models.RequestStatus, error)
}

// EventPublisher publishes reservation domain events.
type EventPublisher interface {
	PublishReservationRequested(ctx context.Context, event *models.ReservationRequestedEvent) error
}

// ReservationService handles the intake side of the reservation workflow:
// validate, record pending, hand off to the queue, and answer status polls.
// It never waits for the consumer.
type ReservationService struct {
	statuses  StatusStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewReservationService creates a new reservation intake service
func NewReservationService(statuses StatusStore, publisher EventPublisher) *ReservationService {
	return &ReservationService{
		statuses:  statuses,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// SubmitRequest represents an inbound reservation request
type SubmitRequest struct {
	CarID     int64  `json:"car_id" binding:"required"`
	UserID    int64  `json:"user_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// SubmitResponse carries the idempotency token the client polls with
type SubmitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// StatusResponse is the poll answer for a request
type StatusResponse struct {
	RequestID      string  `json:"request_id"`
	State          string  `json:"state"`
	Reason         *string `json:"reason,omitempty"`
	PendingSeconds float64 `json:"pending_seconds"`
}

// Submit validates the request, records it as pending and publishes it for
// asynchronous resolution. The pending row is written before the publish:
// a published request without a status record must be impossible.
func (s *ReservationService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Submit")
	defer span.End()

	start, end, err := ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		util.ReservationsRejectedTotal.WithLabelValues("invalid_range").Inc()
		return nil, err
	}

	requestID := uuid.New().String()

	if err := s.statuses.CreatePendingStatus(ctx, requestID); err != nil {
		return nil, fmt.Errorf("failed to record pending status: %w", err)
	}

	event := &models.ReservationRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationRequested,
			Timestamp: time.Now(),
		},
		RequestID: requestID,
		CarID:     req.CarID,
		UserID:    req.UserID,
		StartDate: start.Format(models.DateLayout),
		EndDate:   end.Format(models.DateLayout),
	}

	if err := s.publisher.PublishReservationRequested(ctx, event); err != nil {
		s.logger.Error("Failed to publish reservation request",
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to enqueue request: %w", err)
	}

	util.ReservationsSubmittedTotal.Inc()
	s.logger.Info("Reservation request accepted",
		zap.String("request_id", requestID),
		zap.Int64("car_id", req.CarID))

	return &SubmitResponse{
		RequestID: requestID,
		Status:    models.StatePending,
	}, nil
}

// GetStatus answers a status poll. The pending duration lets callers apply
// their own timeout policy; the core never auto-expires pending requests.
func (s *ReservationService) GetStatus(ctx context.Context, requestID string) (*StatusResponse, error) {
	status, err := s.statuses.GetStatus(ctx, requestID)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		RequestID: status.RequestID,
		State:     status.State,
		Reason:    status.Reason,
	}
	if status.State == models.StatePending {
		resp.PendingSeconds = time.Since(status.CreatedAt).Seconds()
	}
	return resp, nil
}

// ParseRange parses and validates an inclusive date range.
func ParseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(models.DateLayout, startStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad start date %q", ErrInvalidRange, startStr)
	}
	end, err := time.ParseInLocation(models.DateLayout, endStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad end date %q", ErrInvalidRange, endStr)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, endStr, startStr)
	}
	return start, end, nil
}

// interface guards
var (
	_ StatusStore    = (*store.Store)(nil)
	_ EventPublisher = (*broker.EventPublisher)(nil)
)
