package broker

import (
	"context"
	"fmt"

	"reservation-service/internal/models"
)

// Publisher is the narrow surface an event publisher needs from the
// transport. *Producer and *MemoryBroker both satisfy it.
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishReservationRequested publishes a ReservationRequested event. Keying
// by car gives per-car partition affinity; correctness does not depend on it.
func (ep *EventPublisher) PublishReservationRequested(ctx context.Context, event *models.ReservationRequestedEvent) error {
	key := fmt.Sprintf("car-%d", event.CarID)
	return ep.producer.PublishEvent(ctx, key, event)
}
