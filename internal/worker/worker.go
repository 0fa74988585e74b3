package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// Consumer is the transport surface the worker needs. *broker.Consumer and
// *broker.MemoryBroker both satisfy it.
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ReservationWorker is a long-lived consumer draining the reservation
// request topic into the processor.
type ReservationWorker struct {
	consumer  Consumer
	processor *service.Processor
}

// NewReservationWorker creates a new reservation worker
func NewReservationWorker(consumer Consumer, processor *service.Processor) *ReservationWorker {
	return &ReservationWorker{
		consumer:  consumer,
		processor: processor,
	}
}

// Start starts the worker
func (w *ReservationWorker) Start(ctx context.Context) error {
	log.Println("Starting reservation worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *ReservationWorker) Stop() error {
	log.Println("Stopping reservation worker...")
	return w.consumer.Close()
}

func (w *ReservationWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("unmarshal base event: %v: %w", err, broker.ErrPoison)
	}

	switch baseEvent.EventType {
	case models.EventTypeReservationRequested:
		var event models.ReservationRequestedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("unmarshal reservation request: %v: %w", err, broker.ErrPoison)
		}
		return w.processor.HandleReservationRequested(ctx, &event)

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
		return nil
	}
}

// interface guards
var (
	_ Consumer = (*broker.Consumer)(nil)
	_ Consumer = (*broker.MemoryBroker)(nil)
)
