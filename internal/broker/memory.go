package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MemoryBroker is an in-process queue with the same publish/consume surface
// as the Kafka adapter. It preserves at-least-once semantics: a message whose
// handler fails with a retryable error is re-enqueued instead of dropped.
type MemoryBroker struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	published []kafka.Message
	committed int
}

// NewMemoryBroker creates an in-memory broker with a bounded buffer.
func NewMemoryBroker(capacity int) *MemoryBroker {
	return &MemoryBroker{
		messages: make(chan kafka.Message, capacity),
	}
}

// PublishEvent enqueues an event, mirroring Producer.PublishEvent.
func (b *MemoryBroker) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Time:  time.Now(),
	}

	b.mu.Lock()
	b.published = append(b.published, msg)
	b.mu.Unlock()

	select {
	case b.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartConsuming drains the queue through the handler until the context is
// cancelled. Retryable handler errors put the message back on the queue.
func (b *MemoryBroker) StartConsuming(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.messages:
			if err := handler(ctx, msg); err != nil && !errors.Is(err, ErrPoison) {
				select {
				case b.messages <- msg:
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			b.mu.Lock()
			b.committed++
			b.mu.Unlock()
		}
	}
}

// Redeliver pushes a copy of an already-published message back onto the
// queue, simulating broker redelivery of an unacknowledged message.
func (b *MemoryBroker) Redeliver(msg kafka.Message) {
	b.messages <- msg
}

// Published returns a snapshot of every message ever published.
func (b *MemoryBroker) Published() []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]kafka.Message, len(b.published))
	copy(out, b.published)
	return out
}

// Committed returns how many messages have been acknowledged.
func (b *MemoryBroker) Committed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed
}

// Close is a no-op, present for symmetry with the Kafka consumer.
func (b *MemoryBroker) Close() error {
	return nil
}
