package models

import "time"

// Event types
const (
	EventTypeReservationRequested = "RESERVATION_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationRequestedEvent is published by the intake API for every accepted
// request. Dates travel in DateLayout form; the payload is immutable once
// published and may be delivered more than once.
type ReservationRequestedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	CarID     int64  `json:"car_id"`
	UserID    int64  `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
