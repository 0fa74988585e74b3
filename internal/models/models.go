package models

import "time"

// DateLayout is the wire format for reservation dates. Ranges are inclusive
// calendar dates, no time-of-day component.
const DateLayout = "2006-01-02"

// Car mirrors the catalog service's car record. The catalog owns this data;
// only read access happens here.
type Car struct {
	ID          int64     `db:"id" json:"id"`
	Company     string    `db:"company" json:"company"`
	CarName     string    `db:"car_name" json:"car_name"`
	PricePerDay int64     `db:"price_per_day" json:"price_per_day"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Reservation is a committed booking of a car for an inclusive date range.
// Created only by the consumer on acceptance, never updated afterwards.
type Reservation struct {
	ID        int64     `db:"id" json:"id"`
	CarID     int64     `db:"car_id" json:"car_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RequestStatus tracks the lifecycle of a reservation request. The state
// moves pending -> confirmed|failed exactly once and never leaves a terminal
// state.
type RequestStatus struct {
	RequestID string    `db:"request_id" json:"request_id"`
	State     string    `db:"state" json:"state"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Request states
const (
	StatePending   = "pending"
	StateConfirmed = "confirmed"
	StateFailed    = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s *RequestStatus) IsTerminal() bool {
	return s.State == StateConfirmed || s.State == StateFailed
}

// Overlaps reports whether two inclusive date ranges intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !e1.Before(s2)
}
