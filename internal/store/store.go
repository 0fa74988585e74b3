package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	// ErrStatusNotFound means no request_status row exists for the id.
	// Distinct from a pending row: the caller never created the request.
	ErrStatusNotFound = errors.New("request status not found")

	// ErrInvariantViolation means a terminal status would have been
	// overwritten with a different terminal state, or a confirmed status
	// lost its backing reservation row. Consumer-logic defect; alert,
	// never correct silently.
	ErrInvariantViolation = errors.New("terminal state invariant violated")

	// ErrRangeConflict means the insert lost a race and hit the overlap
	// exclusion constraint.
	ErrRangeConflict = errors.New("reservation range conflict")

	// ErrCarNotFound means the catalog has no such car.
	ErrCarNotFound = errors.New("car not found")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetCarByID retrieves a car by ID. Read-only: the catalog service owns
// car records.
func (s *Store) GetCarByID(ctx context.Context, id int64) (*models.Car, error) {
	var car models.Car
	err := s.db.GetContext(ctx, &car, "SELECT * FROM cars WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrCarNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &car, nil
}
