package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/lib/pq"
)

// exclusionViolation is the SQLSTATE raised when an insert hits the
// reservations_no_overlap constraint.
const exclusionViolation = "23P01"

// HasConflict reports whether any existing reservation for the car overlaps
// the inclusive [start, end] range.
func (s *Store) HasConflict(ctx context.Context, carID int64, start, end time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE car_id = $1 AND start_date <= $3 AND end_date >= $2
		)`,
		carID, start, end)
	if err != nil {
		return false, fmt.Errorf("conflict check failed: %w", err)
	}
	return exists, nil
}

// ConfirmReservationTx inserts the reservation row and flips the request
// status to confirmed in one transaction. Either both land or neither does.
// Returns ErrRangeConflict if a concurrent insert won the range, and
// ErrInvariantViolation if the status row was no longer pending.
func (s *Store) ConfirmReservationTx(ctx context.Context, requestID string, r *models.Reservation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, r,
		`INSERT INTO reservations (car_id, user_id, start_date, end_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, car_id, user_id, start_date, end_date, created_at`,
		r.CarID, r.UserID, r.StartDate, r.EndDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
			return fmt.Errorf("%w: car %d [%s, %s]", ErrRangeConflict,
				r.CarID, r.StartDate.Format(models.DateLayout), r.EndDate.Format(models.DateLayout))
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE request_status SET state = $1, updated_at = NOW()
		 WHERE request_id = $2 AND state = $3`,
		models.StateConfirmed, requestID, models.StatePending)
	if err != nil {
		return fmt.Errorf("failed to confirm status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// The idempotency check upstream saw pending, so a non-pending row
		// here means a terminal write raced in without this insert.
		return fmt.Errorf("%w: request %s not pending at confirm time", ErrInvariantViolation, requestID)
	}

	return tx.Commit()
}

// GetReservationsByCar retrieves all reservations for a car ordered by start
// date.
func (s *Store) GetReservationsByCar(ctx context.Context, carID int64) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE car_id = $1 ORDER BY start_date", carID)
	return reservations, err
}

// CreateReservation inserts a reservation outside of the confirm
// transaction. Test seeding only; the consumer goes through
// ConfirmReservationTx.
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	err := s.db.GetContext(ctx, r,
		`INSERT INTO reservations (car_id, user_id, start_date, end_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, car_id, user_id, start_date, end_date, created_at`,
		r.CarID, r.UserID, r.StartDate, r.EndDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
			return ErrRangeConflict
		}
		return err
	}
	return nil
}
