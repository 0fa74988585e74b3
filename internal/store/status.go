package store

import (
	"context"
	"database/sql"
	"fmt"

	"reservation-service/internal/models"
)

// CreatePendingStatus creates the initial pending row for a request. Safe to
// call twice for the same request_id; the second call is a no-op.
func (s *Store) CreatePendingStatus(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_status (request_id, state)
		 VALUES ($1, $2)
		 ON CONFLICT (request_id) DO NOTHING`,
		requestID, models.StatePending)
	if err != nil {
		return fmt.Errorf("failed to create pending status: %w", err)
	}
	return nil
}

// GetStatus retrieves the status for a request. Absence is reported as
// ErrStatusNotFound, distinct from a pending row.
func (s *Store) GetStatus(ctx context.Context, requestID string) (*models.RequestStatus, error) {
	var status models.RequestStatus
	err := s.db.GetContext(ctx, &status,
		"SELECT * FROM request_status WHERE request_id = $1", requestID)
	if err == sql.ErrNoRows {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// MarkFailed moves a pending request to failed with a reason. Writing failed
// over an existing failed is a harmless duplicate; failed over confirmed is
// ErrInvariantViolation.
func (s *Store) MarkFailed(ctx context.Context, requestID, reason string) error {
	return s.markTerminal(ctx, requestID, models.StateFailed, &reason)
}

// MarkConfirmed moves a pending request to confirmed outside of a
// reservation transaction. The consumer's accept path uses
// ConfirmReservationTx instead; this exists for redelivery no-op checks in
// tests and for operational repair tooling.
func (s *Store) MarkConfirmed(ctx context.Context, requestID string) error {
	return s.markTerminal(ctx, requestID, models.StateConfirmed, nil)
}

func (s *Store) markTerminal(ctx context.Context, requestID, state string, reason *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE request_status SET state = $1, reason = $2, updated_at = NOW()
		 WHERE request_id = $3 AND state = $4`,
		state, reason, requestID, models.StatePending)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	// Nothing was pending. Decide between a duplicate terminal write and a
	// genuine invariant violation.
	current, err := s.GetStatus(ctx, requestID)
	if err != nil {
		return err
	}
	if current.State == state {
		return nil
	}
	return fmt.Errorf("%w: request %s is %s, refused %s", ErrInvariantViolation,
		requestID, current.State, state)
}
