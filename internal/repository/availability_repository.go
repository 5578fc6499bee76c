package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roadready/roadready-api/internal/models"
)

// AvailabilityRepository persists instructor availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListFuture returns windows that have not yet ended, ascending by start.
func (r *AvailabilityRepository) ListFuture(ctx context.Context, instructorID string, now time.Time) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, instructor_id, start_time, end_time, created_at
FROM availability_windows WHERE instructor_id = $1 AND end_time > $2 ORDER BY start_time ASC`
	windows := []models.AvailabilityWindow{}
	if err := r.db.SelectContext(ctx, &windows, query, instructorID, now); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// Create persists a new window for the instructor.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO availability_windows (id, instructor_id, start_time, end_time, created_at)
VALUES (:id, :instructor_id, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("insert availability window: %w", err)
	}
	return nil
}

// Delete removes the window iff owned by the instructor. Deleting a missing
// or foreign window affects zero rows and is not an error, so callers cannot
// probe another instructor's windows.
func (r *AvailabilityRepository) Delete(ctx context.Context, id, instructorID string) error {
	const query = `DELETE FROM availability_windows WHERE id = $1 AND instructor_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, instructorID); err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	return nil
}
