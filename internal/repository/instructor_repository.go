package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/roadready-api/internal/models"
)

// InstructorRepository persists instructor profiles and serves the
// learner-facing roster.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns all instructor accounts as roster entries.
func (r *InstructorRepository) List(ctx context.Context) ([]models.InstructorSummary, error) {
	const query = `SELECT id, name FROM users WHERE role = 'INSTRUCTOR' ORDER BY name ASC`
	instructors := []models.InstructorSummary{}
	if err := r.db.SelectContext(ctx, &instructors, query); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// GetProfile returns the instructor's booking settings. sql.ErrNoRows
// passes through when the user has no instructor profile.
func (r *InstructorRepository) GetProfile(ctx context.Context, userID string) (*models.InstructorProfile, error) {
	const query = `SELECT user_id, booking_leading_time, created_at, updated_at
FROM instructor_profiles WHERE user_id = $1`
	var profile models.InstructorProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates the profile on signup or updates the lead time.
func (r *InstructorRepository) UpsertProfile(ctx context.Context, profile *models.InstructorProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO instructor_profiles (user_id, booking_leading_time, created_at, updated_at)
VALUES (:user_id, :booking_leading_time, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE
SET booking_leading_time = EXCLUDED.booking_leading_time,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert instructor profile: %w", err)
	}
	return nil
}
