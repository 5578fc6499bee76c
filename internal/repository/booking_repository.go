package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roadready/roadready-api/internal/models"
)

// Sentinel outcomes of the booking transaction. The service layer maps them
// to the user-facing error taxonomy.
var (
	ErrInstructorMissing  = errors.New("instructor profile not found")
	ErrNoContainingWindow = errors.New("no availability window contains the requested interval")
	ErrInstructorOverlap  = errors.New("instructor has an overlapping training")
	ErrLearnerOverlap     = errors.New("learner has an overlapping training")
)

// LeadTimeError reports a request that starts sooner than the instructor's
// booking lead time allows.
type LeadTimeError struct {
	Minutes int
}

func (e *LeadTimeError) Error() string {
	return fmt.Sprintf("start time must be at least %d minutes from now", e.Minutes)
}

// BookingParams describes a learner's training request.
type BookingParams struct {
	InstructorID string
	LearnerID    string
	StartTime    time.Time
	EndTime      time.Time
}

// BookingRepository owns the transactional decision procedure that turns a
// training request into a committed row.
type BookingRepository struct {
	db *sqlx.DB
}

// bookingTxOptions pins the isolation the conflict checks depend on: with
// anything weaker, two concurrent overlapping requests could both pass
// validation and both commit.
var bookingTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Book validates and commits a training request atomically. All checks and
// the insert run inside one serializable transaction; the instructor profile
// row is locked FOR UPDATE so two concurrent requests against the same
// instructor serialize and the second observes the first's insert. On any
// failure the transaction rolls back and zero rows are written.
//
// The interval check (start < end) is the caller's responsibility; it needs
// no database state.
func (r *BookingRepository) Book(ctx context.Context, params BookingParams, now time.Time) (training *models.Training, err error) {
	tx, err := r.db.BeginTxx(ctx, bookingTxOptions)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var leadMinutes int
	const lockQuery = `SELECT booking_leading_time FROM instructor_profiles WHERE user_id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &leadMinutes, lockQuery, params.InstructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrInstructorMissing
			return nil, err
		}
		return nil, fmt.Errorf("lock instructor profile: %w", err)
	}

	if params.StartTime.Before(now.Add(time.Duration(leadMinutes) * time.Minute)) {
		err = &LeadTimeError{Minutes: leadMinutes}
		return nil, err
	}

	var contained bool
	const containQuery = `SELECT EXISTS (
SELECT 1 FROM availability_windows
WHERE instructor_id = $1 AND start_time <= $2 AND end_time >= $3)`
	if err = tx.GetContext(ctx, &contained, containQuery, params.InstructorID, params.StartTime, params.EndTime); err != nil {
		return nil, fmt.Errorf("check availability containment: %w", err)
	}
	if !contained {
		err = ErrNoContainingWindow
		return nil, err
	}

	// Half-open overlap test: existing.start < end AND existing.end > start.
	const overlapQuery = `SELECT EXISTS (
SELECT 1 FROM trainings
WHERE %s = $1 AND start_time < $2 AND end_time > $3)`

	var instructorBusy bool
	if err = tx.GetContext(ctx, &instructorBusy, fmt.Sprintf(overlapQuery, "instructor_id"), params.InstructorID, params.EndTime, params.StartTime); err != nil {
		return nil, fmt.Errorf("check instructor conflicts: %w", err)
	}
	if instructorBusy {
		err = ErrInstructorOverlap
		return nil, err
	}

	var learnerBusy bool
	if err = tx.GetContext(ctx, &learnerBusy, fmt.Sprintf(overlapQuery, "learner_id"), params.LearnerID, params.EndTime, params.StartTime); err != nil {
		return nil, fmt.Errorf("check learner conflicts: %w", err)
	}
	if learnerBusy {
		err = ErrLearnerOverlap
		return nil, err
	}

	stamp := now.UTC()
	created := &models.Training{
		ID:           uuid.NewString(),
		InstructorID: params.InstructorID,
		LearnerID:    params.LearnerID,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		Status:       models.TrainingScheduled,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	const insertQuery = `INSERT INTO trainings (id, instructor_id, learner_id, start_time, end_time, status, created_at, updated_at)
VALUES (:id, :instructor_id, :learner_id, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, created); err != nil {
		return nil, fmt.Errorf("insert training: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return created, nil
}
