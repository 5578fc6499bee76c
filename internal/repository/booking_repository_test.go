package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func bookingParams() BookingParams {
	return BookingParams{
		InstructorID: "inst-1",
		LearnerID:    "learner-1",
		StartTime:    bookingNow.Add(90 * time.Minute),
		EndTime:      bookingNow.Add(120 * time.Minute),
	}
}

// leadTimeLockQuery demands the row lock, not just the read: dropping
// FOR UPDATE would let concurrent requests for one instructor interleave.
const leadTimeLockQuery = `SELECT booking_leading_time FROM instructor_profiles WHERE user_id = (.+) FOR UPDATE`

func expectLeadTimeLock(mock sqlmock.Sqlmock, minutes int) {
	mock.ExpectQuery(leadTimeLockQuery).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"booking_leading_time"}).AddRow(minutes))
}

func expectExistsQuery(mock sqlmock.Sqlmock, pattern string, exists bool) {
	mock.ExpectQuery(pattern).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestBookingTransactionIsSerializable(t *testing.T) {
	// sqlmock cannot observe BeginTx options, so the isolation choice is
	// pinned here against the options Book actually passes.
	require.Equal(t, sql.LevelSerializable, bookingTxOptions.Isolation)
}

func TestBookingCommitsWhenAllChecksPass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	expectLeadTimeLock(mock, 60)
	expectExistsQuery(mock, "SELECT 1 FROM availability_windows", true)
	expectExistsQuery(mock, "WHERE instructor_id = (.+) AND start_time <", false)
	expectExistsQuery(mock, "WHERE learner_id = (.+) AND start_time <", false)
	mock.ExpectExec("INSERT INTO trainings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	training, err := repo.Book(context.Background(), bookingParams(), bookingNow)
	require.NoError(t, err)
	require.NotNil(t, training)
	assert.NotEmpty(t, training.ID)
	assert.Equal(t, "inst-1", training.InstructorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRejectsUnknownInstructor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(leadTimeLockQuery).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"booking_leading_time"}))
	mock.ExpectRollback()

	training, err := repo.Book(context.Background(), bookingParams(), bookingNow)
	assert.Nil(t, training)
	assert.ErrorIs(t, err, ErrInstructorMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRejectsLeadTimeViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	// Lead time 120 min but the request starts 90 min out.
	mock.ExpectBegin()
	expectLeadTimeLock(mock, 120)
	mock.ExpectRollback()

	training, err := repo.Book(context.Background(), bookingParams(), bookingNow)
	assert.Nil(t, training)
	var leadErr *LeadTimeError
	require.True(t, errors.As(err, &leadErr))
	assert.Equal(t, 120, leadErr.Minutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRejectsOutsideAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	expectLeadTimeLock(mock, 60)
	expectExistsQuery(mock, "SELECT 1 FROM availability_windows", false)
	mock.ExpectRollback()

	training, err := repo.Book(context.Background(), bookingParams(), bookingNow)
	assert.Nil(t, training)
	assert.ErrorIs(t, err, ErrNoContainingWindow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRejectsInstructorOverlap(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	expectLeadTimeLock(mock, 60)
	expectExistsQuery(mock, "SELECT 1 FROM availability_windows", true)
	expectExistsQuery(mock, "WHERE instructor_id = (.+) AND start_time <", true)
	mock.ExpectRollback()

	training, err := repo.Book(context.Background(), bookingParams(), bookingNow)
	assert.Nil(t, training)
	assert.ErrorIs(t, err, ErrInstructorOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRejectsLearnerOverlapAndRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	expectLeadTimeLock(mock, 60)
	expectExistsQuery(mock, "SELECT 1 FROM availability_windows", true)
	expectExistsQuery(mock, "WHERE instructor_id = (.+) AND start_time <", false)
	expectExistsQuery(mock, "WHERE learner_id = (.+) AND start_time <", true)
	mock.ExpectRollback()

	training, err := repo.Book(context.Background(), bookingParams(), bookingNow)
	assert.Nil(t, training)
	assert.ErrorIs(t, err, ErrLearnerOverlap)
	// No INSERT was expected: zero rows written on failure.
	assert.NoError(t, mock.ExpectationsWereMet())
}
