package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/internal/repository"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type bookingRepo interface {
	Book(ctx context.Context, params repository.BookingParams, now time.Time) (*models.Training, error)
}

// RequestTrainingRequest captures a learner's booking payload.
type RequestTrainingRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// BookingService decides whether a training request becomes a committed
// session. The decision order is fixed: interval shape, instructor
// existence, lead time, availability containment, instructor conflict,
// learner conflict. The first failing check wins.
type BookingService struct {
	repo      bookingRepo
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService builds the service.
func NewBookingService(repo bookingRepo, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestTraining validates and commits the request. Every rejection is
// returned as a typed error carrying a message the caller renders verbatim;
// only unexpected storage faults surface as STORAGE_FAILURE.
func (s *BookingService) RequestTraining(ctx context.Context, learnerID, instructorID string, req RequestTrainingRequest) (*models.Training, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training request payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "")
	}

	params := repository.BookingParams{
		InstructorID: instructorID,
		LearnerID:    learnerID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}

	training, err := s.repo.Book(ctx, params, s.now())
	if err != nil {
		return nil, s.mapBookingError(err, instructorID)
	}

	s.logger.Info("training booked",
		zap.String("training_id", training.ID),
		zap.String("instructor_id", instructorID),
		zap.String("learner_id", learnerID),
		zap.Time("start_time", training.StartTime),
	)
	return training, nil
}

func (s *BookingService) mapBookingError(err error, instructorID string) error {
	var leadErr *repository.LeadTimeError
	switch {
	case errors.Is(err, repository.ErrInstructorMissing):
		return appErrors.Clone(appErrors.ErrInstructorNotFound, "")
	case errors.As(err, &leadErr):
		return appErrors.Clone(appErrors.ErrLeadTimeViolation,
			fmt.Sprintf("start time must be at least %d minutes from now", leadErr.Minutes))
	case errors.Is(err, repository.ErrNoContainingWindow):
		return appErrors.Clone(appErrors.ErrOutsideAvailability, "")
	case errors.Is(err, repository.ErrInstructorOverlap):
		return appErrors.Clone(appErrors.ErrInstructorConflict, "")
	case errors.Is(err, repository.ErrLearnerOverlap):
		return appErrors.Clone(appErrors.ErrLearnerConflict, "")
	default:
		s.logger.Error("booking transaction failed",
			zap.String("instructor_id", instructorID),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to process training request")
	}
}
