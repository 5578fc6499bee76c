package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type availabilityRepo interface {
	ListFuture(ctx context.Context, instructorID string, now time.Time) ([]models.AvailabilityWindow, error)
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Delete(ctx context.Context, id, instructorID string) error
}

// CreateAvailabilityRequest captures a new window payload.
type CreateAvailabilityRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// AvailabilityService manages instructor availability windows.
type AvailabilityService struct {
	repo      availabilityRepo
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService builds the service.
func NewAvailabilityService(repo availabilityRepo, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ListFuture returns the instructor's windows that have not ended yet,
// ascending by start time.
func (s *AvailabilityService) ListFuture(ctx context.Context, instructorID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.repo.ListFuture(ctx, instructorID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load availability")
	}
	return windows, nil
}

// Create publishes a new window. Windows of the same instructor may overlap
// each other, so no overlap check is made here.
func (s *AvailabilityService) Create(ctx context.Context, instructorID string, req CreateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "")
	}

	window := &models.AvailabilityWindow{
		InstructorID: instructorID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create availability")
	}
	return window, nil
}

// Delete removes the window when owned by the instructor. Missing and
// foreign windows are a silent no-op, so repeated deletes are safe and the
// caller cannot distinguish not-found from not-owned. Committed trainings
// booked against the window are deliberately left untouched.
func (s *AvailabilityService) Delete(ctx context.Context, id, instructorID string) error {
	if err := s.repo.Delete(ctx, id, instructorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete availability")
	}
	return nil
}
