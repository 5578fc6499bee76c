package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type instructorRepo interface {
	List(ctx context.Context) ([]models.InstructorSummary, error)
	GetProfile(ctx context.Context, userID string) (*models.InstructorProfile, error)
	UpsertProfile(ctx context.Context, profile *models.InstructorProfile) error
}

type instructorUserRepo interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type instructorAvailabilityRepo interface {
	ListFuture(ctx context.Context, instructorID string, now time.Time) ([]models.AvailabilityWindow, error)
}

// UpdateInstructorProfileRequest updates booking settings.
type UpdateInstructorProfileRequest struct {
	BookingLeadingTime int `json:"booking_leading_time" validate:"min=0"`
}

// InstructorService serves the learner-facing instructor roster and the
// instructor's own booking settings.
type InstructorService struct {
	instructors  instructorRepo
	users        instructorUserRepo
	availability instructorAvailabilityRepo
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewInstructorService builds the service.
func NewInstructorService(instructors instructorRepo, users instructorUserRepo, availability instructorAvailabilityRepo, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{
		instructors:  instructors,
		users:        users,
		availability: availability,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// List returns all instructors for learner browsing.
func (s *InstructorService) List(ctx context.Context) ([]models.InstructorSummary, error) {
	instructors, err := s.instructors.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load instructors")
	}
	return instructors, nil
}

// Get returns one instructor with their future availability windows.
func (s *InstructorService) Get(ctx context.Context, instructorID string) (*models.InstructorDetail, error) {
	user, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInstructorNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load instructor")
	}
	if user.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrInstructorNotFound, "")
	}

	profile, err := s.instructors.GetProfile(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInstructorNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load instructor profile")
	}

	windows, err := s.availability.ListFuture(ctx, instructorID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load availability")
	}

	return &models.InstructorDetail{
		ID:                 user.ID,
		Name:               user.Name,
		BookingLeadingTime: profile.BookingLeadingTime,
		Availabilities:     windows,
	}, nil
}

// UpdateProfile stores the instructor's booking lead time.
func (s *InstructorService) UpdateProfile(ctx context.Context, instructorID string, req UpdateInstructorProfileRequest) (*models.InstructorProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	existing, err := s.instructors.GetProfile(ctx, instructorID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load instructor profile")
	}

	profile := &models.InstructorProfile{
		UserID:             instructorID,
		BookingLeadingTime: req.BookingLeadingTime,
	}
	if existing != nil {
		profile.CreatedAt = existing.CreatedAt
	}

	if err := s.instructors.UpsertProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update instructor profile")
	}
	return profile, nil
}
