package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/pkg/config"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/storage"
)

// LicenseContainer is the blob container holding license images.
const LicenseContainer = "licenses"

type authUserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	SetLicenseBlobKey(ctx context.Context, id, key string) error
	CreateLearnerProfile(ctx context.Context, profile *models.LearnerProfile) error
}

type authInstructorRepo interface {
	UpsertProfile(ctx context.Context, profile *models.InstructorProfile) error
}

type licenseBlobStore interface {
	Upload(container, key string, data []byte, contentType string) error
	Delete(container, key string) error
}

// RegisterRequest captures a signup payload. Learners must provide a
// non-expired license; the image itself is optional.
type RegisterRequest struct {
	Email         string          `json:"email" validate:"required,email"`
	Name          string          `json:"name" validate:"required"`
	Password      string          `json:"password" validate:"required,min=8"`
	Role          models.UserRole `json:"role" validate:"required"`
	LicenseNumber string          `json:"license_number"`
	LicenseExpiry time.Time       `json:"license_expiry"`

	LicenseImage     []byte `json:"-"`
	LicenseImageType string `json:"-"`
}

// AuthService handles registration, login and token validation.
type AuthService struct {
	users       authUserRepo
	instructors authInstructorRepo
	blobs       licenseBlobStore
	signer      *storage.SignedURLSigner
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.JWTConfig
	now         func() time.Time
}

// NewAuthService constructs the service.
func NewAuthService(users authUserRepo, instructors authInstructorRepo, blobs licenseBlobStore, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, cfg config.JWTConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       users,
		instructors: instructors,
		blobs:       blobs,
		signer:      signer,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Register provisions an account with its role row. Instructors get a
// profile with lead time 0; learners must carry a valid license. When a
// license image is supplied but cannot be stored, the whole signup fails
// and the already-created user row is deleted again.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid role")
	}
	if req.Role == models.RoleLearner {
		if req.LicenseNumber == "" || req.LicenseExpiry.IsZero() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "learner must provide license number and expiry date")
		}
		if req.LicenseExpiry.Before(s.now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "learner license has expired")
		}
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	stamp := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create user")
	}

	if err := s.provisionRole(ctx, user, req); err != nil {
		s.compensate(ctx, user.ID)
		return nil, err
	}

	if len(req.LicenseImage) > 0 {
		key := fmt.Sprintf("%s/license", user.ID)
		if err := s.blobs.Upload(LicenseContainer, key, req.LicenseImage, req.LicenseImageType); err != nil {
			s.compensate(ctx, user.ID)
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store license image")
		}
		if err := s.users.SetLicenseBlobKey(ctx, user.ID, key); err != nil {
			_ = s.blobs.Delete(LicenseContainer, key)
			s.compensate(ctx, user.ID)
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to record license image")
		}
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &models.UserInfo{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}, nil
}

func (s *AuthService) provisionRole(ctx context.Context, user *models.User, req RegisterRequest) error {
	switch user.Role {
	case models.RoleInstructor:
		if err := s.instructors.UpsertProfile(ctx, &models.InstructorProfile{UserID: user.ID}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create instructor profile")
		}
	case models.RoleLearner:
		profile := &models.LearnerProfile{
			UserID:        user.ID,
			LicenseNumber: req.LicenseNumber,
			LicenseExpiry: req.LicenseExpiry,
			CreatedAt:     user.CreatedAt,
			UpdatedAt:     user.UpdatedAt,
		}
		if err := s.users.CreateLearnerProfile(ctx, profile); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create learner profile")
		}
	}
	return nil
}

// compensate removes the user row created earlier in a failed signup.
func (s *AuthService) compensate(ctx context.Context, userID string) {
	if err := s.users.Delete(ctx, userID); err != nil {
		s.logger.Error("failed to roll back user after signup failure",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// Login authenticates and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.Expiration)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.Expiration.Seconds()),
		IssuedAt:    now,
		User:        models.UserInfo{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role},
	}, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}
	if !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}
	return claims, nil
}

// LicenseURL returns a presigned read URL for the user's license image.
func (s *AuthService) LicenseURL(ctx context.Context, userID string) (string, time.Time, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to fetch user")
	}
	if user.LicenseBlobKey == nil || *user.LicenseBlobKey == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "no license image on file")
	}

	token, expiresAt, err := s.signer.Generate(LicenseContainer, *user.LicenseBlobKey, storage.PermissionRead)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign license url")
	}
	return fmt.Sprintf("/api/v1/blobs?token=%s", token), expiresAt, nil
}
