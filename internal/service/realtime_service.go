package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/pkg/config"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type channelPublisher interface {
	Publish(ctx context.Context, trainingID string, payload []byte) error
}

// RealtimeService issues channel access tokens and publishes score-sheet
// events to training channels. Delivery is best-effort: nothing is
// persisted or replayed, and a publish failure never undoes the registry
// write that preceded it.
type RealtimeService struct {
	publisher channelPublisher
	cfg       config.RealtimeConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewRealtimeService builds the service.
func NewRealtimeService(publisher channelPublisher, cfg config.RealtimeConfig, logger *zap.Logger) *RealtimeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeService{
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Publish fans the event out to the training's subscribers.
func (s *RealtimeService) Publish(ctx context.Context, trainingID string, event models.ChannelEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode channel event")
	}
	if err := s.publisher.Publish(ctx, trainingID, payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to publish channel event")
	}
	return nil
}

// GetAccessToken issues a short-lived credential scoped to exactly one
// training channel.
func (s *RealtimeService) GetAccessToken(trainingID, userID string) (*models.ChannelAccess, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := &models.ChannelClaims{
		TrainingID: trainingID,
		UserID:     userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign channel token")
	}

	return &models.ChannelAccess{
		Token:     token,
		URL:       fmt.Sprintf("/api/v1/trainings/%s/channel/ws?token=%s", trainingID, token),
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// ValidateAccessToken checks the credential and confirms it is scoped to
// the requested channel.
func (s *RealtimeService) ValidateAccessToken(tokenString, trainingID string) (*models.ChannelClaims, error) {
	claims := &models.ChannelClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid channel token")
	}
	if claims.TrainingID != trainingID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token is not scoped to this training")
	}
	return claims, nil
}
