package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type trainingRepo interface {
	Get(ctx context.Context, id string) (*models.TrainingListItem, error)
	ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.TrainingListItem, error)
}

type scoreSheetRepo interface {
	Create(ctx context.Context, trainingID string) (*models.ScoreSheet, error)
	Get(ctx context.Context, id string) (*models.ScoreSheet, error)
	ListByTraining(ctx context.Context, trainingID string) ([]models.ScoreSheet, error)
	UpdateData(ctx context.Context, id string, data types.JSONText) error
	Delete(ctx context.Context, id string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, trainingID string, event models.ChannelEvent) error
}

// TrainingService owns the registry of committed sessions and their score
// sheets. Role and party checks are the caller's responsibility; this
// service trusts its inputs.
//
// Score-sheet mutations persist first and publish second. The two steps are
// not atomic: a crash in between leaves the change saved but subscribers
// unnotified, which reconnecting clients recover from by reloading.
type TrainingService struct {
	trainings trainingRepo
	sheets    scoreSheetRepo
	realtime  eventPublisher
	logger    *zap.Logger
}

// NewTrainingService builds the service.
func NewTrainingService(trainings trainingRepo, sheets scoreSheetRepo, realtime eventPublisher, logger *zap.Logger) *TrainingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingService{
		trainings: trainings,
		sheets:    sheets,
		realtime:  realtime,
		logger:    logger,
	}
}

// Get returns the training with party names and its score sheets ordered by
// creation.
func (s *TrainingService) Get(ctx context.Context, trainingID string) (*models.TrainingDetail, error) {
	item, err := s.trainings.Get(ctx, trainingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training")
	}

	sheets, err := s.sheets.ListByTraining(ctx, trainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load score sheets")
	}

	return &models.TrainingDetail{TrainingListItem: *item, ScoreSheets: sheets}, nil
}

// ListForUser returns trainings where the user is a party, newest first.
func (s *TrainingService) ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.TrainingListItem, error) {
	items, err := s.trainings.ListForUser(ctx, userID, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load trainings")
	}
	return items, nil
}

// AddScoreSheet creates an empty sheet and notifies subscribers.
func (s *TrainingService) AddScoreSheet(ctx context.Context, trainingID string) (*models.ScoreSheet, error) {
	if _, err := s.trainings.Get(ctx, trainingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training")
	}

	sheet, err := s.sheets.Create(ctx, trainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create score sheet")
	}

	s.notify(ctx, trainingID, models.ChannelEvent{
		Type:         models.EventAddScoreSheet,
		ScoreSheetID: sheet.ID,
		Data:         json.RawMessage(sheet.Data),
	})
	return sheet, nil
}

// UpdateScoreSheet replaces the sheet's document wholesale. Data must be a
// well-formed JSON value; it is compacted once here and stored verbatim.
func (s *TrainingService) UpdateScoreSheet(ctx context.Context, sheetID string, data json.RawMessage) (*models.ScoreSheet, error) {
	if !json.Valid(data) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPayload, "score sheet data must be valid JSON")
	}
	compact := &bytes.Buffer{}
	if err := json.Compact(compact, data); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidPayload, "score sheet data must be valid JSON")
	}

	sheet, err := s.sheets.Get(ctx, sheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "score sheet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load score sheet")
	}

	stored := types.JSONText(compact.Bytes())
	if err := s.sheets.UpdateData(ctx, sheetID, stored); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update score sheet")
	}
	sheet.Data = stored

	s.notify(ctx, sheet.TrainingID, models.ChannelEvent{
		Type:         models.EventUpdateScoreSheet,
		ScoreSheetID: sheet.ID,
		Data:         json.RawMessage(stored),
	})
	return sheet, nil
}

// DeleteScoreSheet removes the sheet and notifies subscribers. Deleting an
// absent sheet is a no-op with no event.
func (s *TrainingService) DeleteScoreSheet(ctx context.Context, sheetID string) error {
	sheet, err := s.sheets.Get(ctx, sheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load score sheet")
	}

	if err := s.sheets.Delete(ctx, sheetID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete score sheet")
	}

	s.notify(ctx, sheet.TrainingID, models.ChannelEvent{
		Type:         models.EventDeleteScoreSheet,
		ScoreSheetID: sheet.ID,
	})
	return nil
}

func (s *TrainingService) notify(ctx context.Context, trainingID string, event models.ChannelEvent) {
	if s.realtime == nil {
		return
	}
	if err := s.realtime.Publish(ctx, trainingID, event); err != nil {
		s.logger.Warn("failed to publish channel event",
			zap.String("training_id", trainingID),
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
	}
}
