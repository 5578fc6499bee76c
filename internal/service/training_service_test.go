package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type trainingRepoMock struct {
	item *models.TrainingListItem
	err  error
}

func (m *trainingRepoMock) Get(ctx context.Context, id string) (*models.TrainingListItem, error) {
	return m.item, m.err
}

func (m *trainingRepoMock) ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.TrainingListItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.TrainingListItem{*m.item}, nil
}

type scoreSheetRepoMock struct {
	sheet   *models.ScoreSheet
	sheets  []models.ScoreSheet
	getErr  error
	err     error
	updated types.JSONText
	deleted string
}

func (m *scoreSheetRepoMock) Create(ctx context.Context, trainingID string) (*models.ScoreSheet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.ScoreSheet{ID: "sheet-1", TrainingID: trainingID, Data: types.JSONText(`{}`)}, nil
}

func (m *scoreSheetRepoMock) Get(ctx context.Context, id string) (*models.ScoreSheet, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.sheet, nil
}

func (m *scoreSheetRepoMock) ListByTraining(ctx context.Context, trainingID string) ([]models.ScoreSheet, error) {
	return m.sheets, m.err
}

func (m *scoreSheetRepoMock) UpdateData(ctx context.Context, id string, data types.JSONText) error {
	if m.err != nil {
		return m.err
	}
	m.updated = data
	return nil
}

func (m *scoreSheetRepoMock) Delete(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = id
	return nil
}

type publisherMock struct {
	events []models.ChannelEvent
	ids    []string
	err    error
}

func (m *publisherMock) Publish(ctx context.Context, trainingID string, event models.ChannelEvent) error {
	m.ids = append(m.ids, trainingID)
	m.events = append(m.events, event)
	return m.err
}

func trainingItem() *models.TrainingListItem {
	return &models.TrainingListItem{
		Training:       models.Training{ID: "training-1", InstructorID: "inst-1", LearnerID: "learner-1"},
		InstructorName: "Pat Instructor",
		LearnerName:    "Lee Learner",
	}
}

func TestTrainingGetIncludesScoreSheets(t *testing.T) {
	sheets := &scoreSheetRepoMock{sheets: []models.ScoreSheet{{ID: "sheet-1"}, {ID: "sheet-2"}}}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, sheets, nil, zap.NewNop())

	detail, err := svc.Get(context.Background(), "training-1")
	require.NoError(t, err)
	assert.Equal(t, "training-1", detail.ID)
	assert.Len(t, detail.ScoreSheets, 2)
}

func TestTrainingGetMissing(t *testing.T) {
	svc := NewTrainingService(&trainingRepoMock{err: sql.ErrNoRows}, &scoreSheetRepoMock{}, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "training not found", appErr.Message)
}

func TestAddScoreSheetPublishesEvent(t *testing.T) {
	pub := &publisherMock{}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, &scoreSheetRepoMock{}, pub, zap.NewNop())

	sheet, err := svc.AddScoreSheet(context.Background(), "training-1")
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", sheet.ID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventAddScoreSheet, pub.events[0].Type)
	assert.Equal(t, "sheet-1", pub.events[0].ScoreSheetID)
	assert.Equal(t, "training-1", pub.ids[0])
}

func TestAddScoreSheetUnknownTraining(t *testing.T) {
	pub := &publisherMock{}
	svc := NewTrainingService(&trainingRepoMock{err: sql.ErrNoRows}, &scoreSheetRepoMock{}, pub, zap.NewNop())

	_, err := svc.AddScoreSheet(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pub.events)
}

func TestUpdateScoreSheetCompactsAndPublishes(t *testing.T) {
	pub := &publisherMock{}
	sheets := &scoreSheetRepoMock{sheet: &models.ScoreSheet{ID: "sheet-1", TrainingID: "training-1"}}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, sheets, pub, zap.NewNop())

	sheet, err := svc.UpdateScoreSheet(context.Background(), "sheet-1", json.RawMessage("{ \"parking\": 4 }"))
	require.NoError(t, err)
	assert.Equal(t, `{"parking":4}`, string(sheets.updated))
	assert.Equal(t, `{"parking":4}`, string(sheet.Data))
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventUpdateScoreSheet, pub.events[0].Type)
	assert.Equal(t, "training-1", pub.ids[0])
}

func TestUpdateScoreSheetRejectsMalformedJSON(t *testing.T) {
	sheets := &scoreSheetRepoMock{sheet: &models.ScoreSheet{ID: "sheet-1", TrainingID: "training-1"}}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, sheets, nil, zap.NewNop())

	_, err := svc.UpdateScoreSheet(context.Background(), "sheet-1", json.RawMessage(`{"parking":`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPayload.Code, appErrors.FromError(err).Code)
	assert.Empty(t, sheets.updated)
}

func TestDeleteScoreSheetPublishesEvent(t *testing.T) {
	pub := &publisherMock{}
	sheets := &scoreSheetRepoMock{sheet: &models.ScoreSheet{ID: "sheet-1", TrainingID: "training-1"}}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, sheets, pub, zap.NewNop())

	require.NoError(t, svc.DeleteScoreSheet(context.Background(), "sheet-1"))
	assert.Equal(t, "sheet-1", sheets.deleted)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventDeleteScoreSheet, pub.events[0].Type)
}

func TestDeleteScoreSheetAbsentIsNoOp(t *testing.T) {
	pub := &publisherMock{}
	sheets := &scoreSheetRepoMock{getErr: sql.ErrNoRows}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, sheets, pub, zap.NewNop())

	require.NoError(t, svc.DeleteScoreSheet(context.Background(), "sheet-1"))
	assert.Empty(t, sheets.deleted)
	assert.Empty(t, pub.events)
}

func TestScoreSheetMutationSurvivesPublishFailure(t *testing.T) {
	pub := &publisherMock{err: assert.AnError}
	sheets := &scoreSheetRepoMock{sheet: &models.ScoreSheet{ID: "sheet-1", TrainingID: "training-1"}}
	svc := NewTrainingService(&trainingRepoMock{item: trainingItem()}, sheets, pub, zap.NewNop())

	sheet, err := svc.UpdateScoreSheet(context.Background(), "sheet-1", json.RawMessage(`{"night":2}`))
	require.NoError(t, err)
	assert.Equal(t, `{"night":2}`, string(sheet.Data))
}
