package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/roadready-api/internal/middleware"
	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/internal/service"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type trainingRegistryMock struct {
	detail       *models.TrainingDetail
	detailErr    error
	sheet        *models.ScoreSheet
	sheetErr     error
	deleteCalled bool
	updatedData  json.RawMessage
}

func (m *trainingRegistryMock) Get(ctx context.Context, trainingID string) (*models.TrainingDetail, error) {
	return m.detail, m.detailErr
}

func (m *trainingRegistryMock) ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.TrainingListItem, error) {
	if m.detail == nil {
		return nil, nil
	}
	return []models.TrainingListItem{m.detail.TrainingListItem}, nil
}

func (m *trainingRegistryMock) AddScoreSheet(ctx context.Context, trainingID string) (*models.ScoreSheet, error) {
	return m.sheet, m.sheetErr
}

func (m *trainingRegistryMock) UpdateScoreSheet(ctx context.Context, sheetID string, data json.RawMessage) (*models.ScoreSheet, error) {
	m.updatedData = data
	return m.sheet, m.sheetErr
}

func (m *trainingRegistryMock) DeleteScoreSheet(ctx context.Context, sheetID string) error {
	m.deleteCalled = true
	return nil
}

type bookingRequesterMock struct {
	training *models.Training
	err      error
	called   bool
}

func (m *bookingRequesterMock) RequestTraining(ctx context.Context, learnerID, instructorID string, req service.RequestTrainingRequest) (*models.Training, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return m.training, nil
}

type exportRendererMock struct {
	result *service.ExportResult
	err    error
}

func (m *exportRendererMock) Render(ctx context.Context, trainingID string, format service.ExportFormat) (*service.ExportResult, error) {
	return m.result, m.err
}

func testDetail() *models.TrainingDetail {
	return &models.TrainingDetail{
		TrainingListItem: models.TrainingListItem{
			Training: models.Training{ID: "training-1", InstructorID: "inst-1", LearnerID: "learner-1"},
		},
		ScoreSheets: []models.ScoreSheet{{ID: "sheet-1", TrainingID: "training-1"}},
	}
}

func testContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestTrainingHandlerRequestCreated(t *testing.T) {
	bookings := &bookingRequesterMock{training: &models.Training{ID: "training-1"}}
	h := NewTrainingHandler(&trainingRegistryMock{}, bookings, nil, nil)

	start := time.Now().Add(48 * time.Hour).UTC()
	payload, _ := json.Marshal(service.RequestTrainingRequest{StartTime: start, EndTime: start.Add(time.Hour)})
	c, w := testContext(t, http.MethodPost, "/instructors/inst-1/trainings", payload, &models.JWTClaims{UserID: "learner-1", Role: models.RoleLearner})
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.Request(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, bookings.called)
}

func TestTrainingHandlerRequestConflict(t *testing.T) {
	bookings := &bookingRequesterMock{err: appErrors.ErrInstructorConflict}
	h := NewTrainingHandler(&trainingRegistryMock{}, bookings, nil, nil)

	start := time.Now().Add(48 * time.Hour).UTC()
	payload, _ := json.Marshal(service.RequestTrainingRequest{StartTime: start, EndTime: start.Add(time.Hour)})
	c, w := testContext(t, http.MethodPost, "/instructors/inst-1/trainings", payload, &models.JWTClaims{UserID: "learner-1", Role: models.RoleLearner})
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}

	h.Request(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestTrainingHandlerGetRequiresParty(t *testing.T) {
	h := NewTrainingHandler(&trainingRegistryMock{detail: testDetail()}, nil, nil, nil)

	c, w := testContext(t, http.MethodGet, "/trainings/training-1", nil, &models.JWTClaims{UserID: "stranger", Role: models.RoleLearner})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}}

	h.Get(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTrainingHandlerGetAsParty(t *testing.T) {
	h := NewTrainingHandler(&trainingRegistryMock{detail: testDetail()}, nil, nil, nil)

	c, w := testContext(t, http.MethodGet, "/trainings/training-1", nil, &models.JWTClaims{UserID: "learner-1", Role: models.RoleLearner})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}}

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTrainingHandlerScoreSheetInstructorOnly(t *testing.T) {
	registry := &trainingRegistryMock{detail: testDetail(), sheet: &models.ScoreSheet{ID: "sheet-2", TrainingID: "training-1"}}
	h := NewTrainingHandler(registry, nil, nil, nil)

	c, w := testContext(t, http.MethodPost, "/trainings/training-1/scoresheets", nil, &models.JWTClaims{UserID: "learner-1", Role: models.RoleLearner})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}}

	h.AddScoreSheet(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = testContext(t, http.MethodPost, "/trainings/training-1/scoresheets", nil, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}}

	h.AddScoreSheet(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestTrainingHandlerUpdateUnknownSheet(t *testing.T) {
	h := NewTrainingHandler(&trainingRegistryMock{detail: testDetail()}, nil, nil, nil)

	c, w := testContext(t, http.MethodPut, "/trainings/training-1/scoresheets/missing", []byte(`{"parking":4}`), &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}, {Key: "sheetId", Value: "missing"}}

	h.UpdateScoreSheet(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrainingHandlerUpdateScoreSheet(t *testing.T) {
	registry := &trainingRegistryMock{detail: testDetail(), sheet: &models.ScoreSheet{ID: "sheet-1", TrainingID: "training-1"}}
	h := NewTrainingHandler(registry, nil, nil, nil)

	c, w := testContext(t, http.MethodPut, "/trainings/training-1/scoresheets/sheet-1", []byte(`{"parking":4}`), &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}, {Key: "sheetId", Value: "sheet-1"}}

	h.UpdateScoreSheet(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"parking":4}`, string(registry.updatedData))
}

func TestTrainingHandlerDeleteScoreSheet(t *testing.T) {
	registry := &trainingRegistryMock{detail: testDetail()}
	h := NewTrainingHandler(registry, nil, nil, nil)

	c, w := testContext(t, http.MethodDelete, "/trainings/training-1/scoresheets/sheet-1", nil, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}, {Key: "sheetId", Value: "sheet-1"}}

	h.DeleteScoreSheet(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, registry.deleteCalled)
}

func TestTrainingHandlerDeleteForeignSheetRejected(t *testing.T) {
	// The caller instructs training-1, whose only sheet is sheet-1. Naming a
	// sheet of another training must not reach the registry.
	registry := &trainingRegistryMock{detail: testDetail()}
	h := NewTrainingHandler(registry, nil, nil, nil)

	c, w := testContext(t, http.MethodDelete, "/trainings/training-1/scoresheets/other-sheet", nil, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}, {Key: "sheetId", Value: "other-sheet"}}

	h.DeleteScoreSheet(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, registry.deleteCalled)
}

func TestTrainingHandlerExport(t *testing.T) {
	exports := &exportRendererMock{result: &service.ExportResult{
		Content:     []byte("%PDF-fake"),
		ContentType: "application/pdf",
		Filename:    "training.pdf",
	}}
	h := NewTrainingHandler(&trainingRegistryMock{detail: testDetail()}, nil, exports, nil)

	c, w := testContext(t, http.MethodGet, "/trainings/training-1/export", nil, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "training-1"}}

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "training.pdf")
}
