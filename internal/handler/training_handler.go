package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/internal/service"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/response"
)

type trainingRegistry interface {
	Get(ctx context.Context, trainingID string) (*models.TrainingDetail, error)
	ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.TrainingListItem, error)
	AddScoreSheet(ctx context.Context, trainingID string) (*models.ScoreSheet, error)
	UpdateScoreSheet(ctx context.Context, sheetID string, data json.RawMessage) (*models.ScoreSheet, error)
	DeleteScoreSheet(ctx context.Context, sheetID string) error
}

type bookingRequester interface {
	RequestTraining(ctx context.Context, learnerID, instructorID string, req service.RequestTrainingRequest) (*models.Training, error)
}

type exportRenderer interface {
	Render(ctx context.Context, trainingID string, format service.ExportFormat) (*service.ExportResult, error)
}

// TrainingHandler exposes the training registry: booking, listing, score
// sheets and export.
type TrainingHandler struct {
	trainings trainingRegistry
	bookings  bookingRequester
	exports   exportRenderer
	metrics   *service.MetricsService
}

// NewTrainingHandler constructs handler.
func NewTrainingHandler(trainings trainingRegistry, bookings bookingRequester, exports exportRenderer, metrics *service.MetricsService) *TrainingHandler {
	return &TrainingHandler{trainings: trainings, bookings: bookings, exports: exports, metrics: metrics}
}

// Request godoc
// @Summary Request a training with an instructor
// @Tags Trainings
// @Accept json
// @Produce json
// @Param id path string true "Instructor ID"
// @Param payload body service.RequestTrainingRequest true "Requested window"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors/{id}/trainings [post]
func (h *TrainingHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RequestTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	training, err := h.bookings.RequestTraining(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		h.recordBooking(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.recordBooking("committed")
	response.Created(c, training)
}

// List godoc
// @Summary List the caller's trainings, newest first
// @Tags Trainings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /trainings [get]
func (h *TrainingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.trainings.ListForUser(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Training detail with score sheets
// @Tags Trainings
// @Produce json
// @Param id path string true "Training ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /trainings/{id} [get]
func (h *TrainingHandler) Get(c *gin.Context) {
	detail, err := h.partyTraining(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Export godoc
// @Summary Export a training's score sheets
// @Tags Trainings
// @Produce application/pdf
// @Param id path string true "Training ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /trainings/{id}/export [get]
func (h *TrainingHandler) Export(c *gin.Context) {
	if _, err := h.partyTraining(c); err != nil {
		response.Error(c, err)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportPDF)))
	if format != service.ExportPDF && format != service.ExportCSV {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv"))
		return
	}

	result, err := h.exports.Render(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// AddScoreSheet godoc
// @Summary Add an empty score sheet to a training
// @Tags ScoreSheets
// @Produce json
// @Param id path string true "Training ID"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /trainings/{id}/scoresheets [post]
func (h *TrainingHandler) AddScoreSheet(c *gin.Context) {
	if _, err := h.instructorTraining(c); err != nil {
		response.Error(c, err)
		return
	}

	sheet, err := h.trainings.AddScoreSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordEvent(models.EventAddScoreSheet)
	response.Created(c, sheet)
}

// UpdateScoreSheet godoc
// @Summary Replace a score sheet's document
// @Tags ScoreSheets
// @Accept json
// @Produce json
// @Param id path string true "Training ID"
// @Param sheetId path string true "Score sheet ID"
// @Param payload body object true "Score sheet document"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /trainings/{id}/scoresheets/{sheetId} [put]
func (h *TrainingHandler) UpdateScoreSheet(c *gin.Context) {
	detail, err := h.instructorTraining(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sheetID := c.Param("sheetId")
	if !h.sheetBelongs(detail, sheetID) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "score sheet not found"))
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	sheet, err := h.trainings.UpdateScoreSheet(c.Request.Context(), sheetID, json.RawMessage(data))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordEvent(models.EventUpdateScoreSheet)
	response.JSON(c, http.StatusOK, sheet, nil)
}

// DeleteScoreSheet godoc
// @Summary Delete a score sheet
// @Tags ScoreSheets
// @Param id path string true "Training ID"
// @Param sheetId path string true "Score sheet ID"
// @Success 204
// @Security BearerAuth
// @Router /trainings/{id}/scoresheets/{sheetId} [delete]
func (h *TrainingHandler) DeleteScoreSheet(c *gin.Context) {
	detail, err := h.instructorTraining(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sheetID := c.Param("sheetId")
	if !h.sheetBelongs(detail, sheetID) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "score sheet not found"))
		return
	}

	if err := h.trainings.DeleteScoreSheet(c.Request.Context(), sheetID); err != nil {
		response.Error(c, err)
		return
	}
	h.recordEvent(models.EventDeleteScoreSheet)
	response.NoContent(c)
}

// partyTraining loads the training and confirms the caller is one of its
// two parties.
func (h *TrainingHandler) partyTraining(c *gin.Context) (*models.TrainingDetail, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := h.trainings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if detail.InstructorID != claims.UserID && detail.LearnerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a party of this training")
	}
	return detail, nil
}

// instructorTraining additionally requires the caller to be the training's
// instructor.
func (h *TrainingHandler) instructorTraining(c *gin.Context) (*models.TrainingDetail, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := h.trainings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if detail.InstructorID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the training's instructor may modify score sheets")
	}
	return detail, nil
}

func (h *TrainingHandler) sheetBelongs(detail *models.TrainingDetail, sheetID string) bool {
	for _, sheet := range detail.ScoreSheets {
		if sheet.ID == sheetID {
			return true
		}
	}
	return false
}

func (h *TrainingHandler) recordBooking(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordBooking(strings.ToLower(outcome))
	}
}

func (h *TrainingHandler) recordEvent(eventType models.ChannelEventType) {
	if h.metrics != nil {
		h.metrics.RecordChannelEvent(string(eventType))
	}
}
