package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadready/roadready-api/internal/realtime"
	"github.com/roadready/roadready-api/internal/service"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/response"
)

// RealtimeHandler exposes the per-training event channel: token issuance
// and the websocket upgrade.
type RealtimeHandler struct {
	realtimeSvc *service.RealtimeService
	trainings   *service.TrainingService
	hub         *realtime.Hub
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(realtimeSvc *service.RealtimeService, trainings *service.TrainingService, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{realtimeSvc: realtimeSvc, trainings: trainings, hub: hub}
}

// Token godoc
// @Summary Issue a channel access token for a training
// @Tags Realtime
// @Produce json
// @Param id path string true "Training ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /trainings/{id}/channel/token [get]
func (h *RealtimeHandler) Token(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	trainingID := c.Param("id")
	detail, err := h.trainings.Get(c.Request.Context(), trainingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if detail.InstructorID != claims.UserID && detail.LearnerID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not a party of this training"))
		return
	}

	access, err := h.realtimeSvc.GetAccessToken(trainingID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, access, nil)
}

// Subscribe godoc
// @Summary Upgrade to a websocket scoped to one training channel
// @Tags Realtime
// @Param id path string true "Training ID"
// @Param token query string true "Channel access token"
// @Success 101
// @Router /trainings/{id}/channel/ws [get]
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	trainingID := c.Param("id")
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "channel token required"))
		return
	}

	if _, err := h.realtimeSvc.ValidateAccessToken(token, trainingID); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.hub.Subscribe(c.Writer, c.Request, trainingID); err != nil {
		// Upgrade failures already wrote to the connection.
		return
	}
}
