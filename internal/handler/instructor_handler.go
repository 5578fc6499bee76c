package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadready/roadready-api/internal/service"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/response"
)

// InstructorHandler exposes the learner-facing instructor roster and the
// instructor's own booking settings.
type InstructorHandler struct {
	instructors *service.InstructorService
}

// NewInstructorHandler constructs handler.
func NewInstructorHandler(instructors *service.InstructorService) *InstructorHandler {
	return &InstructorHandler{instructors: instructors}
}

// List godoc
// @Summary List instructors
// @Tags Instructors
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	instructors, err := h.instructors.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, nil)
}

// Get godoc
// @Summary Instructor detail with future availability
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	detail, err := h.instructors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateProfile godoc
// @Summary Update the caller's booking settings
// @Tags Instructors
// @Accept json
// @Produce json
// @Param payload body service.UpdateInstructorProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors/me/profile [put]
func (h *InstructorHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateInstructorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profile, err := h.instructors.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
