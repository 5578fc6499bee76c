package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/internal/service"
	"github.com/roadready/roadready-api/pkg/config"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/response"
)

// AuthHandler exposes signup and login endpoints.
type AuthHandler struct {
	auth *service.AuthService
	cfg  config.BlobConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth *service.AuthService, cfg config.BlobConfig) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

// Register godoc
// @Summary Register a new account
// @Tags Auth
// @Accept multipart/form-data
// @Produce json
// @Param email formData string true "Email"
// @Param name formData string true "Full name"
// @Param password formData string true "Password"
// @Param role formData string true "INSTRUCTOR or LEARNER"
// @Param license_number formData string false "Learner license number"
// @Param license_expiry formData string false "Learner license expiry (RFC3339)"
// @Param license_image formData file false "Learner license image"
// @Success 201 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	req := service.RegisterRequest{
		Email:         c.PostForm("email"),
		Name:          c.PostForm("name"),
		Password:      c.PostForm("password"),
		Role:          models.UserRole(c.PostForm("role")),
		LicenseNumber: c.PostForm("license_number"),
	}
	if raw := c.PostForm("license_expiry"); raw != "" {
		expiry, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "license_expiry must be RFC3339"))
			return
		}
		req.LicenseExpiry = expiry
	}

	if file, err := c.FormFile("license_image"); err == nil {
		if file.Size > h.cfg.MaxFileSizeBytes {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "license image exceeds the size limit"))
			return
		}
		contentType := file.Header.Get("Content-Type")
		if !h.mimeAllowed(contentType) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported license image type"))
			return
		}
		src, err := file.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read license image"))
			return
		}
		defer src.Close()
		data, err := io.ReadAll(io.LimitReader(src, h.cfg.MaxFileSizeBytes+1))
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read license image"))
			return
		}
		if int64(len(data)) > h.cfg.MaxFileSizeBytes {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "license image exceeds the size limit"))
			return
		}
		req.LicenseImage = data
		req.LicenseImageType = contentType
	}

	info, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// Login godoc
// @Summary Authenticate and issue an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// LicenseURL godoc
// @Summary Presigned URL for the caller's license image
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me/license-url [get]
func (h *AuthHandler) LicenseURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	url, expiresAt, err := h.auth.LicenseURL(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"url": url, "expires_at": expiresAt}, nil)
}

func (h *AuthHandler) mimeAllowed(contentType string) bool {
	if len(h.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedMIMEs {
		if contentType == allowed {
			return true
		}
	}
	return false
}
