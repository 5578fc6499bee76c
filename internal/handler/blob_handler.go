package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/response"
	"github.com/roadready/roadready-api/pkg/storage"
)

// BlobHandler serves blobs addressed by presigned tokens.
type BlobHandler struct {
	blobs  *storage.BlobStore
	signer *storage.SignedURLSigner
}

// NewBlobHandler constructs handler.
func NewBlobHandler(blobs *storage.BlobStore, signer *storage.SignedURLSigner) *BlobHandler {
	return &BlobHandler{blobs: blobs, signer: signer}
}

// Download godoc
// @Summary Download a blob via a presigned token
// @Tags Blobs
// @Param token query string true "Presigned token"
// @Success 200 {file} binary
// @Router /blobs [get]
func (h *BlobHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token required"))
		return
	}

	container, key, perm, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token"))
		return
	}
	if perm != storage.PermissionRead {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token does not grant read access"))
		return
	}

	file, err := h.blobs.Open(container, key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "blob not found"))
		return
	}
	defer file.Close()

	contentType := h.blobs.ContentType(container, key)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat blob"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
