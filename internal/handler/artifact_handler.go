package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/errs"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

// ArtifactStore is the persistence collaborator for finished capture
// artifacts. The service only needs "accept an artifact, report success".
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, token string, req model.UploadArtifactRequest) (string, error)
	ListArtifacts(ctx context.Context, token string) ([]model.ArtifactInfo, error)
}

// ArtifactHandler handles artifact upload and listing.
type ArtifactHandler struct {
	store   ArtifactStore
	maxSize int64
}

// NewArtifactHandler creates an artifact handler.
func NewArtifactHandler(store ArtifactStore, maxSize int64) *ArtifactHandler {
	return &ArtifactHandler{store: store, maxSize: maxSize}
}

// Upload godoc
// POST /sessions/:token/artifacts
func (h *ArtifactHandler) Upload(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	var req model.UploadArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	if req.Kind != model.ArtifactKindScreenshot && req.Kind != model.ArtifactKindRecording {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.ErrInvalidArtifactKind.Error()})
		return
	}
	if h.maxSize > 0 && int64(len(req.Data)) > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errs.ErrArtifactTooLarge.Error()})
		return
	}
	id, err := h.store.SaveArtifact(c.Request.Context(), token, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save artifact"})
		return
	}
	c.JSON(http.StatusCreated, model.UploadArtifactResponse{ID: id, Kind: req.Kind, Size: len(req.Data)})
}

// List godoc
// GET /sessions/:token/artifacts
func (h *ArtifactHandler) List(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	infos, err := h.store.ListArtifacts(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, errs.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no artifacts for token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list artifacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "artifacts": infos})
}
