package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/middleware"
	"github.com/grovehq/grove/backend/internal/services"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(db *gorm.DB, store services.ObjectStore) *MediaHandler {
	access := services.NewAccessService(db)
	return &MediaHandler{mediaService: services.NewMediaService(db, access, store)}
}

// UploadURL hands out a presigned PUT target for a new upload.
// POST /api/media/upload-url
func (h *MediaHandler) UploadURL(c *gin.Context) {
	target, err := h.mediaService.UploadURL(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, target)
}

// Save records an uploaded object as project media.
// POST /api/media
func (h *MediaHandler) Save(c *gin.Context) {
	var req services.SaveMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	media, err := h.mediaService.Save(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	services.LogInfo("media", "save", "media saved", &userID, c.ClientIP(), c.Request.UserAgent(),
		gin.H{"media_id": media.ID, "project_id": media.ProjectID})
	response.Created(c, media)
}

// ListByProject returns a project's media with download URLs.
// GET /api/projects/:id/media
func (h *MediaHandler) ListByProject(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	views, err := h.mediaService.ListByProject(c.Request.Context(), middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, views)
}

// GetByID returns one media item with its download URL.
// GET /api/media/:id
func (h *MediaHandler) GetByID(c *gin.Context) {
	mediaID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid media id")
		return
	}

	view, err := h.mediaService.GetByID(c.Request.Context(), middleware.GetUserID(c), mediaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}
