package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/middleware"
	"github.com/grovehq/grove/backend/internal/services"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type AccessHandler struct {
	accessService *services.AccessService
}

func NewAccessHandler(db *gorm.DB) *AccessHandler {
	return &AccessHandler{accessService: services.NewAccessService(db)}
}

// Check answers a yes/no access question for route guarding. Exactly one of
// project_id or media_id must be given; the answer is always 200 with a
// boolean so the frontend can branch without error handling.
// GET /api/access/check?project_id= | ?media_id=
func (h *AccessHandler) Check(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if raw := c.Query("project_id"); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid project_id")
			return
		}
		ok, err := h.accessService.CheckAccess(userID, uint(projectID))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, gin.H{"allowed": ok})
		return
	}

	if raw := c.Query("media_id"); raw != "" {
		mediaID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid media_id")
			return
		}
		ok, err := h.accessService.CheckMediaAccess(userID, uint(mediaID))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, gin.H{"allowed": ok})
		return
	}

	response.BadRequest(c, "project_id or media_id is required")
}

// Subscription gate: reports whether the caller can use owner-level features.
// GET /api/access/active
func (h *AccessHandler) Active(c *gin.Context) {
	_, err := h.accessService.RequireActiveAccess(middleware.GetUserID(c))
	response.Success(c, gin.H{"active": err == nil})
}
