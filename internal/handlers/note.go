package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/middleware"
	"github.com/grovehq/grove/backend/internal/services"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type NoteHandler struct {
	noteService *services.NoteService
}

func NewNoteHandler(db *gorm.DB) *NoteHandler {
	access := services.NewAccessService(db)
	return &NoteHandler{noteService: services.NewNoteService(db, access)}
}

// ListByMedia returns a media item's notes newest first.
// GET /api/media/:id/notes
func (h *NoteHandler) ListByMedia(c *gin.Context) {
	mediaID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid media id")
		return
	}

	notes, err := h.noteService.ListByMedia(middleware.GetUserID(c), mediaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, notes)
}

// Add attaches a note to a media item.
// POST /api/media/:id/notes
func (h *NoteHandler) Add(c *gin.Context) {
	mediaID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid media id")
		return
	}

	var req services.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	note, err := h.noteService.Add(middleware.GetUserID(c), mediaID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}
