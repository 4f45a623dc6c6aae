package services

import (
	"errors"
	"strings"

	"github.com/grovehq/grove/backend/internal/models"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type NoteService struct {
	db     *gorm.DB
	access *AccessService
}

func NewNoteService(db *gorm.DB, access *AccessService) *NoteService {
	return &NoteService{db: db, access: access}
}

type AddNoteRequest struct {
	Body      string   `json:"body" binding:"required"`
	Timestamp *float64 `json:"timestamp"`
}

// NoteView is a note with its author's display name resolved.
type NoteView struct {
	Note       *models.Note `json:"note"`
	AuthorName string       `json:"author_name"`
}

// ListByMedia returns the media item's notes newest first. Requires access to
// the media's project.
func (s *NoteService) ListByMedia(userID, mediaID uint) ([]NoteView, error) {
	media, err := s.requireMedia(userID, mediaID)
	if err != nil {
		return nil, err
	}

	var notes []models.Note
	if err := s.db.Where("media_id = ?", media.ID).Order("created_at DESC").Find(&notes).Error; err != nil {
		return nil, err
	}

	views := make([]NoteView, 0, len(notes))
	for i := range notes {
		view := NoteView{Note: &notes[i]}
		var author models.User
		if err := s.db.First(&author, notes[i].AuthorID).Error; err == nil {
			view.AuthorName = author.Name
		}
		views = append(views, view)
	}
	return views, nil
}

// Add attaches a note to a media item. Any project member may comment;
// Timestamp marks a position in seconds for video media.
func (s *NoteService) Add(userID, mediaID uint, req *AddNoteRequest) (*models.Note, error) {
	media, err := s.requireMedia(userID, mediaID)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, response.NewBadRequest("note body cannot be empty")
	}

	note := models.Note{
		MediaID:   media.ID,
		AuthorID:  userID,
		Body:      body,
		Timestamp: req.Timestamp,
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *NoteService) requireMedia(userID, mediaID uint) (*models.Media, error) {
	var media models.Media
	if err := s.db.First(&media, mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	if _, _, err := s.access.RequireProjectAccess(userID, media.ProjectID); err != nil {
		return nil, err
	}
	return &media, nil
}
