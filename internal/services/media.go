package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/grovehq/grove/backend/internal/models"
	"github.com/grovehq/grove/backend/pkg/logger"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

// ObjectStore is the slice of the storage layer the media service needs.
// *storage.Storage satisfies it; tests substitute a fake.
type ObjectStore interface {
	PresignUpload(ctx context.Context, objectKey string) (string, error)
	PresignDownload(ctx context.Context, objectKey string) (string, error)
}

type MediaService struct {
	db     *gorm.DB
	access *AccessService
	store  ObjectStore
}

func NewMediaService(db *gorm.DB, access *AccessService, store ObjectStore) *MediaService {
	return &MediaService{db: db, access: access, store: store}
}

type UploadTarget struct {
	URL       string `json:"url"`
	ObjectKey string `json:"object_key"`
}

type SaveMediaRequest struct {
	ProjectID uint    `json:"project_id" binding:"required"`
	ObjectKey string  `json:"object_key" binding:"required"`
	Kind      string  `json:"kind" binding:"required,oneof=video image"`
	Name      string  `json:"name" binding:"required,max=255"`
	Size      int64   `json:"size"`
	MimeType  *string `json:"mime_type"`
}

// MediaView is a media row with a presigned download URL attached.
type MediaView struct {
	Media *models.Media `json:"media"`
	URL   string        `json:"url,omitempty"`
}

// UploadURL hands out a presigned PUT target. Only accounts with active
// billing access may start an upload.
func (s *MediaService) UploadURL(ctx context.Context, userID uint) (*UploadTarget, error) {
	if _, err := s.access.RequireActiveAccess(userID); err != nil {
		return nil, err
	}

	key := "media/" + uuid.NewString()
	url, err := s.store.PresignUpload(ctx, key)
	if err != nil {
		return nil, err
	}
	return &UploadTarget{URL: url, ObjectKey: key}, nil
}

// Save records an uploaded object as project media. Only the project owner
// can add media.
func (s *MediaService) Save(ctx context.Context, userID uint, req *SaveMediaRequest) (*models.Media, error) {
	_, role, err := s.access.RequireProjectAccess(userID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOwner {
		return nil, response.NewForbidden("only the project owner can upload media")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("media name cannot be empty")
	}

	media := models.Media{
		OwnerID:    userID,
		ProjectID:  req.ProjectID,
		Kind:       req.Kind,
		StorageKey: req.ObjectKey,
		Name:       name,
		Size:       req.Size,
		MimeType:   req.MimeType,
	}
	if err := s.db.Create(&media).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// ListByProject returns the project's media newest first, each with a
// presigned download URL. Presign failures degrade to a row without a URL.
func (s *MediaService) ListByProject(ctx context.Context, userID, projectID uint) ([]MediaView, error) {
	if _, _, err := s.access.RequireProjectAccess(userID, projectID); err != nil {
		return nil, err
	}

	var items []models.Media
	if err := s.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}

	views := make([]MediaView, 0, len(items))
	for i := range items {
		views = append(views, s.view(ctx, &items[i]))
	}
	return views, nil
}

// GetByID returns one media item with its download URL, after project access.
func (s *MediaService) GetByID(ctx context.Context, userID, mediaID uint) (*MediaView, error) {
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

	view := s.view(ctx, &media)
	return &view, nil
}

func (s *MediaService) view(ctx context.Context, media *models.Media) MediaView {
	url, err := s.store.PresignDownload(ctx, media.StorageKey)
	if err != nil {
		logger.Get().Warn().Err(err).Uint("media_id", media.ID).Msg("failed to presign media download")
		return MediaView{Media: media}
	}
	return MediaView{Media: media, URL: url}
}
