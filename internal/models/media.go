package models

import (
	"time"

	"gorm.io/gorm"
)

// Media kinds.
const (
	MediaVideo = "video"
	MediaImage = "image"
)

// Media is an uploaded asset belonging to a project. Immutable once created;
// the bytes live in object storage under StorageKey.
type Media struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	OwnerID    uint           `gorm:"index;not null" json:"owner_id"`
	ProjectID  uint           `gorm:"index;not null" json:"project_id"`
	Project    *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Kind       string         `gorm:"size:20;not null" json:"kind"` // video, image
	StorageKey string         `gorm:"size:255;not null" json:"-"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Size       int64          `json:"size"`
	MimeType   *string        `gorm:"size:100" json:"mime_type"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Media) TableName() string { return "media" }
