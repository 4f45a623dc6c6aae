package models

import (
	"time"

	"gorm.io/gorm"
)

// Note is a review annotation on a media item. Timestamp is the position in
// seconds for video media, nil for general notes.
type Note struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	MediaID   uint           `gorm:"index;not null" json:"media_id"`
	Media     *Media         `gorm:"foreignKey:MediaID" json:"media,omitempty"`
	AuthorID  uint           `gorm:"index;not null" json:"author_id"`
	Author    *User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Timestamp *float64       `json:"timestamp"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Note) TableName() string { return "notes" }
