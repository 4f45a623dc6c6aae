package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is a media-review workspace owned by exactly one user. The invite
// token is an opaque unique string; it is generated at creation time and may
// be re-issued lazily, never rotated automatically.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"index;not null" json:"owner_id"`
	Owner       *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	InviteToken *string        `gorm:"uniqueIndex;size:64" json:"invite_token,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }
