package models

import (
	"time"

	"gorm.io/gorm"
)

// Membership roles. The owner row is created together with the project;
// collaborator rows are created on invite redemption.
const (
	RoleOwner        = "owner"
	RoleCollaborator = "collaborator"
)

// ProjectMember represents a user's membership and role within a project.
// At most one row exists per (user, project) pair.
type ProjectMember struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProjectID uint           `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint           `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string         `gorm:"size:50;default:collaborator" json:"role"` // owner, collaborator
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProjectMember) TableName() string { return "project_members" }
