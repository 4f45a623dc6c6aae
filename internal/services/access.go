package services

import (
	"errors"

	"github.com/grovehq/grove/backend/internal/models"
	"gorm.io/gorm"
)

// AccessService answers the two authorization questions every other service
// asks: does this account have active billing access, and what role does it
// hold on a given project.
type AccessService struct {
	db *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// RequireActiveAccess loads the user and fails unless their subscription
// status grants access (active or trialing).
func (s *AccessService) RequireActiveAccess(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.HasActiveAccess() {
		return nil, ErrSubscriptionNeeded
	}
	return &user, nil
}

// RequireProjectAccess resolves the caller's role on a project. Owners must
// also hold active billing access; collaborators are admitted on their stored
// membership alone, so a lapsed owner subscription locks the owner out before
// it locks out invited members.
func (s *AccessService) RequireProjectAccess(userID, projectID uint) (*models.Project, string, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrProjectNotFound
		}
		return nil, "", err
	}

	if project.OwnerID == userID {
		if _, err := s.RequireActiveAccess(userID); err != nil {
			return nil, "", err
		}
		return &project, models.RoleOwner, nil
	}

	var member models.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrAccessDenied
		}
		return nil, "", err
	}
	return &project, member.Role, nil
}

// CheckAccess reports whether the user may view the project, without
// surfacing why not. Authorization failures collapse to false; database
// errors still propagate.
func (s *AccessService) CheckAccess(userID, projectID uint) (bool, error) {
	_, _, err := s.RequireProjectAccess(userID, projectID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrSubscriptionNeeded) ||
		errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return false, err
}

// CheckMediaAccess resolves the owning project of a media item and answers
// CheckAccess against it. Unknown media reads as no access.
func (s *AccessService) CheckMediaAccess(userID, mediaID uint) (bool, error) {
	var media models.Media
	if err := s.db.First(&media, mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.CheckAccess(userID, media.ProjectID)
}
