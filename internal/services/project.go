package services

import (
	"errors"
	"strings"

	"github.com/grovehq/grove/backend/internal/models"
	"github.com/grovehq/grove/backend/internal/utils"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db     *gorm.DB
	access *AccessService
}

func NewProjectService(db *gorm.DB, access *AccessService) *ProjectService {
	return &ProjectService{db: db, access: access}
}

type CreateProjectRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// ProjectView is a project plus the caller's role on it.
type ProjectView struct {
	Project *models.Project `json:"project"`
	Role    string          `json:"role"`
}

// MemberView is a membership row joined with the member's account info.
type MemberView struct {
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Image    string `json:"image,omitempty"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joined_at"`
}

// Create inserts a project owned by the caller, with a fresh invite token and
// the owner's membership row. Requires active billing access.
func (s *ProjectService) Create(userID uint, req *CreateProjectRequest) (*models.Project, error) {
	if _, err := s.access.RequireActiveAccess(userID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("project name cannot be empty")
	}

	token := utils.NewInviteToken()
	project := models.Project{
		OwnerID:     userID,
		Name:        name,
		InviteToken: &token,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		owner := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      models.RoleOwner,
		}
		return tx.Create(&owner).Error
	}); err != nil {
		return nil, err
	}

	return &project, nil
}

// GetUserProject returns the caller's newest owned project, or nil when they
// have none yet.
func (s *ProjectService) GetUserProject(userID uint) (*models.Project, error) {
	var project models.Project
	err := s.db.Where("owner_id = ?", userID).Order("created_at DESC").First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// GetByID returns the project together with the caller's role.
func (s *ProjectService) GetByID(userID, projectID uint) (*ProjectView, error) {
	project, role, err := s.access.RequireProjectAccess(userID, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectView{Project: project, Role: role}, nil
}

// EnsureInviteToken returns the project's invite token, generating one if the
// project predates token support. Owner only.
func (s *ProjectService) EnsureInviteToken(userID, projectID uint) (string, error) {
	project, role, err := s.access.RequireProjectAccess(userID, projectID)
	if err != nil {
		return "", err
	}
	if role != models.RoleOwner {
		return "", ErrAccessDenied
	}

	if project.InviteToken != nil && *project.InviteToken != "" {
		return *project.InviteToken, nil
	}

	token := utils.NewInviteToken()
	if err := s.db.Model(project).Update("invite_token", token).Error; err != nil {
		return "", err
	}
	return token, nil
}

// AcceptInvite redeems an invite token for the caller. Joining is idempotent
// and does not require the redeemer to hold a subscription. Returns the
// joined project's id.
func (s *ProjectService) AcceptInvite(userID uint, token string) (uint, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInviteNotFound
	}

	var project models.Project
	if err := s.db.Where("invite_token = ?", token).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInviteNotFound
		}
		return 0, err
	}

	if project.OwnerID == userID {
		return project.ID, nil
	}

	var existing models.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", project.ID, userID).First(&existing).Error
	if err == nil {
		return project.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	member := models.ProjectMember{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      models.RoleCollaborator,
	}
	if err := s.db.Create(&member).Error; err != nil {
		return 0, err
	}
	return project.ID, nil
}

// ListMembers returns the project's members with their account info. Any
// member may list; project access is required.
func (s *ProjectService) ListMembers(userID, projectID uint) ([]MemberView, error) {
	if _, _, err := s.access.RequireProjectAccess(userID, projectID); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	if err := s.db.Where("project_id = ?", projectID).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		var user models.User
		if err := s.db.First(&user, m.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		views = append(views, MemberView{
			UserID:   user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Image:    user.Image,
			Role:     m.Role,
			JoinedAt: m.CreatedAt.Unix(),
		})
	}
	return views, nil
}
