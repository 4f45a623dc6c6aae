package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/config"
	"github.com/grovehq/grove/backend/internal/middleware"
	"github.com/grovehq/grove/backend/internal/services"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	appConfig      *config.AppConfig
}

func NewProjectHandler(db *gorm.DB, cfg *config.Config) *ProjectHandler {
	access := services.NewAccessService(db)
	return &ProjectHandler{
		projectService: services.NewProjectService(db, access),
		appConfig:      &cfg.App,
	}
}

// Create creates a project owned by the caller.
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	project, err := h.projectService.Create(userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	services.LogInfo("project", "create", "project created", &userID, c.ClientIP(), c.Request.UserAgent(),
		gin.H{"project_id": project.ID})
	response.Created(c, project)
}

// GetMine returns the caller's newest owned project, or null.
// GET /api/projects/mine
func (h *ProjectHandler) GetMine(c *gin.Context) {
	project, err := h.projectService.GetUserProject(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// GetByID returns a project plus the caller's role on it.
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	view, err := h.projectService.GetByID(middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// InviteToken returns the project's invite link token, minting one for
// projects that predate invite links. Owner only.
// GET /api/projects/:id/invite-token
func (h *ProjectHandler) InviteToken(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	token, err := h.projectService.EnsureInviteToken(middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"invite_url": h.appConfig.BaseURL + "/invite/" + token,
	})
}

// Members lists the project's members.
// GET /api/projects/:id/members
func (h *ProjectHandler) Members(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	members, err := h.projectService.ListMembers(middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}

type acceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

// AcceptInvite redeems an invite token for the caller.
// POST /api/projects/invites/accept
func (h *ProjectHandler) AcceptInvite(c *gin.Context) {
	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	projectID, err := h.projectService.AcceptInvite(userID, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	services.LogInfo("project", "invite_accept", "invite redeemed", &userID, c.ClientIP(), c.Request.UserAgent(),
		gin.H{"project_id": projectID})
	response.Success(c, gin.H{"project_id": projectID})
}

// InviteLanding is the browser-facing invite link. Signed-out visitors are
// bounced to sign-in with a return path; signed-in visitors join and land on
// the project.
// GET /invite/:token
func (h *ProjectHandler) InviteLanding(c *gin.Context) {
	token := c.Param("token")

	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		next := url.QueryEscape("/invite/" + token)
		c.Redirect(http.StatusFound, h.appConfig.SignInURL+"?next="+next)
		return
	}

	projectID, err := h.projectService.AcceptInvite(claims.UserID, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/project/%d", h.appConfig.BaseURL, projectID))
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
