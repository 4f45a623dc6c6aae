package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/utils"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username" // carries the account email
	ContextRole     = "role"
)

// AuthRequired is a middleware that checks for a valid JWT token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// AdminRequired is a middleware that checks for admin role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentClaims parses the Authorization header without aborting the request.
// Used by routes that behave differently for anonymous visitors, such as the
// invite link.
func CurrentClaims(c *gin.Context) (*utils.Claims, bool) {
	claims, err := bearerClaims(c)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func bearerClaims(c *gin.Context) (*utils.Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errAuthHeaderMissing
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errAuthHeaderFormat
	}

	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		return nil, errTokenInvalid
	}
	return claims, nil
}

var (
	errAuthHeaderMissing = &authError{"authorization header required"}
	errAuthHeaderFormat  = &authError{"invalid authorization header format"}
	errTokenInvalid      = &authError{"invalid or expired token"}
)

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }

// GetUserID gets the current user ID from context.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUsername gets the current user's email from context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
	}
	return ""
}

// GetRole gets the current user role from context.
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}
