package main

import (
	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/middleware"
	"github.com/grovehq/grove/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiters for unauthenticated routes.
	webhookLimiter := middleware.NewRateLimiter(10, 20)
	authLimiter := middleware.NewRateLimiter(5, 10)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "grove"})
	})

	// Billing routes the provider and the paying browser hit directly.
	billing := r.Group("/billing", webhookLimiter.Middleware())
	{
		billing.POST("/webhook", svc.billingHandler.Webhook)
		billing.GET("/success", svc.billingHandler.Success)
	}

	// Invite links land here from shared URLs; auth is resolved inside.
	r.GET("/invite/:token", svc.projectHandler.InviteLanding)

	api := r.Group("/api")
	{
		api.GET("/health", svc.healthHandler.CheckHealth)

		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/password", svc.authHandler.ChangePassword)

			protected.GET("/access/check", svc.accessHandler.Check)
			protected.GET("/access/active", svc.accessHandler.Active)

			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/mine", svc.projectHandler.GetMine)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.GET("/projects/:id/invite-token", svc.projectHandler.InviteToken)
			protected.GET("/projects/:id/members", svc.projectHandler.Members)
			protected.POST("/projects/invites/accept", svc.projectHandler.AcceptInvite)
			protected.GET("/projects/:id/media", svc.mediaHandler.ListByProject)

			protected.POST("/media/upload-url", svc.mediaHandler.UploadURL)
			protected.POST("/media", svc.mediaHandler.Save)
			protected.GET("/media/:id", svc.mediaHandler.GetByID)
			protected.GET("/media/:id/notes", svc.noteHandler.ListByMedia)
			protected.POST("/media/:id/notes", svc.noteHandler.Add)

			protected.GET("/billing/checkout", svc.billingHandler.Checkout)
			protected.POST("/billing/sync", svc.billingHandler.Sync)
			protected.GET("/billing/subscription", svc.billingHandler.Subscription)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/logs", svc.logHandler.List)
			admin.GET("/logs/modules", svc.logHandler.Modules)
		}
	}
}
