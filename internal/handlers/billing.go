package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grovehq/grove/backend/internal/config"
	"github.com/grovehq/grove/backend/internal/middleware"
	"github.com/grovehq/grove/backend/internal/services"
	"github.com/grovehq/grove/backend/internal/services/polar"
	"github.com/grovehq/grove/backend/pkg/logger"
	"github.com/grovehq/grove/backend/pkg/response"
	"gorm.io/gorm"
)

type BillingHandler struct {
	subscriptionService *services.SubscriptionService
	polarConfig         *config.PolarConfig
	appConfig           *config.AppConfig
}

func NewBillingHandler(db *gorm.DB, billing services.BillingClient, cfg *config.Config) *BillingHandler {
	return &BillingHandler{
		subscriptionService: services.NewSubscriptionService(db, billing, &cfg.Polar),
		polarConfig:         &cfg.Polar,
		appConfig:           &cfg.App,
	}
}

// Checkout opens a provider checkout session and redirects the browser to it.
// GET /api/billing/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	products := c.QueryArray("product")

	url, err := h.subscriptionService.CreateCheckoutSession(c.Request.Context(), middleware.GetUserID(c), products)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Success is the browser return URL after payment. State enrichment is
// best-effort; the visitor is always sent on to the app.
// GET /billing/success?checkout_id=
func (h *BillingHandler) Success(c *gin.Context) {
	h.subscriptionService.HandleCheckoutSuccess(c.Request.Context(), c.Query("checkout_id"))
	c.Redirect(http.StatusFound, h.appConfig.BaseURL+h.polarConfig.SuccessURL)
}

// Sync pulls the caller's subscription state from the provider.
// POST /api/billing/sync
func (h *BillingHandler) Sync(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := h.subscriptionService.SyncFromProvider(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	services.LogInfo("billing", "sync", "subscription synced", &userID, c.ClientIP(), c.Request.UserAgent(),
		gin.H{"status": user.SubscriptionStatus})
	response.Success(c, gin.H{
		"subscription_status": user.SubscriptionStatus,
		"subscription_id":     user.SubscriptionID,
		"customer_id":         user.PolarCustomerID,
	})
}

// Subscription returns the caller's stored billing state.
// GET /api/billing/subscription
func (h *BillingHandler) Subscription(c *gin.Context) {
	sub, err := h.subscriptionService.GetUserSubscription(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sub)
}

// Webhook receives provider events. The signature is verified against the
// raw body before anything touches the database; an unverifiable delivery is
// rejected so the provider retries it.
// POST /billing/webhook
func (h *BillingHandler) Webhook(c *gin.Context) {
	if h.polarConfig.WebhookSecret == "" {
		logger.Error().Msg("billing webhook received but no secret is configured")
		response.ServerError(c, "webhook secret not configured")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}

	err = polar.VerifySignature(
		h.polarConfig.WebhookSecret,
		c.GetHeader("Webhook-Id"),
		c.GetHeader("Webhook-Timestamp"),
		c.GetHeader("Webhook-Signature"),
		body,
	)
	if err != nil {
		services.LogWarning("billing", "webhook_reject", err.Error(), nil, c.ClientIP(), c.Request.UserAgent(), nil)
		response.Forbidden(c, "invalid webhook signature")
		return
	}

	event, err := polar.ParseEvent(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.subscriptionService.ApplyEvent(c.Request.Context(), event); err != nil {
		logger.Error().Err(err).Str("type", event.Type).Msg("webhook event processing failed")
		response.ServerError(c, "event processing failed")
		return
	}

	response.Success(c, gin.H{"received": true})
}
