package services

import "github.com/grovehq/grove/backend/pkg/response"

// Service-level errors surfaced to handlers. Handlers pass these through
// response.Error which maps them to HTTP statuses.
var (
	ErrUserNotFound       = response.NewNotFound("user not found")
	ErrProjectNotFound    = response.NewNotFound("project not found")
	ErrMediaNotFound      = response.NewNotFound("media not found")
	ErrInviteNotFound     = response.NewNotFound("invite link is invalid or has been revoked")
	ErrAccessDenied       = response.NewForbidden("access denied")
	ErrSubscriptionNeeded = response.NewForbidden("an active subscription is required")
	ErrEmailTaken         = response.NewConflict("email is already registered")
	ErrInvalidCredentials = response.NewUnauthorized("invalid email or password")
	ErrInvalidToken       = response.NewUnauthorized("invalid or expired token")
	ErrBillingUpstream    = response.NewUpstreamError("billing provider request failed")
	ErrNoSubscription     = response.NewNotFound("no subscription found for this account")
)
