package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription statuses that grant active access.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
)

// User represents a registered account. The subscription fields are the
// canonical record of billing state and are mutated only by the
// SubscriptionService.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:200;not null" json:"name"`
	Email         string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password      string     `gorm:"size:255" json:"-"` // bcrypt hash, empty for OAuth-only accounts
	Image         string     `gorm:"size:500" json:"image,omitempty"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	Role          string     `gorm:"size:50;default:user" json:"role"` // admin, user

	SubscriptionStatus *string `gorm:"size:50;index" json:"subscription_status"`
	PolarCustomerID    *string `gorm:"size:100;index" json:"polar_customer_id"`
	SubscriptionID     *string `gorm:"size:100" json:"subscription_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// HasActiveAccess reports whether the user's subscription grants access to
// owner-level features. Collaborators are not gated on this.
func (u *User) HasActiveAccess() bool {
	if u.SubscriptionStatus == nil {
		return false
	}
	return *u.SubscriptionStatus == SubscriptionActive || *u.SubscriptionStatus == SubscriptionTrialing
}
