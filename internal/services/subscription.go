package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/grovehq/grove/backend/internal/config"
	"github.com/grovehq/grove/backend/internal/models"
	"github.com/grovehq/grove/backend/internal/services/polar"
	"github.com/grovehq/grove/backend/pkg/logger"
	"gorm.io/gorm"
)

// BillingClient is the slice of the Polar API the reconciler needs.
// *polar.Client satisfies it; tests substitute a fake.
type BillingClient interface {
	CreateCheckout(ctx context.Context, req *polar.CheckoutRequest) (*polar.Checkout, error)
	GetCheckout(ctx context.Context, id string) (*polar.Checkout, error)
	GetSubscription(ctx context.Context, id string) (*polar.Subscription, error)
	ListSubscriptions(ctx context.Context, q *polar.SubscriptionQuery) ([]polar.Subscription, error)
	FindCustomerIDByEmail(ctx context.Context, email string) (string, error)
}

// SubscriptionService reconciles the local subscription columns on users with
// the billing provider, via webhooks, explicit sync and the checkout success
// callback. It is the only writer of those columns.
type SubscriptionService struct {
	db      *gorm.DB
	billing BillingClient
	cfg     *config.PolarConfig
}

func NewSubscriptionService(db *gorm.DB, billing BillingClient, cfg *config.PolarConfig) *SubscriptionService {
	return &SubscriptionService{db: db, billing: billing, cfg: cfg}
}

// StringPatch is a tri-state field update: leave untouched (Set false), set
// to a value, or set to NULL (Set true with nil Value).
type StringPatch struct {
	Set   bool
	Value *string
}

func SetString(v string) StringPatch {
	return StringPatch{Set: true, Value: &v}
}

func SetNull() StringPatch {
	return StringPatch{Set: true}
}

// SubscriptionPatch is a partial update of a user's subscription columns.
// Omitted fields keep their stored value.
type SubscriptionPatch struct {
	Status         StringPatch
	CustomerID     StringPatch
	SubscriptionID StringPatch
}

func (p *SubscriptionPatch) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Status.Set {
		updates["subscription_status"] = p.Status.Value
	}
	if p.CustomerID.Set {
		updates["polar_customer_id"] = p.CustomerID.Value
	}
	if p.SubscriptionID.Set {
		updates["subscription_id"] = p.SubscriptionID.Value
	}
	return updates
}

// UpdateSubscription applies the patch as one UPDATE. A patch with no set
// fields is a no-op.
func (s *SubscriptionService) UpdateSubscription(userID uint, patch *SubscriptionPatch) error {
	updates := patch.updates()
	if len(updates) == 0 {
		return nil
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResolveUser maps provider identifiers to a local account, in strict
// precedence: external id (our user id echoed back), then the stored provider
// customer id, then the customer email. Returns nil when nothing matches.
func (s *SubscriptionService) ResolveUser(externalID *string, customerID, email string) (*models.User, error) {
	if externalID != nil && *externalID != "" {
		if id, err := strconv.ParseUint(*externalID, 10, 64); err == nil {
			var user models.User
			err := s.db.First(&user, uint(id)).Error
			if err == nil {
				return &user, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	if customerID != "" {
		var user models.User
		err := s.db.Where("polar_customer_id = ?", customerID).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if email != "" {
		var user models.User
		err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// ApplyEvent routes a verified webhook event into a subscription patch.
// Events for unknown customers are dropped and logged, never failed, so the
// provider does not retry them forever.
func (s *SubscriptionService) ApplyEvent(ctx context.Context, event *polar.Event) error {
	switch event.Type {
	case polar.EventSubscriptionCreated, polar.EventSubscriptionUpdated:
		return s.applySubscriptionEvent(event, false)
	case polar.EventSubscriptionCanceled:
		return s.applySubscriptionEvent(event, true)
	case polar.EventCheckoutUpdated:
		return s.applyCheckoutEvent(event)
	default:
		logger.Get().Debug().Str("type", event.Type).Msg("ignoring unhandled webhook event")
		return nil
	}
}

func (s *SubscriptionService) applySubscriptionEvent(event *polar.Event, canceled bool) error {
	sub, err := event.Subscription()
	if err != nil {
		return err
	}

	var externalID *string
	var email string
	if sub.Customer != nil {
		externalID = sub.Customer.ExternalID
		email = sub.Customer.Email
	}

	user, err := s.ResolveUser(externalID, sub.CustomerID, email)
	if err != nil {
		return err
	}
	if user == nil {
		s.dropEvent(event.Type, sub.CustomerID, email)
		return nil
	}

	patch := &SubscriptionPatch{
		Status:         SetString(sub.Status),
		CustomerID:     SetString(sub.CustomerID),
		SubscriptionID: SetString(sub.ID),
	}
	if canceled {
		patch.SubscriptionID = SetNull()
	}
	return s.UpdateSubscription(user.ID, patch)
}

func (s *SubscriptionService) applyCheckoutEvent(event *polar.Event) error {
	checkout, err := event.Checkout()
	if err != nil {
		return err
	}

	// Only a succeeded checkout that already carries both provider ids says
	// anything about subscription state.
	if checkout.Status != polar.CheckoutSucceeded || checkout.CustomerID == nil || checkout.SubscriptionID == nil {
		return nil
	}

	var email string
	if checkout.CustomerEmail != nil {
		email = *checkout.CustomerEmail
	}

	user, err := s.ResolveUser(checkout.ExternalID(), *checkout.CustomerID, email)
	if err != nil {
		return err
	}
	if user == nil {
		s.dropEvent(event.Type, *checkout.CustomerID, email)
		return nil
	}

	return s.UpdateSubscription(user.ID, &SubscriptionPatch{
		Status:         SetString(models.SubscriptionActive),
		CustomerID:     SetString(*checkout.CustomerID),
		SubscriptionID: SetString(*checkout.SubscriptionID),
	})
}

func (s *SubscriptionService) dropEvent(eventType, customerID, email string) {
	logger.Get().Warn().
		Str("type", eventType).
		Str("customer_id", customerID).
		Msg("webhook event matched no local account, dropped")
	LogWarning("billing", "webhook_drop", "event matched no local account", nil, "", "", map[string]string{
		"type":        eventType,
		"customer_id": customerID,
		"email":       email,
	})
}

// SyncFromProvider pulls the user's subscription state from the provider and
// writes it through. An active subscription wins; otherwise the most recent
// one of any status. When the stored identifiers turn up nothing, the
// customer is re-resolved by email before giving up.
func (s *SubscriptionService) SyncFromProvider(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	query := &polar.SubscriptionQuery{
		ExternalCustomerID: strconv.FormatUint(uint64(user.ID), 10),
		ProductIDs:         s.cfg.Products(),
	}
	if user.PolarCustomerID != nil && *user.PolarCustomerID != "" {
		query.CustomerID = *user.PolarCustomerID
		query.ExternalCustomerID = ""
	}

	sub, err := s.lookupSubscription(ctx, query)
	if err != nil {
		return nil, err
	}

	if sub == nil && user.Email != "" {
		customerID, err := s.billing.FindCustomerIDByEmail(ctx, user.Email)
		if err != nil {
			return nil, ErrBillingUpstream
		}
		if customerID != "" && (user.PolarCustomerID == nil || *user.PolarCustomerID != customerID) {
			sub, err = s.lookupSubscription(ctx, &polar.SubscriptionQuery{
				CustomerID: customerID,
				ProductIDs: s.cfg.Products(),
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if sub == nil {
		return nil, ErrNoSubscription
	}

	patch := &SubscriptionPatch{
		Status:         SetString(sub.Status),
		CustomerID:     SetString(sub.CustomerID),
		SubscriptionID: SetString(sub.ID),
	}
	if err := s.UpdateSubscription(user.ID, patch); err != nil {
		return nil, err
	}

	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SubscriptionService) lookupSubscription(ctx context.Context, query *polar.SubscriptionQuery) (*polar.Subscription, error) {
	active := *query
	active.ActiveOnly = true
	subs, err := s.billing.ListSubscriptions(ctx, &active)
	if err != nil {
		return nil, ErrBillingUpstream
	}
	if len(subs) > 0 {
		return &subs[0], nil
	}

	any := *query
	any.ActiveOnly = false
	subs, err = s.billing.ListSubscriptions(ctx, &any)
	if err != nil {
		return nil, ErrBillingUpstream
	}
	if len(subs) > 0 {
		return &subs[0], nil
	}
	return nil, nil
}

// HandleCheckoutSuccess enriches the account after the provider redirects the
// browser back. Every failure here is swallowed and logged: the customer has
// paid, and the webhook or a later sync will converge the record anyway.
func (s *SubscriptionService) HandleCheckoutSuccess(ctx context.Context, checkoutID string) {
	if checkoutID == "" {
		return
	}

	checkout, err := s.billing.GetCheckout(ctx, checkoutID)
	if err != nil {
		logger.Get().Warn().Err(err).Str("checkout_id", checkoutID).Msg("checkout lookup failed on success callback")
		return
	}
	if checkout.Status != polar.CheckoutSucceeded || checkout.CustomerID == nil || checkout.SubscriptionID == nil {
		return
	}

	var email string
	if checkout.CustomerEmail != nil {
		email = *checkout.CustomerEmail
	}
	user, err := s.ResolveUser(checkout.ExternalID(), *checkout.CustomerID, email)
	if err != nil || user == nil {
		logger.Get().Warn().Str("checkout_id", checkoutID).Msg("checkout success matched no local account")
		return
	}

	// Prefer the real subscription status over assuming "active".
	status := models.SubscriptionActive
	if sub, err := s.billing.GetSubscription(ctx, *checkout.SubscriptionID); err == nil {
		status = sub.Status
	} else {
		logger.Get().Warn().Err(err).Str("checkout_id", checkoutID).Msg("subscription lookup failed, defaulting to active")
	}

	if err := s.UpdateSubscription(user.ID, &SubscriptionPatch{
		Status:         SetString(status),
		CustomerID:     SetString(*checkout.CustomerID),
		SubscriptionID: SetString(*checkout.SubscriptionID),
	}); err != nil {
		logger.Get().Error().Err(err).Uint("user_id", user.ID).Msg("failed to persist checkout success")
	}
}

// CreateCheckoutSession opens a provider checkout for the user and returns
// the hosted checkout URL. Stored customer linkage is passed along so the
// provider reuses the existing customer record.
func (s *SubscriptionService) CreateCheckoutSession(ctx context.Context, userID uint, products []string) (string, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if len(products) == 0 {
		products = s.cfg.Products()
	}

	req := &polar.CheckoutRequest{
		Products:      products,
		SuccessURL:    s.cfg.SuccessURL,
		ReturnURL:     s.cfg.ReturnURL,
		CustomerEmail: user.Email,
		CustomerName:  user.Name,
	}
	if user.PolarCustomerID != nil && *user.PolarCustomerID != "" {
		req.CustomerID = *user.PolarCustomerID
	} else {
		req.ExternalCustomerID = strconv.FormatUint(uint64(user.ID), 10)
	}

	checkout, err := s.billing.CreateCheckout(ctx, req)
	if err != nil {
		return "", ErrBillingUpstream
	}
	return checkout.URL, nil
}

// UserSubscription is the billing state exposed to the account holder.
type UserSubscription struct {
	Status         *string `json:"status"`
	CustomerID     *string `json:"customer_id"`
	SubscriptionID *string `json:"subscription_id"`
	HasAccess      bool    `json:"has_access"`
}

// GetUserSubscription returns the user's stored subscription fields.
func (s *SubscriptionService) GetUserSubscription(userID uint) (*UserSubscription, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &UserSubscription{
		Status:         user.SubscriptionStatus,
		CustomerID:     user.PolarCustomerID,
		SubscriptionID: user.SubscriptionID,
		HasAccess:      user.HasActiveAccess(),
	}, nil
}

// SyncAllLinkedUsers re-syncs every account that has a stored provider
// customer id. Run by the cron scheduler; per-user failures are logged and
// skipped so one bad account cannot stall the sweep.
func (s *SubscriptionService) SyncAllLinkedUsers(ctx context.Context) {
	var users []models.User
	if err := s.db.Where("polar_customer_id IS NOT NULL AND polar_customer_id != ''").Find(&users).Error; err != nil {
		logger.Get().Error().Err(err).Msg("periodic billing sync: listing linked users failed")
		return
	}

	for _, user := range users {
		if _, err := s.SyncFromProvider(ctx, user.ID); err != nil {
			if errors.Is(err, ErrNoSubscription) {
				continue
			}
			logger.Get().Warn().Err(err).Uint("user_id", user.ID).Msg("periodic billing sync: user sync failed")
		}
	}
	logger.Get().Info().Int("users", len(users)).Msg("periodic billing sync finished")
}
