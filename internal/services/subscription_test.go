package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/grovehq/grove/backend/internal/config"
	"github.com/grovehq/grove/backend/internal/models"
	"github.com/grovehq/grove/backend/internal/services/polar"
	"gorm.io/gorm"
)

// fakeBilling scripts provider responses per test.
type fakeBilling struct {
	checkout      *polar.Checkout
	checkoutErr   error
	subscription  *polar.Subscription
	subErr        error
	active        []polar.Subscription
	recent        []polar.Subscription
	customerID    string
	customerErr   error
	created       *polar.Checkout
	createErr     error
	lastCreateReq *polar.CheckoutRequest
	listCalls     []*polar.SubscriptionQuery
}

func (f *fakeBilling) CreateCheckout(_ context.Context, req *polar.CheckoutRequest) (*polar.Checkout, error) {
	f.lastCreateReq = req
	return f.created, f.createErr
}

func (f *fakeBilling) GetCheckout(_ context.Context, _ string) (*polar.Checkout, error) {
	return f.checkout, f.checkoutErr
}

func (f *fakeBilling) GetSubscription(_ context.Context, _ string) (*polar.Subscription, error) {
	return f.subscription, f.subErr
}

func (f *fakeBilling) ListSubscriptions(_ context.Context, q *polar.SubscriptionQuery) ([]polar.Subscription, error) {
	copied := *q
	f.listCalls = append(f.listCalls, &copied)
	if q.ActiveOnly {
		return f.active, nil
	}
	return f.recent, nil
}

func (f *fakeBilling) FindCustomerIDByEmail(_ context.Context, _ string) (string, error) {
	return f.customerID, f.customerErr
}

func newSubscriptionService(db *gorm.DB, billing BillingClient) *SubscriptionService {
	return NewSubscriptionService(db, billing, &config.PolarConfig{ProductIDs: "prod_1"})
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return &user
}

func TestUpdateSubscription_TriStatePatch(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "user@example.com", strPtr("active"))
	db.Model(user).Updates(map[string]interface{}{
		"polar_customer_id": "cus_1",
		"subscription_id":   "sub_1",
	})

	// Set one field, null another, omit the third.
	err := svc.UpdateSubscription(user.ID, &SubscriptionPatch{
		Status:         SetString("canceled"),
		SubscriptionID: SetNull(),
	})
	if err != nil {
		t.Fatalf("UpdateSubscription() error = %v", err)
	}

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "canceled" {
		t.Errorf("status = %v, expected canceled", got.SubscriptionStatus)
	}
	if got.SubscriptionID != nil {
		t.Errorf("subscription id = %v, expected NULL", *got.SubscriptionID)
	}
	if got.PolarCustomerID == nil || *got.PolarCustomerID != "cus_1" {
		t.Error("omitted customer id must keep its stored value")
	}
}

func TestUpdateSubscription_EmptyPatchIsNoOp(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "user@example.com", strPtr("active"))
	if err := svc.UpdateSubscription(user.ID, &SubscriptionPatch{}); err != nil {
		t.Fatalf("UpdateSubscription() error = %v", err)
	}
	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "active" {
		t.Error("empty patch must not touch stored fields")
	}
}

func TestUpdateSubscription_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	err := svc.UpdateSubscription(404, &SubscriptionPatch{Status: SetString("active")})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdateSubscription() error = %v, expected ErrUserNotFound", err)
	}
}

func TestResolveUser_Precedence(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	byID := createUser(t, db, "byid@example.com", nil)
	byCustomer := createUser(t, db, "bycustomer@example.com", nil)
	db.Model(byCustomer).Update("polar_customer_id", "cus_stored")
	byEmail := createUser(t, db, "byemail@example.com", nil)

	// External id wins even when customer id and email point elsewhere.
	extID := "1"
	user, err := svc.ResolveUser(&extID, "cus_stored", "byemail@example.com")
	if err != nil {
		t.Fatalf("ResolveUser() error = %v", err)
	}
	if user == nil || user.ID != byID.ID {
		t.Errorf("external id should take precedence, got %+v", user)
	}

	// Stored customer id beats email.
	user, err = svc.ResolveUser(nil, "cus_stored", "byemail@example.com")
	if err != nil {
		t.Fatalf("ResolveUser() error = %v", err)
	}
	if user == nil || user.ID != byCustomer.ID {
		t.Errorf("customer id should beat email, got %+v", user)
	}

	// Email is the last resort, matched case-insensitively.
	user, err = svc.ResolveUser(nil, "cus_unknown", "ByEmail@Example.com")
	if err != nil {
		t.Fatalf("ResolveUser() error = %v", err)
	}
	if user == nil || user.ID != byEmail.ID {
		t.Errorf("email fallback failed, got %+v", user)
	}

	// Nothing matches.
	user, err = svc.ResolveUser(nil, "cus_unknown", "ghost@example.com")
	if err != nil {
		t.Fatalf("ResolveUser() error = %v", err)
	}
	if user != nil {
		t.Errorf("expected nil for an unresolvable customer, got %+v", user)
	}
}

func subscriptionEvent(t *testing.T, eventType string, sub polar.Subscription) *polar.Event {
	t.Helper()
	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &polar.Event{Type: eventType, Data: data}
}

func TestApplyEvent_SubscriptionCreated(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "user@example.com", nil)
	ext := "1"
	event := subscriptionEvent(t, polar.EventSubscriptionCreated, polar.Subscription{
		ID:         "sub_9",
		Status:     "trialing",
		CustomerID: "cus_9",
		Customer:   &polar.Customer{ID: "cus_9", Email: "user@example.com", ExternalID: &ext},
	})

	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "trialing" {
		t.Errorf("status = %v, expected trialing", got.SubscriptionStatus)
	}
	if got.PolarCustomerID == nil || *got.PolarCustomerID != "cus_9" {
		t.Error("customer id not stored")
	}
	if got.SubscriptionID == nil || *got.SubscriptionID != "sub_9" {
		t.Error("subscription id not stored")
	}
}

func TestApplyEvent_SubscriptionCanceled(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "user@example.com", strPtr("active"))
	db.Model(user).Updates(map[string]interface{}{
		"polar_customer_id": "cus_9",
		"subscription_id":   "sub_9",
	})

	event := subscriptionEvent(t, polar.EventSubscriptionCanceled, polar.Subscription{
		ID:         "sub_9",
		Status:     "canceled",
		CustomerID: "cus_9",
	})
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "canceled" {
		t.Errorf("status = %v, expected canceled", got.SubscriptionStatus)
	}
	if got.SubscriptionID != nil {
		t.Error("subscription id should be cleared on cancellation")
	}
	if got.PolarCustomerID == nil || *got.PolarCustomerID != "cus_9" {
		t.Error("customer linkage should survive cancellation")
	}
}

func TestApplyEvent_UnknownCustomerDropped(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	event := subscriptionEvent(t, polar.EventSubscriptionUpdated, polar.Subscription{
		ID:         "sub_x",
		Status:     "active",
		CustomerID: "cus_ghost",
	})
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Errorf("ApplyEvent() error = %v, unresolvable events must be dropped, not failed", err)
	}
}

func TestApplyEvent_CheckoutUpdated(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "buyer@example.com", nil)

	cusID := "cus_new"
	subID := "sub_new"
	email := "buyer@example.com"
	checkout := polar.Checkout{
		ID:             "co_1",
		Status:         polar.CheckoutSucceeded,
		CustomerID:     &cusID,
		SubscriptionID: &subID,
		CustomerEmail:  &email,
	}
	data, _ := json.Marshal(checkout)

	err := svc.ApplyEvent(context.Background(), &polar.Event{Type: polar.EventCheckoutUpdated, Data: data})
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != models.SubscriptionActive {
		t.Errorf("status = %v, expected active", got.SubscriptionStatus)
	}
	if got.PolarCustomerID == nil || *got.PolarCustomerID != cusID {
		t.Error("customer id not stored")
	}
}

func TestApplyEvent_CheckoutNotSucceededIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "buyer@example.com", nil)

	cusID := "cus_new"
	email := "buyer@example.com"
	checkout := polar.Checkout{ID: "co_1", Status: "open", CustomerID: &cusID, CustomerEmail: &email}
	data, _ := json.Marshal(checkout)

	if err := svc.ApplyEvent(context.Background(), &polar.Event{Type: polar.EventCheckoutUpdated, Data: data}); err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus != nil {
		t.Error("a non-succeeded checkout must not change subscription state")
	}
}

func TestSyncFromProvider_PrefersActive(t *testing.T) {
	db := newTestDB(t)
	billing := &fakeBilling{
		active: []polar.Subscription{{ID: "sub_active", Status: "active", CustomerID: "cus_1"}},
		recent: []polar.Subscription{{ID: "sub_old", Status: "canceled", CustomerID: "cus_1"}},
	}
	svc := newSubscriptionService(db, billing)

	user := createUser(t, db, "user@example.com", nil)
	db.Model(user).Update("polar_customer_id", "cus_1")

	got, err := svc.SyncFromProvider(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("SyncFromProvider() error = %v", err)
	}
	if got.SubscriptionID == nil || *got.SubscriptionID != "sub_active" {
		t.Errorf("subscription id = %v, expected the active one", got.SubscriptionID)
	}
	if len(billing.listCalls) == 0 || !billing.listCalls[0].ActiveOnly {
		t.Error("the active listing must be tried first")
	}
}

func TestSyncFromProvider_FallsBackToMostRecent(t *testing.T) {
	db := newTestDB(t)
	billing := &fakeBilling{
		recent: []polar.Subscription{{ID: "sub_old", Status: "canceled", CustomerID: "cus_1"}},
	}
	svc := newSubscriptionService(db, billing)

	user := createUser(t, db, "user@example.com", nil)
	db.Model(user).Update("polar_customer_id", "cus_1")

	got, err := svc.SyncFromProvider(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("SyncFromProvider() error = %v", err)
	}
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "canceled" {
		t.Errorf("status = %v, expected the most recent subscription's status", got.SubscriptionStatus)
	}
}

func TestSyncFromProvider_RetriesViaEmailLookup(t *testing.T) {
	db := newTestDB(t)
	billing := &fakeBilling{customerID: "cus_found"}
	svc := newSubscriptionService(db, billing)

	user := createUser(t, db, "user@example.com", nil)

	// First pass by external id finds nothing; after the email lookup the
	// second pass must query by the discovered customer id.
	billing.recent = nil
	_, err := svc.SyncFromProvider(context.Background(), user.ID)
	if !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("SyncFromProvider() error = %v, expected ErrNoSubscription", err)
	}

	var sawDiscovered bool
	for _, call := range billing.listCalls {
		if call.CustomerID == "cus_found" {
			sawDiscovered = true
		}
	}
	if !sawDiscovered {
		t.Error("expected a retry using the customer id discovered by email")
	}
}

func TestSyncFromProvider_NoSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "user@example.com", nil)
	if _, err := svc.SyncFromProvider(context.Background(), user.ID); !errors.Is(err, ErrNoSubscription) {
		t.Errorf("SyncFromProvider() error = %v, expected ErrNoSubscription", err)
	}
}

func TestHandleCheckoutSuccess(t *testing.T) {
	db := newTestDB(t)
	cusID := "cus_1"
	subID := "sub_1"
	email := "buyer@example.com"
	billing := &fakeBilling{
		checkout: &polar.Checkout{
			ID: "co_1", Status: polar.CheckoutSucceeded,
			CustomerID: &cusID, SubscriptionID: &subID, CustomerEmail: &email,
		},
		subscription: &polar.Subscription{ID: subID, Status: "trialing", CustomerID: cusID},
	}
	svc := newSubscriptionService(db, billing)

	user := createUser(t, db, "buyer@example.com", nil)
	svc.HandleCheckoutSuccess(context.Background(), "co_1")

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "trialing" {
		t.Errorf("status = %v, expected the real provider status", got.SubscriptionStatus)
	}
}

func TestHandleCheckoutSuccess_DefaultsToActiveWhenSubLookupFails(t *testing.T) {
	db := newTestDB(t)
	cusID := "cus_1"
	subID := "sub_1"
	email := "buyer@example.com"
	billing := &fakeBilling{
		checkout: &polar.Checkout{
			ID: "co_1", Status: polar.CheckoutSucceeded,
			CustomerID: &cusID, SubscriptionID: &subID, CustomerEmail: &email,
		},
		subErr: errors.New("upstream down"),
	}
	svc := newSubscriptionService(db, billing)

	user := createUser(t, db, "buyer@example.com", nil)
	svc.HandleCheckoutSuccess(context.Background(), "co_1")

	got := reload(t, db, user.ID)
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != models.SubscriptionActive {
		t.Errorf("status = %v, expected active fallback", got.SubscriptionStatus)
	}
}

func TestHandleCheckoutSuccess_SwallowsErrors(t *testing.T) {
	db := newTestDB(t)
	billing := &fakeBilling{checkoutErr: errors.New("upstream down")}
	svc := newSubscriptionService(db, billing)

	// Must not panic or error; the callback is fire-and-forget.
	svc.HandleCheckoutSuccess(context.Background(), "co_1")
	svc.HandleCheckoutSuccess(context.Background(), "")
}

func TestCreateCheckoutSession(t *testing.T) {
	db := newTestDB(t)
	billing := &fakeBilling{created: &polar.Checkout{ID: "co_1", URL: "https://pay.example.com/co_1"}}
	svc := newSubscriptionService(db, billing)

	user := createUser(t, db, "buyer@example.com", nil)

	url, err := svc.CreateCheckoutSession(context.Background(), user.ID, nil)
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if url != "https://pay.example.com/co_1" {
		t.Errorf("url = %q", url)
	}

	req := billing.lastCreateReq
	if req == nil {
		t.Fatal("no checkout request sent")
	}
	if req.ExternalCustomerID == "" {
		t.Error("a user without stored linkage must be tagged by external id")
	}
	if req.CustomerEmail != "buyer@example.com" {
		t.Errorf("customer email = %q", req.CustomerEmail)
	}
	if len(req.Products) != 1 || req.Products[0] != "prod_1" {
		t.Errorf("products = %v, expected configured default", req.Products)
	}

	// A stored customer id takes precedence over the external id hint.
	db.Model(user).Update("polar_customer_id", "cus_1")
	if _, err := svc.CreateCheckoutSession(context.Background(), user.ID, nil); err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if billing.lastCreateReq.CustomerID != "cus_1" || billing.lastCreateReq.ExternalCustomerID != "" {
		t.Error("stored customer id should be used for linkage")
	}
}

func TestGetUserSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(db, &fakeBilling{})

	user := createUser(t, db, "user@example.com", strPtr("trialing"))
	sub, err := svc.GetUserSubscription(user.ID)
	if err != nil {
		t.Fatalf("GetUserSubscription() error = %v", err)
	}
	if sub.Status == nil || *sub.Status != "trialing" {
		t.Errorf("status = %v", sub.Status)
	}
	if !sub.HasAccess {
		t.Error("trialing should grant access")
	}

	if _, err := svc.GetUserSubscription(999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserSubscription() error = %v, expected ErrUserNotFound", err)
	}
}
