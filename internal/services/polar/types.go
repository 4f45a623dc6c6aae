package polar

// Customer is a billing-provider customer record.
type Customer struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	ExternalID *string `json:"external_id"`
}

// Subscription is the provider-side subscription record. Status values follow
// the provider's vocabulary ("active", "trialing", "canceled", ...).
type Subscription struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	CustomerID string    `json:"customer_id"`
	ProductID  string    `json:"product_id"`
	StartedAt  string    `json:"started_at"`
	Customer   *Customer `json:"customer"`
}

// Checkout is a checkout session. CustomerID and SubscriptionID are only
// populated once the session has progressed far enough.
type Checkout struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"` // open, expired, confirmed, succeeded, failed
	URL                string  `json:"url"`
	CustomerID         *string `json:"customer_id"`
	CustomerEmail      *string `json:"customer_email"`
	CustomerExternalID *string `json:"customer_external_id"`
	ExternalCustomerID *string `json:"external_customer_id"`
	SubscriptionID     *string `json:"subscription_id"`
}

// CheckoutSucceeded is the terminal status of a paid checkout.
const CheckoutSucceeded = "succeeded"

// ExternalID returns the external customer id from whichever field the
// provider populated.
func (c *Checkout) ExternalID() *string {
	if c.ExternalCustomerID != nil && *c.ExternalCustomerID != "" {
		return c.ExternalCustomerID
	}
	return c.CustomerExternalID
}

// CheckoutRequest creates a new checkout session.
type CheckoutRequest struct {
	Products           []string          `json:"products"`
	SuccessURL         string            `json:"success_url,omitempty"`
	ReturnURL          string            `json:"return_url,omitempty"`
	CustomerID         string            `json:"customer_id,omitempty"`
	ExternalCustomerID string            `json:"external_customer_id,omitempty"`
	CustomerEmail      string            `json:"customer_email,omitempty"`
	CustomerName       string            `json:"customer_name,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

type pagination struct {
	TotalCount int `json:"total_count"`
	MaxPage    int `json:"max_page"`
}

type subscriptionList struct {
	Items      []Subscription `json:"items"`
	Pagination pagination     `json:"pagination"`
}

type customerList struct {
	Items      []Customer `json:"items"`
	Pagination pagination `json:"pagination"`
}

// SubscriptionQuery filters a subscription listing. Exactly one of CustomerID
// or ExternalCustomerID is normally set.
type SubscriptionQuery struct {
	CustomerID         string
	ExternalCustomerID string
	ProductIDs         []string
	ActiveOnly         bool
}
