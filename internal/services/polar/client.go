package polar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/grovehq/grove/backend/internal/config"
)

const (
	sandboxBaseURL    = "https://sandbox-api.polar.sh/v1"
	productionBaseURL = "https://api.polar.sh/v1"
)

// Client is a minimal HTTP client for the Polar API, covering checkout
// sessions, subscription lookup/listing and customer lookup by email.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Client from config. The sandbox server is used unless
// "production" is configured.
func NewClient(cfg *config.PolarConfig) *Client {
	baseURL := sandboxBaseURL
	if cfg.Server == "production" {
		baseURL = productionBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateCheckout creates a checkout session.
func (c *Client) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*Checkout, error) {
	var checkout Checkout
	if err := c.do(ctx, http.MethodPost, "/checkouts/", nil, req, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// GetCheckout fetches a checkout session by id.
func (c *Client) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	var checkout Checkout
	if err := c.do(ctx, http.MethodGet, "/checkouts/"+url.PathEscape(id), nil, nil, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// GetSubscription fetches a subscription by id.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubscriptions lists subscriptions for a customer, most recent first.
func (c *Client) ListSubscriptions(ctx context.Context, q *SubscriptionQuery) ([]Subscription, error) {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("sorting", "-started_at")
	if q.CustomerID != "" {
		params.Set("customer_id", q.CustomerID)
	}
	if q.ExternalCustomerID != "" {
		params.Set("external_customer_id", q.ExternalCustomerID)
	}
	for _, productID := range q.ProductIDs {
		params.Add("product_id", productID)
	}
	if q.ActiveOnly {
		params.Set("active", "true")
	}

	var list subscriptionList
	if err := c.do(ctx, http.MethodGet, "/subscriptions/", params, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// FindCustomerIDByEmail returns the id of the first customer matching the
// email, or "" when none exists.
func (c *Client) FindCustomerIDByEmail(ctx context.Context, email string) (string, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("limit", "1")

	var list customerList
	if err := c.do(ctx, http.MethodGet, "/customers/", params, nil, &list); err != nil {
		return "", err
	}
	if len(list.Items) == 0 {
		return "", nil
	}
	return list.Items[0].ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polar request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("polar API returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("polar response decode failed: %w", err)
		}
	}
	return nil
}
