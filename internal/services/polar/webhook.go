package polar

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types handled by the reconciler.
const (
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
	EventCheckoutUpdated      = "checkout.updated"
)

// Event is a signed webhook delivery. Data holds the raw payload and is
// decoded per event type.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.Type == "" {
		return nil, errors.New("webhook payload missing type")
	}
	return &event, nil
}

// Subscription decodes the payload of a subscription.* event.
func (e *Event) Subscription() (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(e.Data, &sub); err != nil {
		return nil, fmt.Errorf("invalid subscription payload: %w", err)
	}
	return &sub, nil
}

// Checkout decodes the payload of a checkout.* event.
func (e *Event) Checkout() (*Checkout, error) {
	var checkout Checkout
	if err := json.Unmarshal(e.Data, &checkout); err != nil {
		return nil, fmt.Errorf("invalid checkout payload: %w", err)
	}
	return &checkout, nil
}

// signatureTolerance is the accepted clock skew on webhook timestamps.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks a Standard-Webhooks style delivery: the signature is
// HMAC-SHA256 over "id.timestamp.body" with the shared secret, carried in the
// Webhook-Signature header as space-separated "v1,<base64>" entries. Returns
// nil only for a valid, fresh signature; callers must reject the delivery
// before touching the database otherwise.
func VerifySignature(secret, id, timestamp, signatureHeader string, body []byte) error {
	if secret == "" {
		return errors.New("webhook secret not configured")
	}
	if id == "" || timestamp == "" || signatureHeader == "" {
		return errors.New("missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("invalid webhook timestamp")
	}
	age := time.Since(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errors.New("webhook timestamp outside tolerance")
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, entry := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}
	return errors.New("webhook signature mismatch")
}

// decodeSecret handles the provider's "whsec_" prefixed base64 secrets as
// well as raw shared secrets.
func decodeSecret(secret string) ([]byte, error) {
	if trimmed, ok := strings.CutPrefix(secret, "whsec_"); ok {
		key, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, errors.New("invalid webhook secret encoding")
		}
		return key, nil
	}
	return []byte(secret), nil
}
