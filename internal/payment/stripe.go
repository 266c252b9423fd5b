package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// DefaultAPIBase is the production Stripe endpoint.  Tests point the
// gateway at an httptest server instead.
const DefaultAPIBase = "https://api.stripe.com"

// StripeGateway talks to the Stripe payment-intents API over its
// form-encoded REST interface.  Requests carry an Idempotency-Key so a
// retried create never double-charges.
type StripeGateway struct {
	client *resty.Client
}

// NewStripeGateway builds a gateway authenticated with the given secret
// key.  baseURL may be empty, in which case the production endpoint is
// used.
func NewStripeGateway(secretKey, baseURL string) *StripeGateway {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")
	return &StripeGateway{client: c}
}

// stripeIntent mirrors the subset of the payment_intents resource we read.
type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent creates a payment intent for the given amount.  Automatic
// payment methods are enabled so the client can settle with whatever the
// gateway offers.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents uint32, currency string, metadata map[string]string) (*Intent, error) {
	form := map[string]string{
		"amount":                             strconv.FormatUint(uint64(amountCents), 10),
		"currency":                           currency,
		"automatic_payment_methods[enabled]": "true",
	}
	for k, v := range metadata {
		form["metadata["+k+"]"] = v
	}
	var out stripeIntent
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetFormData(form).
		SetResult(&out).
		SetError(&out).
		Post("/v1/payment_intents")
	if err != nil {
		return nil, fmt.Errorf("payment: create intent: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := "unexpected gateway response"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("payment: create intent: %s (http %d)", msg, resp.StatusCode())
	}
	return &Intent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

// IntentStatus retrieves the intent and collapses the gateway lifecycle
// into succeeded/pending/failed.  Transport errors are reported as pending
// so callers can poll again instead of failing the confirmation.
func (g *StripeGateway) IntentStatus(ctx context.Context, intentID string) (IntentStatus, error) {
	var out stripeIntent
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/payment_intents/" + intentID)
	if err != nil {
		return StatusPending, fmt.Errorf("payment: intent status: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return StatusPending, fmt.Errorf("payment: intent status: http %d", resp.StatusCode())
	}
	switch out.Status {
	case "succeeded":
		return StatusSucceeded, nil
	case "canceled":
		return StatusFailed, nil
	default:
		// requires_payment_method, requires_confirmation, requires_action,
		// processing, requires_capture: the payment is still in flight.
		return StatusPending, nil
	}
}
