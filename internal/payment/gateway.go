// Package payment integrates with the external payment gateway.  The
// booking flow only ever needs two operations: issuing a payment intent for
// an amount and asking whether a previously issued intent has succeeded.
// Gateway failures must never crash the booking flow; callers treat them as
// pending/failed and retry or surface a non-error result.
package payment

import "context"

// IntentStatus is the coarse status the reservation protocol cares about.
// The gateway's richer lifecycle (requires_action, processing, ...) is
// collapsed into these three values.
type IntentStatus string

const (
	StatusSucceeded IntentStatus = "succeeded"
	StatusPending   IntentStatus = "pending"
	StatusFailed    IntentStatus = "failed"
)

// Intent is the client-facing handle of an in-progress payment attempt.
// The client completes the payment out-of-band using ClientSecret; the
// backend later polls the intent by ID.
type Intent struct {
	ID           string
	ClientSecret string
}

// Gateway issues payment intents and reports their outcome.
type Gateway interface {
	// CreateIntent requests a payment intent for the given amount in minor
	// units.  Metadata tags the intent with payer/event/seat identifiers so
	// out-of-band reconciliation can trace it back to a booking.
	CreateIntent(ctx context.Context, amountCents uint32, currency string, metadata map[string]string) (*Intent, error)

	// IntentStatus reports whether the intent has succeeded.  Transport or
	// gateway errors are reported as StatusPending together with the error;
	// a declined or canceled intent is StatusFailed with a nil error.
	IntentStatus(ctx context.Context, intentID string) (IntentStatus, error)
}
