package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntentSendsFormAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "5000", r.PostFormValue("amount"))
		assert.Equal(t, "usd", r.PostFormValue("currency"))
		assert.Equal(t, "true", r.PostFormValue("automatic_payment_methods[enabled]"))
		assert.Equal(t, "42", r.PostFormValue("metadata[event_id]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret","status":"requires_payment_method"}`)
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	intent, err := g.CreateIntent(context.Background(), 5000, "usd", map[string]string{"event_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
}

func TestCreateIntentSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Your card was declined."}}`)
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	_, err := g.CreateIntent(context.Background(), 100, "usd", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func TestIntentStatusMapping(t *testing.T) {
	cases := []struct {
		gateway string
		want    IntentStatus
	}{
		{"succeeded", StatusSucceeded},
		{"canceled", StatusFailed},
		{"processing", StatusPending},
		{"requires_payment_method", StatusPending},
		{"requires_action", StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.gateway, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payment_intents/pi_9", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"id":"pi_9","status":%q}`, tc.gateway)
			}))
			defer srv.Close()

			g := NewStripeGateway("sk_test_123", srv.URL)
			got, err := g.IntentStatus(context.Background(), "pi_9")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIntentStatusTransportErrorReportsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	got, err := g.IntentStatus(context.Background(), "pi_9")
	require.Error(t, err)
	assert.Equal(t, StatusPending, got)
}
