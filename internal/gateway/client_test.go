package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ihu-online/admissions-api/pkg/config"
)

func TestClientCreateCheckoutSession(t *testing.T) {
	var received CheckoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key-1", user)
		assert.Equal(t, "shh", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CheckoutSession{SessionID: "sess-1", CheckoutURL: "https://pay/sess-1"})
	}))
	defer srv.Close()

	client := NewClient(config.PaymentConfig{
		GatewayBaseURL: srv.URL,
		GatewayKeyID:   "key-1",
		GatewaySecret:  "shh",
	})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		ReferenceID: "reg-1",
		AmountCents: 7500,
		Currency:    "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.SessionID)
	assert.Equal(t, "reg-1", received.ReferenceID)
	assert.Equal(t, int64(7500), received.AmountCents)
}

func TestClientCreateCheckoutSessionRejectsBadInput(t *testing.T) {
	client := NewClient(config.PaymentConfig{GatewayBaseURL: "http://unreachable.invalid"})

	_, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{AmountCents: 100})
	assert.Error(t, err, "reference id is required")

	_, err = client.CreateCheckoutSession(context.Background(), CheckoutRequest{ReferenceID: "reg-1"})
	assert.Error(t, err, "amount must be positive")
}

func TestClientCreateCheckoutSessionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(config.PaymentConfig{GatewayBaseURL: srv.URL})
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{ReferenceID: "reg-1", AmountCents: 100})
	assert.Error(t, err)
}
