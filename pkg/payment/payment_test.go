package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGatewayOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway()

	order, err := g.CreateOrder(ctx, 2000, "MXN")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.ApprovalURL)

	// Capture before approval reports the order unpaid.
	capture, err := g.CaptureOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, capture.Paid())

	g.Approve(order.ID)
	capture, err = g.CaptureOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, capture.Paid())

	_, err = g.CaptureOrder(ctx, "missing")
	assert.Error(t, err)
}

func TestMockGatewaySubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway()

	sub, err := g.CreateSubscription(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionApprovalPending, sub.Status)

	got, err := g.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionApprovalPending, got.Status)

	g.Activate(sub.ID)
	got, err = g.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionActive, got.Status)
}

func TestAmountFormatting(t *testing.T) {
	tests := []struct {
		centavos int
		value    string
	}{
		{2000, "20.00"},
		{30000, "300.00"},
		{150, "1.50"},
		{5, "0.05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.value, formatAmount(tt.centavos))
		assert.Equal(t, tt.centavos, parseAmount(tt.value))
	}

	// Sloppy gateway responses still parse.
	assert.Equal(t, 2000, parseAmount("20"))
	assert.Equal(t, 2050, parseAmount("20.5"))
	assert.Equal(t, 2012, parseAmount("20.129"))
}

func TestCapturePaid(t *testing.T) {
	assert.True(t, (&Capture{Status: OrderCompleted}).Paid())
	assert.True(t, (&Capture{Status: OrderCaptured}).Paid())
	assert.False(t, (&Capture{Status: OrderCreated}).Paid())
}

// fakePayPal emulates the token, order, and capture endpoints.
func fakePayPal(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				Amount struct {
					Value        string `json:"value"`
					CurrencyCode string `json:"currency_code"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CAPTURE", req.Intent)
		assert.Equal(t, "20.00", req.PurchaseUnits[0].Amount.Value)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "ORDER-123",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://example.invalid/self"},
				{"rel": "approve", "href": "https://example.invalid/approve"},
			},
		})
	})
	mux.HandleFunc("/v1/billing/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PlanID string `json:"plan_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// Only provisioned billing plan IDs are valid here, never raw tiers.
		assert.Equal(t, "P-BASIC123", req.PlanID)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "SUB-123",
			"status": "APPROVAL_PENDING",
			"links": []map[string]string{
				{"rel": "approve", "href": "https://example.invalid/approve-sub"},
			},
		})
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-123/capture", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "ORDER-123",
			"status": "COMPLETED",
			"purchase_units": []map[string]interface{}{{
				"payments": map[string]interface{}{
					"captures": []map[string]interface{}{{
						"amount": map[string]string{"value": "20.00", "currency_code": "MXN"},
					}},
				},
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestPayPalClient(srvURL string) *PayPalClient {
	client := NewPayPalClient("client-id", "client-secret", "sandbox",
		"https://example.invalid/return", "https://example.invalid/cancel",
		map[string]string{"basic": "P-BASIC123"})
	client.baseURL = srvURL
	return client
}

func TestPayPalCreateAndCaptureOrder(t *testing.T) {
	srv := fakePayPal(t)
	client := newTestPayPalClient(srv.URL)

	order, err := client.CreateOrder(context.Background(), 2000, "MXN")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-123", order.ID)
	assert.Equal(t, "https://example.invalid/approve", order.ApprovalURL)

	capture, err := client.CaptureOrder(context.Background(), "ORDER-123")
	require.NoError(t, err)
	assert.True(t, capture.Paid())
	assert.Equal(t, 2000, capture.Amount)
	assert.Equal(t, "MXN", capture.Currency)
}

func TestPayPalCreateSubscription(t *testing.T) {
	srv := fakePayPal(t)
	client := newTestPayPalClient(srv.URL)

	sub, err := client.CreateSubscription(context.Background(), "basic")
	require.NoError(t, err)
	assert.Equal(t, "SUB-123", sub.ID)
	assert.Equal(t, "https://example.invalid/approve-sub", sub.ApprovalURL)

	// A tier with no provisioned billing plan never reaches the wire.
	_, err = client.CreateSubscription(context.Background(), "premium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no billing plan configured")
}

func TestPayPalMissingCredentials(t *testing.T) {
	client := NewPayPalClient("", "", "sandbox", "", "", nil)
	_, err := client.CreateOrder(context.Background(), 2000, "MXN")
	assert.Error(t, err)
}
