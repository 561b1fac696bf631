package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	liveBaseURL    = "https://api-m.paypal.com"
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
)

// PayPalClient talks to the PayPal v2 Orders and v1 Billing APIs.
type PayPalClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	returnURL    string
	cancelURL    string
	planIDs      map[string]string // plan tier -> provisioned billing plan ID
	client       *http.Client
}

// NewPayPalClient creates a client for the given environment ("live" or
// "sandbox"). planIDs maps plan tiers to the billing plan IDs provisioned in
// the PayPal account; the v1 Billing API only accepts those, never raw tiers.
func NewPayPalClient(clientID, clientSecret, env, returnURL, cancelURL string, planIDs map[string]string) *PayPalClient {
	base := liveBaseURL
	if env == "sandbox" {
		base = sandboxBaseURL
	}
	return &PayPalClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      base,
		returnURL:    returnURL,
		cancelURL:    cancelURL,
		planIDs:      planIDs,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (p *PayPalClient) accessToken(ctx context.Context) (string, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return "", fmt.Errorf("paypal credentials not configured")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := p.do(req, &tok); err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	return tok.AccessToken, nil
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				Amount struct {
					Value        string `json:"value"`
					CurrencyCode string `json:"currency_code"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder creates a one-time order with CAPTURE intent.
func (p *PayPalClient) CreateOrder(ctx context.Context, amount int, currency string) (*Order, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         formatAmount(amount),
			},
			"description": "Conversión de estado de cuenta a Excel",
		}},
		"application_context": map[string]string{
			"return_url": p.returnURL,
			"cancel_url": p.cancelURL,
		},
	}

	var resp orderResponse
	if err := p.post(ctx, token, "/v2/checkout/orders", payload, nil, &resp); err != nil {
		return nil, fmt.Errorf("create order failed: %w", err)
	}

	return &Order{ID: resp.ID, ApprovalURL: linkByRel(resp.Links, "approve")}, nil
}

// CaptureOrder captures a previously approved order.
func (p *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Prefer": "return=representation"}
	var resp orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := p.post(ctx, token, path, map[string]interface{}{}, headers, &resp); err != nil {
		return nil, fmt.Errorf("capture order failed: %w", err)
	}

	c := &Capture{Status: resp.Status}
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		amt := resp.PurchaseUnits[0].Payments.Captures[0].Amount
		c.Amount = parseAmount(amt.Value)
		c.Currency = amt.CurrencyCode
	}
	return c, nil
}

type subscriptionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// CreateSubscription starts a billing agreement for the given plan tier.
func (p *PayPalClient) CreateSubscription(ctx context.Context, planTier string) (*Subscription, error) {
	planID, ok := p.planIDs[planTier]
	if !ok || planID == "" {
		return nil, fmt.Errorf("no billing plan configured for tier %q", planTier)
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"plan_id": planID,
		"application_context": map[string]string{
			"return_url": p.returnURL,
			"cancel_url": p.cancelURL,
		},
	}

	var resp subscriptionResponse
	if err := p.post(ctx, token, "/v1/billing/subscriptions", payload, nil, &resp); err != nil {
		return nil, fmt.Errorf("create subscription failed: %w", err)
	}

	return &Subscription{
		ID:          resp.ID,
		Status:      resp.Status,
		ApprovalURL: linkByRel(resp.Links, "approve"),
	}, nil
}

// GetSubscription reads the current status of a billing agreement.
func (p *PayPalClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/billing/subscriptions/"+url.PathEscape(subscriptionID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	var resp subscriptionResponse
	if err := p.do(req, &resp); err != nil {
		return nil, fmt.Errorf("get subscription failed: %w", err)
	}
	return &Subscription{ID: resp.ID, Status: resp.Status}, nil
}

func (p *PayPalClient) post(ctx context.Context, token, path string, payload interface{}, headers map[string]string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return p.do(req, out)
}

func (p *PayPalClient) do(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paypal returned %d: %s", resp.StatusCode, truncate(body, 256))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func linkByRel(links []struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// formatAmount renders centavos as the decimal string PayPal expects.
func formatAmount(centavos int) string {
	return fmt.Sprintf("%d.%02d", centavos/100, centavos%100)
}

// parseAmount converts a decimal amount string back to centavos.
func parseAmount(value string) int {
	whole, frac, _ := strings.Cut(value, ".")
	w, _ := strconv.Atoi(whole)
	cents := w * 100
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	f, _ := strconv.Atoi(frac)
	return cents + f
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
