package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"socialpulse_backend/pkg/config"
)

const (
	defaultAPIBaseURL   = "https://api.lemonsqueezy.com/v1"
	defaultCheckoutHost = "https://socialpulse.lemonsqueezy.com"
)

// Client talks to the LemonSqueezy JSON:API. Without credentials it runs in
// demo mode: CreateCheckout returns a deterministic mock URL and
// CancelSubscription skips the external call. Demo mode is a supported
// configuration for local development, not an error path.
type Client struct {
	APIKey       string
	StoreID      string
	APIBaseURL   string
	CheckoutHost string

	HTTPClient *http.Client
}

func NewClientFromConfig(cfg config.LemonSqueezyConfig) *Client {
	return &Client{
		APIKey:       strings.TrimSpace(cfg.APIKey),
		StoreID:      strings.TrimSpace(cfg.StoreID),
		APIBaseURL:   defaultAPIBaseURL,
		CheckoutHost: defaultCheckoutHost,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether real API credentials are present.
func (c *Client) Configured() bool {
	return c.APIKey != "" && c.StoreID != ""
}

type Checkout struct {
	URL     string `json:"checkoutUrl"`
	OrderID string `json:"orderId"`
}

// CreateCheckout creates a hosted checkout session for variantID, tagging it
// with the internal user id so the asynchronous webhook can be correlated
// back to the user.
func (c *Client) CreateCheckout(ctx context.Context, variantID, userID, email string) (*Checkout, error) {
	if variantID == "" || userID == "" || email == "" {
		return nil, errors.New("variantID, userID and email are required")
	}

	if !c.Configured() {
		return &Checkout{
			URL: fmt.Sprintf("%s/checkout/buy/%s?checkout[custom][user_id]=%s&checkout[email]=%s",
				strings.TrimRight(c.CheckoutHost, "/"), variantID, userID, url.QueryEscape(email)),
			OrderID: "demo_" + uuid.NewString(),
		}, nil
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "checkouts",
			"attributes": map[string]interface{}{
				"checkout_data": map[string]interface{}{
					"custom": map[string]interface{}{
						"user_id": userID,
					},
					"email": email,
				},
			},
			"relationships": map[string]interface{}{
				"store": map[string]interface{}{
					"data": map[string]interface{}{
						"type": "stores",
						"id":   c.StoreID,
					},
				},
				"variant": map[string]interface{}{
					"data": map[string]interface{}{
						"type": "variants",
						"id":   variantID,
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.APIBaseURL, "/")+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lemonsqueezy checkout failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.Data.Attributes.URL == "" {
		return nil, errors.New("lemonsqueezy checkout response missing url")
	}

	return &Checkout{URL: out.Data.Attributes.URL, OrderID: out.Data.ID}, nil
}

// CancelSubscription cancels the subscription at the processor. Skipped
// silently in demo mode; the caller still flags the local row.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return errors.New("subscriptionID is required")
	}
	if c.APIKey == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/subscriptions/%s", strings.TrimRight(c.APIBaseURL, "/"), url.PathEscape(subscriptionID)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("lemonsqueezy cancel failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}
