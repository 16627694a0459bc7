package lemonsqueezy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse_backend/pkg/config"
)

func configWith(apiKey, storeID string) config.LemonSqueezyConfig {
	return config.LemonSqueezyConfig{APIKey: apiKey, StoreID: storeID}
}

func TestCreateCheckoutDemoMode(t *testing.T) {
	c := NewClientFromConfig(configWith("", ""))

	checkout, err := c.CreateCheckout(context.Background(), "12345", "42", "user@example.com")
	require.NoError(t, err)

	assert.Contains(t, checkout.URL, "/checkout/buy/12345")
	assert.Contains(t, checkout.URL, "checkout[custom][user_id]=42")
	assert.Contains(t, checkout.URL, "checkout[email]=user%40example.com")
	assert.True(t, strings.HasPrefix(checkout.OrderID, "demo_"))
}

func TestCreateCheckoutMissingInputs(t *testing.T) {
	c := NewClientFromConfig(configWith("", ""))

	_, err := c.CreateCheckout(context.Background(), "", "42", "user@example.com")
	assert.Error(t, err)
	_, err = c.CreateCheckout(context.Background(), "12345", "", "user@example.com")
	assert.Error(t, err)
	_, err = c.CreateCheckout(context.Background(), "12345", "42", "")
	assert.Error(t, err)
}

func TestCreateCheckoutAPISuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Data struct {
				Attributes struct {
					CheckoutData struct {
						Custom struct {
							UserID string `json:"user_id"`
						} `json:"custom"`
						Email string `json:"email"`
					} `json:"checkout_data"`
				} `json:"attributes"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.Data.Attributes.CheckoutData.Custom.UserID)

		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.Write([]byte(`{"data":{"id":"chk_999","attributes":{"url":"https://pay.example.com/chk_999"}}}`))
	}))
	defer srv.Close()

	c := NewClientFromConfig(configWith("test-key", "store_1"))
	c.APIBaseURL = srv.URL

	checkout, err := c.CreateCheckout(context.Background(), "12345", "42", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/chk_999", checkout.URL)
	assert.Equal(t, "chk_999", checkout.OrderID)
}

func TestCreateCheckoutUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"detail":"bad variant"}]}`))
	}))
	defer srv.Close()

	c := NewClientFromConfig(configWith("test-key", "store_1"))
	c.APIBaseURL = srv.URL

	_, err := c.CreateCheckout(context.Background(), "12345", "42", "user@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=422")
}

func TestCancelSubscriptionSkippedWithoutCredentials(t *testing.T) {
	c := NewClientFromConfig(configWith("", ""))
	assert.NoError(t, c.CancelSubscription(context.Background(), "sub_123"))
}

func TestCancelSubscription(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := NewClientFromConfig(configWith("test-key", "store_1"))
	c.APIBaseURL = srv.URL

	require.NoError(t, c.CancelSubscription(context.Background(), "sub_123"))
	assert.Equal(t, "/subscriptions/sub_123", gotPath)
}

func TestCancelSubscriptionUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"detail":"not found"}]}`))
	}))
	defer srv.Close()

	c := NewClientFromConfig(configWith("test-key", "store_1"))
	c.APIBaseURL = srv.URL

	err := c.CancelSubscription(context.Background(), "sub_404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"meta":{"event_name":"subscription_created"}}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature(payload, validSig, secret))
	assert.True(t, VerifyWebhookSignature(payload, strings.ToUpper(validSig), secret))
	assert.False(t, VerifyWebhookSignature(payload, "deadbeef", secret))
	assert.False(t, VerifyWebhookSignature(payload, "", secret))
	assert.False(t, VerifyWebhookSignature(payload, validSig, ""))
	assert.False(t, VerifyWebhookSignature([]byte(`{"tampered":true}`), validSig, secret))
}

func TestParseWebhookEvent(t *testing.T) {
	raw := []byte(`{
		"meta": {
			"event_name": "subscription_created",
			"event_id": "evt_1",
			"custom_data": { "user_id": "42" }
		},
		"data": {
			"id": "sub_123",
			"attributes": {
				"status": "active",
				"variant_id": 12345,
				"renews_at": "2024-07-01T00:00:00Z",
				"created_at": "2024-06-01T00:00:00Z",
				"cancelled": false
			}
		}
	}`)

	ev, err := ParseWebhookEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "subscription_created", ev.EventName)
	assert.Equal(t, "evt_1", ev.EventID)
	assert.Equal(t, "42", ev.UserID)
	assert.Equal(t, "sub_123", ev.SubscriptionID)
	assert.Equal(t, "active", ev.Status)
	assert.Equal(t, "12345", ev.VariantID)
	assert.False(t, ev.CancelAtPeriodEnd)
	require.NotNil(t, ev.PeriodEnd)
	assert.Equal(t, "2024-07-01T00:00:00Z", ev.PeriodEnd.Format(time.RFC3339))
	require.NotNil(t, ev.PeriodStart)
}

func TestParseWebhookEventFallsBackToResourceID(t *testing.T) {
	raw := []byte(`{
		"meta": { "event_name": "order_created" },
		"data": { "id": 777, "attributes": {} }
	}`)

	ev, err := ParseWebhookEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "777", ev.EventID)
	assert.Equal(t, "777", ev.SubscriptionID)
}

func TestParseWebhookEventRejectsInvalid(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`{"meta":{},"data":{"id":"x"}}`))
	assert.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`{"meta":{"event_name":"subscription_created"},"data":{}}`))
	assert.Error(t, err)
}
