package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/billing"
	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/subscription"
)

type memBillingRepo struct {
	events     map[string]*model.WebhookEvent
	subsByUser map[uint]*model.Subscription
	userTiers  map[uint]string
}

func newMemBillingRepo() *memBillingRepo {
	return &memBillingRepo{
		events:     make(map[string]*model.WebhookEvent),
		subsByUser: make(map[uint]*model.Subscription),
		userTiers:  make(map[uint]string),
	}
}

func (m *memBillingRepo) CreateEventIfNew(event *model.WebhookEvent) (bool, error) {
	if _, ok := m.events[event.EventID]; ok {
		return false, nil
	}
	m.events[event.EventID] = event
	return true, nil
}

func (m *memBillingRepo) MarkProcessed(eventID string, processingErr error) error {
	ev, ok := m.events[eventID]
	if !ok {
		return errors.New("event not found")
	}
	ev.Processed = true
	if processingErr != nil {
		ev.ProcessingError = processingErr.Error()
	}
	return nil
}

func (m *memBillingRepo) UpsertSubscription(sub *model.Subscription) error {
	copied := *sub
	m.subsByUser[sub.UserID] = &copied
	return nil
}

func (m *memBillingRepo) UpdateSubscriptionByExternalID(externalID string, updates map[string]interface{}) error {
	return nil
}

func (m *memBillingRepo) UpdateUserSubscription(userID uint, tier, status string) error {
	m.userTiers[userID] = tier
	return nil
}

func (m *memBillingRepo) GetSubscriptionWithUser(externalID string) (*model.Subscription, error) {
	for _, sub := range m.subsByUser {
		if sub.ExternalID == externalID {
			return sub, nil
		}
	}
	return nil, errors.New("record not found")
}

func newWebhookApp(t *testing.T, secret string, ackOnError bool) (*fiber.App, *memBillingRepo) {
	t.Helper()

	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", secret)
	if ackOnError {
		t.Setenv("WEBHOOK_ACK_ON_ERROR", "true")
	} else {
		t.Setenv("WEBHOOK_ACK_ON_ERROR", "false")
	}
	config.Load()

	repo := newMemBillingRepo()
	billingService = billing.NewService(repo, map[string]subscription.Tier{
		"111": subscription.StarterTier,
	})
	t.Cleanup(func() {
		billingService = nil
		config.Load()
	})

	app := fiber.New()
	app.Post("/webhooks/payments", HandlePaymentWebhook)
	return app, repo
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) (map[string]interface{}, int) {
	t.Helper()

	req := httptest.NewRequest("POST", "/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded, resp.StatusCode
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

var orderCreatedPayload = []byte(`{
	"meta": {"event_name": "order_created", "event_id": "evt_order_1"},
	"data": {"id": "ord_1", "attributes": {}}
}`)

func TestWebhookWithoutSecretSkipsVerification(t *testing.T) {
	app, repo := newWebhookApp(t, "", true)

	body, status := postWebhook(t, app, orderCreatedPayload, "")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	require.Contains(t, repo.events, "evt_order_1")
	assert.True(t, repo.events["evt_order_1"].Processed)
}

func TestWebhookInvalidSignatureRejected(t *testing.T) {
	app, repo := newWebhookApp(t, "top-secret", true)

	body, status := postWebhook(t, app, orderCreatedPayload, "deadbeef")

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid signature", body["error"])
	assert.Empty(t, repo.events, "rejected deliveries must not be recorded")
}

func TestWebhookValidSignatureAccepted(t *testing.T) {
	app, repo := newWebhookApp(t, "top-secret", true)

	sig := signPayload(orderCreatedPayload, "top-secret")
	body, status := postWebhook(t, app, orderCreatedPayload, sig)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.Contains(t, repo.events, "evt_order_1")
}

func TestWebhookDuplicateAcknowledgedWithoutRedispatch(t *testing.T) {
	app, repo := newWebhookApp(t, "", true)

	payload := []byte(`{
		"meta": {"event_name": "subscription_created", "event_id": "evt_dup", "custom_data": {"user_id": "42"}},
		"data": {"id": "sub_1", "attributes": {"status": "active", "variant_id": "111"}}
	}`)

	_, status := postWebhook(t, app, payload, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "starter", repo.userTiers[42])

	// Same event id again: acknowledged, flagged, state untouched.
	repo.userTiers[42] = "tampered"
	body, status := postWebhook(t, app, payload, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, "tampered", repo.userTiers[42])
	assert.Len(t, repo.events, 1)
}

var badUserPayload = []byte(`{
	"meta": {"event_name": "subscription_created", "event_id": "evt_bad_user", "custom_data": {"user_id": "not-a-number"}},
	"data": {"id": "sub_1", "attributes": {"status": "active", "variant_id": "111"}}
}`)

func TestWebhookHandlerErrorAcknowledgedByDefault(t *testing.T) {
	app, repo := newWebhookApp(t, "", true)

	body, status := postWebhook(t, app, badUserPayload, "")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	require.Contains(t, repo.events, "evt_bad_user")
	assert.True(t, repo.events["evt_bad_user"].Processed)
	assert.NotEmpty(t, repo.events["evt_bad_user"].ProcessingError)
}

func TestWebhookHandlerErrorReturns500WhenAckDisabled(t *testing.T) {
	app, repo := newWebhookApp(t, "", false)

	body, status := postWebhook(t, app, badUserPayload, "")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Event processing failed", body["error"])
	// The audit row is still written and marked, so a redelivery dedups.
	require.Contains(t, repo.events, "evt_bad_user")
	assert.True(t, repo.events["evt_bad_user"].Processed)
}
