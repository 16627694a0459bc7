package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/lemonsqueezy"
	"socialpulse_backend/pkg/subscription"
)

type fakeRepo struct {
	events       map[string]*model.WebhookEvent
	subsByUser   map[uint]*model.Subscription
	userTiers    map[uint]string
	userStatuses map[uint]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events:       make(map[string]*model.WebhookEvent),
		subsByUser:   make(map[uint]*model.Subscription),
		userTiers:    make(map[uint]string),
		userStatuses: make(map[uint]string),
	}
}

func (f *fakeRepo) CreateEventIfNew(event *model.WebhookEvent) (bool, error) {
	if _, ok := f.events[event.EventID]; ok {
		return false, nil
	}
	f.events[event.EventID] = event
	return true, nil
}

func (f *fakeRepo) MarkProcessed(eventID string, processingErr error) error {
	ev, ok := f.events[eventID]
	if !ok {
		return errors.New("event not found")
	}
	ev.Processed = true
	if processingErr != nil {
		ev.ProcessingError = processingErr.Error()
	}
	return nil
}

func (f *fakeRepo) UpsertSubscription(sub *model.Subscription) error {
	if existing, ok := f.subsByUser[sub.UserID]; ok {
		existing.ExternalID = sub.ExternalID
		existing.PlanID = sub.PlanID
		existing.Status = sub.Status
		existing.CurrentPeriodStart = sub.CurrentPeriodStart
		existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
		existing.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		return nil
	}
	copied := *sub
	f.subsByUser[sub.UserID] = &copied
	return nil
}

func (f *fakeRepo) UpdateSubscriptionByExternalID(externalID string, updates map[string]interface{}) error {
	for _, sub := range f.subsByUser {
		if sub.ExternalID != externalID {
			continue
		}
		if v, ok := updates["status"]; ok {
			sub.Status = v.(string)
		}
		if v, ok := updates["cancel_at_period_end"]; ok {
			sub.CancelAtPeriodEnd = v.(bool)
		}
		return nil
	}
	return nil
}

func (f *fakeRepo) UpdateUserSubscription(userID uint, tier, status string) error {
	f.userTiers[userID] = tier
	f.userStatuses[userID] = status
	return nil
}

func (f *fakeRepo) GetSubscriptionWithUser(externalID string) (*model.Subscription, error) {
	for _, sub := range f.subsByUser {
		if sub.ExternalID == externalID {
			return sub, nil
		}
	}
	return nil, errors.New("record not found")
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, map[string]subscription.Tier{
		"111": subscription.StarterTier,
		"222": subscription.ProTier,
	})
}

func createdEvent(userID, subID, variantID string) *lemonsqueezy.WebhookEvent {
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	return &lemonsqueezy.WebhookEvent{
		EventName:      "subscription_created",
		EventID:        "evt_" + subID,
		UserID:         userID,
		SubscriptionID: subID,
		Status:         "active",
		VariantID:      variantID,
		PeriodEnd:      &end,
	}
}

func TestHandleSubscriptionCreated(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("42", "sub_1", "222")))

	sub := repo.subsByUser[42]
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.PlanID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "sub_1", sub.ExternalID)
	assert.Equal(t, "pro", repo.userTiers[42])
	assert.Equal(t, "active", repo.userStatuses[42])
}

func TestHandleSubscriptionUpdatedReplacesExistingRow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("42", "sub_1", "111")))
	assert.Equal(t, "starter", repo.subsByUser[42].PlanID)

	upgrade := createdEvent("42", "sub_1", "222")
	upgrade.EventName = "subscription_updated"
	require.NoError(t, svc.HandleEvent(upgrade))

	assert.Len(t, repo.subsByUser, 1)
	assert.Equal(t, "pro", repo.subsByUser[42].PlanID)
	assert.Equal(t, "pro", repo.userTiers[42])
}

func TestHandleSubscriptionChangeIsolatedPerUser(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("1", "sub_a", "111")))
	require.NoError(t, svc.HandleEvent(createdEvent("2", "sub_b", "222")))

	assert.Equal(t, "starter", repo.subsByUser[1].PlanID)
	assert.Equal(t, "pro", repo.subsByUser[2].PlanID)
	assert.Equal(t, "starter", repo.userTiers[1])
	assert.Equal(t, "pro", repo.userTiers[2])
}

func TestHandleSubscriptionChangeUnknownVariantFallsBackToFree(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("42", "sub_1", "999")))

	assert.Equal(t, "free", repo.subsByUser[42].PlanID)
	assert.Equal(t, "free", repo.userTiers[42])
}

func TestHandleSubscriptionChangeMissingUserIDIsSkipped(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	ev := createdEvent("", "sub_1", "111")
	require.NoError(t, svc.HandleEvent(ev))
	assert.Empty(t, repo.subsByUser)
}

func TestHandleSubscriptionChangeMalformedUserID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	ev := createdEvent("not-a-number", "sub_1", "111")
	assert.Error(t, svc.HandleEvent(ev))
	assert.Empty(t, repo.subsByUser)
}

func TestHandleSubscriptionChangeStoresStatusVerbatim(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	ev := createdEvent("42", "sub_1", "111")
	ev.Status = "on_trial"
	require.NoError(t, svc.HandleEvent(ev))

	assert.Equal(t, "on_trial", repo.subsByUser[42].Status)
	assert.Equal(t, "on_trial", repo.userStatuses[42])
}

func TestHandleSubscriptionCancelledKeepsPlan(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("42", "sub_1", "222")))

	cancel := &lemonsqueezy.WebhookEvent{
		EventName:      "subscription_cancelled",
		EventID:        "evt_cancel",
		SubscriptionID: "sub_1",
	}
	require.NoError(t, svc.HandleEvent(cancel))

	sub := repo.subsByUser[42]
	assert.Equal(t, "pro", sub.PlanID)
	assert.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, "pro", repo.userTiers[42])
	assert.Equal(t, model.SubscriptionStatusCanceled, repo.userStatuses[42])
}

func TestHandlePaymentFailedTargetsMatchedSubscriptionOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("1", "sub_a", "111")))
	require.NoError(t, svc.HandleEvent(createdEvent("2", "sub_b", "222")))

	fail := &lemonsqueezy.WebhookEvent{
		EventName:      "subscription_payment_failed",
		EventID:        "evt_fail",
		SubscriptionID: "sub_a",
	}
	require.NoError(t, svc.HandleEvent(fail))

	assert.Equal(t, model.SubscriptionStatusPastDue, repo.subsByUser[1].Status)
	assert.Equal(t, "active", repo.subsByUser[2].Status)
	assert.Equal(t, model.SubscriptionStatusPastDue, repo.userStatuses[1])
	assert.Equal(t, "active", repo.userStatuses[2])
}

func TestHandleEventLogOnlyTypes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	for _, name := range []string{"subscription_payment_success", "order_created", "license_key_created"} {
		ev := &lemonsqueezy.WebhookEvent{EventName: name, EventID: "evt_x", SubscriptionID: "sub_1"}
		require.NoError(t, svc.HandleEvent(ev))
	}
	assert.Empty(t, repo.subsByUser)
}

func TestRecordEventDeduplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	ev := createdEvent("42", "sub_1", "111")
	raw := []byte(`{"meta":{"event_name":"subscription_created"}}`)

	created, err := svc.RecordEvent(ev, raw)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.RecordEvent(ev, raw)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMarkProcessedRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	ev := createdEvent("42", "sub_1", "111")
	_, err := svc.RecordEvent(ev, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, svc.MarkProcessed(ev.EventID, nil))
	assert.True(t, repo.events[ev.EventID].Processed)
	assert.Empty(t, repo.events[ev.EventID].ProcessingError)

	require.NoError(t, svc.MarkProcessed(ev.EventID, errors.New("handler blew up")))
	assert.Equal(t, "handler blew up", repo.events[ev.EventID].ProcessingError)
}

func TestMarkCancelRequestedFlagsRowOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.HandleEvent(createdEvent("42", "sub_1", "222")))

	_, err := svc.MarkCancelRequested("sub_1")
	require.NoError(t, err)

	sub := repo.subsByUser[42]
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, "active", sub.Status)
}
