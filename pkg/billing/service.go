package billing

import (
	"errors"
	"log"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/email"
	"socialpulse_backend/pkg/lemonsqueezy"
	"socialpulse_backend/pkg/subscription"
)

// Service drives subscription state from verified payment-processor events.
// It is the only writer of the subscriptions table besides the cancellation
// flow; handlers are idempotent with respect to redelivery because every
// subscription mutation is an upsert or an absolute field update.
type Service struct {
	repo         Repository
	variantPlans map[string]subscription.Tier
}

func NewService(repo Repository, variantPlans map[string]subscription.Tier) *Service {
	return &Service{repo: repo, variantPlans: variantPlans}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// variant lookup from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	cfg := config.Get().LemonSqueezy
	return NewService(NewRepository(db), subscription.VariantPlans(cfg.StarterVariantID, cfg.ProVariantID))
}

// RecordEvent appends the audit row for a delivery before any handling
// happens. Returns false for a duplicate event id, in which case the caller
// must acknowledge without dispatching.
func (s *Service) RecordEvent(ev *lemonsqueezy.WebhookEvent, rawPayload []byte) (bool, error) {
	return s.repo.CreateEventIfNew(&model.WebhookEvent{
		EventID:   ev.EventID,
		EventType: ev.EventName,
		Payload:   datatypes.JSON(rawPayload),
	})
}

// MarkProcessed flips the audit row to processed, keeping the handler error
// for inspection when there was one.
func (s *Service) MarkProcessed(eventID string, processingErr error) error {
	return s.repo.MarkProcessed(eventID, processingErr)
}

// HandleEvent dispatches a parsed event to its handler.
func (s *Service) HandleEvent(ev *lemonsqueezy.WebhookEvent) error {
	switch ev.EventName {
	case "subscription_created", "subscription_updated":
		return s.handleSubscriptionChange(ev)
	case "subscription_cancelled":
		return s.handleSubscriptionCancelled(ev)
	case "subscription_payment_success":
		// Log-only for now; notification hook lives here when it comes.
		log.Printf("Payment succeeded for subscription %s", ev.SubscriptionID)
		return nil
	case "subscription_payment_failed":
		return s.handlePaymentFailed(ev)
	case "order_created":
		log.Printf("Order created: %s", ev.SubscriptionID)
		return nil
	default:
		log.Printf("Unhandled webhook event type: %s", ev.EventName)
		return nil
	}
}

// handleSubscriptionChange upserts the user's subscription row from the
// event and refreshes the denormalized tier on the profile.
func (s *Service) handleSubscriptionChange(ev *lemonsqueezy.WebhookEvent) error {
	if ev.UserID == "" {
		log.Printf("Webhook %s has no user_id in custom data, skipping", ev.EventID)
		return nil
	}
	userID, err := strconv.ParseUint(ev.UserID, 10, 32)
	if err != nil {
		return errors.New("webhook custom data carries a malformed user_id")
	}

	planID := string(subscription.TierFromVariant(s.variantPlans, ev.VariantID))
	status := ev.Status
	if status == "" {
		status = model.SubscriptionStatusActive
	}

	sub := &model.Subscription{
		UserID:             uint(userID),
		ExternalID:         ev.SubscriptionID,
		PlanID:             planID,
		Status:             status,
		CurrentPeriodStart: ev.PeriodStart,
		CurrentPeriodEnd:   ev.PeriodEnd,
		CancelAtPeriodEnd:  ev.CancelAtPeriodEnd,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return err
	}

	if err := s.repo.UpdateUserSubscription(uint(userID), planID, status); err != nil {
		return err
	}

	if ev.EventName == "subscription_created" && email.GlobalEmailService != nil {
		if stored, err := s.repo.GetSubscriptionWithUser(ev.SubscriptionID); err == nil {
			plan := subscription.GetPlan(stored.PlanID)
			if err := email.GlobalEmailService.SendSubscriptionStartedEmail(
				stored.User.Email, stored.User.DisplayName(), plan.Name, plan.Price, stored.CurrentPeriodEnd,
			); err != nil {
				log.Printf("Could not send subscription email: %v", err)
			}
		}
	}

	log.Printf("Updated subscription for user %d: %s (%s)", userID, planID, status)
	return nil
}

// handleSubscriptionCancelled marks the matched row canceled. The plan id is
// left untouched so the user keeps the tier until the period runs out.
func (s *Service) handleSubscriptionCancelled(ev *lemonsqueezy.WebhookEvent) error {
	err := s.repo.UpdateSubscriptionByExternalID(ev.SubscriptionID, map[string]interface{}{
		"status":               model.SubscriptionStatusCanceled,
		"cancel_at_period_end": true,
	})
	if err != nil {
		return err
	}

	if stored, err := s.repo.GetSubscriptionWithUser(ev.SubscriptionID); err == nil {
		if err := s.repo.UpdateUserSubscription(stored.UserID, stored.PlanID, model.SubscriptionStatusCanceled); err != nil {
			return err
		}
		if email.GlobalEmailService != nil {
			plan := subscription.GetPlan(stored.PlanID)
			if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(
				stored.User.Email, stored.User.DisplayName(), plan.Name, stored.CurrentPeriodEnd,
			); err != nil {
				log.Printf("Could not send cancellation email: %v", err)
			}
		}
	}
	return nil
}

func (s *Service) handlePaymentFailed(ev *lemonsqueezy.WebhookEvent) error {
	log.Printf("Payment failed for subscription %s", ev.SubscriptionID)

	err := s.repo.UpdateSubscriptionByExternalID(ev.SubscriptionID, map[string]interface{}{
		"status": model.SubscriptionStatusPastDue,
	})
	if err != nil {
		return err
	}

	if stored, err := s.repo.GetSubscriptionWithUser(ev.SubscriptionID); err == nil {
		if err := s.repo.UpdateUserSubscription(stored.UserID, stored.PlanID, model.SubscriptionStatusPastDue); err != nil {
			return err
		}
		if email.GlobalEmailService != nil {
			plan := subscription.GetPlan(stored.PlanID)
			if err := email.GlobalEmailService.SendPaymentFailedEmail(
				stored.User.Email, stored.User.DisplayName(), plan.Name,
			); err != nil {
				log.Printf("Could not send payment failure email: %v", err)
			}
		}
	}
	return nil
}

// MarkCancelRequested flags the local row after a cancellation request. The
// definitive status change arrives later through the subscription_cancelled
// webhook.
func (s *Service) MarkCancelRequested(externalID string) (time.Time, error) {
	now := time.Now()
	err := s.repo.UpdateSubscriptionByExternalID(externalID, map[string]interface{}{
		"cancel_at_period_end": true,
	})
	return now, err
}
