package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/billing"
	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/lemonsqueezy"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/utils/jwt"
)

type CancelSubscriptionInput struct {
	SubscriptionID string `json:"subscriptionId"`
}

// CancelSubscription requests cancellation at the payment processor and flags
// the local row. The external call goes first so a processor failure leaves
// no local mutation; the definitive status change arrives later through the
// subscription_cancelled webhook.
// POST /subscriptions/cancel
func CancelSubscription(c *fiber.Ctx) error {
	input := new(CancelSubscriptionInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.SubscriptionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "subscriptionId is required",
		})
	}

	client := lemonsqueezy.NewClientFromConfig(config.Get().LemonSqueezy)
	if err := client.CancelSubscription(c.Context(), input.SubscriptionID); err != nil {
		log.Printf("Subscription cancellation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel subscription",
		})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	canceledAt, err := svc.MarkCancelRequested(input.SubscriptionID)
	if err != nil {
		log.Printf("Could not flag local subscription %s: %v", input.SubscriptionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel subscription",
		})
	}

	return c.JSON(fiber.Map{
		"canceledAt": canceledAt.Format(time.RFC3339),
		"message":    "Subscription will be canceled at the end of the current billing period",
	})
}

// GetMySubscription returns the caller's subscription row, or the free plan
// defaults when they never subscribed.
// GET /subscriptions/my
func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	if err := database.GetDB().Where("user_id = ?", claims.UserID).First(&sub).Error; err != nil {
		return c.JSON(fiber.Map{
			"plan_id": string(subscription.FreeTier),
			"status":  "",
			"plan":    planJSON(subscription.GetPlan(string(subscription.FreeTier))),
		})
	}

	return c.JSON(fiber.Map{
		"plan_id":              sub.PlanID,
		"status":               sub.Status,
		"external_id":          sub.ExternalID,
		"current_period_start": sub.CurrentPeriodStart,
		"current_period_end":   sub.CurrentPeriodEnd,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"plan":                 planJSON(subscription.GetPlan(sub.PlanID)),
	})
}

// GetPlans lists the plan catalog with the variant ids needed for checkout.
// GET /subscriptions/plans
func GetPlans(c *fiber.Ctx) error {
	cfg := config.Get().LemonSqueezy
	variantByTier := map[subscription.Tier]string{
		subscription.StarterTier: cfg.StarterVariantID,
		subscription.ProTier:     cfg.ProVariantID,
	}

	plans := make([]fiber.Map, 0, len(subscription.Plans))
	for _, tier := range []subscription.Tier{subscription.FreeTier, subscription.StarterTier, subscription.ProTier} {
		plan := subscription.Plans[tier]
		entry := planJSON(plan)
		if variant := variantByTier[tier]; variant != "" {
			entry["variant_id"] = variant
		}
		plans = append(plans, entry)
	}

	return c.JSON(fiber.Map{
		"plans": plans,
	})
}

func planJSON(plan subscription.Plan) fiber.Map {
	limits := make(map[string]int, len(plan.Limits))
	for feature, limit := range plan.Limits {
		limits[string(feature)] = limit
	}
	return fiber.Map{
		"id":     string(plan.ID),
		"name":   plan.Name,
		"price":  plan.Price,
		"limits": limits,
	}
}
