package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/usage"
)

// liveAccountUsage builds the check result for the socialAccounts feature,
// which is capped as a live count of connected accounts rather than a ledger
// entry.
func liveAccountUsage(tier string, connected int) usage.CheckResult {
	limit := subscription.FeatureLimit(tier, subscription.SocialAccounts)
	if limit == subscription.Unlimited {
		return usage.CheckResult{Allowed: true, Used: connected, Limit: subscription.Unlimited}
	}
	return usage.CheckResult{Allowed: connected < limit, Used: connected, Limit: limit}
}

func accountUsageFor(userID uint) (usage.CheckResult, error) {
	var user model.User
	if err := database.GetDB().Select("subscription_tier").First(&user, userID).Error; err != nil {
		return usage.CheckResult{}, err
	}

	var connected int64
	err := database.GetDB().Model(&model.SocialAccount{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&connected).Error
	if err != nil {
		return usage.CheckResult{}, err
	}

	return liveAccountUsage(user.SubscriptionTier, int(connected)), nil
}

// CheckUsage answers whether a user may use a metered feature right now.
// GET /usage/check?userId=42&feature=aiGenerations
func CheckUsage(c *fiber.Ctx) error {
	userIDParam := c.Query("userId")
	feature := c.Query("feature")
	if userIDParam == "" || feature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId and feature are required",
		})
	}

	userID, err := strconv.ParseUint(userIDParam, 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId must be numeric",
		})
	}

	if feature == string(subscription.SocialAccounts) {
		result, err := accountUsageFor(uint(userID))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check usage",
			})
		}
		return c.JSON(result)
	}

	svc := usage.NewServiceFromDB(database.GetDB())
	result, err := svc.CheckUsage(uint(userID), subscription.Feature(feature))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check usage",
		})
	}

	return c.JSON(result)
}

type IncrementUsageInput struct {
	UserID     uint   `json:"userId"`
	FeatureKey string `json:"featureKey"`
}

// IncrementUsage records one use of a feature and returns the new count. It
// never enforces the limit; pair it with CheckUsage or use the gated routes.
// POST /usage/increment
func IncrementUsage(c *fiber.Ctx) error {
	input := new(IncrementUsageInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.UserID == 0 || input.FeatureKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId and featureKey are required",
		})
	}

	svc := usage.NewServiceFromDB(database.GetDB())
	newCount, err := svc.IncrementUsage(input.UserID, subscription.Feature(input.FeatureKey))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not increment usage",
		})
	}

	return c.JSON(fiber.Map{
		"newCount": newCount,
	})
}
