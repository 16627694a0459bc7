package middleware

import (
	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/usage"
	"socialpulse_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireFeature blocks the request when the user has exhausted the feature's
// quota on their plan. It only checks; handlers record consumption themselves
// after the metered action succeeds, or use ReserveUsage for a combined
// check-and-count.
func RequireFeature(feature subscription.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		svc := usage.NewServiceFromDB(database.GetDB())
		result, err := svc.CheckUsage(claims.UserID, feature)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check usage",
			})
		}

		if !result.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You have reached your plan limit for this feature. Please upgrade your plan.",
				"used":  result.Used,
				"limit": result.Limit,
			})
		}

		return c.Next()
	}
}

// CheckAccountLimit caps how many social accounts a user can have connected
// at once. Unlike the metered features this is a live count, not a ledger.
func CheckAccountLimit(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	limit := subscription.FeatureLimit(user.SubscriptionTier, subscription.SocialAccounts)
	if limit == subscription.Unlimited {
		return c.Next()
	}

	var count int64
	database.GetDB().Model(&model.SocialAccount{}).
		Where("user_id = ? AND is_active = ?", claims.UserID, true).
		Count(&count)

	if int(count) >= limit {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":         "You have reached your connected account limit. Please upgrade your plan.",
			"current_count": count,
			"max_limit":     limit,
		})
	}

	return c.Next()
}

// CheckPostOwnership rejects requests targeting a post the caller does not own.
func CheckPostOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		postID := c.Params("id")

		var post model.Post
		if err := database.GetDB().First(&post, postID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Post not found",
			})
		}

		if post.UserID != claims.UserID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this post",
			})
		}

		return c.Next()
	}
}
