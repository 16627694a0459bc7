package controller

import (
	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/usage"
	"socialpulse_backend/pkg/utils/jwt"
)

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type platformCount struct {
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// GetDashboardStats summarizes the caller's posts, accounts and current
// period usage for the dashboard.
// GET /dashboard/stats
func GetDashboardStats(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var byStatus []statusCount
	if err := db.Model(&model.Post{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", claims.UserID).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch stats",
		})
	}

	var byPlatform []platformCount
	if err := db.Model(&model.Post{}).
		Select("platform, COUNT(*) as count").
		Where("user_id = ?", claims.UserID).
		Group("platform").
		Scan(&byPlatform).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch stats",
		})
	}

	var accountCount int64
	db.Model(&model.SocialAccount{}).
		Where("user_id = ? AND is_active = ?", claims.UserID, true).
		Count(&accountCount)

	svc := usage.NewServiceFromDB(db)
	usageSummary := make(map[string]usage.CheckResult, 3)
	for _, feature := range []subscription.Feature{
		subscription.AIGenerations,
		subscription.ScheduledPosts,
	} {
		result, err := svc.CheckUsage(claims.UserID, feature)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not fetch usage",
			})
		}
		usageSummary[string(feature)] = result
	}

	// socialAccounts is a live count, not a ledger entry.
	var tier string
	db.Model(&model.User{}).Select("subscription_tier").Where("id = ?", claims.UserID).Scan(&tier)
	usageSummary[string(subscription.SocialAccounts)] = liveAccountUsage(tier, int(accountCount))

	return c.JSON(fiber.Map{
		"posts_by_status":    byStatus,
		"posts_by_platform":  byPlatform,
		"connected_accounts": accountCount,
		"usage":              usageSummary,
	})
}
