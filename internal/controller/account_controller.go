package controller

import (
	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/utils/jwt"
)

type ConnectAccountInput struct {
	Platform      string `json:"platform"`
	AccountName   string `json:"account_name"`
	AccountHandle string `json:"account_handle"`
	AvatarURL     string `json:"avatar_url"`
}

// ConnectAccount links a social account to the user. The plan's account cap
// is enforced by the CheckAccountLimit middleware on the route.
func ConnectAccount(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(ConnectAccountInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if !model.IsValidPlatform(input.Platform) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid platform",
		})
	}
	if input.AccountName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Account name is required",
		})
	}

	account := model.SocialAccount{
		UserID:        claims.UserID,
		Platform:      model.Platform(input.Platform),
		AccountName:   input.AccountName,
		AccountHandle: input.AccountHandle,
		AvatarURL:     input.AvatarURL,
		IsActive:      true,
	}

	if err := database.GetDB().Create(&account).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not connect account",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func GetMyAccounts(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var accounts []model.SocialAccount
	if err := database.GetDB().
		Where("user_id = ? AND is_active = ?", claims.UserID, true).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch accounts",
		})
	}

	return c.JSON(fiber.Map{
		"accounts": accounts,
	})
}

// DisconnectAccount soft-disables the link so existing posts keep their
// account reference.
func DisconnectAccount(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var account model.SocialAccount
	if err := database.GetDB().First(&account, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	if account.UserID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to access this account",
		})
	}

	account.IsActive = false
	if err := database.GetDB().Save(&account).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not disconnect account",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Account disconnected",
	})
}
