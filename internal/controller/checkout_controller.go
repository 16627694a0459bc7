package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/lemonsqueezy"
)

type CreateCheckoutInput struct {
	VariantID string `json:"variantId"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
}

// checkoutClient is swapped in tests.
var checkoutClient *lemonsqueezy.Client

func getCheckoutClient() *lemonsqueezy.Client {
	if checkoutClient == nil {
		checkoutClient = lemonsqueezy.NewClientFromConfig(config.Get().LemonSqueezy)
	}
	return checkoutClient
}

// CreateCheckout starts a hosted checkout session for a plan variant. The
// user id travels in the checkout's custom data so the webhook can correlate
// the purchase back to the account.
// POST /checkout/create
func CreateCheckout(c *fiber.Ctx) error {
	input := new(CreateCheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.VariantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "variantId is required",
		})
	}
	if input.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}
	if input.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email is required",
		})
	}

	checkout, err := getCheckoutClient().CreateCheckout(c.Context(), input.VariantID, input.UserID, input.Email)
	if err != nil {
		log.Printf("Checkout creation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout",
		})
	}

	return c.JSON(fiber.Map{
		"checkoutUrl": checkout.URL,
		"orderId":     checkout.OrderID,
	})
}
