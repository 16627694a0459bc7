package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/pkg/billing"
	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/lemonsqueezy"
)

// billingService is swapped in tests.
var billingService *billing.Service

func getBillingService() *billing.Service {
	if billingService == nil {
		billingService = billing.NewServiceFromDB(database.GetDB())
	}
	return billingService
}

// HandlePaymentWebhook ingests payment-processor events. Order matters:
// verify the signature against the raw bytes, record the audit row (which is
// also the dedup point), then dispatch. Without a configured secret
// verification is skipped so demo setups still receive subscription state;
// handler failures after the audit row exists are acknowledged or retried
// per WEBHOOK_ACK_ON_ERROR.
// POST /webhooks/payments
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := c.Body()

	secret := config.Get().LemonSqueezy.WebhookSecret
	if secret == "" {
		log.Printf("Warning: LEMONSQUEEZY_WEBHOOK_SECRET not set, accepting webhook without signature verification")
	} else if !lemonsqueezy.VerifyWebhookSignature(rawBody, c.Get("X-Signature"), secret) {
		log.Printf("Webhook rejected: invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	event, err := lemonsqueezy.ParseWebhookEvent(rawBody)
	if err != nil {
		log.Printf("Webhook rejected: unparseable payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	svc := getBillingService()

	created, err := svc.RecordEvent(event, rawBody)
	if err != nil {
		log.Printf("Webhook %s: could not record event: %v", event.EventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record event",
		})
	}
	if !created {
		// Redelivery of an event we already have. Acknowledge without
		// running handlers again.
		return c.JSON(fiber.Map{
			"received":  true,
			"duplicate": true,
		})
	}

	handlerErr := svc.HandleEvent(event)
	if handlerErr != nil {
		log.Printf("Webhook %s (%s): handler failed: %v", event.EventID, event.EventName, handlerErr)
	}

	if err := svc.MarkProcessed(event.EventID, handlerErr); err != nil {
		log.Printf("Webhook %s: could not mark processed: %v", event.EventID, err)
	}

	if handlerErr != nil && !config.Get().Webhook.AckOnError {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Event processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}
