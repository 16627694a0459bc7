package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/pkg/ai"
	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/usage"
	"socialpulse_backend/pkg/utils/jwt"
)

var aiClient *ai.Client

func getAIClient() *ai.Client {
	if aiClient == nil {
		aiClient = ai.NewClientFromConfig(config.Get().Gemini)
	}
	return aiClient
}

// recordAIGeneration counts one aiGenerations unit after a generation
// succeeded. Routes are gated by RequireFeature, so the check has already
// passed; failed generations stay free.
func recordAIGeneration(userID uint) {
	svc := usage.NewServiceFromDB(database.GetDB())
	if _, err := svc.IncrementUsage(userID, subscription.AIGenerations); err != nil {
		log.Printf("Could not record AI usage for user %d: %v", userID, err)
	}
}

type GeneratePostInput struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

// GeneratePostContent drafts a post about a topic.
// POST /ai/generate
func GeneratePostContent(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(GeneratePostInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}

	post, err := getAIClient().GeneratePost(c.Context(), input.Topic, input.Platform, input.Tone)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate content",
		})
	}

	recordAIGeneration(claims.UserID)

	return c.JSON(fiber.Map{
		"content":  post.Content,
		"hashtags": post.Hashtags,
	})
}

type GenerateHashtagsInput struct {
	Content  string `json:"content"`
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

// GenerateHashtags suggests hashtags for existing content.
// POST /ai/hashtags
func GenerateHashtags(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(GenerateHashtagsInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Content is required",
		})
	}

	hashtags, err := getAIClient().GenerateHashtags(c.Context(), input.Content, input.Platform, input.Count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate hashtags",
		})
	}

	recordAIGeneration(claims.UserID)

	return c.JSON(fiber.Map{
		"hashtags": hashtags,
	})
}

type GenerateIdeasInput struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// GenerateIdeas proposes post ideas for a topic.
// POST /ai/ideas
func GenerateIdeas(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(GenerateIdeasInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}

	ideas, err := getAIClient().GenerateIdeas(c.Context(), input.Topic, input.Count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate ideas",
		})
	}

	recordAIGeneration(claims.UserID)

	return c.JSON(fiber.Map{
		"ideas": ideas,
	})
}
