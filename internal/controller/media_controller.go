package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"socialpulse_backend/pkg/utils/jwt"
	"socialpulse_backend/pkg/utils/storage"
	"socialpulse_backend/pkg/utils/validation"
)

// UploadMedia stores a post attachment and returns its public URL.
// POST /media
func UploadMedia(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	if err := validation.ValidateMedia(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	url, err := storage.UploadMedia(file, claims.UserID)
	if err != nil {
		log.Printf("Media upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload file",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url": url,
	})
}

// DeleteMedia removes a previously uploaded attachment by URL.
// DELETE /media
func DeleteMedia(c *fiber.Ctx) error {
	input := new(struct {
		URL string `json:"url"`
	})
	if err := c.BodyParser(input); err != nil || input.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	if err := storage.DeleteMedia(input.URL); err != nil {
		log.Printf("Media delete failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete file",
		})
	}

	return c.JSON(fiber.Map{
		"message": "File deleted",
	})
}
