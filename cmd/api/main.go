package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"socialpulse_backend/internal/controller"
	"socialpulse_backend/internal/middleware"
	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/cache"
	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/cron"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/email"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/utils/storage"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Payment webhook (signature-verified, no auth)
	api.Post("/webhooks/payments", controller.HandlePaymentWebhook)

	// Checkout and usage endpoints serve the frontend directly
	api.Post("/checkout/create", controller.CreateCheckout)
	api.Get("/usage/check", controller.CheckUsage)
	api.Post("/usage/increment", controller.IncrementUsage)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Post routes with quota checks
	posts := protected.Group("/posts")
	posts.Get("/", controller.GetMyPosts)
	posts.Get("/calendar", controller.GetCalendar)
	posts.Post("/", controller.CreatePost)
	posts.Get("/:id", middleware.CheckPostOwnership(), controller.GetPost)
	posts.Put("/:id", middleware.CheckPostOwnership(), controller.UpdatePost)
	posts.Put("/:id/schedule", middleware.CheckPostOwnership(), controller.SchedulePost)
	posts.Delete("/:id", middleware.CheckPostOwnership(), controller.DeletePost)

	// Social account routes
	accounts := protected.Group("/accounts")
	accounts.Get("/", controller.GetMyAccounts)
	accounts.Post("/", middleware.CheckAccountLimit, controller.ConnectAccount)
	accounts.Delete("/:id", controller.DisconnectAccount)

	// AI routes gated by the aiGenerations quota
	ai := protected.Group("/ai", middleware.RequireFeature(subscription.AIGenerations))
	ai.Post("/generate", controller.GeneratePostContent)
	ai.Post("/hashtags", controller.GenerateHashtags)
	ai.Post("/ideas", controller.GenerateIdeas)

	// Media upload
	protected.Post("/media", controller.UploadMedia)
	protected.Delete("/media", controller.DeleteMedia)

	// Dashboard routes
	dashboard := api.Group("/dashboard", middleware.AuthMiddleware())
	dashboard.Get("/stats", controller.GetDashboardStats)

	// Settings routes
	settings := api.Group("/settings", middleware.AuthMiddleware())
	settings.Put("/profile", controller.UpdateProfile)
	settings.Put("/password", controller.ChangePassword)

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", controller.GetPlans)

	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Post("/cancel", controller.CancelSubscription)
	subProtected.Get("/my", controller.GetMySubscription)
}

func main() {
	cfg := config.Load()

	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		if err := email.InitEmailService(apiKey); err != nil {
			log.Printf("Could not initialize email service: %v", err)
		}
	} else {
		log.Println("RESEND_API_KEY not set, email notifications disabled")
	}

	if err := storage.InitStorage(); err != nil {
		log.Printf("Could not initialize storage, media uploads disabled: %v", err)
	}

	cache.InitCache()

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Subscription{},
		&model.UsageRecord{},
		&model.WebhookEvent{},
		&model.Post{},
		&model.SocialAccount{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	cron.InitPostPublisherCron()
	cron.InitSubscriptionExpiryCron()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
