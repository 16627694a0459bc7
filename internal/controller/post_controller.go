package controller

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/subscription"
	"socialpulse_backend/pkg/usage"
	"socialpulse_backend/pkg/utils/jwt"
)

type PostInput struct {
	AccountID    *uint      `json:"account_id"`
	Platform     string     `json:"platform"`
	Content      string     `json:"content"`
	Hashtags     []string   `json:"hashtags"`
	MediaURLs    []string   `json:"media_urls"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	AIGenerated  bool       `json:"ai_generated"`
}

func CreatePost(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(PostInput)
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
	if !model.IsValidPlatform(input.Platform) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid platform",
		})
	}

	post := model.Post{
		UserID:      claims.UserID,
		AccountID:   input.AccountID,
		Platform:    model.Platform(input.Platform),
		Content:     input.Content,
		Hashtags:    toJSON(input.Hashtags),
		MediaURLs:   toJSON(input.MediaURLs),
		Status:      model.PostStatusDraft,
		AIGenerated: input.AIGenerated,
	}

	// Scheduling at creation time consumes scheduledPosts quota atomically.
	if input.ScheduledFor != nil {
		svc := usage.NewServiceFromDB(database.GetDB())
		result, err := svc.ReserveUsage(claims.UserID, subscription.ScheduledPosts)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check usage",
			})
		}
		if !result.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You have reached your scheduled post limit. Please upgrade your plan.",
				"used":  result.Used,
				"limit": result.Limit,
			})
		}
		post.Status = model.PostStatusScheduled
		post.ScheduledFor = input.ScheduledFor
	}

	if err := database.GetDB().Create(&post).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create post",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetMyPosts lists the caller's posts, newest first, with optional status and
// platform filters.
func GetMyPosts(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	query := database.GetDB().Model(&model.Post{}).Where("user_id = ?", claims.UserID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if platform := c.Query("platform"); platform != "" {
		query = query.Where("platform = ?", platform)
	}
	// Reused for both the count and the page query.
	query = query.Session(&gorm.Session{})

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	var total int64
	query.Count(&total)

	var posts []model.Post
	if err := query.Preload("Account").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&posts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch posts",
		})
	}

	return c.JSON(fiber.Map{
		"posts": posts,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetCalendar lists scheduled and published posts in a date range, for the
// calendar view.
func GetCalendar(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and to must be RFC3339 timestamps",
		})
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and to must be RFC3339 timestamps",
		})
	}

	var posts []model.Post
	if err := database.GetDB().
		Where("user_id = ? AND scheduled_for >= ? AND scheduled_for < ?", claims.UserID, from, to).
		Order("scheduled_for ASC").
		Find(&posts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch posts",
		})
	}

	return c.JSON(fiber.Map{
		"posts": posts,
	})
}

func GetPost(c *fiber.Ctx) error {
	var post model.Post
	if err := database.GetDB().Preload("Account").First(&post, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}
	return c.JSON(post)
}

func UpdatePost(c *fiber.Ctx) error {
	var post model.Post
	if err := database.GetDB().First(&post, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	if post.Status == model.PostStatusPublished {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Published posts cannot be edited",
		})
	}

	input := new(PostInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Content != "" {
		post.Content = input.Content
	}
	if input.Platform != "" {
		if !model.IsValidPlatform(input.Platform) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid platform",
			})
		}
		post.Platform = model.Platform(input.Platform)
	}
	if input.AccountID != nil {
		post.AccountID = input.AccountID
	}
	if input.Hashtags != nil {
		post.Hashtags = toJSON(input.Hashtags)
	}
	if input.MediaURLs != nil {
		post.MediaURLs = toJSON(input.MediaURLs)
	}

	if err := database.GetDB().Save(&post).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update post",
		})
	}

	return c.JSON(post)
}

type SchedulePostInput struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// SchedulePost moves a draft onto the publishing calendar. The quota unit is
// claimed atomically, so two concurrent schedules cannot both take the last
// slot of a plan.
// PUT /posts/:id/schedule
func SchedulePost(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var post model.Post
	if err := database.GetDB().First(&post, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	if post.Status == model.PostStatusPublished {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Post is already published",
		})
	}

	input := new(SchedulePostInput)
	if err := c.BodyParser(input); err != nil || input.ScheduledFor.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_for is required",
		})
	}

	// Rescheduling an already scheduled post does not consume another unit.
	if post.Status != model.PostStatusScheduled {
		svc := usage.NewServiceFromDB(database.GetDB())
		result, err := svc.ReserveUsage(claims.UserID, subscription.ScheduledPosts)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check usage",
			})
		}
		if !result.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You have reached your scheduled post limit. Please upgrade your plan.",
				"used":  result.Used,
				"limit": result.Limit,
			})
		}
	}

	post.Status = model.PostStatusScheduled
	post.ScheduledFor = &input.ScheduledFor

	if err := database.GetDB().Save(&post).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not schedule post",
		})
	}

	return c.JSON(post)
}

func DeletePost(c *fiber.Ctx) error {
	if err := database.GetDB().Delete(&model.Post{}, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete post",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Post deleted",
	})
}

func toJSON(values []string) datatypes.JSON {
	if values == nil {
		return nil
	}
	b, _ := json.Marshal(values)
	return datatypes.JSON(b)
}
