package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
)

func InitPostPublisherCron() {
	c := cron.New()

	_, err := c.AddFunc("* * * * *", func() {
		publishDuePosts()
	})

	if err != nil {
		log.Printf("Could not initialize post publisher cron: %v", err)
		return
	}

	c.Start()
}

// publishDuePosts flips scheduled posts whose time has come to published.
// Actual delivery to the social networks happens through the per-platform
// publishers; posts without a connected account are marked failed.
func publishDuePosts() {
	now := time.Now()

	var posts []model.Post
	err := database.DB.
		Where("status = ? AND scheduled_for <= ?", model.PostStatusScheduled, now).
		Preload("Account").
		Find(&posts).Error
	if err != nil {
		log.Printf("Error fetching due posts: %v", err)
		return
	}

	if len(posts) == 0 {
		return
	}
	log.Printf("Publishing %d due posts", len(posts))

	for _, post := range posts {
		status := model.PostStatusPublished
		if post.AccountID == nil || post.Account == nil || !post.Account.IsActive {
			status = model.PostStatusFailed
		}

		err := database.DB.Model(&model.Post{}).
			Where("id = ? AND status = ?", post.ID, model.PostStatusScheduled).
			Updates(map[string]interface{}{
				"status":       status,
				"published_at": now,
			}).Error
		if err != nil {
			log.Printf("Error publishing post %d: %v", post.ID, err)
			continue
		}

		if status == model.PostStatusFailed {
			log.Printf("Post %d has no active account, marked failed", post.ID)
		}
	}
}
