package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/database"
	"socialpulse_backend/pkg/email"
	"socialpulse_backend/pkg/subscription"
)

func InitSubscriptionExpiryCron() {
	c := cron.New()

	_, err := c.AddFunc("0 9 * * *", func() {
		expireLapsedSubscriptions()
		warnExpiringSubscriptions()
	})

	if err != nil {
		log.Printf("Could not initialize subscription expiry cron: %v", err)
		return
	}

	c.Start()
}

// expireLapsedSubscriptions downgrades accounts whose canceled or past_due
// subscription ran past its period end. The plan id on the row is kept for
// history; only the profile tier moves back to free.
func expireLapsedSubscriptions() {
	log.Println("Checking for lapsed subscriptions...")

	var subs []model.Subscription
	err := database.DB.
		Where("status IN ? AND current_period_end IS NOT NULL AND current_period_end < ?",
			[]string{model.SubscriptionStatusCanceled, model.SubscriptionStatusPastDue}, time.Now()).
		Find(&subs).Error
	if err != nil {
		log.Printf("Error fetching lapsed subscriptions: %v", err)
		return
	}

	for _, sub := range subs {
		err := database.DB.Model(&model.Subscription{}).
			Where("id = ?", sub.ID).
			Update("status", model.SubscriptionStatusExpired).Error
		if err != nil {
			log.Printf("Error expiring subscription %d: %v", sub.ID, err)
			continue
		}

		err = database.DB.Model(&model.User{}).
			Where("id = ?", sub.UserID).
			Updates(map[string]interface{}{
				"subscription_tier":   string(subscription.FreeTier),
				"subscription_status": model.SubscriptionStatusExpired,
			}).Error
		if err != nil {
			log.Printf("Error downgrading user %d: %v", sub.UserID, err)
			continue
		}

		log.Printf("Subscription %d expired, user %d downgraded to free", sub.ID, sub.UserID)
	}
}

// warnExpiringSubscriptions emails users whose canceled plan ends soon.
func warnExpiringSubscriptions() {
	if email.GlobalEmailService == nil {
		return
	}

	warningDays := []int{7, 3}

	for _, days := range warningDays {
		targetDate := time.Now().AddDate(0, 0, days).Format("2006-01-02")

		var subs []model.Subscription
		err := database.DB.
			Where("DATE(current_period_end) = ? AND status = ?", targetDate, model.SubscriptionStatusCanceled).
			Preload("User").
			Find(&subs).Error
		if err != nil {
			log.Printf("Error fetching expiring subscriptions: %v", err)
			continue
		}

		for _, sub := range subs {
			if sub.CurrentPeriodEnd == nil {
				continue
			}
			plan := subscription.GetPlan(sub.PlanID)
			err := email.GlobalEmailService.SendSubscriptionExpiryWarning(
				sub.User.Email,
				sub.User.DisplayName(),
				plan.Name,
				*sub.CurrentPeriodEnd,
				days,
			)
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
			}
		}
	}
}
