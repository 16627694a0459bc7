package billing

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/cache"
)

// Repository provides the database operations used by the webhook ingestor
// and the cancellation flow.
type Repository interface {
	CreateEventIfNew(event *model.WebhookEvent) (bool, error)
	MarkProcessed(eventID string, processingErr error) error
	UpsertSubscription(sub *model.Subscription) error
	UpdateSubscriptionByExternalID(externalID string, updates map[string]interface{}) error
	UpdateUserSubscription(userID uint, tier, status string) error
	GetSubscriptionWithUser(externalID string) (*model.Subscription, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateEventIfNew appends the audit row, reporting false when the event id
// was already recorded. Duplicate deliveries are detected here, before any
// handler runs.
func (r *gormRepository) CreateEventIfNew(event *model.WebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) MarkProcessed(eventID string, processingErr error) error {
	updates := map[string]interface{}{
		"processed": true,
	}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	}
	return r.db.Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
}

// UpsertSubscription inserts or updates the single subscription row a user
// may have, keyed on user_id.
func (r *gormRepository) UpsertSubscription(sub *model.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_id",
			"plan_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *gormRepository) UpdateSubscriptionByExternalID(externalID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&model.Subscription{}).
		Where("external_id = ?", externalID).
		Updates(updates).Error
}

// UpdateUserSubscription refreshes the denormalized tier/status on the user
// row and drops the cached tier so entitlement checks see the change.
func (r *gormRepository) UpdateUserSubscription(userID uint, tier, status string) error {
	err := r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"subscription_tier":   tier,
			"subscription_status": status,
		}).Error
	if err != nil {
		return err
	}
	cache.Delete(fmt.Sprintf("user:%d:tier", userID))
	return nil
}

func (r *gormRepository) GetSubscriptionWithUser(externalID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Preload("User").
		Where("external_id = ?", externalID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
