package usage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"socialpulse_backend/internal/model"
	"socialpulse_backend/pkg/cache"
)

const tierCacheTTL = 60 * time.Second

// Repository provides the database operations behind the usage ledger.
type Repository interface {
	GetUserTier(userID uint) (string, error)
	GetCount(userID uint, feature string, periodStart time.Time) (int, error)
	IncrementOrCreate(userID uint, feature string, periodStart, periodEnd time.Time) (int, error)
	IncrementIfBelow(userID uint, feature string, periodStart, periodEnd time.Time, limit int) (int, bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a usage repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// GetUserTier reads the denormalized subscription tier from the user row,
// going through the cache when one is configured.
func (r *gormRepository) GetUserTier(userID uint) (string, error) {
	key := fmt.Sprintf("user:%d:tier", userID)
	if tier, ok := cache.Get(key); ok {
		return tier, nil
	}

	var user model.User
	if err := r.db.Select("subscription_tier").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "free", nil
		}
		return "", err
	}

	tier := user.SubscriptionTier
	if tier == "" {
		tier = "free"
	}
	cache.Set(key, tier, tierCacheTTL)
	return tier, nil
}

func (r *gormRepository) GetCount(userID uint, feature string, periodStart time.Time) (int, error) {
	var record model.UsageRecord
	err := r.db.Where("user_id = ? AND feature_key = ? AND period_start = ?", userID, feature, periodStart).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Count, nil
}

// IncrementOrCreate bumps the counter for the period with a single
// database-level upsert so concurrent increments never lose updates.
func (r *gormRepository) IncrementOrCreate(userID uint, feature string, periodStart, periodEnd time.Time) (int, error) {
	var count int
	err := r.db.Raw(`
		INSERT INTO usage_records (created_at, updated_at, user_id, feature_key, period_start, period_end, count)
		VALUES (NOW(), NOW(), ?, ?, ?, ?, 1)
		ON CONFLICT (user_id, feature_key, period_start)
		DO UPDATE SET count = usage_records.count + 1, updated_at = NOW()
		RETURNING count`,
		userID, feature, periodStart, periodEnd).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementIfBelow is the conditional variant: the counter only moves while
// it is below limit. Returns ok=false without mutation when the limit is
// already reached.
func (r *gormRepository) IncrementIfBelow(userID uint, feature string, periodStart, periodEnd time.Time, limit int) (int, bool, error) {
	var count int
	result := r.db.Raw(`
		INSERT INTO usage_records (created_at, updated_at, user_id, feature_key, period_start, period_end, count)
		VALUES (NOW(), NOW(), ?, ?, ?, ?, 1)
		ON CONFLICT (user_id, feature_key, period_start)
		DO UPDATE SET count = usage_records.count + 1, updated_at = NOW()
		WHERE usage_records.count < ?
		RETURNING count`,
		userID, feature, periodStart, periodEnd, limit).Scan(&count)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.GetCount(userID, feature, periodStart)
		if err != nil {
			return 0, false, err
		}
		return current, false, nil
	}
	return count, true, nil
}
