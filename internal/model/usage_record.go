package model

import (
	"time"

	"gorm.io/gorm"
)

// UsageRecord counts consumption of a metered feature for one user within one
// period. Rows are created lazily on first use and incremented atomically at
// the database level; they are never deleted so usage history stays auditable.
type UsageRecord struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_usage_user_feature_period,priority:1;not null"`
	FeatureKey  string    `json:"feature_key" gorm:"uniqueIndex:idx_usage_user_feature_period,priority:2;type:varchar(64);not null"`
	PeriodStart time.Time `json:"period_start" gorm:"uniqueIndex:idx_usage_user_feature_period,priority:3;not null"`
	PeriodEnd   time.Time `json:"period_end" gorm:"not null"`
	Count       int       `json:"count" gorm:"not null;default:0"`
}
