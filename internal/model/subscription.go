package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription statuses. LemonSqueezy sends additional active-equivalent
// statuses (e.g. "on_trial") which are stored verbatim.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription is the durable per-user billing state. At most one row per
// user; rows are created and updated exclusively by the webhook handler and
// the cancellation flow (upsert keyed on user_id).
type Subscription struct {
	gorm.Model
	UserID             uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	ExternalID         string     `json:"external_id" gorm:"index;not null"`
	PlanID             string     `json:"plan_id" gorm:"not null;default:'free'"`
	Status             string     `json:"status" gorm:"not null;default:'active'"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end" gorm:"default:false"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// IsEntitling reports whether this subscription still grants its plan.
func (s *Subscription) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusCanceled, SubscriptionStatusExpired:
		return false
	default:
		return true
	}
}
