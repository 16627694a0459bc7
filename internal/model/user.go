package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null" json:"-"`
	Username string `gorm:"uniqueIndex;not null"`
	FullName string `json:"full_name" gorm:"not null"`

	// Optional profile fields (updated from settings)
	AvatarURL string `json:"avatar_url"`
	Timezone  string `json:"timezone"`
	Bio       string `json:"bio"`

	// Denormalized subscription state. The subscriptions table is the source
	// of truth; these fields are kept in sync by the payment webhook handler
	// as a read optimization for the entitlement path.
	SubscriptionTier   string `json:"subscription_tier" gorm:"default:'free'"`
	SubscriptionStatus string `json:"subscription_status" gorm:"default:''"`

	// Relations
	Posts    []Post          `json:"-"`
	Accounts []SocialAccount `json:"-"`
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":                  u.ID,
		"email":               u.Email,
		"username":            u.Username,
		"full_name":           u.FullName,
		"avatar_url":          u.AvatarURL,
		"timezone":            u.Timezone,
		"subscription_tier":   u.SubscriptionTier,
		"subscription_status": u.SubscriptionStatus,
	}
}

func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}
