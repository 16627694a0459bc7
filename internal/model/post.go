package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post status
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// Supported platforms
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
)

func IsValidPlatform(p string) bool {
	switch Platform(p) {
	case PlatformTwitter, PlatformInstagram, PlatformFacebook, PlatformLinkedIn, PlatformTikTok:
		return true
	}
	return false
}

type Post struct {
	gorm.Model
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	AccountID    *uint          `json:"account_id" gorm:"index"`
	Platform     Platform       `json:"platform" gorm:"type:varchar(20);not null"`
	Content      string         `json:"content" gorm:"type:text;not null"`
	Hashtags     datatypes.JSON `json:"hashtags"`
	MediaURLs    datatypes.JSON `json:"media_urls"`
	Status       PostStatus     `json:"status" gorm:"type:varchar(20);index;default:'draft'"`
	ScheduledFor *time.Time     `json:"scheduled_for" gorm:"index"`
	PublishedAt  *time.Time     `json:"published_at"`
	AIGenerated  bool           `json:"ai_generated" gorm:"default:false"`

	User    User           `json:"-" gorm:"foreignKey:UserID"`
	Account *SocialAccount `json:"account,omitempty" gorm:"foreignKey:AccountID"`
}
