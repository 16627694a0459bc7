package model

import "gorm.io/gorm"

// SocialAccount is a linked social-media account posts can be published to.
// The number of linked accounts per user is capped by the plan catalog.
type SocialAccount struct {
	gorm.Model
	UserID        uint     `json:"user_id" gorm:"index;not null"`
	Platform      Platform `json:"platform" gorm:"type:varchar(20);not null"`
	AccountName   string   `json:"account_name" gorm:"not null"`
	AccountHandle string   `json:"account_handle" gorm:"not null"`
	AvatarURL     string   `json:"avatar_url"`
	IsActive      bool     `json:"is_active" gorm:"default:true"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
