package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlatformIOS     = "IOS"
	PlatformAndroid = "ANDROID"
	PlatformWeb     = "WEB"
)

// DeviceToken maps a user to one push-addressable device installation.
// (UserId, Token) is unique; registration is an upsert, never a second row.
type DeviceToken struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_device_user_token" json:"user_id"`
	Token      string    `gorm:"type:text;not null;uniqueIndex:idx_device_user_token" json:"-"`
	Platform   string    `gorm:"type:varchar(20);not null" json:"platform"`
	IsActive   bool      `gorm:"default:true;index" json:"is_active"`
	LastUsedAt time.Time `gorm:"not null" json:"last_used_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}
