package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles known to the directory. The send endpoint is restricted to ADMIN;
// everything else only matters as a recipient filter value.
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleParent  = "PARENT"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName  string         `gorm:"type:varchar(255);not null"`
	Role      string         `gorm:"type:varchar(50);not null;index"`
	Status    string         `gorm:"type:varchar(50);not null;default:'active'"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
