package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email          string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name           string     `gorm:"type:varchar(100);not null"`
	FullName       *string    `gorm:"type:varchar(100)"`
	Phone          string     `gorm:"type:varchar(30);not null"`
	PasswordHash   string     `gorm:"type:varchar(255);not null"`
	IsAdmin        bool       `gorm:"not null;default:false"`
	MarketingOptIn bool       `gorm:"not null;default:false"`
	EkycStatus     string     `gorm:"type:varchar(20);not null;default:'unverified'"`
	AccountStatus  string     `gorm:"type:varchar(20);not null;default:'unverified'"`
	EkycRequestID  *string    `gorm:"type:varchar(100)"`
	EkycVerifiedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
