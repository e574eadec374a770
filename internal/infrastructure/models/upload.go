package models

import (
	"time"

	"github.com/google/uuid"
)

type Upload struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	OriginalName string     `gorm:"type:varchar(255);not null"`
	Mime         string     `gorm:"type:varchar(100);not null"`
	Size         int64      `gorm:"not null"`
	SavedName    string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Category     string     `gorm:"type:varchar(20);not null;default:'general'"`
	DocType      *string    `gorm:"type:varchar(50)"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	AdminNote    *string    `gorm:"type:text"`
	ReviewerID   *uuid.UUID `gorm:"type:uuid"`
	ReviewedAt   *time.Time
	CreatedAt    time.Time
}
