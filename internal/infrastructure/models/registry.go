package models

import (
	"time"

	"github.com/google/uuid"
)

type RegistryRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Vendor     string    `gorm:"type:varchar(20);not null"`
	Address    *string   `gorm:"type:text"`
	UniqueKey  string    `gorm:"type:varchar(200);uniqueIndex;not null"`
	ExternalID *string   `gorm:"type:varchar(100);index"`
	Status     string    `gorm:"type:varchar(20);not null;default:'pending'"`
	Message    *string   `gorm:"type:text"`
	CostPoint  *int64
	SavedFile  *string `gorm:"type:varchar(255)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
