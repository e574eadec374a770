package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContractID    *uuid.UUID `gorm:"type:uuid;index"`
	Category      string     `gorm:"type:varchar(20);not null"`
	Title         string     `gorm:"type:varchar(200);not null"`
	Amount        int64      `gorm:"not null"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	Method        string     `gorm:"type:varchar(20);not null"`
	CustomerName  *string    `gorm:"type:varchar(100)"`
	Email         *string    `gorm:"type:varchar(255)"`
	Phone         *string    `gorm:"type:varchar(30)"`
	TID           *string    `gorm:"column:tid;type:varchar(100)"`
	ResultCode    *string    `gorm:"type:varchar(20)"`
	ResultMessage *string    `gorm:"type:text"`
	PaidAt        *time.Time
	FailedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
