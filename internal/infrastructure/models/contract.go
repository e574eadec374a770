package models

import (
	"time"

	"github.com/google/uuid"
)

type Contract struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID `gorm:"type:uuid;not null;index"`
	Title               string    `gorm:"type:varchar(200);not null"`
	Category            string    `gorm:"type:varchar(20);not null"`
	Amount              *int64
	CounterpartyName    *string `gorm:"type:varchar(100)"`
	CounterpartyAccount *string `gorm:"type:varchar(60)"`
	Memo                *string `gorm:"type:text"`
	Status              string  `gorm:"type:varchar(20);not null;default:'draft';index"`
	RejectedReason      *string `gorm:"type:text"`
	SubmittedAt         *time.Time
	ApprovedAt          *time.Time
	RejectedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ContractFile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ContractID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	OriginalName string     `gorm:"type:varchar(255);not null"`
	Mime         string     `gorm:"type:varchar(100);not null"`
	Size         int64      `gorm:"not null"`
	SavedName    string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	DocType      *string    `gorm:"type:varchar(50)"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending'"`
	AdminNote    *string    `gorm:"type:text"`
	ReviewerID   *uuid.UUID `gorm:"type:uuid"`
	ReviewedAt   *time.Time
	CreatedAt    time.Time
}
