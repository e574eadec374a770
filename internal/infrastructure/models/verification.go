package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EkycEvent is the append-only verification log row.
type EkycEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index"`
	ContractID *uuid.UUID     `gorm:"type:uuid;index"`
	Kind       string         `gorm:"type:varchar(20);not null"`
	Provider   string         `gorm:"type:varchar(30);not null"`
	Status     string         `gorm:"type:varchar(20);not null"`
	Score      *float64       `gorm:"type:numeric"`
	State      *string        `gorm:"type:varchar(50)"`
	Raw        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"index"`
}

func (EkycEvent) TableName() string {
	return "ekyc_events"
}

type OnewonVerify struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	ContractID  *uuid.UUID     `gorm:"type:uuid"`
	RequestID   string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	VerifyType  string         `gorm:"type:varchar(20);not null"`
	Code        *string        `gorm:"type:varchar(50)"`
	BankCode    string         `gorm:"type:varchar(10);not null"`
	AccountNo   string         `gorm:"type:varchar(40);not null"`
	AccountName string         `gorm:"type:varchar(100);not null"`
	Status      string         `gorm:"type:varchar(20);not null;default:'pending'"`
	ProviderRaw datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

func (OnewonVerify) TableName() string {
	return "onewon_verifies"
}
