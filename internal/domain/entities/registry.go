package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// RegistryStatus is the state of an async registry-document issuance job.
type RegistryStatus string

const (
	RegistryPending RegistryStatus = "pending"
	RegistryReady   RegistryStatus = "ready"
	RegistryFailed  RegistryStatus = "failed"
)

func (s RegistryStatus) Terminal() bool {
	return s == RegistryReady || s == RegistryFailed
}

// RegistryCriteria identifies the property or business to issue for.
type RegistryCriteria struct {
	Address string `json:"addr"`
	RegNum  string `json:"reg_num"`
	BizNum  string `json:"biz_num"`
}

// UniqueKey is the dedup key for billable issuance calls.
func (c RegistryCriteria) UniqueKey() string {
	switch {
	case c.RegNum != "":
		return "reg:" + c.RegNum
	case c.BizNum != "":
		return "biz:" + c.BizNum
	default:
		return "addr:" + c.Address
	}
}

// Empty reports whether no criterion was supplied.
func (c RegistryCriteria) Empty() bool {
	return c.Address == "" && c.RegNum == "" && c.BizNum == ""
}

// RegistryRequest is one registry-document issuance job.
type RegistryRequest struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	Vendor     string         `json:"vendor"`
	Address    null.String    `json:"address"`
	UniqueKey  string         `json:"uniqueKey"`
	ExternalID null.String    `json:"externalId"`
	Status     RegistryStatus `json:"status"`
	Message    null.String    `json:"message"`
	CostPoint  null.Int64     `json:"costPoint"`
	SavedFile  null.String    `json:"savedFile"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// IssueRegistryInput is the body of the issue endpoint.
type IssueRegistryInput struct {
	Address string `json:"addr"`
	RegNum  string `json:"reg_num"`
	BizNum  string `json:"biz_num"`
}

func (in IssueRegistryInput) Criteria() RegistryCriteria {
	return RegistryCriteria{Address: in.Address, RegNum: in.RegNum, BizNum: in.BizNum}
}
