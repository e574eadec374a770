package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ContractStatus tracks a contract through owner submission and admin review.
type ContractStatus string

const (
	ContractDraft     ContractStatus = "draft"
	ContractSubmitted ContractStatus = "submitted"
	ContractApproved  ContractStatus = "approved"
	ContractRejected  ContractStatus = "rejected"
)

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:     {ContractSubmitted},
	ContractRejected:  {ContractSubmitted},
	ContractSubmitted: {ContractApproved, ContractRejected},
	ContractApproved:  {},
}

func (s ContractStatus) Valid() bool {
	_, ok := contractTransitions[s]
	return ok
}

func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	return contains(contractTransitions[s], next)
}

// Editable reports whether the owner may still change the contract.
func (s ContractStatus) Editable() bool {
	return s == ContractDraft || s == ContractRejected
}

// Contract is a unit of payment intent, e.g. one month's rent.
type Contract struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"userId"`
	Title          string         `json:"title"`
	Category       Category       `json:"category"`
	Amount         null.Int64     `json:"amount"`
	Counterparty   null.String    `json:"counterpartyName"`
	CounterAccount null.String    `json:"counterpartyAccount"`
	Memo           null.String    `json:"memo"`
	Status         ContractStatus `json:"status"`
	RejectedReason null.String    `json:"rejectedReason"`
	SubmittedAt    null.Time      `json:"submittedAt"`
	ApprovedAt     null.Time      `json:"approvedAt"`
	RejectedAt     null.Time      `json:"rejectedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// CreateContractInput represents input for creating a contract
type CreateContractInput struct {
	Title    string   `json:"title" binding:"required,min=1,max=200"`
	Category Category `json:"category" binding:"required,oneof=rent goods salary"`
	Amount   *int64   `json:"amount" binding:"omitempty,gt=0"`

	CounterpartyName    string `json:"counterpartyName" binding:"omitempty,max=100"`
	CounterpartyAccount string `json:"counterpartyAccount" binding:"omitempty,max=60"`
	Memo                string `json:"memo" binding:"omitempty,max=500"`
}

// UpdateContractInput carries optional contract changes.
type UpdateContractInput struct {
	Title    *string   `json:"title" binding:"omitempty,min=1,max=200"`
	Category *Category `json:"category" binding:"omitempty,oneof=rent goods salary"`
	Amount   *int64    `json:"amount" binding:"omitempty,gt=0"`

	CounterpartyName    *string `json:"counterpartyName" binding:"omitempty,max=100"`
	CounterpartyAccount *string `json:"counterpartyAccount" binding:"omitempty,max=60"`
	Memo                *string `json:"memo" binding:"omitempty,max=500"`
}

// ContractFilter narrows admin contract listings.
type ContractFilter struct {
	UserID uuid.NullUUID
	Status ContractStatus
	Limit  int
	Offset int
}
