package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// VerificationKind is what a verification attempt checked.
type VerificationKind string

const (
	VerificationIDCard   VerificationKind = "idcard"
	VerificationAccount  VerificationKind = "account"
	VerificationRealname VerificationKind = "realname"
)

// VerificationStatus is the outcome of one attempt.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	VerificationError    VerificationStatus = "error"
)

// VerificationEvent is an immutable row of the verification audit log.
type VerificationEvent struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.NullUUID      `json:"userId"`
	ContractID uuid.NullUUID      `json:"contractId"`
	Kind       VerificationKind   `json:"kind"`
	Provider   string             `json:"provider"`
	Status     VerificationStatus `json:"status"`
	Score      null.Float64       `json:"score"`
	State      null.String        `json:"state"`
	Raw        json.RawMessage    `json:"raw,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// OneWonStatus is the state of a 1-won deposit verification.
type OneWonStatus string

const (
	OneWonPending   OneWonStatus = "pending"
	OneWonConfirmed OneWonStatus = "confirmed"
	OneWonFailed    OneWonStatus = "failed"
)

// OneWonVerification maps a provider requestId to the user who started it.
type OneWonVerification struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	ContractID  uuid.NullUUID   `json:"contractId"`
	RequestID   string          `json:"requestId"`
	VerifyType  string          `json:"verifyType"`
	Code        null.String     `json:"-"`
	BankCode    string          `json:"bankCode"`
	AccountNo   string          `json:"accountNo"`
	AccountName string          `json:"accountName"`
	Status      OneWonStatus    `json:"status"`
	ProviderRaw json.RawMessage `json:"-"`
	CreatedAt   time.Time       `json:"createdAt"`
	ConfirmedAt null.Time       `json:"confirmedAt"`
}

// OneWonStartInput starts a 1-won verification.
type OneWonStartInput struct {
	BankCode    string     `json:"bankCode" binding:"required,max=10"`
	AccountNo   string     `json:"accountNo" binding:"required,max=40"`
	AccountName string     `json:"accountName" binding:"required,max=100"`
	ContractID  *uuid.UUID `json:"contractId"`
	UserID      *uuid.UUID `json:"userId"`
}

// OneWonConfirmInput confirms a 1-won verification. Code and VerifyValue are aliases.
type OneWonConfirmInput struct {
	RequestID   string     `json:"requestId" binding:"required"`
	Code        string     `json:"code"`
	VerifyValue string     `json:"verifyValue"`
	UserID      *uuid.UUID `json:"userId"`
}

// Value returns whichever of the two code fields was supplied.
func (in OneWonConfirmInput) Value() string {
	if in.VerifyValue != "" {
		return in.VerifyValue
	}
	return in.Code
}

// OneWonStartResult is returned to the client after start.
type OneWonStartResult struct {
	RequestID string `json:"requestId"`
	Provider  string `json:"provider"`
	TestMode  bool   `json:"testMode,omitempty"`
}

// Realname outcome reasons consumed by clients.
const (
	RealnameVendorFailed   = "vendor_failed"
	RealnameNoVendorName   = "no_vendor_name"
	RealnameNameMatched    = "name_matched"
	RealnameNameMismatched = "name_mismatched"
	RealnameTestMode       = "test_mode"
)

// RealnameInput checks an account holder name.
type RealnameInput struct {
	BankCode    string `json:"bankCode" binding:"required,max=10"`
	AccountNo   string `json:"accountNo" binding:"required,max=40"`
	AccountName string `json:"accountName" binding:"required,max=100"`
}

// RealnameOutcome is the result of a realname lookup.
type RealnameOutcome struct {
	Matched bool   `json:"matched"`
	Reason  string `json:"reason"`
}

// IdentityOutcome is the normalized identity verification result shown to clients.
type IdentityOutcome struct {
	Verified bool         `json:"verified"`
	Score    null.Float64 `json:"score"`
	State    null.String  `json:"state"`
	Reasons  []string     `json:"reasons,omitempty"`
}

// VerificationSummary is the caller's verification overview.
type VerificationSummary struct {
	Ekyc               EkycSummary     `json:"ekyc"`
	Account            AccountSummary  `json:"account"`
	Document           DocumentSummary `json:"document"`
	VerifiedForPayment bool            `json:"verified_for_payment"`
}

type EkycSummary struct {
	Status      EkycStatus         `json:"status"`
	VerifiedAt  null.Time          `json:"verifiedAt"`
	LatestEvent *VerificationEvent `json:"latestEvent"`
}

// ContractEkycStatus is the latest id-card check made for one contract next
// to the user's cached eKYC status.
type ContractEkycStatus struct {
	ContractID  uuid.UUID          `json:"contractId"`
	UserEkyc    EkycStatus         `json:"user_ekyc"`
	LatestEvent *VerificationEvent `json:"latest_event"`
}

type AccountSummary struct {
	Status        AccountStatus       `json:"status"`
	LatestRequest *OneWonVerification `json:"latestRequest"`
}

type DocumentSummary struct {
	Approved int64 `json:"approved"`
	Pending  int64 `json:"pending"`
}
