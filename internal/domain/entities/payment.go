package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentReady   PaymentStatus = "ready"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentReady, PaymentPaid, PaymentFailed},
	PaymentReady:   {PaymentPaid, PaymentFailed},
	PaymentPaid:    {},
	PaymentFailed:  {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
// Status only moves forward; paid and failed are terminal.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return contains(paymentTransitions[s], next)
}

// Terminal reports whether no further transition is possible.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

// PredecessorsOf lists the states from which next may be entered.
func PredecessorsOf(next PaymentStatus) []PaymentStatus {
	var out []PaymentStatus
	for _, from := range []PaymentStatus{PaymentPending, PaymentReady, PaymentPaid, PaymentFailed} {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

// PaymentMethod is the hosted-page payment method.
type PaymentMethod string

const (
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodVacnt PaymentMethod = "vacnt"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodVacnt
}

// Payment represents one payment attempt
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	OrderID       uuid.UUID     `json:"orderId"`
	UserID        uuid.UUID     `json:"userId"`
	ContractID    uuid.NullUUID `json:"contractId"`
	Category      Category      `json:"category"`
	Title         string        `json:"title"`
	Amount        int64         `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Method        PaymentMethod `json:"method"`
	CustomerName  null.String   `json:"customerName"`
	Email         null.String   `json:"email"`
	Phone         null.String   `json:"phone"`
	TID           null.String   `json:"tid"`
	ResultCode    null.String   `json:"resultCode"`
	ResultMessage null.String   `json:"resultMessage"`
	PaidAt        null.Time     `json:"paidAt"`
	FailedAt      null.Time     `json:"failedAt"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CreatePaymentInput represents input for creating a payment
type CreatePaymentInput struct {
	Title        string        `json:"title" binding:"omitempty,max=200"`
	Amount       int64         `json:"amount" binding:"required,gt=0"`
	Method       PaymentMethod `json:"method" binding:"required,oneof=card vacnt"`
	Category     Category      `json:"category" binding:"omitempty,oneof=rent goods salary"`
	ContractID   *uuid.UUID    `json:"contractId"`
	CustomerName string        `json:"customer_name" binding:"omitempty,max=100"`
	Email        string        `json:"email" binding:"omitempty,email"`
	Phone        string        `json:"phone" binding:"omitempty,max=30"`
}

// PaymentTransition is a conditional status update applied by the gateway flow.
type PaymentTransition struct {
	To            PaymentStatus
	TID           null.String
	ResultCode    null.String
	ResultMessage null.String
	At            time.Time
}

// PaymentFilter narrows admin payment listings.
type PaymentFilter struct {
	UserID uuid.NullUUID
	Status PaymentStatus
	Method PaymentMethod
	Query  string
	Limit  int
	Offset int
}

// GatewayAuthForm is a signed hosted-payment-page form for the browser.
type GatewayAuthForm struct {
	ActionURL string            `json:"actionUrl"`
	Method    string            `json:"method"`
	Fields    map[string]string `json:"fields"`
}

// GatewayReturn is the browser-posted callback from the payment gateway.
type GatewayReturn struct {
	ResultCd    string `form:"resultCd" json:"resultCd"`
	ResultMsg   string `form:"resultMsg" json:"resultMsg"`
	Nonce       string `form:"nonce" json:"nonce"`
	TID         string `form:"tid" json:"tid"`
	MID         string `form:"mid" json:"mid"`
	PmCd        string `form:"pmCd" json:"pmCd"`
	OrdNo       string `form:"ordNo" json:"ordNo"`
	GoodsAmt    string `form:"goodsAmt" json:"goodsAmt"`
	EdiDate     string `form:"ediDate" json:"ediDate"`
	MbsReserved string `form:"mbsReserved" json:"mbsReserved"`
	ApprovalURL string `form:"approvalUrl" json:"approvalUrl"`
	NetCancel   string `form:"netCancelUrl" json:"netCancelUrl"`
	PayData     string `form:"payData" json:"payData"`
	SignData    string `form:"signData" json:"signData"`
}

// GatewayOutcome tells the HTTP layer where to send the browser.
type GatewayOutcome struct {
	OrderID string
	Paid    bool
	Amount  int64
	Method  PaymentMethod
	Code    string
	Message string
}
