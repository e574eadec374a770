package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// EkycStatus is the result of identity-document verification.
type EkycStatus string

const (
	EkycUnverified EkycStatus = "unverified"
	EkycPending    EkycStatus = "pending"
	EkycVerified   EkycStatus = "verified"
	EkycRejected   EkycStatus = "rejected"
)

var ekycTransitions = map[EkycStatus][]EkycStatus{
	EkycUnverified: {EkycPending, EkycVerified, EkycRejected},
	EkycPending:    {EkycVerified, EkycRejected},
	EkycRejected:   {EkycPending, EkycVerified, EkycRejected},
	EkycVerified:   {EkycVerified},
}

func (s EkycStatus) Valid() bool {
	_, ok := ekycTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s EkycStatus) CanTransitionTo(next EkycStatus) bool {
	return contains(ekycTransitions[s], next)
}

// AccountStatus is the result of bank-account ownership verification.
type AccountStatus string

const (
	AccountUnverified AccountStatus = "unverified"
	AccountPending    AccountStatus = "pending"
	AccountVerified   AccountStatus = "verified"
	AccountFailed     AccountStatus = "failed"
)

var accountTransitions = map[AccountStatus][]AccountStatus{
	AccountUnverified: {AccountPending, AccountVerified},
	AccountPending:    {AccountPending, AccountVerified, AccountFailed},
	AccountFailed:     {AccountPending, AccountVerified},
	AccountVerified:   {AccountVerified},
}

func (s AccountStatus) Valid() bool {
	_, ok := accountTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
// A verified account is never downgraded.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	return contains(accountTransitions[s], next)
}

// User represents a registered KailosPay user
type User struct {
	ID             uuid.UUID     `json:"id"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	FullName       null.String   `json:"fullName"`
	Phone          string        `json:"phone"`
	PasswordHash   string        `json:"-"`
	IsAdmin        bool          `json:"isAdmin"`
	MarketingOptIn bool          `json:"marketingOptIn"`
	EkycStatus     EkycStatus    `json:"ekycStatus"`
	AccountStatus  AccountStatus `json:"accountStatus"`
	EkycRequestID  null.String   `json:"ekycRequestId"`
	EkycVerifiedAt null.Time     `json:"ekycVerifiedAt"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// SignupInput is the multipart signup form after binding.
type SignupInput struct {
	Name     string            `form:"name" binding:"required,min=1,max=100"`
	Email    string            `form:"email" binding:"required,email"`
	Password string            `form:"password" binding:"required,min=8,max=72"`
	Phone    string            `form:"phone" binding:"required"`
	IDCard   *IdentityDocument `form:"-"`
}

// LoginInput represents input for user login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`
	FullName       *string `json:"fullName" binding:"omitempty,max=100"`
	Phone          *string `json:"phone"`
	MarketingOptIn *bool   `json:"marketingOptIn"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
	User      *User  `json:"user"`
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Query  string
	Limit  int
	Offset int
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
