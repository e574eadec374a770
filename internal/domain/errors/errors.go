package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotEligible        = errors.New("not eligible for payment")
	ErrUpstream           = errors.New("upstream vendor failure")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
)

// Machine-readable error codes
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidInput       = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeSignatureMismatch  = "SIGNATURE_MISMATCH"
	CodeNotEligible        = "NOT_ELIGIBLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError is an error with everything the HTTP layer needs to render it.
type AppError struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Reason  string                 `json:"reason,omitempty"`
	Details map[string]interface{} `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithReason attaches a machine-readable reason consumed by clients.
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

// WithDetail attaches an extra response field.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func PayloadTooLarge(message string) *AppError {
	return NewAppError(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, message, ErrPayloadTooLarge)
}

func UnsupportedMediaType(message string) *AppError {
	return NewAppError(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, message, ErrUnsupportedMedia)
}

func TooManyRequests(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, CodeTooManyRequests, message, ErrTooManyRequests)
}

func NotEligible(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeNotEligible, message, ErrNotEligible)
}

// Upstream wraps a vendor failure. The vendor error is kept for logging only.
func Upstream(message string, cause error) *AppError {
	return NewAppError(http.StatusBadGateway, CodeUpstream, message, errors.Join(ErrUpstream, cause))
}

func SignatureMismatch(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeSignatureMismatch, message, ErrSignatureMismatch)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// NewError creates a bad-request error with a custom message wrapping err.
func NewError(message string, err error) error {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, err)
}

// FromError maps sentinel errors to an AppError. Unknown errors become 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound("resource not found")
	case errors.Is(err, ErrAlreadyExists):
		return Conflict("resource already exists")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return BadRequest(err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return NewAppError(http.StatusConflict, CodeConflict, err.Error(), err)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return Unauthorized("unauthorized")
	case errors.Is(err, ErrForbidden):
		return Forbidden("forbidden")
	case errors.Is(err, ErrNotEligible):
		return NotEligible("not eligible for payment")
	case errors.Is(err, ErrUpstream):
		return Upstream("upstream vendor failure", err)
	case errors.Is(err, ErrSignatureMismatch):
		return SignatureMismatch("signature mismatch")
	case errors.Is(err, ErrTooManyRequests):
		return TooManyRequests("too many requests")
	case errors.Is(err, ErrPayloadTooLarge):
		return PayloadTooLarge("file too large")
	case errors.Is(err, ErrUnsupportedMedia):
		return UnsupportedMediaType("unsupported file type")
	}
	return InternalError(err)
}
