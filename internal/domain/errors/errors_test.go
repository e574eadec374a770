package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Constructors(t *testing.T) {
	err := NewAppError(http.StatusBadRequest, CodeBadRequest, "bad", ErrBadRequest)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, CodeBadRequest, err.Code)
	assert.Equal(t, "bad", err.Message)
	assert.Equal(t, ErrBadRequest.Error(), err.Error())

	notFound := NotFound("missing")
	assert.Equal(t, http.StatusNotFound, notFound.Status)
	assert.ErrorIs(t, notFound, ErrNotFound)

	conflict := Conflict("exists")
	assert.Equal(t, http.StatusConflict, conflict.Status)
	assert.Equal(t, CodeConflict, conflict.Code)

	internal := InternalError(stderrors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, CodeInternalError, internal.Code)

	custom := NewError("custom", ErrForbidden)
	assert.Equal(t, ErrForbidden.Error(), custom.Error())

	assert.Equal(t, http.StatusBadRequest, BadRequest("x").Status)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("x").Status)
	assert.Equal(t, http.StatusRequestEntityTooLarge, PayloadTooLarge("x").Status)
	assert.Equal(t, http.StatusUnsupportedMediaType, UnsupportedMediaType("x").Status)
	assert.Equal(t, http.StatusTooManyRequests, TooManyRequests("x").Status)
	assert.Equal(t, CodeNotEligible, NotEligible("x").Code)

	internalMsg := InternalServerError("boom")
	assert.Equal(t, "boom", internalMsg.Error())
}

func TestAppError_UpstreamKeepsCause(t *testing.T) {
	cause := stderrors.New("clova: HTTP 503")
	err := Upstream("identity verification unavailable", cause)

	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "identity verification unavailable", err.Message)
}

func TestAppError_ReasonAndDetails(t *testing.T) {
	err := BadRequest("name mismatch").WithReason("name_mismatched").WithDetail("score", 0.4)
	assert.Equal(t, "name_mismatched", err.Reason)
	assert.Equal(t, 0.4, err.Details["score"])
}

func TestFromError(t *testing.T) {
	cases := []struct {
		in     error
		status int
	}{
		{fmt.Errorf("wrap: %w", ErrNotFound), http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrNotEligible, http.StatusForbidden},
		{ErrUpstream, http.StatusBadGateway},
		{ErrSignatureMismatch, http.StatusBadRequest},
		{ErrTooManyRequests, http.StatusTooManyRequests},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{stderrors.New("boom"), http.StatusInternalServerError},
		{Forbidden("nope"), http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, FromError(tc.in).Status, tc.in.Error())
	}
}
