package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "kailospay.backend/internal/domain/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSuccess(t *testing.T) {
	c, w := newContext()

	Success(c, http.StatusCreated, gin.H{"id": "x"})
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "x", body["id"])
}

func TestError_AppErrorWithReasonAndDetails(t *testing.T) {
	c, w := newContext()

	Error(c, domainerrors.BadRequest("identity rejected").
		WithReason("identity_rejected").
		WithDetail("state", "REJECTED").
		WithDetail("ok", true))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, domainerrors.CodeInvalidInput, body["code"])
	assert.Equal(t, "identity_rejected", body["reason"])
	assert.Equal(t, "REJECTED", body["state"])
}

func TestError_SentinelMapping(t *testing.T) {
	c, w := newContext()

	Error(c, domainerrors.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, domainerrors.CodeNotFound, body["code"])
	assert.NotContains(t, body, "reason")
}

func TestError_GenericError(t *testing.T) {
	c, w := newContext()

	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), domainerrors.CodeInternalError)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestUnauthorized(t *testing.T) {
	c, w := newContext()

	Unauthorized(c)
	assert.True(t, c.IsAborted())
	assert.JSONEq(t, `{"ok":false,"code":"UNAUTHORIZED","message":"unauthorized"}`, w.Body.String())
}
