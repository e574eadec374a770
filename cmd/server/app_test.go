package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kailospay.backend/pkg/jwt"
	"kailospay.backend/pkg/metrics"
	redispkg "kailospay.backend/pkg/redis"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		full_name TEXT,
		phone TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		marketing_opt_in BOOLEAN NOT NULL DEFAULT 0,
		ekyc_status TEXT NOT NULL DEFAULT 'unverified',
		account_status TEXT NOT NULL DEFAULT 'unverified',
		ekyc_request_id TEXT,
		ekyc_verified_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`).Error)

	srv := miniredis.RunT(t)
	rc, err := redispkg.NewClient("redis://"+srv.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return newApp(baseTestConfig(t)(), db, rc, metrics.New())
}

func serve(a *app, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestApp_RegistersRoutes(t *testing.T) {
	a := newTestApp(t)

	registered := map[string]bool{}
	for _, r := range a.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/signup",
		"POST /api/login",
		"GET /api/payments/gateway/return",
		"POST /api/payments/gateway/return",
		"POST /api/onewon/start",
		"POST /api/onewon/confirm",
		"GET /api/me",
		"POST /api/ekyc/idcard",
		"POST /api/registry/issue",
		"GET /api/uploads/:savedName/download",
		"POST /api/rent/docs",
		"POST /api/contracts/:id/submit",
		"GET /api/contracts/:id/files/:fileId/preview",
		"GET /api/contracts/:id/ekyc/status",
		"GET /api/can-pay",
		"GET /api/payments/gateway/status/:orderId",
		"GET /api/admin/users/:id/verifications",
		"PATCH /api/admin/uploads/:id/review",
		"POST /api/admin/contracts/:id/reject",
		"DELETE /api/admin/payments/:id",
		"POST /api/notify/alimtalk/test",
		"GET /health",
		"GET /metrics",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestApp_HealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	w := serve(a, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, serviceName, body(t, w)["service"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kailospay_http_requests_total")
}

func TestApp_UnknownRoute(t *testing.T) {
	a := newTestApp(t)

	w := serve(a, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body(t, w)["ok"])
}

func TestApp_AuthenticationIsUniform(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/api/me", "/api/payments/my", "/api/contracts/my"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := serve(a, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, map[string]interface{}{"ok": false, "code": "UNAUTHORIZED", "message": "unauthorized"}, body(t, w))
	}
}

func TestApp_AdminAccess(t *testing.T) {
	a := newTestApp(t)
	token, err := jwt.NewJWTService("test-secret", time.Hour).GenerateToken(uuid.New(), "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, serve(a, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	w := serve(a, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users?limit=500", nil)
	req.Header.Set("X-Admin-Token", "admin-token")
	w = serve(a, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 100.0, body(t, w)["limit"])
}

func TestApp_CORSPreflight(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(a, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_GatewayReturnWithoutPayloadRedirectsToFail(t *testing.T) {
	a := newTestApp(t)

	w := serve(a, httptest.NewRequest(http.MethodGet, "/api/payments/gateway/return", nil))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/pay/fail")
}
