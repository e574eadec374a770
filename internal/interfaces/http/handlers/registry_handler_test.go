package handlers

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
)

type registryServiceStub struct {
	issueFn    func(ctx context.Context, userID uuid.UUID, input *entities.IssueRegistryInput) (*entities.RegistryRequest, error)
	statusFn   func(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error)
	downloadFn func(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, *os.File, error)
}

func (s registryServiceStub) Issue(ctx context.Context, userID uuid.UUID, input *entities.IssueRegistryInput) (*entities.RegistryRequest, error) {
	return s.issueFn(ctx, userID, input)
}

func (s registryServiceStub) Status(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error) {
	return s.statusFn(ctx, id)
}

func (s registryServiceStub) Download(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, *os.File, error) {
	return s.downloadFn(ctx, id)
}

func TestRegistryHandler_Issue(t *testing.T) {
	userID := uuid.New()
	h := NewRegistryHandler(registryServiceStub{
		issueFn: func(_ context.Context, uid uuid.UUID, input *entities.IssueRegistryInput) (*entities.RegistryRequest, error) {
			assert.Equal(t, userID, uid)
			if input.Criteria().Empty() {
				return nil, domainerrors.BadRequest("addr, reg_num or biz_num is required")
			}
			return &entities.RegistryRequest{ID: uuid.New(), UserID: uid, Status: entities.RegistryPending}, nil
		},
	})
	r := newRouter(userID)
	r.POST("/api/registry/issue", h.Issue)

	w := do(r, jsonRequest(t, http.MethodPost, "/api/registry/issue", map[string]string{"reg_num": "1101-2020-000123"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	req := decodeBody(t, w)["request"].(map[string]interface{})
	assert.Equal(t, "pending", req["status"])

	w = do(r, jsonRequest(t, http.MethodPost, "/api/registry/issue", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistryHandler_Status(t *testing.T) {
	id := uuid.New()
	h := NewRegistryHandler(registryServiceStub{
		statusFn: func(_ context.Context, got uuid.UUID) (*entities.RegistryRequest, error) {
			if got != id {
				return nil, domainerrors.ErrNotFound
			}
			return &entities.RegistryRequest{ID: id, Status: entities.RegistryReady}, nil
		},
	})
	r := newRouter(uuid.New())
	r.GET("/api/registry/status/:id", h.Status)

	w := do(r, jsonRequest(t, http.MethodGet, "/api/registry/status/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decodeBody(t, w)["request"].(map[string]interface{})["status"])

	w = do(r, jsonRequest(t, http.MethodGet, "/api/registry/status/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, jsonRequest(t, http.MethodGet, "/api/registry/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistryHandler_Download(t *testing.T) {
	ready := uuid.New()
	pending := uuid.New()
	h := NewRegistryHandler(registryServiceStub{
		downloadFn: func(_ context.Context, id uuid.UUID) (*entities.RegistryRequest, *os.File, error) {
			if id == pending {
				return &entities.RegistryRequest{ID: id, Status: entities.RegistryPending}, nil,
					domainerrors.Conflict("registry document is not ready").WithReason("not_ready")
			}
			return &entities.RegistryRequest{ID: id, Status: entities.RegistryReady}, tempFile(t, "%PDF-1.4"), nil
		},
	})
	r := newRouter(uuid.New())
	r.GET("/api/registry/download/:id", h.Download)

	w := do(r, jsonRequest(t, http.MethodGet, "/api/registry/download/"+pending.String(), nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "pending", w.Header().Get("X-Registry-Status"))
	assert.Equal(t, "not_ready", decodeBody(t, w)["reason"])

	w = do(r, jsonRequest(t, http.MethodGet, "/api/registry/download/"+ready.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=registry-"+ready.String()+".pdf", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}
