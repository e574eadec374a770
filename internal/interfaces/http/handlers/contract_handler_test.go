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
	"kailospay.backend/pkg/utils"
)

type contractServiceStub struct {
	createFn   func(ctx context.Context, userID uuid.UUID, input *entities.CreateContractInput) (*entities.Contract, error)
	getFn      func(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error)
	updateFn   func(ctx context.Context, userID, id uuid.UUID, input *entities.UpdateContractInput) (*entities.Contract, error)
	submitFn   func(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error)
	addFilesFn func(ctx context.Context, userID, id uuid.UUID, docType string, files []entities.IncomingFile) ([]*entities.ContractFile, error)
	openFileFn func(ctx context.Context, actor entities.Actor, contractID, fileID uuid.UUID) (*entities.ContractFile, *os.File, error)
	listAllFn  func(ctx context.Context, status entities.ContractStatus, page, limit int) ([]*entities.Contract, *utils.PaginationMeta, error)
	approveFn  func(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error)
	rejectFn   func(ctx context.Context, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error)
}

func (s contractServiceStub) Create(ctx context.Context, userID uuid.UUID, input *entities.CreateContractInput) (*entities.Contract, error) {
	return s.createFn(ctx, userID, input)
}

func (s contractServiceStub) ListMine(context.Context, uuid.UUID) ([]*entities.Contract, error) {
	return []*entities.Contract{}, nil
}

func (s contractServiceStub) Get(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error) {
	return s.getFn(ctx, userID, id)
}

func (s contractServiceStub) Update(ctx context.Context, userID, id uuid.UUID, input *entities.UpdateContractInput) (*entities.Contract, error) {
	return s.updateFn(ctx, userID, id, input)
}

func (s contractServiceStub) Submit(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error) {
	return s.submitFn(ctx, userID, id)
}

func (s contractServiceStub) AddFiles(ctx context.Context, userID, id uuid.UUID, docType string, files []entities.IncomingFile) ([]*entities.ContractFile, error) {
	return s.addFilesFn(ctx, userID, id, docType, files)
}

func (s contractServiceStub) ListFiles(context.Context, entities.Actor, uuid.UUID) ([]*entities.ContractFile, error) {
	return []*entities.ContractFile{}, nil
}

func (s contractServiceStub) OpenFile(ctx context.Context, actor entities.Actor, contractID, fileID uuid.UUID) (*entities.ContractFile, *os.File, error) {
	return s.openFileFn(ctx, actor, contractID, fileID)
}

func (s contractServiceStub) ListAll(ctx context.Context, status entities.ContractStatus, page, limit int) ([]*entities.Contract, *utils.PaginationMeta, error) {
	return s.listAllFn(ctx, status, page, limit)
}

func (s contractServiceStub) Approve(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error) {
	return s.approveFn(ctx, reviewerID, id, input)
}

func (s contractServiceStub) Reject(ctx context.Context, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error) {
	return s.rejectFn(ctx, id, input)
}

func TestContractHandler_Create(t *testing.T) {
	userID := uuid.New()
	h := NewContractHandler(contractServiceStub{
		createFn: func(_ context.Context, id uuid.UUID, input *entities.CreateContractInput) (*entities.Contract, error) {
			return &entities.Contract{ID: uuid.New(), UserID: id, Title: input.Title, Status: entities.ContractDraft}, nil
		},
	}, nil)
	r := newRouter(userID)
	r.POST("/api/contracts", h.Create)

	w := do(r, jsonRequest(t, http.MethodPost, "/api/contracts", map[string]interface{}{"title": "월세 계약", "category": "rent", "amount": 500000}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	contract := decodeBody(t, w)["contract"].(map[string]interface{})
	assert.Equal(t, "draft", contract["status"])

	w = do(r, jsonRequest(t, http.MethodPost, "/api/contracts", map[string]interface{}{"title": "x", "category": "crypto"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, jsonRequest(t, http.MethodPost, "/api/contracts", map[string]interface{}{"title": "x", "category": "rent", "amount": -1}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractHandler_GetAndSubmit(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()
	h := NewContractHandler(contractServiceStub{
		getFn: func(_ context.Context, _, cid uuid.UUID) (*entities.Contract, error) {
			if cid != id {
				return nil, domainerrors.ErrNotFound
			}
			return &entities.Contract{ID: cid}, nil
		},
		submitFn: func(context.Context, uuid.UUID, uuid.UUID) (*entities.Contract, error) {
			return nil, domainerrors.BadRequest("at least one file is required").WithReason("no_files")
		},
	}, nil)
	r := newRouter(userID)
	r.GET("/api/contracts/:id", h.Get)
	r.POST("/api/contracts/:id/submit", h.Submit)

	assert.Equal(t, http.StatusOK, do(r, jsonRequest(t, http.MethodGet, "/api/contracts/"+id.String(), nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(r, jsonRequest(t, http.MethodGet, "/api/contracts/"+uuid.NewString(), nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(r, jsonRequest(t, http.MethodGet, "/api/contracts/not-a-uuid", nil)).Code)

	w := do(r, jsonRequest(t, http.MethodPost, "/api/contracts/"+id.String()+"/submit", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_files", decodeBody(t, w)["reason"])
}

func TestContractHandler_Update_NotEditable(t *testing.T) {
	h := NewContractHandler(contractServiceStub{
		updateFn: func(context.Context, uuid.UUID, uuid.UUID, *entities.UpdateContractInput) (*entities.Contract, error) {
			return nil, domainerrors.Conflict("contract is not editable").WithReason("submitted")
		},
	}, nil)
	r := newRouter(uuid.New())
	r.PUT("/api/contracts/:id", h.Update)

	w := do(r, jsonRequest(t, http.MethodPut, "/api/contracts/"+uuid.NewString(), map[string]string{"title": "new"}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestContractHandler_AddFiles(t *testing.T) {
	id := uuid.New()
	h := NewContractHandler(contractServiceStub{
		addFilesFn: func(_ context.Context, _, cid uuid.UUID, docType string, files []entities.IncomingFile) ([]*entities.ContractFile, error) {
			out := make([]*entities.ContractFile, 0, len(files))
			for _, f := range files {
				out = append(out, &entities.ContractFile{ContractID: cid, OriginalName: f.Filename})
			}
			return out, nil
		},
	}, nil)
	r := newRouter(uuid.New())
	r.POST("/api/contracts/:id/files", h.AddFiles)

	w := do(r, multipartRequest(t, "/api/contracts/"+id.String()+"/files", nil,
		formFile{field: FilesField, name: "lease.pdf", contentType: "application/pdf", content: "x"}))
	require.Equal(t, http.StatusCreated, w.Code)
	files := decodeBody(t, w)["files"].([]interface{})
	require.Len(t, files, 1)
	assert.Equal(t, "lease.pdf", files[0].(map[string]interface{})["originalName"])
}

func TestContractHandler_DownloadFile(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	fileID := uuid.New()
	h := NewContractHandler(contractServiceStub{
		openFileFn: func(_ context.Context, actor entities.Actor, cid, fid uuid.UUID) (*entities.ContractFile, *os.File, error) {
			if !actor.CanAccess(owner) || fid != fileID {
				return nil, nil, domainerrors.ErrNotFound
			}
			return &entities.ContractFile{ID: fid, ContractID: cid, OriginalName: "lease.pdf", Mime: "application/pdf"}, tempFile(t, "lease"), nil
		},
	}, usersStub{})
	path := "/api/contracts/" + id.String() + "/files/" + fileID.String() + "/download"

	r := newRouter(owner)
	r.GET("/api/contracts/:id/files/:fileId/download", h.DownloadFile)
	w := do(r, jsonRequest(t, http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lease", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=lease.pdf")

	other := newRouter(uuid.New())
	other.GET("/api/contracts/:id/files/:fileId/download", h.DownloadFile)
	assert.Equal(t, http.StatusNotFound, do(other, jsonRequest(t, http.MethodGet, path, nil)).Code)
}

func TestContractHandler_AdminReview(t *testing.T) {
	admin := uuid.New()
	id := uuid.New()
	h := NewContractHandler(contractServiceStub{
		listAllFn: func(_ context.Context, status entities.ContractStatus, page, limit int) ([]*entities.Contract, *utils.PaginationMeta, error) {
			assert.Equal(t, entities.ContractSubmitted, status)
			meta := utils.CalculateMeta(1, page, limit)
			return []*entities.Contract{{ID: id}}, &meta, nil
		},
		approveFn: func(_ context.Context, reviewer uuid.NullUUID, cid uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error) {
			assert.Equal(t, admin, reviewer.UUID)
			return &entities.Contract{ID: cid, Status: entities.ContractApproved}, nil
		},
		rejectFn: func(_ context.Context, cid uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error) {
			assert.Equal(t, "서류 누락", input.Reason)
			return &entities.Contract{ID: cid, Status: entities.ContractRejected}, nil
		},
	}, nil)
	r := newRouter(admin)
	r.GET("/api/admin/contracts", asAdmin, h.AdminList)
	r.POST("/api/admin/contracts/:id/approve", asAdmin, h.AdminApprove)
	r.POST("/api/admin/contracts/:id/reject", asAdmin, h.AdminReject)

	w := do(r, jsonRequest(t, http.MethodGet, "/api/admin/contracts?status=submitted", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["pagination"].(map[string]interface{})["totalCount"])

	w = do(r, jsonRequest(t, http.MethodPost, "/api/admin/contracts/"+id.String()+"/approve", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, jsonRequest(t, http.MethodPost, "/api/admin/contracts/"+id.String()+"/reject", map[string]string{"reason": "서류 누락"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", decodeBody(t, w)["contract"].(map[string]interface{})["status"])
}
