package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
)

type documentServiceStub struct {
	uploadFn func(ctx context.Context, userID uuid.UUID, category entities.Category, docType string, files []entities.IncomingFile) ([]*entities.Upload, error)
	listFn   func(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error)
	openFn   func(ctx context.Context, actor entities.Actor, savedName string) (*entities.Upload, *os.File, error)
}

func (s documentServiceStub) Upload(ctx context.Context, userID uuid.UUID, category entities.Category, docType string, files []entities.IncomingFile) ([]*entities.Upload, error) {
	return s.uploadFn(ctx, userID, category, docType, files)
}

func (s documentServiceStub) ListMine(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error) {
	return s.listFn(ctx, userID, category)
}

func (s documentServiceStub) Open(ctx context.Context, actor entities.Actor, savedName string) (*entities.Upload, *os.File, error) {
	return s.openFn(ctx, actor, savedName)
}

type usersStub map[uuid.UUID]*entities.User

func (s usersStub) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, domainerrors.ErrNotFound
}

func tempFile(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stored")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	return f
}

func TestDocumentHandler_Upload(t *testing.T) {
	userID := uuid.New()
	var gotCategory entities.Category
	var gotBodies []string
	h := NewDocumentHandler(documentServiceStub{
		uploadFn: func(_ context.Context, id uuid.UUID, category entities.Category, docType string, files []entities.IncomingFile) ([]*entities.Upload, error) {
			gotCategory = category
			for _, f := range files {
				b, _ := io.ReadAll(f.Body)
				gotBodies = append(gotBodies, f.Filename+":"+string(b))
			}
			if len(files) == 0 {
				return nil, domainerrors.BadRequest("no files").WithReason("no_files")
			}
			return []*entities.Upload{{ID: uuid.New(), DocType: null.NewString(docType, docType != "")}}, nil
		},
	}, nil)

	r := newRouter(userID)
	r.POST("/api/uploads", h.Upload)
	r.POST("/api/rent/docs", h.UploadRent)

	w := do(r, multipartRequest(t, "/api/rent/docs", map[string]string{"category": "goods", "docType": "lease"},
		formFile{field: FilesField, name: "a.pdf", contentType: "application/pdf", content: "A"},
		formFile{field: FilesField, name: "b.pdf", contentType: "application/pdf", content: "B"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, entities.CategoryRent, gotCategory)
	assert.Equal(t, []string{"a.pdf:A", "b.pdf:B"}, gotBodies)

	w = do(r, multipartRequest(t, "/api/uploads", map[string]string{"category": "goods"},
		formFile{field: FilesField, name: "c.pdf", contentType: "application/pdf", content: "C"}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, entities.CategoryGoods, gotCategory)

	w = do(r, jsonRequest(t, http.MethodPost, "/api/uploads", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_files", decodeBody(t, w)["reason"])
}

func TestDocumentHandler_ListRent(t *testing.T) {
	h := NewDocumentHandler(documentServiceStub{
		listFn: func(_ context.Context, _ uuid.UUID, category entities.Category) ([]*entities.Upload, error) {
			assert.Equal(t, entities.CategoryRent, category)
			return []*entities.Upload{{}, {}}, nil
		},
	}, nil)
	r := newRouter(uuid.New())
	r.GET("/api/rent/docs/my", h.ListRent)

	w := do(r, jsonRequest(t, http.MethodGet, "/api/rent/docs/my", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["uploads"], 2)
}

func TestDocumentHandler_PreviewNeverRendersOtherTypes(t *testing.T) {
	owner := uuid.New()
	for _, storedMime := range []string{"text/html", "text/html; charset=utf-8", "image/svg+xml", ""} {
		t.Run(storedMime, func(t *testing.T) {
			h := NewDocumentHandler(documentServiceStub{
				openFn: func(_ context.Context, _ entities.Actor, savedName string) (*entities.Upload, *os.File, error) {
					return &entities.Upload{OriginalName: "lease.html", Mime: storedMime, SavedName: savedName},
						tempFile(t, "<script>alert(document.cookie)</script>"), nil
				},
			}, usersStub{})
			r := newRouter(owner)
			r.GET("/api/uploads/:savedName/preview", h.Preview)

			w := do(r, jsonRequest(t, http.MethodGet, "/api/uploads/general_1/preview", nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestDocumentHandler_PreviewAndDownload(t *testing.T) {
	owner := uuid.New()
	admin := uuid.New()
	h := NewDocumentHandler(documentServiceStub{
		openFn: func(_ context.Context, actor entities.Actor, savedName string) (*entities.Upload, *os.File, error) {
			if !actor.CanAccess(owner) {
				return nil, nil, domainerrors.Forbidden("no access to this file")
			}
			return &entities.Upload{OriginalName: "임대차계약서.pdf", Mime: "application/pdf", SavedName: savedName}, tempFile(t, "%PDF"), nil
		},
	}, usersStub{admin: {ID: admin, IsAdmin: true}})

	for _, tc := range []struct {
		name   string
		caller uuid.UUID
		path   string
		status int
		inline bool
	}{
		{"owner preview", owner, "/api/uploads/rent_1/preview", http.StatusOK, true},
		{"owner download", owner, "/api/uploads/rent_1/download", http.StatusOK, false},
		{"admin user", admin, "/api/uploads/rent_1/preview", http.StatusOK, true},
		{"stranger", uuid.New(), "/api/uploads/rent_1/preview", http.StatusForbidden, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(tc.caller)
			r.GET("/api/uploads/:savedName/preview", h.Preview)
			r.GET("/api/uploads/:savedName/download", h.Download)

			w := do(r, jsonRequest(t, http.MethodGet, tc.path, nil))
			require.Equal(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				return
			}
			assert.Equal(t, "%PDF", w.Body.String())
			assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
			disposition := w.Header().Get("Content-Disposition")
			if tc.inline {
				assert.Contains(t, disposition, "inline")
			} else {
				assert.Contains(t, disposition, "attachment")
			}
			assert.Contains(t, disposition, "filename*=utf-8''")
		})
	}
}
