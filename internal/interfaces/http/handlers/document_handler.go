package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/internal/interfaces/http/middleware"
	"kailospay.backend/internal/interfaces/http/response"
)

type DocumentService interface {
	Upload(ctx context.Context, userID uuid.UUID, category entities.Category, docType string, files []entities.IncomingFile) ([]*entities.Upload, error)
	ListMine(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error)
	Open(ctx context.Context, actor entities.Actor, savedName string) (*entities.Upload, *os.File, error)
}

// DocumentHandler serves general and rent document uploads.
type DocumentHandler struct {
	documents DocumentService
	users     middleware.UserLookup
}

func NewDocumentHandler(documents DocumentService, users middleware.UserLookup) *DocumentHandler {
	return &DocumentHandler{documents: documents, users: users}
}

// Upload stores documents under the category given in the form
// POST /api/uploads (multipart: files, category, docType)
func (h *DocumentHandler) Upload(c *gin.Context) {
	h.upload(c, entities.Category(c.PostForm("category")))
}

// UploadRent stores rent documents
// POST /api/rent/docs (multipart: files, docType)
func (h *DocumentHandler) UploadRent(c *gin.Context) {
	h.upload(c, entities.CategoryRent)
}

func (h *DocumentHandler) upload(c *gin.Context, category entities.Category) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	files, err := multipartFiles(c, FilesField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer files.Close()

	items, err := h.documents.Upload(c.Request.Context(), userID, category, c.PostForm("docType"), files.files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"items": items})
}

// ListMine lists the caller's uploads
// GET /api/uploads/my?category=
func (h *DocumentHandler) ListMine(c *gin.Context) {
	h.list(c, entities.Category(c.Query("category")))
}

// ListRent lists the caller's rent documents
// GET /api/rent/docs/my
func (h *DocumentHandler) ListRent(c *gin.Context) {
	h.list(c, entities.CategoryRent)
}

func (h *DocumentHandler) list(c *gin.Context, category entities.Category) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	uploads, err := h.documents.ListMine(c.Request.Context(), userID, category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"uploads": uploads})
}

// Preview renders an upload inline
// GET /api/uploads/:savedName/preview
func (h *DocumentHandler) Preview(c *gin.Context) {
	h.serve(c, false)
}

// Download sends an upload as an attachment
// GET /api/uploads/:savedName/download
func (h *DocumentHandler) Download(c *gin.Context) {
	h.serve(c, true)
}

func (h *DocumentHandler) serve(c *gin.Context, download bool) {
	if _, ok := currentUser(c); !ok {
		return
	}

	up, f, err := h.documents.Open(c.Request.Context(), middleware.GetActor(c, h.users), c.Param("savedName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, f, up.OriginalName, up.Mime, download)
}
