package handlers

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/response"
)

type RegistryService interface {
	Issue(ctx context.Context, userID uuid.UUID, input *entities.IssueRegistryInput) (*entities.RegistryRequest, error)
	Status(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error)
	Download(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, *os.File, error)
}

// RegistryHandler serves property-registry issuance.
type RegistryHandler struct {
	registry RegistryService
}

func NewRegistryHandler(registry RegistryService) *RegistryHandler {
	return &RegistryHandler{registry: registry}
}

// Issue starts or reuses a registry issuance
// POST /api/registry/issue
func (h *RegistryHandler) Issue(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input entities.IssueRegistryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	req, err := h.registry.Issue(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"request": req})
}

// Status refreshes and returns a registry request
// GET /api/registry/status/:id
func (h *RegistryHandler) Status(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	req, err := h.registry.Status(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"request": req})
}

// Download sends the issued registry PDF once it is ready
// GET /api/registry/download/:id
func (h *RegistryHandler) Download(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	req, f, err := h.registry.Download(c.Request.Context(), id)
	if err != nil {
		if req != nil {
			c.Header("X-Registry-Status", string(req.Status))
		}
		response.Error(c, err)
		return
	}
	serveFile(c, f, "registry-"+req.ID.String()+".pdf", "application/pdf", true)
}
