package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/middleware"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/utils"
)

type ContractService interface {
	Create(ctx context.Context, userID uuid.UUID, input *entities.CreateContractInput) (*entities.Contract, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*entities.Contract, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error)
	Update(ctx context.Context, userID, id uuid.UUID, input *entities.UpdateContractInput) (*entities.Contract, error)
	Submit(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error)
	AddFiles(ctx context.Context, userID, id uuid.UUID, docType string, files []entities.IncomingFile) ([]*entities.ContractFile, error)
	ListFiles(ctx context.Context, actor entities.Actor, id uuid.UUID) ([]*entities.ContractFile, error)
	OpenFile(ctx context.Context, actor entities.Actor, contractID, fileID uuid.UUID) (*entities.ContractFile, *os.File, error)
	ListAll(ctx context.Context, status entities.ContractStatus, page, limit int) ([]*entities.Contract, *utils.PaginationMeta, error)
	Approve(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error)
	Reject(ctx context.Context, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error)
}

// ContractHandler handles contract endpoints for owners and the back office.
type ContractHandler struct {
	contracts ContractService
	users     middleware.UserLookup
}

func NewContractHandler(contracts ContractService, users middleware.UserLookup) *ContractHandler {
	return &ContractHandler{contracts: contracts, users: users}
}

// Create opens a draft contract
// POST /api/contracts
func (h *ContractHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input entities.CreateContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"contract": contract})
}

// ListMine lists the caller's contracts
// GET /api/contracts/my
func (h *ContractHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	contracts, err := h.contracts.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contracts": contracts})
}

// Get returns one of the caller's contracts
// GET /api/contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contract": contract})
}

// Update edits a draft or rejected contract
// PUT /api/contracts/:id
func (h *ContractHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var input entities.UpdateContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	contract, err := h.contracts.Update(c.Request.Context(), userID, id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contract": contract})
}

// Submit sends a contract for review
// POST /api/contracts/:id/submit
func (h *ContractHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	contract, err := h.contracts.Submit(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contract": contract})
}

// AddFiles attaches documents to a contract
// POST /api/contracts/:id/files (multipart: files, docType)
func (h *ContractHandler) AddFiles(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	files, err := multipartFiles(c, FilesField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer files.Close()

	added, err := h.contracts.AddFiles(c.Request.Context(), userID, id, c.PostForm("docType"), files.files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"files": added})
}

// ListFiles lists a contract's attachments
// GET /api/contracts/:id/files
func (h *ContractHandler) ListFiles(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	files, err := h.contracts.ListFiles(c.Request.Context(), middleware.GetActor(c, h.users), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"files": files})
}

// PreviewFile renders an attachment inline
// GET /api/contracts/:id/files/:fileId/preview
func (h *ContractHandler) PreviewFile(c *gin.Context) {
	h.serveFile(c, false)
}

// DownloadFile sends an attachment
// GET /api/contracts/:id/files/:fileId/download
func (h *ContractHandler) DownloadFile(c *gin.Context) {
	h.serveFile(c, true)
}

func (h *ContractHandler) serveFile(c *gin.Context, download bool) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	fileID, ok := uuidParam(c, "fileId")
	if !ok {
		return
	}

	file, f, err := h.contracts.OpenFile(c.Request.Context(), middleware.GetActor(c, h.users), id, fileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, f, file.OriginalName, file.Mime, download)
}

// AdminList lists contracts for review
// GET /api/admin/contracts?status=&page=&limit=
func (h *ContractHandler) AdminList(c *gin.Context) {
	page, limit := pageParams(c)
	contracts, meta, err := h.contracts.ListAll(c.Request.Context(), entities.ContractStatus(c.Query("status")), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contracts": contracts, "pagination": meta})
}

// AdminApprove approves a submitted contract
// POST /api/admin/contracts/:id/approve
func (h *ContractHandler) AdminApprove(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input entities.DecisionInput
	if !bindJSON(c, &input) {
		return
	}

	contract, err := h.contracts.Approve(c.Request.Context(), middleware.ReviewerID(c), id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contract": contract})
}

// AdminReject rejects a submitted contract
// POST /api/admin/contracts/:id/reject
func (h *ContractHandler) AdminReject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input entities.DecisionInput
	if !bindJSON(c, &input) {
		return
	}

	contract, err := h.contracts.Reject(c.Request.Context(), id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"contract": contract})
}
