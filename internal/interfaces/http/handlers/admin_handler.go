package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/internal/interfaces/http/middleware"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/utils"
)

type AdminService interface {
	ListUsers(ctx context.Context, query string, page, limit int) ([]*entities.User, *utils.PaginationMeta, error)
	DeleteUser(ctx context.Context, actorID uuid.NullUUID, id uuid.UUID) error
	ListUploads(ctx context.Context, filter entities.UploadFilter, page, limit int) ([]*entities.Upload, *utils.PaginationMeta, error)
	ToggleReview(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.ReviewInput) (*entities.Upload, error)
	ApproveUpload(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Upload, error)
	RejectUpload(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Upload, error)
	ListPayments(ctx context.Context, filter entities.PaymentFilter, page, limit int) ([]*entities.Payment, *utils.PaginationMeta, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
}

type NotificationService interface {
	SendTest(ctx context.Context, phone, text, templateID string) (*vendors.AlimtalkResult, error)
}

// AdminHandler serves the back office.
type AdminHandler struct {
	adminUsecase AdminService
	notifier     NotificationService
}

func NewAdminHandler(adminUsecase AdminService, notifier NotificationService) *AdminHandler {
	return &AdminHandler{adminUsecase: adminUsecase, notifier: notifier}
}

type alimtalkTestRequest struct {
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	RawMessage   string `json:"rawMessage"`
	TemplateCode string `json:"templateCode"`
}

// ListUsers searches users by email, name or phone
// GET /api/admin/users?q=&page=&limit=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, meta, err := h.adminUsecase.ListUsers(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"users":      users,
		"total":      meta.TotalCount,
		"page":       meta.Page,
		"limit":      meta.Limit,
		"pagination": meta,
	})
}

// DeleteUser removes a user and everything they own
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminUsecase.DeleteUser(c.Request.Context(), middleware.ReviewerID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil)
}

// ListUploads lists uploads for review
// GET /api/admin/uploads?status=&category=&userId=&page=&limit=
func (h *AdminHandler) ListUploads(c *gin.Context) {
	userID, err := optionalUUID(c.Query("userId"), "userId")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := entities.UploadFilter{
		Status:   entities.DocumentStatus(c.Query("status")),
		Category: entities.Category(c.Query("category")),
	}
	if userID != nil {
		filter.UserID = uuid.NullUUID{UUID: *userID, Valid: true}
	}

	page, limit := pageParams(c)
	uploads, meta, err := h.adminUsecase.ListUploads(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"uploads": uploads, "pagination": meta})
}

// ReviewUpload toggles an upload between pending and done
// PATCH /api/admin/uploads/:id/review
func (h *AdminHandler) ReviewUpload(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input entities.ReviewInput
	if !bindJSON(c, &input) {
		return
	}

	upload, err := h.adminUsecase.ToggleReview(c.Request.Context(), middleware.ReviewerID(c), id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"upload": upload})
}

// ApproveUpload approves an upload
// POST /api/admin/uploads/:id/approve
func (h *AdminHandler) ApproveUpload(c *gin.Context) {
	h.decide(c, h.adminUsecase.ApproveUpload)
}

// RejectUpload rejects an upload
// POST /api/admin/uploads/:id/reject
func (h *AdminHandler) RejectUpload(c *gin.Context) {
	h.decide(c, h.adminUsecase.RejectUpload)
}

type uploadDecision func(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Upload, error)

func (h *AdminHandler) decide(c *gin.Context, decide uploadDecision) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input entities.DecisionInput
	if !bindJSON(c, &input) {
		return
	}

	upload, err := decide(c.Request.Context(), middleware.ReviewerID(c), id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"upload": upload})
}

// ListPayments lists payments across users
// GET /api/admin/payments?status=&method=&q=&page=&limit=
func (h *AdminHandler) ListPayments(c *gin.Context) {
	filter := entities.PaymentFilter{
		Status: entities.PaymentStatus(c.Query("status")),
		Method: entities.PaymentMethod(c.Query("method")),
		Query:  c.Query("q"),
	}

	page, limit := pageParams(c)
	payments, meta, err := h.adminUsecase.ListPayments(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"payments":   payments,
		"total":      meta.TotalCount,
		"page":       meta.Page,
		"limit":      meta.Limit,
		"pagination": meta,
	})
}

// DeletePayment removes a payment record
// DELETE /api/admin/payments/:id
func (h *AdminHandler) DeletePayment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminUsecase.DeletePayment(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil)
}

// SendAlimtalkTest sends a one-off Alimtalk message
// POST /api/notify/alimtalk/test
func (h *AdminHandler) SendAlimtalkTest(c *gin.Context) {
	var req alimtalkTestRequest
	if !bindJSON(c, &req) {
		return
	}
	text := req.Message
	if text == "" {
		text = req.RawMessage
	}

	res, err := h.notifier.SendTest(c.Request.Context(), req.Phone, text, req.TemplateCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"vendor":  vendors.VendorBizm,
		"code":    res.Code,
		"message": res.Message,
		"data":    res.Raw,
	})
}
