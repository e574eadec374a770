package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/utils"
)

type PaymentService interface {
	CanPay(ctx context.Context, userID uuid.UUID, category entities.Category, contractID *uuid.UUID) (*entities.Eligibility, error)
	Create(ctx context.Context, userID uuid.UUID, input *entities.CreatePaymentInput) (*entities.Payment, error)
	ListMine(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.Payment, *utils.PaginationMeta, error)
	Prepare(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (*entities.Payment, *entities.GatewayAuthForm, error)
	Status(ctx context.Context, userID, orderID uuid.UUID) (*entities.Payment, error)
	HandleGatewayReturn(ctx context.Context, p entities.GatewayReturn) *entities.GatewayOutcome
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentUsecase PaymentService
	successURL     string
	failURL        string
}

// NewPaymentHandler creates a new payment handler. successURL and failURL
// are the frontend pages the gateway return redirects to.
func NewPaymentHandler(paymentUsecase PaymentService, successURL, failURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		successURL:     successURL,
		failURL:        failURL,
	}
}

type prepareRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// CanPay reports whether the caller may pay now
// GET /api/can-pay?category=&contractId=
func (h *PaymentHandler) CanPay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, err := optionalUUID(c.Query("contractId"), "contractId")
	if err != nil {
		response.Error(c, err)
		return
	}

	eligibility, err := h.paymentUsecase.CanPay(c.Request.Context(), userID, entities.Category(c.Query("category")), contractID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"canPay":      eligibility.Eligible,
		"reasons":     eligibility.Reasons,
		"eligibility": eligibility,
	})
}

// CreatePayment creates a new pending payment
// POST /api/payments/create
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input entities.CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	payment, err := h.paymentUsecase.Create(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"payment": payment})
}

// ListPayments lists payments for the current user
// GET /api/payments/my?page=&limit=
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, limit := pageParams(c)
	payments, meta, err := h.paymentUsecase.ListMine(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"payments": payments, "pagination": meta})
}

// Prepare returns the signed hosted-payment-page form
// POST /api/payments/gateway/prepare
func (h *PaymentHandler) Prepare(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	orderID, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		response.Error(c, domainerrors.NotFound("payment not found"))
		return
	}

	payment, form, err := h.paymentUsecase.Prepare(c.Request.Context(), userID, orderID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"payment": payment, "form": form})
}

// Status returns one of the caller's payments
// GET /api/payments/gateway/status/:orderId
func (h *PaymentHandler) Status(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "orderId")
	if !ok {
		return
	}

	payment, err := h.paymentUsecase.Status(c.Request.Context(), userID, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"payment": payment})
}

// GatewayReturn settles the payment and sends the browser to the result page
// GET|POST /api/payments/gateway/return
func (h *PaymentHandler) GatewayReturn(c *gin.Context) {
	var p entities.GatewayReturn
	// Unparseable bodies leave fields empty, which settles as a failure.
	_ = c.ShouldBind(&p)

	out := h.paymentUsecase.HandleGatewayReturn(c.Request.Context(), p)

	if out.Paid {
		c.Redirect(http.StatusFound, withQuery(h.successURL, url.Values{
			"orderId": {out.OrderID},
			"amount":  {strconv.FormatInt(out.Amount, 10)},
			"method":  {string(out.Method)},
			"status":  {string(entities.PaymentPaid)},
		}))
		return
	}
	c.Redirect(http.StatusFound, withQuery(h.failURL, url.Values{
		"orderId": {out.OrderID},
		"code":    {out.Code},
		"message": {out.Message},
	}))
}

// withQuery appends params to base, keeping any query base already has.
func withQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
