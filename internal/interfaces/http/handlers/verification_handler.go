package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/middleware"
	"kailospay.backend/internal/interfaces/http/response"
)

type VerificationService interface {
	VerifyIDCard(ctx context.Context, userID uuid.UUID, contractID *uuid.UUID, doc *entities.IdentityDocument) (*entities.IdentityOutcome, error)
	Summary(ctx context.Context, userID uuid.UUID) (*entities.VerificationSummary, error)
	Events(ctx context.Context, userID uuid.UUID) ([]*entities.VerificationEvent, error)
	ContractStatus(ctx context.Context, userID, contractID uuid.UUID) (*entities.ContractEkycStatus, error)
}

type OneWonService interface {
	Start(ctx context.Context, userID uuid.UUID, input *entities.OneWonStartInput) (*entities.OneWonStartResult, error)
	Confirm(ctx context.Context, userID uuid.UUID, input *entities.OneWonConfirmInput) (*entities.OneWonVerification, error)
}

type RealnameService interface {
	Verify(ctx context.Context, userID uuid.UUID, input *entities.RealnameInput) (*entities.RealnameOutcome, error)
}

// VerificationHandler serves eKYC, 1-won and realname checks.
type VerificationHandler struct {
	verifications VerificationService
	oneWon        OneWonService
	realname      RealnameService
	maxImageBytes int64
}

func NewVerificationHandler(verifications VerificationService, oneWon OneWonService, realname RealnameService, maxImageBytes int64) *VerificationHandler {
	return &VerificationHandler{
		verifications: verifications,
		oneWon:        oneWon,
		realname:      realname,
		maxImageBytes: maxImageBytes,
	}
}

// Summary reports the caller's verification progress
// GET /api/verifications/me
func (h *VerificationHandler) Summary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	summary, err := h.verifications.Summary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"ekyc":                 summary.Ekyc,
		"account":              summary.Account,
		"document":             summary.Document,
		"verified_for_payment": summary.VerifiedForPayment,
	})
}

// ContractEkycStatus returns the latest id-card check for a contract
// GET /api/contracts/:id/ekyc/status
func (h *VerificationHandler) ContractEkycStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	status, err := h.verifications.ContractStatus(c.Request.Context(), userID, contractID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"latest_event": status.LatestEvent,
		"user_ekyc":    status.UserEkyc,
	})
}

// VerifyIDCard re-runs the id-card check, optionally for a contract
// POST /api/ekyc/idcard (multipart: idcard, contractId)
func (h *VerificationHandler) VerifyIDCard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	doc, err := identityDocument(c, h.maxImageBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	contractID, err := optionalUUID(c.PostForm("contractId"), "contractId")
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.verifications.VerifyIDCard(c.Request.Context(), userID, contractID, doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	ekyc := entities.EkycVerified
	if !out.Verified {
		ekyc = entities.EkycUnverified
	}
	response.OK(c, gin.H{
		"ekyc":    ekyc,
		"state":   out.State,
		"score":   out.Score,
		"reasons": out.Reasons,
	})
}

// StartOneWon sends the 1-won deposit
// POST /api/onewon/start
func (h *VerificationHandler) StartOneWon(c *gin.Context) {
	var input entities.OneWonStartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	userID, ok := oneWonCaller(c, input.UserID)
	if !ok {
		return
	}

	out, err := h.oneWon.Start(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"requestId": out.RequestID,
		"provider":  out.Provider,
		"testMode":  out.TestMode,
	})
}

// ConfirmOneWon checks the deposit memo code
// POST /api/onewon/confirm
func (h *VerificationHandler) ConfirmOneWon(c *gin.Context) {
	var input entities.OneWonConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	userID, ok := oneWonCaller(c, input.UserID)
	if !ok {
		return
	}

	row, err := h.oneWon.Confirm(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"verified":  row.Status == entities.OneWonConfirmed,
		"requestId": row.RequestID,
		"status":    row.Status,
	})
}

// oneWonCaller picks the acting user: the JWT subject, or the userId in the
// body for internal calls.
func oneWonCaller(c *gin.Context, bodyUserID *uuid.UUID) (uuid.UUID, bool) {
	if middleware.IsInternalCall(c) {
		if bodyUserID == nil || *bodyUserID == uuid.Nil {
			response.Error(c, domainerrors.BadRequest("userId is required for internal calls"))
			return uuid.Nil, false
		}
		return *bodyUserID, true
	}
	return currentUser(c)
}

// VerifyRealname compares the account holder name with the given name
// POST /api/realname/verify
func (h *VerificationHandler) VerifyRealname(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input entities.RealnameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	out, err := h.realname.Verify(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"matched": out.Matched, "reason": out.Reason})
}

// UserEvents returns a user's verification history
// GET /api/admin/users/:id/verifications
func (h *VerificationHandler) UserEvents(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	events, err := h.verifications.Events(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"events": events})
}
