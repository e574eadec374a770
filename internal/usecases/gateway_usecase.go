package usecases

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/logger"
)

// Failure codes reported to the fail page besides the gateway's own codes.
const (
	GatewayCodeAuthFailed      = "auth_failed"
	GatewayCodeSignature       = "F407"
	GatewayCodeApprovalFailed  = "approval_failed"
	GatewayCodeServerError     = "server_error"
	GatewayCodeUnknownOrder    = "order_not_found"
	GatewayCodeAmountMismatch  = "amount_mismatch"
	GatewayCodeAlreadyFinished = "already_failed"
)

// HandleGatewayReturn settles a payment from the gateway's return call. It
// never fails: every problem becomes a failed outcome for the fail page.
// Replays of a paid order report success without a second approval.
func (u *PaymentUsecase) HandleGatewayReturn(ctx context.Context, p entities.GatewayReturn) *entities.GatewayOutcome {
	out := &entities.GatewayOutcome{OrderID: strings.TrimSpace(p.OrdNo)}
	fail := func(code, message string) *entities.GatewayOutcome {
		out.Paid = false
		out.Code = code
		out.Message = message
		return out
	}

	orderID, err := uuid.Parse(out.OrderID)
	if err != nil {
		logger.Warn(ctx, "Gateway return for malformed order", zap.String("ord_no", p.OrdNo))
		return fail(GatewayCodeUnknownOrder, "unknown order")
	}

	payment, err := u.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrNotFound) {
			logger.Error(ctx, "Gateway return lookup failed", zap.String("order_id", out.OrderID), zap.Error(err))
			return fail(GatewayCodeServerError, "server error")
		}
		payment = nil
	}
	if payment != nil {
		out.Amount = payment.Amount
		out.Method = payment.Method
		if payment.Status == entities.PaymentPaid {
			logger.Info(ctx, "Gateway return replay for paid order",
				zap.String("order_id", out.OrderID),
				zap.String("result_cd", p.ResultCd),
			)
			out.Paid = true
			return out
		}
	}

	if strings.TrimSpace(p.ResultCd) != vendors.EzPGApprovedCode {
		code := strings.TrimSpace(p.ResultCd)
		if code == "" {
			code = GatewayCodeAuthFailed
		}
		logger.Warn(ctx, "Gateway authorization failed",
			zap.String("order_id", out.OrderID),
			zap.String("result_cd", p.ResultCd),
			zap.String("result_msg", p.ResultMsg),
		)
		if payment != nil {
			u.markFailed(ctx, orderID, code, p.ResultMsg)
		}
		return fail(code, p.ResultMsg)
	}

	if payment == nil {
		return fail(GatewayCodeUnknownOrder, "unknown order")
	}
	if payment.Status == entities.PaymentFailed {
		return fail(GatewayCodeAlreadyFinished, payment.ResultMessage.String)
	}

	if !u.gateway.VerifyCallbackSignature(p) {
		sigErr := domainerrors.SignatureMismatch("sign mismatch")
		logger.Warn(ctx, "Gateway signature mismatch",
			zap.String("order_id", out.OrderID),
			zap.String("code", sigErr.Code),
			zap.Error(sigErr),
		)
		u.markFailed(ctx, orderID, GatewayCodeSignature, sigErr.Message)
		return fail(GatewayCodeSignature, sigErr.Message)
	}

	if amt, err := strconv.ParseInt(strings.TrimSpace(p.GoodsAmt), 10, 64); err != nil || amt != payment.Amount {
		logger.Warn(ctx, "Gateway amount mismatch",
			zap.String("order_id", out.OrderID),
			zap.String("goods_amt", p.GoodsAmt),
			zap.Int64("expected", payment.Amount),
		)
		u.markFailed(ctx, orderID, GatewayCodeAmountMismatch, "amount mismatch")
		return fail(GatewayCodeAmountMismatch, "amount mismatch")
	}

	approval, err := u.gateway.Approve(detach(ctx), p)
	if err != nil {
		logger.Error(ctx, "Gateway approval call failed", zap.String("order_id", out.OrderID), zap.Error(err))
		u.markFailed(ctx, orderID, GatewayCodeServerError, "approval error")
		return fail(GatewayCodeServerError, "server error")
	}
	if !approval.Approved {
		logger.Warn(ctx, "Gateway approval rejected",
			zap.String("order_id", out.OrderID),
			zap.Int("http_status", approval.HTTPStatus),
			zap.String("result_cd", approval.ResultCode),
		)
		u.markFailed(ctx, orderID, GatewayCodeApprovalFailed, approval.ResultMessage)
		return fail(GatewayCodeApprovalFailed, "approval api failed")
	}

	code, msg := resultFields(approval.ResultCode, approval.ResultMessage)
	err = u.transition(ctx, orderID, entities.PaymentTransition{
		To:            entities.PaymentPaid,
		TID:           null.NewString(p.TID, p.TID != ""),
		ResultCode:    code,
		ResultMessage: msg,
	})
	if err != nil {
		// A concurrent return may have settled the order first.
		current, getErr := u.paymentRepo.GetByOrderID(ctx, orderID)
		if getErr == nil && current.Status == entities.PaymentPaid {
			out.Paid = true
			return out
		}
		logger.Error(ctx, "Failed to mark payment paid", zap.String("order_id", out.OrderID), zap.Error(err))
		return fail(GatewayCodeServerError, "server error")
	}

	payment.Status = entities.PaymentPaid
	payment.TID = null.NewString(p.TID, p.TID != "")
	logger.Info(ctx, "Payment paid", zap.String("order_id", out.OrderID), zap.Int64("amount", payment.Amount))
	u.notifier.PaymentPaid(ctx, payment)

	out.Paid = true
	return out
}

// markFailed records a failure unless the order is already terminal.
func (u *PaymentUsecase) markFailed(ctx context.Context, orderID uuid.UUID, code, message string) {
	rc, rm := resultFields(code, message)
	err := u.transition(ctx, orderID, entities.PaymentTransition{
		To:            entities.PaymentFailed,
		ResultCode:    rc,
		ResultMessage: rm,
	})
	if err != nil && !errors.Is(err, domainerrors.ErrInvalidTransition) {
		logger.Error(ctx, "Failed to mark payment failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}
