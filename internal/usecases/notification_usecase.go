package usecases

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/metrics"
)

// Notification events.
const (
	EventPaymentPaid       = "payment_paid"
	EventContractSubmitted = "contract_submitted"
	EventContractApproved  = "contract_approved"
	EventContractRejected  = "contract_rejected"
)

const defaultNotifyTimeout = 10 * time.Second

// Notifier delivers workflow notifications. Calls return immediately and
// delivery failures never reach the caller.
type Notifier interface {
	PaymentPaid(ctx context.Context, payment *entities.Payment)
	ContractSubmitted(ctx context.Context, contract *entities.Contract)
	ContractReviewed(ctx context.Context, contract *entities.Contract)
}

// NotificationUsecase sends Alimtalk messages for workflow events.
type NotificationUsecase struct {
	userRepo repositories.UserRepository
	sender   AlimtalkSender
	metrics  *metrics.Metrics
	timeout  time.Duration
	printer  *message.Printer
	wg       sync.WaitGroup
}

// NewNotificationUsecase creates a new notification usecase
func NewNotificationUsecase(userRepo repositories.UserRepository, sender AlimtalkSender, m *metrics.Metrics, timeout time.Duration) *NotificationUsecase {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationUsecase{
		userRepo: userRepo,
		sender:   sender,
		metrics:  m,
		timeout:  timeout,
		printer:  message.NewPrinter(language.Korean),
	}
}

func (u *NotificationUsecase) PaymentPaid(ctx context.Context, payment *entities.Payment) {
	msg := u.printer.Sprintf("[KailosPay] 결제가 완료되었습니다.\n결제명: %s\n금액: %d원\n주문번호: %s",
		payment.Title, payment.Amount, payment.OrderID.String())
	u.dispatch(ctx, EventPaymentPaid, payment.UserID, msg)
}

func (u *NotificationUsecase) ContractSubmitted(ctx context.Context, contract *entities.Contract) {
	msg := u.printer.Sprintf("[KailosPay] 계약 서류가 제출되었습니다.\n계약명: %s\n심사가 완료되면 다시 알려드립니다.", contract.Title)
	u.dispatch(ctx, EventContractSubmitted, contract.UserID, msg)
}

func (u *NotificationUsecase) ContractReviewed(ctx context.Context, contract *entities.Contract) {
	switch contract.Status {
	case entities.ContractApproved:
		msg := u.printer.Sprintf("[KailosPay] 계약이 승인되었습니다.\n계약명: %s\n이제 결제를 진행할 수 있습니다.", contract.Title)
		u.dispatch(ctx, EventContractApproved, contract.UserID, msg)
	case entities.ContractRejected:
		reason := contract.RejectedReason.String
		if reason == "" {
			reason = "-"
		}
		msg := u.printer.Sprintf("[KailosPay] 계약이 반려되었습니다.\n계약명: %s\n사유: %s", contract.Title, reason)
		u.dispatch(ctx, EventContractRejected, contract.UserID, msg)
	}
}

// Wait blocks until every in-flight notification finished.
func (u *NotificationUsecase) Wait() {
	u.wg.Wait()
}

// SendTest sends one message synchronously for the admin test route.
func (u *NotificationUsecase) SendTest(ctx context.Context, phone, text, templateID string) (*vendors.AlimtalkResult, error) {
	if strings.TrimSpace(phone) == "" || strings.TrimSpace(text) == "" {
		return nil, domainerrors.BadRequest("phone and message are required")
	}
	res, err := u.sender.Send(detach(ctx), vendors.AlimtalkMessage{
		Phone:      phone,
		Message:    text,
		TemplateID: templateID,
	})
	if err != nil {
		u.metrics.IncNotification("test", "failed")
		if vendors.IsKind(err, vendors.KindConfig) {
			return nil, domainerrors.BadRequest("invalid notification request")
		}
		return nil, upstreamError("notification delivery failed", err)
	}
	u.metrics.IncNotification("test", "sent")
	return res, nil
}

func (u *NotificationUsecase) dispatch(ctx context.Context, event string, userID uuid.UUID, text string) {
	if !u.sender.Enabled() {
		u.metrics.IncNotification(event, "skipped")
		return
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		sendCtx, cancel := context.WithTimeout(detach(ctx), u.timeout)
		defer cancel()

		user, err := u.userRepo.GetByID(sendCtx, userID)
		if err != nil {
			u.metrics.IncNotification(event, "failed")
			logger.Warn(sendCtx, "Notification recipient lookup failed", zap.String("event", event), zap.Error(err))
			return
		}
		if user.Phone == "" {
			u.metrics.IncNotification(event, "skipped")
			return
		}

		if _, err := u.sender.Send(sendCtx, vendors.AlimtalkMessage{Phone: user.Phone, Message: text}); err != nil {
			u.metrics.IncNotification(event, "failed")
			logger.Warn(sendCtx, "Notification delivery failed",
				zap.String("event", event),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			return
		}
		u.metrics.IncNotification(event, "sent")
		logger.Debug(sendCtx, "Notification sent", zap.String("event", event), zap.String("user_id", userID.String()))
	}()
}
