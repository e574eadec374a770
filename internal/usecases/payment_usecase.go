package usecases

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/metrics"
	"kailospay.backend/pkg/utils"
)

// DefaultPaymentTitle is used when the client sends no title.
const DefaultPaymentTitle = "임대료/월세 결제"

// PaymentUsecase creates payments and drives them through the hosted
// payment page.
type PaymentUsecase struct {
	paymentRepo repositories.PaymentRepository
	uow         repositories.UnitOfWork
	store       *VerificationStore
	gateway     PaymentGateway
	notifier    Notifier
	metrics     *metrics.Metrics
	returnURL   string
	now         func() time.Time
	newOrderID  func() uuid.UUID
}

// NewPaymentUsecase creates a new payment usecase
func NewPaymentUsecase(
	paymentRepo repositories.PaymentRepository,
	uow repositories.UnitOfWork,
	store *VerificationStore,
	gateway PaymentGateway,
	notifier Notifier,
	m *metrics.Metrics,
	returnURL string,
) *PaymentUsecase {
	return &PaymentUsecase{
		paymentRepo: paymentRepo,
		uow:         uow,
		store:       store,
		gateway:     gateway,
		notifier:    notifier,
		metrics:     m,
		returnURL:   returnURL,
		now:         time.Now,
		newOrderID:  uuid.New,
	}
}

// CanPay evaluates eligibility without creating anything.
func (u *PaymentUsecase) CanPay(ctx context.Context, userID uuid.UUID, category entities.Category, contractID *uuid.UUID) (*entities.Eligibility, error) {
	category, err := paymentCategory(category)
	if err != nil {
		return nil, err
	}
	return u.store.IsPaymentEligible(ctx, userID, category, contractID)
}

// Create checks eligibility and inserts a pending payment in one transaction.
func (u *PaymentUsecase) Create(ctx context.Context, userID uuid.UUID, input *entities.CreatePaymentInput) (*entities.Payment, error) {
	if input.Amount <= 0 {
		return nil, domainerrors.BadRequest("amount must be a positive integer")
	}
	if !input.Method.Valid() {
		return nil, domainerrors.BadRequest("invalid payment method")
	}
	category, err := paymentCategory(input.Category)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = DefaultPaymentTitle
	}

	now := u.now()
	payment := &entities.Payment{
		ID:           utils.GenerateUUIDv7(),
		OrderID:      u.newOrderID(),
		UserID:       userID,
		Category:     category,
		Title:        title,
		Amount:       input.Amount,
		Status:       entities.PaymentPending,
		Method:       input.Method,
		CustomerName: optionalString(input.CustomerName),
		Email:        optionalString(input.Email),
		Phone:        optionalString(input.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.ContractID != nil {
		payment.ContractID = uuid.NullUUID{UUID: *input.ContractID, Valid: true}
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		el, err := u.store.IsPaymentEligible(txCtx, userID, category, input.ContractID)
		if err != nil {
			return err
		}
		if !el.Eligible {
			return domainerrors.NotEligible("payment requirements not met").
				WithReason(el.Reasons[0]).
				WithDetail("reasons", el.Reasons)
		}
		return u.paymentRepo.Create(txCtx, payment)
	})
	if err != nil {
		return nil, err
	}

	u.metrics.IncPaymentTransition(string(entities.PaymentPending))
	logger.Info(ctx, "Payment created",
		zap.String("order_id", payment.OrderID.String()),
		zap.Int64("amount", payment.Amount),
	)
	return payment, nil
}

// ListMine lists the caller's payments, newest first.
func (u *PaymentUsecase) ListMine(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.Payment, *utils.PaginationMeta, error) {
	p := utils.GetPaginationParams(page, limit)
	items, total, err := u.paymentRepo.ListByUser(ctx, userID, p.Limit, p.CalculateOffset())
	if err != nil {
		return nil, nil, err
	}
	meta := utils.CalculateMeta(total, p.Page, p.Limit)
	return items, &meta, nil
}

// Prepare builds the hosted payment page form for a pending payment and
// moves it to ready. A ready payment gets a fresh form.
func (u *PaymentUsecase) Prepare(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (*entities.Payment, *entities.GatewayAuthForm, error) {
	payment, err := u.ownedPayment(ctx, userID, orderID)
	if err != nil {
		return nil, nil, err
	}
	if payment.Status != entities.PaymentPending && payment.Status != entities.PaymentReady {
		return nil, nil, domainerrors.Conflict("payment is already completed").WithReason(string(payment.Status))
	}

	reserved, err := json.Marshal(map[string]string{"uid": userID.String()})
	if err != nil {
		return nil, nil, err
	}
	form, err := u.gateway.BuildAuthForm(vendors.AuthOrder{
		OrderID:    payment.OrderID.String(),
		Amount:     payment.Amount,
		Title:      payment.Title,
		Method:     payment.Method,
		BuyerName:  payment.CustomerName.String,
		BuyerTel:   payment.Phone.String,
		BuyerEmail: payment.Email.String,
		ClientIP:   clientIP,
		Reserved:   string(reserved),
		ReturnURL:  u.returnURL,
	})
	if err != nil {
		return nil, nil, upstreamError("payment gateway not configured", err)
	}

	if payment.Status == entities.PaymentPending {
		if err := u.transition(ctx, payment.OrderID, entities.PaymentTransition{To: entities.PaymentReady}); err != nil {
			return nil, nil, err
		}
		payment.Status = entities.PaymentReady
	}
	return payment, form, nil
}

// Status returns one of the caller's payments by order id.
func (u *PaymentUsecase) Status(ctx context.Context, userID, orderID uuid.UUID) (*entities.Payment, error) {
	return u.ownedPayment(ctx, userID, orderID)
}

func (u *PaymentUsecase) ownedPayment(ctx context.Context, userID, orderID uuid.UUID) (*entities.Payment, error) {
	payment, err := u.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, domainerrors.NotFound("payment not found")
	}
	return payment, nil
}

// transition applies a conditional status change and counts it.
func (u *PaymentUsecase) transition(ctx context.Context, orderID uuid.UUID, tr entities.PaymentTransition) error {
	if tr.At.IsZero() {
		tr.At = u.now()
	}
	if err := u.paymentRepo.Transition(ctx, orderID, tr); err != nil {
		return err
	}
	u.metrics.IncPaymentTransition(string(tr.To))
	return nil
}

func paymentCategory(c entities.Category) (entities.Category, error) {
	if c == "" {
		return entities.CategoryRent, nil
	}
	if !c.Payable() {
		return "", domainerrors.BadRequest("invalid category")
	}
	return c, nil
}

func resultFields(code, message string) (null.String, null.String) {
	return null.NewString(code, code != ""), null.NewString(message, message != "")
}
