package usecases

import (
	"context"
	"errors"
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
	"kailospay.backend/pkg/ratelimit"
	"kailospay.backend/pkg/utils"
)

const oneWonVerifyType = "TEXT"

// OneWonUsecase runs the 1-won deposit saga: start, then confirm the memo.
type OneWonUsecase struct {
	oneWonRepo   repositories.OneWonRepository
	contractRepo repositories.ContractRepository
	store        *VerificationStore
	vendor       DepositVerifier
	limiter      ratelimit.RateLimiter
	startLimit   ratelimit.Limit
	now          func() time.Time
}

// NewOneWonUsecase creates a new 1-won usecase
func NewOneWonUsecase(
	oneWonRepo repositories.OneWonRepository,
	contractRepo repositories.ContractRepository,
	store *VerificationStore,
	vendor DepositVerifier,
	limiter ratelimit.RateLimiter,
	startLimit ratelimit.Limit,
) *OneWonUsecase {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	return &OneWonUsecase{
		oneWonRepo:   oneWonRepo,
		contractRepo: contractRepo,
		store:        store,
		vendor:       vendor,
		limiter:      limiter,
		startLimit:   startLimit,
		now:          time.Now,
	}
}

// Start sends the deposit and marks the user's account verification pending.
func (u *OneWonUsecase) Start(ctx context.Context, userID uuid.UUID, input *entities.OneWonStartInput) (*entities.OneWonStartResult, error) {
	accountNo := utils.DigitsOnly(input.AccountNo)
	if accountNo == "" || strings.TrimSpace(input.BankCode) == "" || strings.TrimSpace(input.AccountName) == "" {
		return nil, domainerrors.BadRequest("bankCode, accountNo and accountName are required")
	}

	contractRef, err := ownedContractRef(ctx, u.contractRepo, userID, input.ContractID)
	if err != nil {
		return nil, err
	}

	if err := u.allowStart(ctx, userID); err != nil {
		return nil, err
	}

	started, err := u.vendor.Start(detach(ctx), vendors.OneWonStart{
		BankCode:  strings.TrimSpace(input.BankCode),
		AccountNo: accountNo,
		Name:      strings.TrimSpace(input.AccountName),
	})
	if err != nil {
		u.recordAccountEvent(ctx, userID, contractRef, entities.VerificationError, nil)
		return nil, upstreamError("account verification unavailable", err)
	}

	row := &entities.OneWonVerification{
		ID:          utils.GenerateUUIDv7(),
		UserID:      userID,
		ContractID:  contractRef,
		RequestID:   started.RequestID,
		VerifyType:  oneWonVerifyType,
		Code:        null.NewString(started.Code, started.Code != ""),
		BankCode:    strings.TrimSpace(input.BankCode),
		AccountNo:   accountNo,
		AccountName: strings.TrimSpace(input.AccountName),
		Status:      entities.OneWonPending,
		ProviderRaw: started.Raw,
		CreatedAt:   u.now(),
	}
	if err := u.oneWonRepo.Create(ctx, row); err != nil {
		return nil, err
	}

	if err := u.store.ApplyStatusIfAllowed(ctx, userID, entities.VerificationAccount, string(entities.AccountPending)); err != nil {
		return nil, err
	}

	logger.Info(ctx, "1-won verification started",
		zap.String("user_id", userID.String()),
		zap.String("request_id", row.RequestID),
	)
	return &entities.OneWonStartResult{
		RequestID: row.RequestID,
		Provider:  vendors.VendorOneWon,
		TestMode:  u.vendor.TestMode(),
	}, nil
}

// Confirm checks the memo the user saw on their statement. Only the user who
// started the request may confirm it, and only once.
func (u *OneWonUsecase) Confirm(ctx context.Context, userID uuid.UUID, input *entities.OneWonConfirmInput) (*entities.OneWonVerification, error) {
	value := strings.TrimSpace(input.Value())
	if strings.TrimSpace(input.RequestID) == "" || value == "" {
		return nil, domainerrors.BadRequest("requestId and code are required")
	}

	row, err := u.oneWonRepo.GetByRequestID(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("verification request not found")
		}
		return nil, err
	}
	if row.UserID != userID {
		return nil, domainerrors.NotFound("verification request not found")
	}
	if row.Status != entities.OneWonPending {
		return nil, domainerrors.Conflict("verification request already completed").WithReason(string(row.Status))
	}

	confirmed, vendorErr := u.vendor.Confirm(detach(ctx), row.RequestID, value)
	success := vendorErr == nil && confirmed.Success

	row.Status = entities.OneWonFailed
	eventStatus := entities.VerificationRejected
	accountStatus := entities.AccountFailed
	if success {
		row.Status = entities.OneWonConfirmed
		eventStatus = entities.VerificationVerified
		accountStatus = entities.AccountVerified
	}
	if vendorErr != nil {
		eventStatus = entities.VerificationError
	}
	var raw []byte
	if confirmed != nil {
		raw = confirmed.Raw
		row.ProviderRaw = confirmed.Raw
	}
	row.ConfirmedAt = null.TimeFrom(u.now())

	if err := u.oneWonRepo.Complete(ctx, row); err != nil {
		if errors.Is(err, domainerrors.ErrInvalidTransition) {
			return nil, domainerrors.Conflict("verification request already completed")
		}
		return nil, err
	}

	if _, err := u.recordAccountEventStrict(ctx, userID, row.ContractID, eventStatus, raw); err != nil {
		return nil, err
	}

	if success {
		err = u.store.ApplyStatus(ctx, userID, entities.VerificationAccount, string(accountStatus))
	} else {
		err = u.store.ApplyStatusIfAllowed(ctx, userID, entities.VerificationAccount, string(accountStatus))
	}
	if err != nil {
		return nil, err
	}

	if vendorErr != nil {
		return nil, upstreamError("account verification unavailable", vendorErr)
	}
	if !success {
		logger.Info(ctx, "1-won verification failed",
			zap.String("user_id", userID.String()),
			zap.String("request_id", row.RequestID),
		)
		return nil, domainerrors.BadRequest("account verification failed").WithReason("onewon_failed")
	}

	logger.Info(ctx, "1-won verification confirmed",
		zap.String("user_id", userID.String()),
		zap.String("request_id", row.RequestID),
	)
	return row, nil
}

func (u *OneWonUsecase) allowStart(ctx context.Context, userID uuid.UUID) error {
	if u.startLimit.Rate <= 0 {
		return nil
	}
	res, err := u.limiter.Allow(ctx, "onewon:start:"+userID.String(), u.startLimit)
	if err != nil {
		logger.Warn(ctx, "1-won rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return domainerrors.TooManyRequests("too many verification attempts").
			WithDetail("retryAfter", int64(res.RetryAfter.Seconds()))
	}
	return nil
}

func (u *OneWonUsecase) recordAccountEventStrict(ctx context.Context, userID uuid.UUID, contractRef uuid.NullUUID, status entities.VerificationStatus, raw []byte) (uuid.UUID, error) {
	return u.store.RecordEvent(ctx, &entities.VerificationEvent{
		UserID:     uuid.NullUUID{UUID: userID, Valid: true},
		ContractID: contractRef,
		Kind:       entities.VerificationAccount,
		Provider:   vendors.VendorOneWon,
		Status:     status,
		Raw:        raw,
	})
}

// recordAccountEvent audits a failed start; the vendor error wins over a
// failed audit write.
func (u *OneWonUsecase) recordAccountEvent(ctx context.Context, userID uuid.UUID, contractRef uuid.NullUUID, status entities.VerificationStatus, raw []byte) {
	if _, err := u.recordAccountEventStrict(ctx, userID, contractRef, status, raw); err != nil {
		logger.Error(ctx, "Failed to record account event", zap.Error(err))
	}
}

// ownedContractRef resolves an optional contract id that must belong to userID.
func ownedContractRef(ctx context.Context, repo repositories.ContractRepository, userID uuid.UUID, contractID *uuid.UUID) (uuid.NullUUID, error) {
	if contractID == nil {
		return uuid.NullUUID{}, nil
	}
	contract, err := repo.GetByID(ctx, *contractID)
	if err != nil {
		return uuid.NullUUID{}, err
	}
	if contract.UserID != userID {
		return uuid.NullUUID{}, domainerrors.NotFound("contract not found")
	}
	return uuid.NullUUID{UUID: contract.ID, Valid: true}, nil
}
