package usecases

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/utils"
)

// RealnameUsecase verifies account ownership by comparing the registered
// holder name with the name the user typed.
type RealnameUsecase struct {
	store  *VerificationStore
	lookup RealnameLookup
}

// NewRealnameUsecase creates a new realname usecase
func NewRealnameUsecase(store *VerificationStore, lookup RealnameLookup) *RealnameUsecase {
	return &RealnameUsecase{store: store, lookup: lookup}
}

// Verify never returns a vendor error: vendor problems become a
// vendor_failed outcome. Only a match changes state.
func (u *RealnameUsecase) Verify(ctx context.Context, userID uuid.UUID, input *entities.RealnameInput) (*entities.RealnameOutcome, error) {
	accountNo := utils.DigitsOnly(input.AccountNo)
	if accountNo == "" || strings.TrimSpace(input.BankCode) == "" || strings.TrimSpace(input.AccountName) == "" {
		return nil, domainerrors.BadRequest("bankCode, accountNo and accountName are required")
	}

	if u.lookup.TestMode() {
		if err := u.verified(ctx, userID, nil, entities.RealnameTestMode); err != nil {
			return nil, err
		}
		return &entities.RealnameOutcome{Matched: true, Reason: entities.RealnameTestMode}, nil
	}

	res, err := u.lookup.Realname(detach(ctx), strings.TrimSpace(input.BankCode), accountNo)
	if err != nil || !res.Success {
		logger.Warn(ctx, "Realname lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		u.audit(ctx, userID, entities.VerificationError, res, entities.RealnameVendorFailed)
		return &entities.RealnameOutcome{Reason: entities.RealnameVendorFailed}, nil
	}
	if strings.TrimSpace(res.HolderName) == "" {
		u.audit(ctx, userID, entities.VerificationRejected, res, entities.RealnameNoVendorName)
		return &entities.RealnameOutcome{Reason: entities.RealnameNoVendorName}, nil
	}
	if !utils.NamesMatch(res.HolderName, input.AccountName) {
		u.audit(ctx, userID, entities.VerificationRejected, res, entities.RealnameNameMismatched)
		return &entities.RealnameOutcome{Reason: entities.RealnameNameMismatched}, nil
	}

	if err := u.verified(ctx, userID, res, entities.RealnameNameMatched); err != nil {
		return nil, err
	}
	return &entities.RealnameOutcome{Matched: true, Reason: entities.RealnameNameMatched}, nil
}

func (u *RealnameUsecase) verified(ctx context.Context, userID uuid.UUID, res *vendors.RealnameResult, reason string) error {
	if _, err := u.store.RecordEvent(ctx, realnameEvent(userID, entities.VerificationVerified, res, reason)); err != nil {
		return err
	}
	return u.store.ApplyStatus(ctx, userID, entities.VerificationRealname, string(entities.AccountVerified))
}

// audit records a non-matching attempt. The outcome is reported either way.
func (u *RealnameUsecase) audit(ctx context.Context, userID uuid.UUID, status entities.VerificationStatus, res *vendors.RealnameResult, reason string) {
	if _, err := u.store.RecordEvent(ctx, realnameEvent(userID, status, res, reason)); err != nil {
		logger.Error(ctx, "Failed to record realname event", zap.Error(err))
	}
}

func realnameEvent(userID uuid.UUID, status entities.VerificationStatus, res *vendors.RealnameResult, reason string) *entities.VerificationEvent {
	event := &entities.VerificationEvent{
		UserID:   uuid.NullUUID{UUID: userID, Valid: true},
		Kind:     entities.VerificationRealname,
		Provider: vendors.VendorApick,
		Status:   status,
		State:    null.StringFrom(reason),
	}
	if res != nil {
		event.Raw = res.Raw
	}
	return event
}
