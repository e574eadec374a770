package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/metrics"
	"kailospay.backend/pkg/utils"
)

// VerificationStore is the only writer of verification state: the
// append-only event log and the statuses cached on the user.
type VerificationStore struct {
	users         repositories.UserRepository
	events        repositories.VerificationEventRepository
	uploads       repositories.UploadRepository
	contracts     repositories.ContractRepository
	contractFiles repositories.ContractFileRepository
	uow           repositories.UnitOfWork
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewVerificationStore creates a new verification store
func NewVerificationStore(
	users repositories.UserRepository,
	events repositories.VerificationEventRepository,
	uploads repositories.UploadRepository,
	contracts repositories.ContractRepository,
	contractFiles repositories.ContractFileRepository,
	uow repositories.UnitOfWork,
	m *metrics.Metrics,
) *VerificationStore {
	return &VerificationStore{
		users:         users,
		events:        events,
		uploads:       uploads,
		contracts:     contracts,
		contractFiles: contractFiles,
		uow:           uow,
		metrics:       m,
		now:           time.Now,
	}
}

// RecordEvent appends one attempt to the audit log. A failed write is
// always returned to the caller.
func (s *VerificationStore) RecordEvent(ctx context.Context, event *entities.VerificationEvent) (uuid.UUID, error) {
	if event.ID == uuid.Nil {
		event.ID = utils.GenerateUUIDv7()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if err := s.events.Create(ctx, event); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record verification event: %w", err)
	}
	s.metrics.IncVerification(string(event.Kind), string(event.Status))
	return event.ID, nil
}

// ApplyStatus moves the cached status for kind to status. Identity events
// drive the eKYC status; account and realname events drive the account
// status. Illegal edges return ErrInvalidTransition.
func (s *VerificationStore) ApplyStatus(ctx context.Context, userID uuid.UUID, kind entities.VerificationKind, status string) error {
	return s.uow.Do(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(s.uow.WithLock(txCtx), userID)
		if err != nil {
			return err
		}

		switch kind {
		case entities.VerificationIDCard:
			next := entities.EkycStatus(status)
			if !next.Valid() || !user.EkycStatus.CanTransitionTo(next) {
				return fmt.Errorf("ekyc %s -> %s: %w", user.EkycStatus, next, domainerrors.ErrInvalidTransition)
			}
			return s.users.UpdateEkycStatus(txCtx, userID, next)
		case entities.VerificationAccount, entities.VerificationRealname:
			next := entities.AccountStatus(status)
			if !next.Valid() || !user.AccountStatus.CanTransitionTo(next) {
				return fmt.Errorf("account %s -> %s: %w", user.AccountStatus, next, domainerrors.ErrInvalidTransition)
			}
			return s.users.UpdateAccountStatus(txCtx, userID, next)
		}
		return fmt.Errorf("unknown verification kind %q: %w", kind, domainerrors.ErrInvalidInput)
	})
}

// ApplyStatusIfAllowed is ApplyStatus for saga steps where an illegal edge
// (e.g. failing an already verified account) is expected and ignored.
func (s *VerificationStore) ApplyStatusIfAllowed(ctx context.Context, userID uuid.UUID, kind entities.VerificationKind, status string) error {
	err := s.ApplyStatus(ctx, userID, kind, status)
	if errors.Is(err, domainerrors.ErrInvalidTransition) {
		logger.Debug(ctx, "Verification status unchanged",
			zap.String("user_id", userID.String()),
			zap.String("kind", string(kind)),
			zap.String("status", status),
		)
		return nil
	}
	return err
}

// IsPaymentEligible evaluates the payment predicate. Contract flows also
// need a verified account and an approved contract owned by the user.
func (s *VerificationStore) IsPaymentEligible(ctx context.Context, userID uuid.UUID, category entities.Category, contractID *uuid.UUID) (*entities.Eligibility, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	el := &entities.Eligibility{
		EkycVerified:    user.EkycStatus == entities.EkycVerified,
		AccountVerified: user.AccountStatus == entities.AccountVerified,
	}

	approved, err := s.uploads.CountForUser(ctx, userID, category, entities.DocumentApproved)
	if err != nil {
		return nil, err
	}
	el.DocumentApproved = approved > 0

	if contractID != nil {
		contract, err := s.contracts.GetByID(ctx, *contractID)
		if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
		if contract != nil && contract.UserID == userID {
			el.ContractApproved = contract.Status == entities.ContractApproved
			files, err := s.contractFiles.CountByContract(ctx, contract.ID, entities.DocumentApproved)
			if err != nil {
				return nil, err
			}
			el.DocumentApproved = el.DocumentApproved || files > 0
		}
	}

	if !el.EkycVerified {
		el.Reasons = append(el.Reasons, entities.ReasonEkycNotVerified)
	}
	if !el.DocumentApproved {
		el.Reasons = append(el.Reasons, entities.ReasonNoApprovedDocument)
	}
	if contractID != nil {
		if !el.AccountVerified {
			el.Reasons = append(el.Reasons, entities.ReasonAccountNotVerified)
		}
		if !el.ContractApproved {
			el.Reasons = append(el.Reasons, entities.ReasonContractNotReady)
		}
	}
	el.Eligible = len(el.Reasons) == 0
	return el, nil
}
