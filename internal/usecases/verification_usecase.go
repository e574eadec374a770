package usecases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/pkg/logger"
)

const eventLogLimit = 100

// VerificationUsecase covers identity re-verification and verification reads.
type VerificationUsecase struct {
	userRepo      repositories.UserRepository
	eventRepo     repositories.VerificationEventRepository
	oneWonRepo    repositories.OneWonRepository
	uploadRepo    repositories.UploadRepository
	contractRepo  repositories.ContractRepository
	store         *VerificationStore
	identity      IdentityVerifier
	maxImageBytes int64
}

// NewVerificationUsecase creates a new verification usecase
func NewVerificationUsecase(
	userRepo repositories.UserRepository,
	eventRepo repositories.VerificationEventRepository,
	oneWonRepo repositories.OneWonRepository,
	uploadRepo repositories.UploadRepository,
	contractRepo repositories.ContractRepository,
	store *VerificationStore,
	identity IdentityVerifier,
	maxImageBytes int64,
) *VerificationUsecase {
	return &VerificationUsecase{
		userRepo:      userRepo,
		eventRepo:     eventRepo,
		oneWonRepo:    oneWonRepo,
		uploadRepo:    uploadRepo,
		contractRepo:  contractRepo,
		store:         store,
		identity:      identity,
		maxImageBytes: maxImageBytes,
	}
}

// VerifyIDCard re-runs identity verification for a signed-in user, e.g. for
// a rent contract. A rejection never downgrades an already verified user.
func (u *VerificationUsecase) VerifyIDCard(ctx context.Context, userID uuid.UUID, contractID *uuid.UUID, doc *entities.IdentityDocument) (*entities.IdentityOutcome, error) {
	if err := checkIdentityImage(doc, u.maxImageBytes); err != nil {
		return nil, err
	}

	contractRef, err := ownedContractRef(ctx, u.contractRepo, userID, contractID)
	if err != nil {
		return nil, err
	}
	userRef := uuid.NullUUID{UUID: userID, Valid: true}

	res, err := u.identity.VerifyIDCard(detach(ctx), *doc)
	if err != nil {
		recordIdentityError(ctx, u.store, userRef, contractRef, err)
		return nil, upstreamError("identity verification unavailable", err)
	}

	event := identityEvent(res)
	event.UserID = userRef
	event.ContractID = contractRef
	if _, err := u.store.RecordEvent(ctx, event); err != nil {
		return nil, err
	}

	next := entities.EkycRejected
	if res.Verified {
		next = entities.EkycVerified
	}
	if err := u.store.ApplyStatusIfAllowed(ctx, userID, entities.VerificationIDCard, string(next)); err != nil {
		return nil, err
	}

	if !res.Verified {
		logger.Info(ctx, "Identity re-verification rejected",
			zap.String("user_id", userID.String()),
			zap.String("state", res.State),
		)
		return nil, identityRejected(res)
	}

	return &entities.IdentityOutcome{
		Verified: true,
		Score:    res.Score,
		State:    event.State,
	}, nil
}

// Summary reports the caller's verification progress.
func (u *VerificationUsecase) Summary(ctx context.Context, userID uuid.UUID) (*entities.VerificationSummary, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	latestEvent, err := u.eventRepo.LatestByUser(ctx, userID, entities.VerificationIDCard)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}
	latestRequest, err := u.oneWonRepo.LatestByUser(ctx, userID)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	approved, err := u.uploadRepo.CountForUser(ctx, userID, "", entities.DocumentApproved)
	if err != nil {
		return nil, err
	}
	pending, err := u.uploadRepo.CountForUser(ctx, userID, "", entities.DocumentPending)
	if err != nil {
		return nil, err
	}

	return &entities.VerificationSummary{
		Ekyc: entities.EkycSummary{
			Status:      user.EkycStatus,
			VerifiedAt:  user.EkycVerifiedAt,
			LatestEvent: latestEvent,
		},
		Account: entities.AccountSummary{
			Status:        user.AccountStatus,
			LatestRequest: latestRequest,
		},
		Document: entities.DocumentSummary{
			Approved: approved,
			Pending:  pending,
		},
		VerifiedForPayment: user.EkycStatus == entities.EkycVerified &&
			user.AccountStatus == entities.AccountVerified &&
			approved > 0,
	}, nil
}

// ContractStatus reports the latest id-card check the caller made for one of
// their contracts. Another user's contract reads as not found.
func (u *VerificationUsecase) ContractStatus(ctx context.Context, userID, contractID uuid.UUID) (*entities.ContractEkycStatus, error) {
	ref, err := ownedContractRef(ctx, u.contractRepo, userID, &contractID)
	if err != nil {
		return nil, err
	}
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := u.eventRepo.LatestByContract(ctx, userID, ref.UUID, entities.VerificationIDCard)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}
	return &entities.ContractEkycStatus{
		ContractID:  ref.UUID,
		UserEkyc:    user.EkycStatus,
		LatestEvent: latest,
	}, nil
}

// Events returns a user's verification history, newest first.
func (u *VerificationUsecase) Events(ctx context.Context, userID uuid.UUID) ([]*entities.VerificationEvent, error) {
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return u.eventRepo.ListByUser(ctx, userID, eventLogLimit)
}
