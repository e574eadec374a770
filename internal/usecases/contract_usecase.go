package usecases

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/internal/infrastructure/storage"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/utils"
)

// ContractUsecase manages contracts, their attachments and their review.
type ContractUsecase struct {
	contractRepo repositories.ContractRepository
	fileRepo     repositories.ContractFileRepository
	uow          repositories.UnitOfWork
	files        FileStore
	notifier     Notifier
	maxFileSize  int64
	maxFiles     int
	now          func() time.Time
}

// NewContractUsecase creates a new contract usecase
func NewContractUsecase(
	contractRepo repositories.ContractRepository,
	fileRepo repositories.ContractFileRepository,
	uow repositories.UnitOfWork,
	files FileStore,
	notifier Notifier,
	maxFileSize int64,
	maxFiles int,
) *ContractUsecase {
	return &ContractUsecase{
		contractRepo: contractRepo,
		fileRepo:     fileRepo,
		uow:          uow,
		files:        files,
		notifier:     notifier,
		maxFileSize:  maxFileSize,
		maxFiles:     maxFiles,
		now:          time.Now,
	}
}

// Create starts a draft contract.
func (u *ContractUsecase) Create(ctx context.Context, userID uuid.UUID, input *entities.CreateContractInput) (*entities.Contract, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainerrors.BadRequest("title is required")
	}
	if !input.Category.Payable() {
		return nil, domainerrors.BadRequest("invalid category")
	}

	now := u.now()
	contract := &entities.Contract{
		ID:             utils.GenerateUUIDv7(),
		UserID:         userID,
		Title:          title,
		Category:       input.Category,
		Amount:         null.Int64FromPtr(input.Amount),
		Counterparty:   optionalString(input.CounterpartyName),
		CounterAccount: optionalString(input.CounterpartyAccount),
		Memo:           optionalString(input.Memo),
		Status:         entities.ContractDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.contractRepo.Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// ListMine lists the caller's contracts, newest first.
func (u *ContractUsecase) ListMine(ctx context.Context, userID uuid.UUID) ([]*entities.Contract, error) {
	return u.contractRepo.ListByUser(ctx, userID)
}

// Get returns one of the caller's contracts.
func (u *ContractUsecase) Get(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error) {
	return u.owned(ctx, userID, id)
}

// Update edits a draft or rejected contract.
func (u *ContractUsecase) Update(ctx context.Context, userID, id uuid.UUID, input *entities.UpdateContractInput) (*entities.Contract, error) {
	contract, err := u.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !contract.Status.Editable() {
		return nil, domainerrors.Conflict("contract can no longer be edited").WithReason(string(contract.Status))
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, domainerrors.BadRequest("title cannot be empty")
		}
		contract.Title = title
	}
	if input.Category != nil {
		if !input.Category.Payable() {
			return nil, domainerrors.BadRequest("invalid category")
		}
		contract.Category = *input.Category
	}
	if input.Amount != nil {
		contract.Amount = null.Int64From(*input.Amount)
	}
	if input.CounterpartyName != nil {
		contract.Counterparty = optionalString(*input.CounterpartyName)
	}
	if input.CounterpartyAccount != nil {
		contract.CounterAccount = optionalString(*input.CounterpartyAccount)
	}
	if input.Memo != nil {
		contract.Memo = optionalString(*input.Memo)
	}

	if err := u.contractRepo.Update(ctx, contract, entities.ContractDraft, entities.ContractRejected); err != nil {
		return nil, editConflict(err)
	}
	return contract, nil
}

// Submit sends a contract with at least one attachment for review.
func (u *ContractUsecase) Submit(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error) {
	contract, err := u.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !contract.Status.CanTransitionTo(entities.ContractSubmitted) {
		return nil, domainerrors.Conflict("contract cannot be submitted").WithReason(string(contract.Status))
	}

	n, err := u.fileRepo.CountByContract(ctx, contract.ID, "")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, domainerrors.BadRequest("at least one file is required").WithReason("no_files")
	}

	contract.Status = entities.ContractSubmitted
	contract.SubmittedAt = null.TimeFrom(u.now())
	contract.RejectedReason = null.String{}
	if err := u.contractRepo.Update(ctx, contract, entities.ContractDraft, entities.ContractRejected); err != nil {
		return nil, editConflict(err)
	}

	logger.Info(ctx, "Contract submitted", zap.String("contract_id", contract.ID.String()))
	u.notifier.ContractSubmitted(ctx, contract)
	return contract, nil
}

// AddFiles attaches files to an editable contract.
func (u *ContractUsecase) AddFiles(ctx context.Context, userID, id uuid.UUID, docType string, files []entities.IncomingFile) ([]*entities.ContractFile, error) {
	contract, err := u.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !contract.Status.Editable() {
		return nil, domainerrors.Conflict("contract can no longer be edited").WithReason(string(contract.Status))
	}

	stored, err := storeAll(u.files, storage.AreaContracts, files, u.maxFiles, u.maxFileSize)
	if err != nil {
		return nil, err
	}

	now := u.now()
	docType = strings.TrimSpace(docType)
	out := make([]*entities.ContractFile, 0, len(stored))
	for i, s := range stored {
		out = append(out, &entities.ContractFile{
			ID:           utils.GenerateUUIDv7(),
			ContractID:   contract.ID,
			UserID:       userID,
			OriginalName: files[i].Filename,
			Mime:         files[i].ContentType,
			Size:         s.Size,
			SavedName:    s.SavedName,
			DocType:      optionalString(docType),
			Status:       entities.DocumentPending,
			CreatedAt:    now,
		})
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		for _, f := range out {
			if err := u.fileRepo.Create(txCtx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		removeAll(ctx, u.files, storage.AreaContracts, stored)
		return nil, err
	}
	return out, nil
}

// ListFiles lists a contract's attachments for its owner or an admin.
func (u *ContractUsecase) ListFiles(ctx context.Context, actor entities.Actor, id uuid.UUID) ([]*entities.ContractFile, error) {
	if _, err := u.accessible(ctx, actor, id); err != nil {
		return nil, err
	}
	return u.fileRepo.ListByContract(ctx, id)
}

// OpenFile returns an attachment and its content for the owner or an admin.
func (u *ContractUsecase) OpenFile(ctx context.Context, actor entities.Actor, contractID, fileID uuid.UUID) (*entities.ContractFile, *os.File, error) {
	if _, err := u.accessible(ctx, actor, contractID); err != nil {
		return nil, nil, err
	}
	file, err := u.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if file.ContractID != contractID {
		return nil, nil, domainerrors.NotFound("file not found")
	}
	f, err := u.files.Open(storage.AreaContracts, file.SavedName)
	if err != nil {
		return nil, nil, err
	}
	return file, f, nil
}

// ListAll lists contracts for the back office.
func (u *ContractUsecase) ListAll(ctx context.Context, status entities.ContractStatus, page, limit int) ([]*entities.Contract, *utils.PaginationMeta, error) {
	if status != "" && !status.Valid() {
		return nil, nil, domainerrors.BadRequest("invalid status")
	}
	p := utils.GetPaginationParams(page, limit)
	items, total, err := u.contractRepo.List(ctx, entities.ContractFilter{
		Status: status,
		Limit:  p.Limit,
		Offset: p.CalculateOffset(),
	})
	if err != nil {
		return nil, nil, err
	}
	meta := utils.CalculateMeta(total, p.Page, p.Limit)
	return items, &meta, nil
}

// Approve accepts a submitted contract and approves its pending attachments.
func (u *ContractUsecase) Approve(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error) {
	var contract *entities.Contract
	now := u.now()
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		c, err := u.contractRepo.GetByID(u.uow.WithLock(txCtx), id)
		if err != nil {
			return err
		}
		if !c.Status.CanTransitionTo(entities.ContractApproved) {
			return domainerrors.Conflict("only submitted contracts can be approved").WithReason(string(c.Status))
		}
		c.Status = entities.ContractApproved
		c.ApprovedAt = null.TimeFrom(now)
		c.RejectedReason = null.String{}
		if err := u.contractRepo.Update(txCtx, c, entities.ContractSubmitted); err != nil {
			return err
		}
		review := entities.DocumentReview{
			Status:     entities.DocumentApproved,
			ReviewerID: reviewerID,
			ReviewedAt: now,
		}
		if input != nil && strings.TrimSpace(input.Note) != "" {
			review.Note = null.StringFrom(strings.TrimSpace(input.Note))
		}
		if err := u.fileRepo.ApprovePending(txCtx, c.ID, review); err != nil {
			return err
		}
		contract = c
		return nil
	})
	if err != nil {
		return nil, editConflict(err)
	}

	logger.Info(ctx, "Contract approved", zap.String("contract_id", contract.ID.String()))
	u.notifier.ContractReviewed(ctx, contract)
	return contract, nil
}

// Reject sends a submitted contract back to its owner with a reason.
func (u *ContractUsecase) Reject(ctx context.Context, id uuid.UUID, input *entities.DecisionInput) (*entities.Contract, error) {
	reason := ""
	if input != nil {
		reason = strings.TrimSpace(input.Reason)
		if reason == "" {
			reason = strings.TrimSpace(input.Note)
		}
	}

	var contract *entities.Contract
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		c, err := u.contractRepo.GetByID(u.uow.WithLock(txCtx), id)
		if err != nil {
			return err
		}
		if !c.Status.CanTransitionTo(entities.ContractRejected) {
			return domainerrors.Conflict("only submitted contracts can be rejected").WithReason(string(c.Status))
		}
		c.Status = entities.ContractRejected
		c.RejectedAt = null.TimeFrom(u.now())
		c.RejectedReason = optionalString(reason)
		if err := u.contractRepo.Update(txCtx, c, entities.ContractSubmitted); err != nil {
			return err
		}
		contract = c
		return nil
	})
	if err != nil {
		return nil, editConflict(err)
	}

	logger.Info(ctx, "Contract rejected", zap.String("contract_id", contract.ID.String()))
	u.notifier.ContractReviewed(ctx, contract)
	return contract, nil
}

func (u *ContractUsecase) owned(ctx context.Context, userID, id uuid.UUID) (*entities.Contract, error) {
	contract, err := u.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.UserID != userID {
		return nil, domainerrors.NotFound("contract not found")
	}
	return contract, nil
}

func (u *ContractUsecase) accessible(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.Contract, error) {
	contract, err := u.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(contract.UserID) {
		return nil, domainerrors.NotFound("contract not found")
	}
	return contract, nil
}

// editConflict maps a lost conditional update to 409.
func editConflict(err error) error {
	if errors.Is(err, domainerrors.ErrInvalidTransition) {
		return domainerrors.Conflict("contract status changed concurrently")
	}
	return err
}

func optionalString(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}
