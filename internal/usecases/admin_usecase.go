package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/utils"
)

// AdminUsecase is the back office over users, uploads and payments.
type AdminUsecase struct {
	userRepo    repositories.UserRepository
	uploadRepo  repositories.UploadRepository
	paymentRepo repositories.PaymentRepository
	now         func() time.Time
}

// NewAdminUsecase creates a new admin usecase
func NewAdminUsecase(
	userRepo repositories.UserRepository,
	uploadRepo repositories.UploadRepository,
	paymentRepo repositories.PaymentRepository,
) *AdminUsecase {
	return &AdminUsecase{
		userRepo:    userRepo,
		uploadRepo:  uploadRepo,
		paymentRepo: paymentRepo,
		now:         time.Now,
	}
}

// ListUsers searches users by name, email or phone.
func (u *AdminUsecase) ListUsers(ctx context.Context, query string, page, limit int) ([]*entities.User, *utils.PaginationMeta, error) {
	p := utils.GetPaginationParams(page, limit)
	items, total, err := u.userRepo.List(ctx, entities.UserFilter{
		Query:  strings.TrimSpace(query),
		Limit:  p.Limit,
		Offset: p.CalculateOffset(),
	})
	if err != nil {
		return nil, nil, err
	}
	meta := utils.CalculateMeta(total, p.Page, p.Limit)
	return items, &meta, nil
}

// DeleteUser removes a user and everything they own. Admins cannot delete
// themselves.
func (u *AdminUsecase) DeleteUser(ctx context.Context, actorID uuid.NullUUID, id uuid.UUID) error {
	if actorID.Valid && actorID.UUID == id {
		return domainerrors.BadRequest("cannot delete your own account").WithReason("self_delete")
	}
	if err := u.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "User deleted", zap.String("user_id", id.String()))
	return nil
}

// SetAdmin grants or revokes admin rights by email.
func (u *AdminUsecase) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domainerrors.BadRequest("email is required")
	}
	return u.userRepo.SetAdmin(ctx, email, isAdmin)
}

// ListUploads lists uploads for review.
func (u *AdminUsecase) ListUploads(ctx context.Context, filter entities.UploadFilter, page, limit int) ([]*entities.Upload, *utils.PaginationMeta, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, domainerrors.BadRequest("invalid status")
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, nil, domainerrors.BadRequest("invalid category")
	}
	p := utils.GetPaginationParams(page, limit)
	filter.Limit = p.Limit
	filter.Offset = p.CalculateOffset()
	items, total, err := u.uploadRepo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	meta := utils.CalculateMeta(total, p.Page, p.Limit)
	return items, &meta, nil
}

// ToggleReview flips an upload between pending and done.
func (u *AdminUsecase) ToggleReview(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.ReviewInput) (*entities.Upload, error) {
	up, err := u.uploadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	note := up.AdminNote
	if input != nil && input.Note != nil {
		note = optionalString(*input.Note)
	}
	return u.review(ctx, up, up.Status.ToggleReview(), reviewerID, note)
}

// ApproveUpload marks an upload approved.
func (u *AdminUsecase) ApproveUpload(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Upload, error) {
	up, err := u.uploadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	note := up.AdminNote
	if input != nil && strings.TrimSpace(input.Note) != "" {
		note = optionalString(input.Note)
	}
	return u.review(ctx, up, entities.DocumentApproved, reviewerID, note)
}

// RejectUpload marks an upload rejected; the reason is kept as the admin note.
func (u *AdminUsecase) RejectUpload(ctx context.Context, reviewerID uuid.NullUUID, id uuid.UUID, input *entities.DecisionInput) (*entities.Upload, error) {
	up, err := u.uploadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	note := up.AdminNote
	if input != nil {
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			note = null.StringFrom(reason)
		} else if n := strings.TrimSpace(input.Note); n != "" {
			note = null.StringFrom(n)
		}
	}
	return u.review(ctx, up, entities.DocumentRejected, reviewerID, note)
}

func (u *AdminUsecase) review(ctx context.Context, up *entities.Upload, next entities.DocumentStatus, reviewerID uuid.NullUUID, note null.String) (*entities.Upload, error) {
	if !up.Status.CanTransitionTo(next) {
		return nil, domainerrors.Conflict("invalid review transition").WithReason(string(up.Status) + "->" + string(next))
	}
	review := entities.DocumentReview{
		Status:     next,
		Note:       note,
		ReviewerID: reviewerID,
		ReviewedAt: u.now(),
	}
	if err := u.uploadRepo.Review(ctx, up.ID, review); err != nil {
		return nil, err
	}

	up.Status = review.Status
	up.AdminNote = review.Note
	up.ReviewerID = review.ReviewerID
	up.ReviewedAt = null.TimeFrom(review.ReviewedAt)
	logger.Info(ctx, "Upload reviewed",
		zap.String("upload_id", up.ID.String()),
		zap.String("status", string(up.Status)),
	)
	return up, nil
}

// ListPayments lists payments for the back office.
func (u *AdminUsecase) ListPayments(ctx context.Context, filter entities.PaymentFilter, page, limit int) ([]*entities.Payment, *utils.PaginationMeta, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, domainerrors.BadRequest("invalid status")
	}
	if filter.Method != "" && !filter.Method.Valid() {
		return nil, nil, domainerrors.BadRequest("invalid method")
	}
	p := utils.GetPaginationParams(page, limit)
	filter.Limit = p.Limit
	filter.Offset = p.CalculateOffset()
	items, total, err := u.paymentRepo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	meta := utils.CalculateMeta(total, p.Page, p.Limit)
	return items, &meta, nil
}

// DeletePayment removes a payment record.
func (u *AdminUsecase) DeletePayment(ctx context.Context, id uuid.UUID) error {
	if err := u.paymentRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "Payment deleted", zap.String("payment_id", id.String()))
	return nil
}
