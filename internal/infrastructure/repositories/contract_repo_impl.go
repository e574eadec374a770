package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/models"
)

// ContractRepository implements contract data operations
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, c *entities.Contract) error {
	m := r.toModel(c)
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Contract, error) {
	var m models.Contract
	db := forUpdate(ctx, GetDB(ctx, r.db).WithContext(ctx))
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *ContractRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Contract, error) {
	var rows []models.Contract
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toEntities(rows), nil
}

func (r *ContractRepository) List(ctx context.Context, filter entities.ContractFilter) ([]*entities.Contract, int64, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Contract{})
	if filter.UserID.Valid {
		query = query.Where("user_id = ?", filter.UserID.UUID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Contract
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return r.toEntities(rows), total, nil
}

// Update writes the contract when its stored status is one of from.
func (r *ContractRepository) Update(ctx context.Context, c *entities.Contract, from ...entities.ContractStatus) error {
	c.UpdatedAt = time.Now()
	updates := map[string]interface{}{
		"title":                c.Title,
		"category":             string(c.Category),
		"amount":               c.Amount.Ptr(),
		"counterparty_name":    c.Counterparty.Ptr(),
		"counterparty_account": c.CounterAccount.Ptr(),
		"memo":                 c.Memo.Ptr(),
		"status":               string(c.Status),
		"rejected_reason":      c.RejectedReason.Ptr(),
		"submitted_at":         c.SubmittedAt.Ptr(),
		"approved_at":          c.ApprovedAt.Ptr(),
		"rejected_at":          c.RejectedAt.Ptr(),
		"updated_at":           c.UpdatedAt,
	}
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Contract{}).Where("id = ?", c.ID)
	if len(from) > 0 {
		statuses := make([]string, 0, len(from))
		for _, s := range from {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if len(from) > 0 {
			return domainerrors.ErrInvalidTransition
		}
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *ContractRepository) CountByStatus(ctx context.Context, status entities.ContractStatus) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Contract{}).Where("status = ?", string(status)).Count(&n).Error
	return n, err
}

func (r *ContractRepository) toModel(c *entities.Contract) *models.Contract {
	return &models.Contract{
		ID:                  c.ID,
		UserID:              c.UserID,
		Title:               c.Title,
		Category:            string(c.Category),
		Amount:              c.Amount.Ptr(),
		CounterpartyName:    c.Counterparty.Ptr(),
		CounterpartyAccount: c.CounterAccount.Ptr(),
		Memo:                c.Memo.Ptr(),
		Status:              string(c.Status),
		RejectedReason:      c.RejectedReason.Ptr(),
		SubmittedAt:         c.SubmittedAt.Ptr(),
		ApprovedAt:          c.ApprovedAt.Ptr(),
		RejectedAt:          c.RejectedAt.Ptr(),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func (r *ContractRepository) toEntities(rows []models.Contract) []*entities.Contract {
	out := make([]*entities.Contract, 0, len(rows))
	for i := range rows {
		out = append(out, r.toEntity(&rows[i]))
	}
	return out
}

func (r *ContractRepository) toEntity(m *models.Contract) *entities.Contract {
	return &entities.Contract{
		ID:             m.ID,
		UserID:         m.UserID,
		Title:          m.Title,
		Category:       entities.Category(m.Category),
		Amount:         null.Int64FromPtr(m.Amount),
		Counterparty:   null.StringFromPtr(m.CounterpartyName),
		CounterAccount: null.StringFromPtr(m.CounterpartyAccount),
		Memo:           null.StringFromPtr(m.Memo),
		Status:         entities.ContractStatus(m.Status),
		RejectedReason: null.StringFromPtr(m.RejectedReason),
		SubmittedAt:    null.TimeFromPtr(m.SubmittedAt),
		ApprovedAt:     null.TimeFromPtr(m.ApprovedAt),
		RejectedAt:     null.TimeFromPtr(m.RejectedAt),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// ContractFileRepository implements contract_files persistence
type ContractFileRepository struct {
	db *gorm.DB
}

func NewContractFileRepository(db *gorm.DB) *ContractFileRepository {
	return &ContractFileRepository{db: db}
}

func (r *ContractFileRepository) Create(ctx context.Context, f *entities.ContractFile) error {
	m := &models.ContractFile{
		ID:           f.ID,
		ContractID:   f.ContractID,
		UserID:       f.UserID,
		OriginalName: f.OriginalName,
		Mime:         f.Mime,
		Size:         f.Size,
		SavedName:    f.SavedName,
		DocType:      f.DocType.Ptr(),
		Status:       string(f.Status),
		CreatedAt:    f.CreatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ContractFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ContractFile, error) {
	var m models.ContractFile
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *ContractFileRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*entities.ContractFile, error) {
	var rows []models.ContractFile
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("contract_id = ?", contractID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.ContractFile, 0, len(rows))
	for i := range rows {
		out = append(out, r.toEntity(&rows[i]))
	}
	return out, nil
}

// CountByContract counts files; an empty status counts all of them.
func (r *ContractFileRepository) CountByContract(ctx context.Context, contractID uuid.UUID, status entities.DocumentStatus) (int64, error) {
	var n int64
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.ContractFile{}).Where("contract_id = ?", contractID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	err := query.Count(&n).Error
	return n, err
}

func (r *ContractFileRepository) ApprovePending(ctx context.Context, contractID uuid.UUID, review entities.DocumentReview) error {
	return GetDB(ctx, r.db).WithContext(ctx).Model(&models.ContractFile{}).
		Where("contract_id = ? AND status IN ?", contractID, []string{string(entities.DocumentPending), string(entities.DocumentDone)}).
		Updates(map[string]interface{}{
			"status":      string(entities.DocumentApproved),
			"reviewer_id": uuidPtr(review.ReviewerID),
			"reviewed_at": review.ReviewedAt,
		}).Error
}

func (r *ContractFileRepository) toEntity(m *models.ContractFile) *entities.ContractFile {
	return &entities.ContractFile{
		ID:           m.ID,
		ContractID:   m.ContractID,
		UserID:       m.UserID,
		OriginalName: m.OriginalName,
		Mime:         m.Mime,
		Size:         m.Size,
		SavedName:    m.SavedName,
		DocType:      null.StringFromPtr(m.DocType),
		Status:       entities.DocumentStatus(m.Status),
		AdminNote:    null.StringFromPtr(m.AdminNote),
		ReviewerID:   nullUUID(m.ReviewerID),
		ReviewedAt:   null.TimeFromPtr(m.ReviewedAt),
		CreatedAt:    m.CreatedAt,
	}
}
