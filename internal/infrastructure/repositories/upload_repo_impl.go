package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/models"
)

// UploadRepository implements uploads persistence
type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, u *entities.Upload) error {
	m := &models.Upload{
		ID:           u.ID,
		UserID:       u.UserID,
		OriginalName: u.OriginalName,
		Mime:         u.Mime,
		Size:         u.Size,
		SavedName:    u.SavedName,
		Category:     string(u.Category),
		DocType:      u.DocType.Ptr(),
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Upload, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UploadRepository) GetBySavedName(ctx context.Context, savedName string) (*entities.Upload, error) {
	return r.first(ctx, "saved_name = ?", savedName)
}

func (r *UploadRepository) first(ctx context.Context, cond string, arg interface{}) (*entities.Upload, error) {
	var m models.Upload
	if err := GetDB(ctx, r.db).WithContext(ctx).Where(cond, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *UploadRepository) ListByUser(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Where("user_id = ?", userID)
	if category != "" {
		query = query.Where("category = ?", string(category))
	}
	var rows []models.Upload
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toEntities(rows), nil
}

func (r *UploadRepository) List(ctx context.Context, filter entities.UploadFilter) ([]*entities.Upload, int64, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Upload{})
	if filter.UserID.Valid {
		query = query.Where("user_id = ?", filter.UserID.UUID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", string(filter.Category))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Upload
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return r.toEntities(rows), total, nil
}

func (r *UploadRepository) Review(ctx context.Context, id uuid.UUID, review entities.DocumentReview) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Upload{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      string(review.Status),
			"admin_note":  review.Note.Ptr(),
			"reviewer_id": uuidPtr(review.ReviewerID),
			"reviewed_at": review.ReviewedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UploadRepository) CountForUser(ctx context.Context, userID uuid.UUID, category entities.Category, status entities.DocumentStatus) (int64, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Upload{}).
		Where("user_id = ? AND status = ?", userID, string(status))
	if category != "" {
		query = query.Where("category = ?", string(category))
	}
	var n int64
	err := query.Count(&n).Error
	return n, err
}

func (r *UploadRepository) CountByStatus(ctx context.Context, status entities.DocumentStatus) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Upload{}).Where("status = ?", string(status)).Count(&n).Error
	return n, err
}

func (r *UploadRepository) toEntities(rows []models.Upload) []*entities.Upload {
	out := make([]*entities.Upload, 0, len(rows))
	for i := range rows {
		out = append(out, r.toEntity(&rows[i]))
	}
	return out
}

func (r *UploadRepository) toEntity(m *models.Upload) *entities.Upload {
	return &entities.Upload{
		ID:           m.ID,
		UserID:       m.UserID,
		OriginalName: m.OriginalName,
		Mime:         m.Mime,
		Size:         m.Size,
		SavedName:    m.SavedName,
		Category:     entities.Category(m.Category),
		DocType:      null.StringFromPtr(m.DocType),
		Status:       entities.DocumentStatus(m.Status),
		AdminNote:    null.StringFromPtr(m.AdminNote),
		ReviewerID:   nullUUID(m.ReviewerID),
		ReviewedAt:   null.TimeFromPtr(m.ReviewedAt),
		CreatedAt:    m.CreatedAt,
	}
}
