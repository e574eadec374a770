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

// RegistryRepository implements registry_requests persistence
type RegistryRepository struct {
	db *gorm.DB
}

func NewRegistryRepository(db *gorm.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// Create fails with ErrAlreadyExists when the unique key is taken.
func (r *RegistryRepository) Create(ctx context.Context, req *entities.RegistryRequest) error {
	m := &models.RegistryRequest{
		ID:         req.ID,
		UserID:     req.UserID,
		Vendor:     req.Vendor,
		Address:    req.Address.Ptr(),
		UniqueKey:  req.UniqueKey,
		ExternalID: req.ExternalID.Ptr(),
		Status:     string(req.Status),
		Message:    req.Message.Ptr(),
		CostPoint:  req.CostPoint.Ptr(),
		SavedFile:  req.SavedFile.Ptr(),
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *RegistryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RegistryRepository) GetByUniqueKey(ctx context.Context, key string) (*entities.RegistryRequest, error) {
	return r.first(ctx, "unique_key = ?", key)
}

func (r *RegistryRepository) first(ctx context.Context, cond string, arg interface{}) (*entities.RegistryRequest, error) {
	var m models.RegistryRequest
	if err := GetDB(ctx, r.db).WithContext(ctx).Where(cond, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *RegistryRepository) Update(ctx context.Context, req *entities.RegistryRequest) error {
	req.UpdatedAt = time.Now()
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.RegistryRequest{}).Where("id = ?", req.ID).
		Updates(map[string]interface{}{
			"external_id": req.ExternalID.Ptr(),
			"status":      string(req.Status),
			"message":     req.Message.Ptr(),
			"cost_point":  req.CostPoint.Ptr(),
			"saved_file":  req.SavedFile.Ptr(),
			"updated_at":  req.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *RegistryRepository) toEntity(m *models.RegistryRequest) *entities.RegistryRequest {
	return &entities.RegistryRequest{
		ID:         m.ID,
		UserID:     m.UserID,
		Vendor:     m.Vendor,
		Address:    null.StringFromPtr(m.Address),
		UniqueKey:  m.UniqueKey,
		ExternalID: null.StringFromPtr(m.ExternalID),
		Status:     entities.RegistryStatus(m.Status),
		Message:    null.StringFromPtr(m.Message),
		CostPoint:  null.Int64FromPtr(m.CostPoint),
		SavedFile:  null.StringFromPtr(m.SavedFile),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
