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

// VerificationEventRepository implements the append-only ekyc_events log
type VerificationEventRepository struct {
	db *gorm.DB
}

func NewVerificationEventRepository(db *gorm.DB) *VerificationEventRepository {
	return &VerificationEventRepository{db: db}
}

func (r *VerificationEventRepository) Create(ctx context.Context, event *entities.VerificationEvent) error {
	m := &models.EkycEvent{
		ID:         event.ID,
		UserID:     uuidPtr(event.UserID),
		ContractID: uuidPtr(event.ContractID),
		Kind:       string(event.Kind),
		Provider:   event.Provider,
		Status:     string(event.Status),
		Score:      event.Score.Ptr(),
		State:      event.State.Ptr(),
		Raw:        toJSON(event.Raw),
		CreatedAt:  event.CreatedAt,
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

func (r *VerificationEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.VerificationEvent, error) {
	var rows []models.EkycEvent
	query := GetDB(ctx, r.db).WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.VerificationEvent, 0, len(rows))
	for i := range rows {
		out = append(out, r.toEntity(&rows[i]))
	}
	return out, nil
}

func (r *VerificationEventRepository) LatestByUser(ctx context.Context, userID uuid.UUID, kind entities.VerificationKind) (*entities.VerificationEvent, error) {
	var m models.EkycEvent
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, string(kind)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// LatestByContract returns the newest event of kind the user recorded for
// contractID.
func (r *VerificationEventRepository) LatestByContract(ctx context.Context, userID, contractID uuid.UUID, kind entities.VerificationKind) (*entities.VerificationEvent, error) {
	var m models.EkycEvent
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND contract_id = ? AND kind = ?", userID, contractID, string(kind)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *VerificationEventRepository) toEntity(m *models.EkycEvent) *entities.VerificationEvent {
	return &entities.VerificationEvent{
		ID:         m.ID,
		UserID:     nullUUID(m.UserID),
		ContractID: nullUUID(m.ContractID),
		Kind:       entities.VerificationKind(m.Kind),
		Provider:   m.Provider,
		Status:     entities.VerificationStatus(m.Status),
		Score:      null.Float64FromPtr(m.Score),
		State:      null.StringFromPtr(m.State),
		Raw:        fromJSON(m.Raw),
		CreatedAt:  m.CreatedAt,
	}
}

// OneWonRepository implements onewon_verifies persistence
type OneWonRepository struct {
	db *gorm.DB
}

func NewOneWonRepository(db *gorm.DB) *OneWonRepository {
	return &OneWonRepository{db: db}
}

func (r *OneWonRepository) Create(ctx context.Context, v *entities.OneWonVerification) error {
	m := &models.OnewonVerify{
		ID:          v.ID,
		UserID:      v.UserID,
		ContractID:  uuidPtr(v.ContractID),
		RequestID:   v.RequestID,
		VerifyType:  v.VerifyType,
		Code:        v.Code.Ptr(),
		BankCode:    v.BankCode,
		AccountNo:   v.AccountNo,
		AccountName: v.AccountName,
		Status:      string(v.Status),
		ProviderRaw: toJSON(v.ProviderRaw),
		CreatedAt:   v.CreatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *OneWonRepository) GetByRequestID(ctx context.Context, requestID string) (*entities.OneWonVerification, error) {
	var m models.OnewonVerify
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("request_id = ?", requestID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Complete is guarded by status = pending so two confirms cannot both apply.
func (r *OneWonRepository) Complete(ctx context.Context, v *entities.OneWonVerification) error {
	updates := map[string]interface{}{
		"status":       string(v.Status),
		"confirmed_at": v.ConfirmedAt.Ptr(),
	}
	if len(v.ProviderRaw) > 0 {
		updates["provider_raw"] = toJSON(v.ProviderRaw)
	}
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.OnewonVerify{}).
		Where("request_id = ? AND status = ?", v.RequestID, string(entities.OneWonPending)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidTransition
	}
	return nil
}

func (r *OneWonRepository) LatestByUser(ctx context.Context, userID uuid.UUID) (*entities.OneWonVerification, error) {
	var m models.OnewonVerify
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *OneWonRepository) toEntity(m *models.OnewonVerify) *entities.OneWonVerification {
	return &entities.OneWonVerification{
		ID:          m.ID,
		UserID:      m.UserID,
		ContractID:  nullUUID(m.ContractID),
		RequestID:   m.RequestID,
		VerifyType:  m.VerifyType,
		Code:        null.StringFromPtr(m.Code),
		BankCode:    m.BankCode,
		AccountNo:   m.AccountNo,
		AccountName: m.AccountName,
		Status:      entities.OneWonStatus(m.Status),
		ProviderRaw: fromJSON(m.ProviderRaw),
		CreatedAt:   m.CreatedAt,
		ConfirmedAt: null.TimeFromPtr(m.ConfirmedAt),
	}
}
