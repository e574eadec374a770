package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/models"
)

// PaymentRepository implements payment data operations
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment
func (r *PaymentRepository) Create(ctx context.Context, p *entities.Payment) error {
	m := &models.Payment{
		ID:           p.ID,
		OrderID:      p.OrderID,
		UserID:       p.UserID,
		ContractID:   uuidPtr(p.ContractID),
		Category:     string(p.Category),
		Title:        p.Title,
		Amount:       p.Amount,
		Status:       string(p.Status),
		Method:       string(p.Method),
		CustomerName: p.CustomerName.Ptr(),
		Email:        p.Email.Ptr(),
		Phone:        p.Phone.Ptr(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByOrderID gets a payment by its gateway order id
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entities.Payment, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *PaymentRepository) first(ctx context.Context, cond string, arg interface{}) (*entities.Payment, error) {
	var m models.Payment
	if err := GetDB(ctx, r.db).WithContext(ctx).Where(cond, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListByUser gets payments for a user with pagination
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Payment, int64, error) {
	return r.List(ctx, entities.PaymentFilter{
		UserID: uuid.NullUUID{UUID: userID, Valid: true},
		Limit:  limit,
		Offset: offset,
	})
}

func (r *PaymentRepository) List(ctx context.Context, filter entities.PaymentFilter) ([]*entities.Payment, int64, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Payment{})
	if filter.UserID.Valid {
		query = query.Where("user_id = ?", filter.UserID.UUID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Method != "" {
		query = query.Where("method = ?", string(filter.Method))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		term := likeTerm(strings.ToLower(q))
		query = query.Where("LOWER(title) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(email) LIKE ? OR CAST(order_id AS TEXT) LIKE ?", term, term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payment
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*entities.Payment, 0, len(rows))
	for i := range rows {
		out = append(out, r.toEntity(&rows[i]))
	}
	return out, total, nil
}

// Transition is a compare-and-set on status: concurrent callbacks for the
// same order cannot both apply.
func (r *PaymentRepository) Transition(ctx context.Context, orderID uuid.UUID, tr entities.PaymentTransition) error {
	from := entities.PredecessorsOf(tr.To)
	if len(from) == 0 {
		return domainerrors.ErrInvalidTransition
	}
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}

	updates := map[string]interface{}{
		"status":     string(tr.To),
		"updated_at": tr.At,
	}
	if tr.TID.Valid {
		updates["tid"] = tr.TID.String
	}
	if tr.ResultCode.Valid {
		updates["result_code"] = tr.ResultCode.String
	}
	if tr.ResultMessage.Valid {
		updates["result_message"] = tr.ResultMessage.String
	}
	switch tr.To {
	case entities.PaymentPaid:
		updates["paid_at"] = tr.At
	case entities.PaymentFailed:
		updates["failed_at"] = tr.At
	}

	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, statuses).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidTransition
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Delete(&models.Payment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) CountByStatus(ctx context.Context, status entities.PaymentStatus) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Payment{}).Where("status = ?", string(status)).Count(&n).Error
	return n, err
}

func (r *PaymentRepository) toEntity(m *models.Payment) *entities.Payment {
	return &entities.Payment{
		ID:            m.ID,
		OrderID:       m.OrderID,
		UserID:        m.UserID,
		ContractID:    nullUUID(m.ContractID),
		Category:      entities.Category(m.Category),
		Title:         m.Title,
		Amount:        m.Amount,
		Status:        entities.PaymentStatus(m.Status),
		Method:        entities.PaymentMethod(m.Method),
		CustomerName:  null.StringFromPtr(m.CustomerName),
		Email:         null.StringFromPtr(m.Email),
		Phone:         null.StringFromPtr(m.Phone),
		TID:           null.StringFromPtr(m.TID),
		ResultCode:    null.StringFromPtr(m.ResultCode),
		ResultMessage: null.StringFromPtr(m.ResultMessage),
		PaidAt:        null.TimeFromPtr(m.PaidAt),
		FailedAt:      null.TimeFromPtr(m.FailedAt),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
