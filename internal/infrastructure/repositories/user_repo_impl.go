package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/models"
)

// UserRepository implements user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	m := &models.User{
		ID:             user.ID,
		Email:          strings.ToLower(user.Email),
		Name:           user.Name,
		FullName:       user.FullName.Ptr(),
		Phone:          user.Phone,
		PasswordHash:   user.PasswordHash,
		IsAdmin:        user.IsAdmin,
		MarketingOptIn: user.MarketingOptIn,
		EkycStatus:     string(user.EkycStatus),
		AccountStatus:  string(user.AccountStatus),
		EkycRequestID:  user.EkycRequestID.Ptr(),
		EkycVerifiedAt: user.EkycVerifiedAt.Ptr(),
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var m models.User
	db := forUpdate(ctx, GetDB(ctx, r.db).WithContext(ctx))
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// UpdateProfile updates the user-editable fields
func (r *UserRepository) UpdateProfile(ctx context.Context, user *entities.User) error {
	updates := map[string]interface{}{
		"name":             user.Name,
		"full_name":        user.FullName.Ptr(),
		"phone":            user.Phone,
		"marketing_opt_in": user.MarketingOptIn,
		"updated_at":       time.Now(),
	}
	return r.update(ctx, user.ID, updates)
}

// UpdateEkycStatus writes the cached eKYC status and stamps verification time.
func (r *UserRepository) UpdateEkycStatus(ctx context.Context, id uuid.UUID, status entities.EkycStatus) error {
	now := time.Now()
	updates := map[string]interface{}{
		"ekyc_status": string(status),
		"updated_at":  now,
	}
	if status == entities.EkycVerified {
		updates["ekyc_verified_at"] = now
	}
	return r.update(ctx, id, updates)
}

// UpdateAccountStatus writes the cached account-ownership status.
func (r *UserRepository) UpdateAccountStatus(ctx context.Context, id uuid.UUID, status entities.AccountStatus) error {
	return r.update(ctx, id, map[string]interface{}{
		"account_status": string(status),
		"updated_at":     time.Now(),
	})
}

// SetAdmin grants or revokes the admin flag by email.
func (r *UserRepository) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.User{}).
		Where("email = ?", strings.ToLower(email)).
		Updates(map[string]interface{}{"is_admin": isAdmin, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// List lists users with optional search filter
func (r *UserRepository) List(ctx context.Context, filter entities.UserFilter) ([]*entities.User, int64, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.User{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		term := likeTerm(strings.ToLower(q))
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.User
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	users := make([]*entities.User, 0, len(rows))
	for i := range rows {
		users = append(users, r.toEntity(&rows[i]))
	}
	return users, total, nil
}

// Delete removes the user and cascades to every owned row in one transaction.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	run := func(tx *gorm.DB) error {
		owned := []interface{}{
			&models.ContractFile{},
			&models.Payment{},
			&models.Contract{},
			&models.Upload{},
			&models.OnewonVerify{},
			&models.RegistryRequest{},
			&models.EkycEvent{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotFound
		}
		return nil
	}

	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return run(tx.WithContext(ctx))
	}
	return r.db.WithContext(ctx).Transaction(run)
}

func (r *UserRepository) toEntity(m *models.User) *entities.User {
	return &entities.User{
		ID:             m.ID,
		Email:          m.Email,
		Name:           m.Name,
		FullName:       null.StringFromPtr(m.FullName),
		Phone:          m.Phone,
		PasswordHash:   m.PasswordHash,
		IsAdmin:        m.IsAdmin,
		MarketingOptIn: m.MarketingOptIn,
		EkycStatus:     entities.EkycStatus(m.EkycStatus),
		AccountStatus:  entities.AccountStatus(m.AccountStatus),
		EkycRequestID:  null.StringFromPtr(m.EkycRequestID),
		EkycVerifiedAt: null.TimeFromPtr(m.EkycVerifiedAt),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
