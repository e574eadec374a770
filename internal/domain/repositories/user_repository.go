package repositories

import (
	"context"

	"github.com/google/uuid"
	"kailospay.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateProfile(ctx context.Context, user *entities.User) error
	UpdateEkycStatus(ctx context.Context, id uuid.UUID, status entities.EkycStatus) error
	UpdateAccountStatus(ctx context.Context, id uuid.UUID, status entities.AccountStatus) error
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
	List(ctx context.Context, filter entities.UserFilter) ([]*entities.User, int64, error)
	// Delete removes the user and every row it owns.
	Delete(ctx context.Context, id uuid.UUID) error
}
