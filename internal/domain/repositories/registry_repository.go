package repositories

import (
	"context"

	"github.com/google/uuid"
	"kailospay.backend/internal/domain/entities"
)

// RegistryRepository defines registry issuance job operations
type RegistryRepository interface {
	Create(ctx context.Context, req *entities.RegistryRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error)
	GetByUniqueKey(ctx context.Context, key string) (*entities.RegistryRequest, error)
	Update(ctx context.Context, req *entities.RegistryRequest) error
}
