package repositories

import (
	"context"

	"github.com/google/uuid"
	"kailospay.backend/internal/domain/entities"
)

// ContractRepository defines contract data operations
type ContractRepository interface {
	Create(ctx context.Context, contract *entities.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Contract, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Contract, error)
	List(ctx context.Context, filter entities.ContractFilter) ([]*entities.Contract, int64, error)
	// Update writes editable fields and status. The write only applies
	// while the stored status is one of from.
	Update(ctx context.Context, contract *entities.Contract, from ...entities.ContractStatus) error
	CountByStatus(ctx context.Context, status entities.ContractStatus) (int64, error)
}

// ContractFileRepository defines contract attachment operations
type ContractFileRepository interface {
	Create(ctx context.Context, file *entities.ContractFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ContractFile, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*entities.ContractFile, error)
	CountByContract(ctx context.Context, contractID uuid.UUID, status entities.DocumentStatus) (int64, error)
	// ApprovePending marks every pending file of the contract approved.
	ApprovePending(ctx context.Context, contractID uuid.UUID, review entities.DocumentReview) error
}
