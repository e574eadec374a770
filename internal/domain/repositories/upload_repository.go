package repositories

import (
	"context"

	"github.com/google/uuid"
	"kailospay.backend/internal/domain/entities"
)

// UploadRepository defines standalone document operations
type UploadRepository interface {
	Create(ctx context.Context, upload *entities.Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Upload, error)
	GetBySavedName(ctx context.Context, savedName string) (*entities.Upload, error)
	ListByUser(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error)
	List(ctx context.Context, filter entities.UploadFilter) ([]*entities.Upload, int64, error)
	Review(ctx context.Context, id uuid.UUID, review entities.DocumentReview) error
	// CountForUser counts uploads in a status; an empty category counts all.
	CountForUser(ctx context.Context, userID uuid.UUID, category entities.Category, status entities.DocumentStatus) (int64, error)
	CountByStatus(ctx context.Context, status entities.DocumentStatus) (int64, error)
}
