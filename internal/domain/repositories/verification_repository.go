package repositories

import (
	"context"

	"github.com/google/uuid"
	"kailospay.backend/internal/domain/entities"
)

// VerificationEventRepository is append-only: there is no update or delete.
type VerificationEventRepository interface {
	Create(ctx context.Context, event *entities.VerificationEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.VerificationEvent, error)
	LatestByUser(ctx context.Context, userID uuid.UUID, kind entities.VerificationKind) (*entities.VerificationEvent, error)
	LatestByContract(ctx context.Context, userID, contractID uuid.UUID, kind entities.VerificationKind) (*entities.VerificationEvent, error)
}

// OneWonRepository persists 1-won verification requests.
type OneWonRepository interface {
	Create(ctx context.Context, v *entities.OneWonVerification) error
	GetByRequestID(ctx context.Context, requestID string) (*entities.OneWonVerification, error)
	// Complete moves a pending row to confirmed or failed. It returns
	// ErrInvalidTransition when the row is no longer pending.
	Complete(ctx context.Context, v *entities.OneWonVerification) error
	LatestByUser(ctx context.Context, userID uuid.UUID) (*entities.OneWonVerification, error)
}
