package repositories

import (
	"context"

	"github.com/google/uuid"
	"kailospay.backend/internal/domain/entities"
)

// PaymentRepository defines payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *entities.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entities.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Payment, int64, error)
	List(ctx context.Context, filter entities.PaymentFilter) ([]*entities.Payment, int64, error)
	// Transition applies tr only while the stored status is a legal
	// predecessor of tr.To and returns ErrInvalidTransition otherwise.
	Transition(ctx context.Context, orderID uuid.UUID, tr entities.PaymentTransition) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status entities.PaymentStatus) (int64, error)
}
