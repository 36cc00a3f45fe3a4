package ports

import (
	"context"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// OperatorRepository defines persistence for API operators.
type OperatorRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Operator, error)
	Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error)
	// Count reports the number of stored operators; used to decide whether
	// the seed admin must be created on first start.
	Count(ctx context.Context) (int64, error)
}
