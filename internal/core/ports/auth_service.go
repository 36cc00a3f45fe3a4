package ports

import (
	"context"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// AuthService authenticates operators and issues bearer tokens.
type AuthService interface {
	// Token verifies the username/password pair and returns a signed JWT
	// plus the authenticated operator.
	Token(ctx context.Context, username, password string) (string, *domain.Operator, error)
}
