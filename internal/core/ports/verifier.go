package ports

import (
	"context"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// Verifier turns a raw credential into an access decision by consulting the
// remote verification service. Implementations own the timeout and retry
// policy; every call results in a fresh remote round-trip (decisions are
// never cached locally).
//
// On transport failure or timeout the returned error wraps
// domain.ErrVerificationUnavailable; on schema-invalid responses it wraps
// domain.ErrVerificationMalformed. Callers treat both as a deny.
type Verifier interface {
	Verify(ctx context.Context, cred domain.Credential) (domain.AccessDecision, error)
}
