package ports

import (
	"context"
	"time"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// AttemptFilter carries the query parameters for reading the audit log.
type AttemptFilter struct {
	Source  domain.Source // optional: filter by attempt source
	Granted *bool         // optional: filter by decision outcome
	Since   time.Time     // optional: timestamp >= Since
	Until   time.Time     // optional: timestamp <= Until
	Limit   int           // max rows, capped by the store
	Offset  int
}

// AuditStore is the append-only persistence for access attempts. Append is
// the only mutation; the interface deliberately has no update or delete so
// no tampering path exists. Safe for concurrent writers; ordering across
// concurrent appends follows append order while each record's timestamp
// preserves true event ordering.
type AuditStore interface {
	// Append durably persists one attempt before returning. A failure wraps
	// domain.ErrAuditWriteFailed.
	Append(ctx context.Context, att *domain.AccessAttempt) error

	// Query returns attempts matching filter, newest first.
	Query(ctx context.Context, filter AttemptFilter) ([]domain.AccessAttempt, error)
}
