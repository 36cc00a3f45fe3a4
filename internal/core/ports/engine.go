package ports

import (
	"context"
	"time"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// ManualOpenInput carries an authenticated operator's request to actuate the
// door without a credential. The API layer has already authenticated the
// operator, so the engine skips remote verification.
type ManualOpenInput struct {
	Operator string
	Reason   string
	Duration time.Duration // zero = configured default
}

// ManualOpenResult reports the outcome of a manual open.
type ManualOpenResult struct {
	Opened    bool
	DoorState domain.DoorState
	Message   string
	Timestamp time.Time
}

// AccessEngine is the single funnel for access decisions. Every invocation,
// whatever its outcome, produces exactly one audit record.
type AccessEngine interface {
	// HandleCredential verifies a scanned or submitted credential and, on
	// grant from the scanner path, actuates the door.
	HandleCredential(ctx context.Context, cred domain.Credential) (domain.AccessDecision, error)

	// HandleVerify verifies a credential without touching the door.
	HandleVerify(ctx context.Context, operator, barcode string) (domain.AccessDecision, error)

	// HandleManualOpen actuates the door for an authenticated operator.
	HandleManualOpen(ctx context.Context, in ManualOpenInput) (ManualOpenResult, error)

	// HandleOverride records and actuates an emergency-override event.
	HandleOverride(ctx context.Context) error

	// LastAttempt returns a copy of the most recent attempt, if any.
	LastAttempt() (domain.AccessAttempt, bool)
}
