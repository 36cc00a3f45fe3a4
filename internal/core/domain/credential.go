package domain

import "time"

// Source identifies where an access attempt originated.
type Source string

const (
	SourceScanner  Source = "scanner"  // barcode read from the serial scanner
	SourceAPI      Source = "api"      // authenticated operator request
	SourceOverride Source = "override" // emergency-override digital input
)

// Credential is a raw scanned or submitted code awaiting verification.
// Immutable once created; it lives only for the duration of one attempt.
type Credential struct {
	Barcode    string
	Source     Source
	CapturedAt time.Time
}

// AccessDecision is the outcome of verifying a single credential.
// Produced exactly once per credential and never mutated.
type AccessDecision struct {
	Granted     bool
	UserID      string
	UserName    string
	Permissions []string
	ExpiresAt   *time.Time // advisory, recorded for audit only
	Reason      string
}

// Deny builds a denied decision with the given reason.
func Deny(reason string) AccessDecision {
	return AccessDecision{Granted: false, Reason: reason}
}
