package domain

import "errors"

var (
	// ErrVerificationUnavailable covers transport failures and timeouts
	// talking to the remote verification service. Treated as a deny.
	ErrVerificationUnavailable = errors.New("verification service unavailable")

	// ErrVerificationMalformed covers responses that fail schema validation.
	// Treated as a deny.
	ErrVerificationMalformed = errors.New("malformed verification response")

	// ErrDoorBusy is returned synchronously when an open request arrives
	// while the door is mid-actuation.
	ErrDoorBusy = errors.New("door busy")

	// ErrDoorFault means the controller is in the terminal fault state and
	// needs an explicit administrative reset.
	ErrDoorFault = errors.New("door controller in fault state")

	// ErrAuditWriteFailed means an attempt could not be persisted. It never
	// blocks or reverses an actuation already committed.
	ErrAuditWriteFailed = errors.New("audit write failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrOperatorExists     = errors.New("operator already exists")
)
