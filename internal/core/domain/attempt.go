package domain

import "time"

// Decision reason codes for attempts that never reached the remote verifier
// or were resolved locally. Remote denials carry the reason string returned
// by the verification service.
const (
	ReasonVerificationUnavailable = "verification service unavailable"
	ReasonVerificationMalformed   = "malformed verification response"
	ReasonDoorBusy                = "door busy"
	ReasonDoorFault               = "door controller in fault state"
	ReasonManualOpen              = "manual open"
	ReasonEmergencyOverride       = "emergency override"
)

// AccessAttempt is one immutable audit record. Exactly one is produced per
// credential handled and per manual or override actuation, whatever the
// outcome. Records are appended, never edited or deleted.
type AccessAttempt struct {
	ID         int64
	Timestamp  time.Time
	Barcode    string
	Source     Source
	Granted    bool
	UserID     string
	UserName   string
	Reason     string
	Operator   string    // set when the request came through the API
	Transition DoorState // door state entered as a result, empty if none
}
