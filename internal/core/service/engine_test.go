package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

type stubVerifier struct {
	decision domain.AccessDecision
	err      error
	calls    int
}

func (v *stubVerifier) Verify(_ context.Context, _ domain.Credential) (domain.AccessDecision, error) {
	v.calls++
	return v.decision, v.err
}

type stubDoor struct {
	openErr      error
	emergencyErr error
	openCalls    int
	lastRequest  ports.OpenRequest
	state        domain.DoorState
}

func (d *stubDoor) Open(_ context.Context, req ports.OpenRequest) (domain.DoorState, error) {
	d.openCalls++
	d.lastRequest = req
	if d.openErr != nil {
		return d.state, d.openErr
	}
	return domain.DoorOpening, nil
}

func (d *stubDoor) EmergencyOpen(_ context.Context) (domain.DoorState, error) {
	if d.emergencyErr != nil {
		return d.state, d.emergencyErr
	}
	return domain.DoorOpening, nil
}

func (d *stubDoor) Reset(_ context.Context) error { return nil }

func (d *stubDoor) Snapshot() ports.DoorSnapshot {
	return ports.DoorSnapshot{State: d.state}
}

type stubAudit struct {
	appendErr error
	attempts  []domain.AccessAttempt
}

func (a *stubAudit) Append(_ context.Context, att *domain.AccessAttempt) error {
	if a.appendErr != nil {
		return a.appendErr
	}
	att.ID = int64(len(a.attempts) + 1)
	a.attempts = append(a.attempts, *att)
	return nil
}

func (a *stubAudit) Query(_ context.Context, _ ports.AttemptFilter) ([]domain.AccessAttempt, error) {
	return a.attempts, nil
}

func newEngine(v *stubVerifier, d *stubDoor, a *stubAudit) *AccessEngine {
	return NewAccessEngine(v, d, a, zerolog.Nop())
}

func scannedCredential(barcode string) domain.Credential {
	return domain.Credential{
		Barcode:    barcode,
		Source:     domain.SourceScanner,
		CapturedAt: time.Now().UTC(),
	}
}

func TestHandleCredential_GrantedOpensDoor(t *testing.T) {
	verifier := &stubVerifier{decision: domain.AccessDecision{Granted: true, UserID: "u1", UserName: "Alice"}}
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(verifier, door, audit)

	decision, err := engine.HandleCredential(context.Background(), scannedCredential("CARD-001"))
	if err != nil {
		t.Fatalf("HandleCredential returned error: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("expected granted decision")
	}
	if door.openCalls != 1 {
		t.Fatalf("expected 1 door open, got %d", door.openCalls)
	}
	if len(audit.attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt recorded, got %d", len(audit.attempts))
	}
	att := audit.attempts[0]
	if !att.Granted || att.Barcode != "CARD-001" || att.Source != domain.SourceScanner {
		t.Fatalf("unexpected attempt: %+v", att)
	}
	if att.Transition != domain.DoorOpening {
		t.Fatalf("expected transition %s, got %s", domain.DoorOpening, att.Transition)
	}
}

func TestHandleCredential_DeniedNeverTouchesDoor(t *testing.T) {
	verifier := &stubVerifier{decision: domain.Deny("barcode not found")}
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(verifier, door, audit)

	decision, err := engine.HandleCredential(context.Background(), scannedCredential("CARD-404"))
	if err != nil {
		t.Fatalf("HandleCredential returned error: %v", err)
	}
	if decision.Granted {
		t.Fatalf("expected denied decision")
	}
	if door.openCalls != 0 {
		t.Fatalf("door must not open on deny, got %d calls", door.openCalls)
	}
	if len(audit.attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt recorded, got %d", len(audit.attempts))
	}
	if audit.attempts[0].Reason != "barcode not found" {
		t.Fatalf("unexpected reason: %q", audit.attempts[0].Reason)
	}
}

func TestHandleCredential_VerifierUnavailableFailsClosed(t *testing.T) {
	verifier := &stubVerifier{err: domain.ErrVerificationUnavailable}
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(verifier, door, audit)

	decision, err := engine.HandleCredential(context.Background(), scannedCredential("CARD-001"))
	if err != nil {
		t.Fatalf("HandleCredential returned error: %v", err)
	}
	if decision.Granted {
		t.Fatalf("expected deny when verifier is unavailable")
	}
	if door.openCalls != 0 {
		t.Fatalf("door must stay closed when verifier is unavailable")
	}
	if got := audit.attempts[0].Reason; got != domain.ReasonVerificationUnavailable {
		t.Fatalf("expected reason %q, got %q", domain.ReasonVerificationUnavailable, got)
	}
}

func TestHandleCredential_MalformedResponseFailsClosed(t *testing.T) {
	verifier := &stubVerifier{err: domain.ErrVerificationMalformed}
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(verifier, door, audit)

	decision, _ := engine.HandleCredential(context.Background(), scannedCredential("CARD-001"))
	if decision.Granted {
		t.Fatalf("expected deny on malformed response")
	}
	if got := audit.attempts[0].Reason; got != domain.ReasonVerificationMalformed {
		t.Fatalf("expected reason %q, got %q", domain.ReasonVerificationMalformed, got)
	}
}

func TestHandleCredential_DoorBusyStillRecordsGrant(t *testing.T) {
	verifier := &stubVerifier{decision: domain.AccessDecision{Granted: true, UserID: "u1"}}
	door := &stubDoor{state: domain.DoorOpen, openErr: domain.ErrDoorBusy}
	audit := &stubAudit{}
	engine := newEngine(verifier, door, audit)

	decision, err := engine.HandleCredential(context.Background(), scannedCredential("CARD-001"))
	if err != nil {
		t.Fatalf("HandleCredential returned error: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("decision should remain granted even when the door is busy")
	}
	if len(audit.attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", len(audit.attempts))
	}
	if audit.attempts[0].Transition != "" {
		t.Fatalf("expected empty transition when door rejected the open, got %q", audit.attempts[0].Transition)
	}
}

func TestHandleCredential_AuditFailureDoesNotBlock(t *testing.T) {
	verifier := &stubVerifier{decision: domain.AccessDecision{Granted: true}}
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{appendErr: errors.New("disk full")}
	engine := newEngine(verifier, door, audit)

	decision, err := engine.HandleCredential(context.Background(), scannedCredential("CARD-001"))
	if err != nil {
		t.Fatalf("audit failure must not surface as an engine error: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("audit failure must not reverse the decision")
	}
	if door.openCalls != 1 {
		t.Fatalf("audit failure must not prevent actuation")
	}
}

func TestHandleVerify_NeverTouchesDoor(t *testing.T) {
	verifier := &stubVerifier{decision: domain.AccessDecision{Granted: true, UserID: "u2"}}
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(verifier, door, audit)

	decision, err := engine.HandleVerify(context.Background(), "admin", "CARD-002")
	if err != nil {
		t.Fatalf("HandleVerify returned error: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("expected granted decision")
	}
	if door.openCalls != 0 {
		t.Fatalf("verify must never actuate the door")
	}
	att := audit.attempts[0]
	if att.Source != domain.SourceAPI || att.Operator != "admin" {
		t.Fatalf("unexpected attempt attribution: %+v", att)
	}
}

func TestHandleManualOpen_Success(t *testing.T) {
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(&stubVerifier{}, door, audit)

	result, err := engine.HandleManualOpen(context.Background(), ports.ManualOpenInput{
		Operator: "admin",
		Reason:   "letting in a visitor",
		Duration: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("HandleManualOpen returned error: %v", err)
	}
	if !result.Opened {
		t.Fatalf("expected opened result")
	}
	if door.lastRequest.Duration != 10*time.Second {
		t.Fatalf("duration not forwarded: %v", door.lastRequest.Duration)
	}
	att := audit.attempts[0]
	if !att.Granted || att.Operator != "admin" || att.Reason != "letting in a visitor" {
		t.Fatalf("unexpected attempt: %+v", att)
	}
}

func TestHandleManualOpen_BusyRecordsDeniedAttempt(t *testing.T) {
	door := &stubDoor{state: domain.DoorOpen, openErr: domain.ErrDoorBusy}
	audit := &stubAudit{}
	engine := newEngine(&stubVerifier{}, door, audit)

	result, err := engine.HandleManualOpen(context.Background(), ports.ManualOpenInput{Operator: "admin"})
	if !errors.Is(err, domain.ErrDoorBusy) {
		t.Fatalf("expected ErrDoorBusy, got %v", err)
	}
	if result.Opened {
		t.Fatalf("expected opened=false")
	}
	if len(audit.attempts) != 1 {
		t.Fatalf("busy manual open must still be audited")
	}
	att := audit.attempts[0]
	if att.Granted || att.Reason != domain.ReasonDoorBusy {
		t.Fatalf("unexpected attempt: %+v", att)
	}
}

func TestHandleOverride(t *testing.T) {
	door := &stubDoor{state: domain.DoorIdle}
	audit := &stubAudit{}
	engine := newEngine(&stubVerifier{}, door, audit)

	if err := engine.HandleOverride(context.Background()); err != nil {
		t.Fatalf("HandleOverride returned error: %v", err)
	}
	att := audit.attempts[0]
	if !att.Granted || att.Source != domain.SourceOverride || att.Reason != domain.ReasonEmergencyOverride {
		t.Fatalf("unexpected attempt: %+v", att)
	}
}

func TestHandleOverride_FaultStillAudited(t *testing.T) {
	door := &stubDoor{state: domain.DoorFault, emergencyErr: domain.ErrDoorFault}
	audit := &stubAudit{}
	engine := newEngine(&stubVerifier{}, door, audit)

	if err := engine.HandleOverride(context.Background()); !errors.Is(err, domain.ErrDoorFault) {
		t.Fatalf("expected ErrDoorFault, got %v", err)
	}
	if len(audit.attempts) != 1 {
		t.Fatalf("rejected override must still be audited")
	}
	if audit.attempts[0].Granted {
		t.Fatalf("rejected override must be recorded as denied")
	}
}

func TestLastAttempt(t *testing.T) {
	engine := newEngine(&stubVerifier{decision: domain.Deny("nope")}, &stubDoor{}, &stubAudit{})

	if _, ok := engine.LastAttempt(); ok {
		t.Fatalf("expected no attempt before first invocation")
	}

	_, _ = engine.HandleCredential(context.Background(), scannedCredential("CARD-009"))

	att, ok := engine.LastAttempt()
	if !ok {
		t.Fatalf("expected an attempt after invocation")
	}
	if att.Barcode != "CARD-009" {
		t.Fatalf("unexpected last attempt: %+v", att)
	}
}
