package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/api/metrics"
	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// AccessEngine coordinates verification, door actuation, and auditing.
// It is the single funnel for access decisions: every invocation, whatever
// its outcome, records exactly one AccessAttempt.
type AccessEngine struct {
	verifier ports.Verifier
	door     ports.DoorController
	audit    ports.AuditStore
	log      zerolog.Logger

	mu   sync.Mutex
	last *domain.AccessAttempt
}

func NewAccessEngine(
	verifier ports.Verifier,
	door ports.DoorController,
	audit ports.AuditStore,
	log zerolog.Logger,
) *AccessEngine {
	return &AccessEngine{
		verifier: verifier,
		door:     door,
		audit:    audit,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// HandleCredential verifies a credential and, for scanner-sourced grants,
// actuates the door. Verification failures are converted to denied
// decisions carrying the specific failure reason, so the audit trail can
// distinguish "wrong credential" from "verification service down".
func (e *AccessEngine) HandleCredential(ctx context.Context, cred domain.Credential) (domain.AccessDecision, error) {
	decision, err := e.verifier.Verify(ctx, cred)
	if err != nil {
		// Fail closed: no decision means no access.
		switch {
		case errors.Is(err, domain.ErrVerificationMalformed):
			decision = domain.Deny(domain.ReasonVerificationMalformed)
		default:
			decision = domain.Deny(domain.ReasonVerificationUnavailable)
		}
		e.log.Warn().Err(err).Str("barcode", cred.Barcode).Msg("verification failed, denying")
	}

	att := &domain.AccessAttempt{
		Timestamp: cred.CapturedAt,
		Barcode:   cred.Barcode,
		Source:    cred.Source,
		Granted:   decision.Granted,
		UserID:    decision.UserID,
		UserName:  decision.UserName,
		Reason:    decision.Reason,
	}

	if decision.Granted && cred.Source == domain.SourceScanner {
		state, err := e.door.Open(ctx, ports.OpenRequest{Source: cred.Source})
		if err != nil {
			e.log.Warn().Err(err).Str("barcode", cred.Barcode).Msg("door did not accept open request")
		} else {
			att.Transition = state
		}
	}

	e.record(ctx, att)

	e.log.Info().
		Str("barcode", cred.Barcode).
		Str("source", string(cred.Source)).
		Bool("granted", decision.Granted).
		Str("reason", decision.Reason).
		Msg("credential handled")

	return decision, nil
}

// HandleVerify verifies a barcode on behalf of an authenticated operator
// without touching the door.
func (e *AccessEngine) HandleVerify(ctx context.Context, operator, barcode string) (domain.AccessDecision, error) {
	cred := domain.Credential{
		Barcode:    barcode,
		Source:     domain.SourceAPI,
		CapturedAt: time.Now().UTC(),
	}

	decision, err := e.verifier.Verify(ctx, cred)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVerificationMalformed):
			decision = domain.Deny(domain.ReasonVerificationMalformed)
		default:
			decision = domain.Deny(domain.ReasonVerificationUnavailable)
		}
	}

	e.record(ctx, &domain.AccessAttempt{
		Timestamp: cred.CapturedAt,
		Barcode:   barcode,
		Source:    domain.SourceAPI,
		Granted:   decision.Granted,
		UserID:    decision.UserID,
		UserName:  decision.UserName,
		Reason:    decision.Reason,
		Operator:  operator,
	})

	return decision, nil
}

// HandleManualOpen actuates the door for an operator the API layer has
// already authenticated; remote verification is skipped but the attempt is
// still fully audited and attributed.
func (e *AccessEngine) HandleManualOpen(ctx context.Context, in ports.ManualOpenInput) (ports.ManualOpenResult, error) {
	now := time.Now().UTC()

	reason := in.Reason
	if reason == "" {
		reason = domain.ReasonManualOpen
	}

	att := &domain.AccessAttempt{
		Timestamp: now,
		Source:    domain.SourceAPI,
		Reason:    reason,
		Operator:  in.Operator,
	}

	state, err := e.door.Open(ctx, ports.OpenRequest{
		Duration: in.Duration,
		Source:   domain.SourceAPI,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDoorBusy):
			att.Reason = domain.ReasonDoorBusy
		case errors.Is(err, domain.ErrDoorFault):
			att.Reason = domain.ReasonDoorFault
		default:
			att.Reason = err.Error()
		}
		e.record(ctx, att)
		return ports.ManualOpenResult{
			Opened:    false,
			DoorState: e.door.Snapshot().State,
			Message:   att.Reason,
			Timestamp: now,
		}, err
	}

	att.Granted = true
	att.Transition = state
	e.record(ctx, att)

	e.log.Info().Str("operator", in.Operator).Str("reason", reason).Msg("manual door open")

	return ports.ManualOpenResult{
		Opened:    true,
		DoorState: state,
		Message:   "door opened: " + reason,
		Timestamp: now,
	}, nil
}

// HandleOverride records an emergency-override actuation. The override
// input bypasses verification entirely; only a controller fault can stop it.
func (e *AccessEngine) HandleOverride(ctx context.Context) error {
	now := time.Now().UTC()

	att := &domain.AccessAttempt{
		Timestamp: now,
		Source:    domain.SourceOverride,
		Reason:    domain.ReasonEmergencyOverride,
	}

	state, err := e.door.EmergencyOpen(ctx)
	if err != nil {
		att.Reason = domain.ReasonDoorFault
		e.record(ctx, att)
		return err
	}

	att.Granted = true
	att.Transition = state
	e.record(ctx, att)

	e.log.Warn().Msg("emergency override actuated")
	return nil
}

// LastAttempt returns a copy of the most recent attempt, if any.
func (e *AccessEngine) LastAttempt() (domain.AccessAttempt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return domain.AccessAttempt{}, false
	}
	return *e.last, true
}

// record persists the attempt and updates metrics. A failed append never
// blocks or reverses an actuation already committed; it is escalated
// through the log and the audit_write_failures counter instead.
func (e *AccessEngine) record(ctx context.Context, att *domain.AccessAttempt) {
	if att.Timestamp.IsZero() {
		att.Timestamp = time.Now().UTC()
	}

	decision := "denied"
	if att.Granted {
		decision = "granted"
	}
	metrics.AccessAttemptsTotal.WithLabelValues(decision, string(att.Source)).Inc()

	if err := e.audit.Append(ctx, att); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		e.log.Error().Err(err).
			Str("barcode", att.Barcode).
			Str("source", string(att.Source)).
			Msg("audit append failed")
	}

	e.mu.Lock()
	e.last = att
	e.mu.Unlock()
}
