// Package door implements the door controller: a single goroutine that owns
// the strike relay and the one live DoorState. Every actuation request from
// any source goes through its command channel, so the relay never receives
// overlapping or out-of-order signals.
package door

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/api/metrics"
	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// Config carries the actuation timing parameters.
type Config struct {
	// DefaultDuration is the hold time used when a request carries none.
	DefaultDuration time.Duration
	// MaxDuration caps every requested hold time.
	MaxDuration time.Duration
	// OverrideDuration is the hold time for emergency-override openings.
	OverrideDuration time.Duration
	// HeldOpenGrace is how long the controller waits in closing for the
	// sensor to confirm the door closed before raising the alarm.
	HeldOpenGrace time.Duration
	// SettleDelay is the window between energizing the relay and treating
	// the actuation as confirmed.
	SettleDelay time.Duration
	// SensorPoll is the door-sensor sampling interval.
	SensorPoll time.Duration
	// SensorNormallyClosed selects the sensor wiring: a normally closed
	// contact breaks the circuit when the door opens.
	SensorNormallyClosed bool
}

func (c *Config) applyDefaults() {
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = 5 * time.Second
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 60 * time.Second
	}
	if c.OverrideDuration <= 0 {
		c.OverrideDuration = 30 * time.Second
	}
	if c.HeldOpenGrace <= 0 {
		c.HeldOpenGrace = 30 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 200 * time.Millisecond
	}
	if c.SensorPoll <= 0 {
		c.SensorPoll = 250 * time.Millisecond
	}
}

type cmdKind int

const (
	cmdOpen cmdKind = iota
	cmdEmergency
	cmdReset
)

type command struct {
	kind  cmdKind
	req   ports.OpenRequest
	reply chan cmdResult
}

type cmdResult struct {
	state domain.DoorState
	err   error
}

// Controller implements ports.DoorController.
type Controller struct {
	cfg  Config
	hw   ports.Hardware
	log  zerolog.Logger
	cmds chan command

	snap chan ports.DoorSnapshot // 1-buffered mailbox holding the current snapshot

	done chan struct{}
}

func NewController(cfg Config, hw ports.Hardware, log zerolog.Logger) *Controller {
	cfg.applyDefaults()
	c := &Controller{
		cfg:  cfg,
		hw:   hw,
		log:  log.With().Str("component", "door").Logger(),
		cmds: make(chan command),
		snap: make(chan ports.DoorSnapshot, 1),
		done: make(chan struct{}),
	}
	c.snap <- ports.DoorSnapshot{State: domain.DoorIdle, Since: time.Now().UTC()}
	metrics.DoorStateGauge.WithLabelValues(string(domain.DoorIdle)).Set(1)
	return c
}

// Start launches the owning goroutine. The controller runs until ctx is
// cancelled; on shutdown the relay is forced to the de-energized (locked)
// state.
func (c *Controller) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the controller goroutine has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Open submits an actuation request. It returns the state entered
// (opening) on acceptance, domain.ErrDoorBusy while the door is
// mid-actuation, or domain.ErrDoorFault in the fault state.
func (c *Controller) Open(ctx context.Context, req ports.OpenRequest) (domain.DoorState, error) {
	return c.submit(ctx, command{kind: cmdOpen, req: req})
}

// EmergencyOpen forces the door open from any non-fault state.
func (c *Controller) EmergencyOpen(ctx context.Context) (domain.DoorState, error) {
	return c.submit(ctx, command{kind: cmdEmergency})
}

// Reset transitions fault back to idle after an administrator has cleared
// the underlying condition.
func (c *Controller) Reset(ctx context.Context) error {
	_, err := c.submit(ctx, command{kind: cmdReset})
	return err
}

// Snapshot returns the current state without touching the hardware.
func (c *Controller) Snapshot() ports.DoorSnapshot {
	s := <-c.snap
	c.snap <- s
	return s
}

func (c *Controller) submit(ctx context.Context, cmd command) (domain.DoorState, error) {
	cmd.reply = make(chan cmdResult, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return "", fmt.Errorf("door controller stopped")
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.state, res.err
	case <-ctx.Done():
		// The command was already accepted; the actuation runs to
		// completion even though the caller stopped waiting.
		return "", ctx.Err()
	}
}

// run is the single owner of DoorState and the relay output. All timing
// (settle, hold, held-open grace) and all sensor polling happen here.
func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	state := domain.DoorIdle
	alarm := false
	relayOn := false

	// Inactive timers keep nil channels so the select ignores them.
	var settle, hold, grace *time.Timer
	stopTimer := func(t **time.Timer) {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	poll := time.NewTicker(c.cfg.SensorPoll)
	defer poll.Stop()

	transition := func(to domain.DoorState) {
		if state == to {
			return
		}
		if !state.CanTransitionTo(to) {
			c.log.Error().Str("from", string(state)).Str("to", string(to)).Msg("illegal door state transition")
		}
		metrics.DoorStateGauge.WithLabelValues(string(state)).Set(0)
		metrics.DoorStateGauge.WithLabelValues(string(to)).Set(1)
		metrics.DoorTransitionsTotal.WithLabelValues(string(state), string(to)).Inc()
		c.log.Info().Str("from", string(state)).Str("to", string(to)).Msg("door state changed")
		state = to
		c.publish(state, relayOn, alarm)
	}

	setRelay := func(energized bool) error {
		if err := c.hw.SetRelay(ports.RelayDoor, energized); err != nil {
			return err
		}
		relayOn = energized
		return nil
	}

	// fail forces the locked state and parks the machine in fault until an
	// explicit reset. A second relay error here is logged and ignored:
	// there is nothing safer left to try.
	fail := func(cause error) {
		c.log.Error().Err(cause).Msg("hardware fault, forcing locked state")
		if err := c.hw.SetRelay(ports.RelayDoor, false); err != nil {
			c.log.Error().Err(err).Msg("failed to de-energize relay during fault handling")
		}
		relayOn = false
		stopTimer(&settle)
		stopTimer(&hold)
		stopTimer(&grace)
		alarm = false
		transition(domain.DoorFault)
	}

	// energize starts an opening cycle from idle or restarts it on
	// override. holdDur is remembered for when the settle window elapses.
	// sawOpen records whether the sensor reported the door physically open
	// during the current cycle; only then does a closed reading cut the
	// hold short.
	var pendingHold time.Duration
	var sawOpen bool
	energize := func(holdDur time.Duration) error {
		if err := setRelay(true); err != nil {
			return err
		}
		stopTimer(&hold)
		stopTimer(&grace)
		alarm = false
		sawOpen = false
		pendingHold = holdDur
		stopTimer(&settle)
		settle = time.NewTimer(c.cfg.SettleDelay)
		transition(domain.DoorOpening)
		return nil
	}

	beginClosing := func() {
		stopTimer(&hold)
		if err := setRelay(false); err != nil {
			fail(err)
			return
		}
		transition(domain.DoorClosing)
		stopTimer(&grace)
		grace = time.NewTimer(c.cfg.HeldOpenGrace)
	}

	for {
		select {
		case <-ctx.Done():
			// Fail safe on shutdown: leave the strike locked.
			if err := c.hw.SetRelay(ports.RelayDoor, false); err != nil {
				c.log.Error().Err(err).Msg("failed to de-energize relay on shutdown")
			}
			return

		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdOpen:
				switch {
				case state == domain.DoorFault:
					cmd.reply <- cmdResult{state: state, err: domain.ErrDoorFault}
				case state.Busy():
					cmd.reply <- cmdResult{state: state, err: domain.ErrDoorBusy}
				default:
					dur := cmd.req.Duration
					if dur <= 0 {
						dur = c.cfg.DefaultDuration
					}
					if dur > c.cfg.MaxDuration {
						dur = c.cfg.MaxDuration
					}
					if err := energize(dur); err != nil {
						fail(err)
						cmd.reply <- cmdResult{state: state, err: domain.ErrDoorFault}
						continue
					}
					c.log.Info().Str("source", string(cmd.req.Source)).Dur("duration", dur).Msg("door opening")
					cmd.reply <- cmdResult{state: state}
				}

			case cmdEmergency:
				if state == domain.DoorFault {
					cmd.reply <- cmdResult{state: state, err: domain.ErrDoorFault}
					continue
				}
				if err := energize(c.cfg.OverrideDuration); err != nil {
					fail(err)
					cmd.reply <- cmdResult{state: state, err: domain.ErrDoorFault}
					continue
				}
				c.log.Warn().Msg("emergency override, door forced open")
				cmd.reply <- cmdResult{state: state}

			case cmdReset:
				if state != domain.DoorFault {
					cmd.reply <- cmdResult{state: state}
					continue
				}
				if err := setRelay(false); err != nil {
					cmd.reply <- cmdResult{state: state, err: fmt.Errorf("reset: %w", err)}
					continue
				}
				transition(domain.DoorIdle)
				c.log.Info().Msg("door controller reset")
				cmd.reply <- cmdResult{state: state}
			}

		case <-timerC(settle):
			settle = nil
			if state != domain.DoorOpening {
				continue
			}
			transition(domain.DoorOpen)
			stopTimer(&hold)
			hold = time.NewTimer(pendingHold)

		case <-timerC(hold):
			hold = nil
			if state != domain.DoorOpen {
				continue
			}
			beginClosing()

		case <-timerC(grace):
			grace = nil
			if state != domain.DoorClosing || alarm {
				continue
			}
			alarm = true
			metrics.DoorHeldOpenAlarmsTotal.Inc()
			c.log.Warn().Msg("door held open after relay de-energized")
			c.publish(state, relayOn, alarm)

		case <-poll.C:
			raw, err := c.hw.ReadInput(ports.InputDoorSensor)
			if err != nil {
				if state != domain.DoorFault {
					fail(err)
				}
				continue
			}
			sensorOpen := c.doorOpenFromSensor(raw)
			c.publishSensor(sensorOpen)

			switch state {
			case domain.DoorOpen:
				if sensorOpen {
					sawOpen = true
				} else if sawOpen {
					// Door was used and closed again before the hold
					// elapsed; no reason to keep the strike energized.
					beginClosing()
				}
			case domain.DoorClosing:
				if !sensorOpen {
					stopTimer(&grace)
					if alarm {
						alarm = false
						c.log.Info().Msg("door confirmed closed, held-open alarm cleared")
					}
					transition(domain.DoorIdle)
				}
			}
		}
	}
}

func (c *Controller) doorOpenFromSensor(raw bool) bool {
	if c.cfg.SensorNormallyClosed {
		return !raw
	}
	return raw
}

func (c *Controller) publish(state domain.DoorState, relayOn, alarm bool) {
	s := <-c.snap
	if s.State != state {
		s.Since = time.Now().UTC()
	}
	s.State = state
	s.RelayEnergized = relayOn
	s.HeldOpenAlarm = alarm
	c.snap <- s
}

func (c *Controller) publishSensor(open bool) {
	s := <-c.snap
	s.SensorOpen = open
	c.snap <- s
}
