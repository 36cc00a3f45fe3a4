package hardware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

const (
	overridePollInterval = 100 * time.Millisecond
	overrideCooldown     = 2 * time.Second
)

// OverrideWatcher samples the emergency-override input and fires a
// callback on each press. The input is active-low: a press pulls the line
// low. Edge-triggered with a cooldown, so holding the button produces one
// event and the line must return high before the next press registers.
type OverrideWatcher struct {
	hw       ports.Hardware
	onPress  func()
	interval time.Duration
	log      zerolog.Logger
}

func NewOverrideWatcher(hw ports.Hardware, onPress func(), log zerolog.Logger) *OverrideWatcher {
	return &OverrideWatcher{
		hw:       hw,
		onPress:  onPress,
		interval: overridePollInterval,
		log:      log.With().Str("component", "override").Logger(),
	}
}

// Run polls until ctx is cancelled. Read errors are logged and retried;
// the door controller handles hardware faults on its own inputs.
func (w *OverrideWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	pressed := false
	var lastFire time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := w.hw.ReadInput(ports.InputOverride)
			if err != nil {
				w.log.Error().Err(err).Msg("failed to read override input")
				continue
			}

			active := !raw // active-low
			switch {
			case active && !pressed:
				pressed = true
				if time.Since(lastFire) >= overrideCooldown {
					lastFire = time.Now()
					w.log.Warn().Msg("emergency override pressed")
					w.onPress()
				}
			case !active && pressed:
				pressed = false
			}
		}
	}
}
