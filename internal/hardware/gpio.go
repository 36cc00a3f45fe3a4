package hardware

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"

	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

const inputDebounce = 20 * time.Millisecond

// GPIOConfig maps logical relay and input names to line offsets on the
// GPIO character device.
type GPIOConfig struct {
	Chip      string // e.g. "gpiochip0"
	RelayPins map[ports.RelayID]int
	InputPins map[ports.InputID]int
}

// GPIO drives the board's relays and digital inputs through the Linux GPIO
// character device. Relays start de-energized (locked); inputs are
// requested with pull-ups, matching the board's open-collector wiring.
type GPIO struct {
	relays map[ports.RelayID]*gpiocdev.Line
	inputs map[ports.InputID]*gpiocdev.Line
	log    zerolog.Logger
}

func NewGPIO(cfg GPIOConfig, log zerolog.Logger) (*GPIO, error) {
	g := &GPIO{
		relays: make(map[ports.RelayID]*gpiocdev.Line, len(cfg.RelayPins)),
		inputs: make(map[ports.InputID]*gpiocdev.Line, len(cfg.InputPins)),
		log:    log.With().Str("component", "hardware").Str("driver", "gpio").Logger(),
	}

	for id, pin := range cfg.RelayPins {
		line, err := gpiocdev.RequestLine(cfg.Chip, pin, gpiocdev.AsOutput(0))
		if err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("request relay line %s (offset %d): %w", id, pin, err)
		}
		g.relays[id] = line
	}

	for id, pin := range cfg.InputPins {
		line, err := gpiocdev.RequestLine(cfg.Chip, pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithDebounce(inputDebounce),
		)
		if err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("request input line %s (offset %d): %w", id, pin, err)
		}
		g.inputs[id] = line
	}

	g.log.Info().Str("chip", cfg.Chip).Msg("gpio lines requested")
	return g, nil
}

func (g *GPIO) SetRelay(id ports.RelayID, energized bool) error {
	line, ok := g.relays[id]
	if !ok {
		return fmt.Errorf("unknown relay %q", id)
	}
	v := 0
	if energized {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set relay %s: %w", id, err)
	}
	g.log.Debug().Str("relay", string(id)).Bool("energized", energized).Msg("relay set")
	return nil
}

func (g *GPIO) ReadInput(id ports.InputID) (bool, error) {
	line, ok := g.inputs[id]
	if !ok {
		return false, fmt.Errorf("unknown input %q", id)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read input %s: %w", id, err)
	}
	return v != 0, nil
}

func (g *GPIO) Close() error {
	var firstErr error
	for _, line := range g.relays {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, line := range g.inputs {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
