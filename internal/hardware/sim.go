// Package hardware provides the HAL implementations behind
// ports.Hardware: a Linux GPIO character-device driver for the board and a
// simulated driver for development hosts and tests.
package hardware

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// Sim is an in-memory HAL for hosts without GPIO. Inputs default to their
// electrically idle levels: door sensor circuit closed (normally closed
// wiring, door shut) and override button high (active-low, not pressed).
type Sim struct {
	mu     sync.Mutex
	relays map[ports.RelayID]bool
	inputs map[ports.InputID]bool
	log    zerolog.Logger
}

func NewSim(log zerolog.Logger) *Sim {
	return &Sim{
		relays: map[ports.RelayID]bool{
			ports.RelayDoor:      false,
			ports.RelayAuxiliary: false,
		},
		inputs: map[ports.InputID]bool{
			ports.InputDoorSensor: true,
			ports.InputOverride:   true,
		},
		log: log.With().Str("component", "hardware").Str("driver", "sim").Logger(),
	}
}

func (s *Sim) SetRelay(id ports.RelayID, energized bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relays[id]; !ok {
		return fmt.Errorf("unknown relay %q", id)
	}
	s.relays[id] = energized
	s.log.Debug().Str("relay", string(id)).Bool("energized", energized).Msg("relay set")
	return nil
}

func (s *Sim) ReadInput(id ports.InputID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.inputs[id]
	if !ok {
		return false, fmt.Errorf("unknown input %q", id)
	}
	return v, nil
}

func (s *Sim) Close() error { return nil }

// SetInput drives a simulated input level. Test and development helper.
func (s *Sim) SetInput(id ports.InputID, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[id] = level
}

// RelayState reports a simulated relay level. Test helper.
func (s *Sim) RelayState(id ports.RelayID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relays[id]
}
