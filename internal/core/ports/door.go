package ports

import (
	"context"
	"time"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// OpenRequest asks the door controller to actuate the strike relay.
// Consumed by the controller and discarded after handling.
type OpenRequest struct {
	Duration time.Duration // hold time; capped at the configured maximum
	Source   domain.Source
}

// DoorSnapshot is a read-only view of the controller's current state.
type DoorSnapshot struct {
	State          domain.DoorState `json:"state"`
	Since          time.Time        `json:"since"`
	RelayEnergized bool             `json:"relay_energized"`
	SensorOpen     bool             `json:"sensor_open"`
	HeldOpenAlarm  bool             `json:"held_open_alarm"`
}

// DoorController owns the relay and the single live DoorState. All requests
// are serialized through its command queue; a request arriving while the
// door is mid-actuation fails with domain.ErrDoorBusy rather than queueing.
type DoorController interface {
	// Open actuates the door for the requested duration. Returns the state
	// entered (opening) on acceptance, or ErrDoorBusy / ErrDoorFault.
	Open(ctx context.Context, req OpenRequest) (domain.DoorState, error)

	// EmergencyOpen forces the door open from any non-fault state,
	// bypassing verification. Only a fault rejects it.
	EmergencyOpen(ctx context.Context) (domain.DoorState, error)

	// Reset transitions fault back to idle. No-op outside fault.
	Reset(ctx context.Context) error

	// Snapshot returns the current state without touching the hardware.
	Snapshot() DoorSnapshot
}
