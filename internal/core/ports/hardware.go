package ports

// RelayID names a relay output on the controller board.
type RelayID string

// InputID names a digital input on the controller board.
type InputID string

const (
	RelayDoor      RelayID = "door_control"
	RelayAuxiliary RelayID = "auxiliary"

	InputDoorSensor InputID = "door_sensor"
	InputOverride   InputID = "emergency_button"
)

// Hardware is the narrow abstraction over the board's relay outputs and
// digital inputs. The door controller is its only mutating consumer; the
// status endpoint reads through it. Implementations must be safe for
// concurrent use.
type Hardware interface {
	// SetRelay drives a relay output. Energized means unlocked for the door
	// strike relay. An error here is a hardware fault.
	SetRelay(id RelayID, energized bool) error

	// ReadInput samples a digital input. The raw electrical level is
	// returned; interpretation (active-low, normally-closed) is the
	// caller's concern.
	ReadInput(id InputID) (bool, error)

	// Close releases the underlying lines.
	Close() error
}
