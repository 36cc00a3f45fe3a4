package domain

// DoorState represents the lifecycle state of the physical door lock.
// Exactly one live instance exists per door, owned by the door controller;
// every other component observes it read-only.
type DoorState string

const (
	DoorIdle    DoorState = "idle"
	DoorOpening DoorState = "opening"
	DoorOpen    DoorState = "open"
	DoorClosing DoorState = "closing"
	DoorFault   DoorState = "fault"
)

// validTransitions defines the allowed state machine transitions.
// Fault is reachable from every state on a hardware fault and is terminal
// until an explicit administrative reset back to idle.
var validTransitions = map[DoorState][]DoorState{
	DoorIdle:    {DoorOpening, DoorFault},
	DoorOpening: {DoorOpen, DoorFault},
	DoorOpen:    {DoorClosing, DoorOpening, DoorFault},
	DoorClosing: {DoorIdle, DoorOpening, DoorFault},
	DoorFault:   {DoorIdle},
}

// CanTransitionTo reports whether a transition from the current state to next is valid.
func (s DoorState) CanTransitionTo(next DoorState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Busy reports whether the door is mid-actuation. A new open request that
// arrives while the door is busy is rejected, never queued.
func (s DoorState) Busy() bool {
	return s == DoorOpening || s == DoorOpen || s == DoorClosing
}
