package playground

// State is the driver's scheduling state
type State int

const (
	// Idle means nothing is scheduled or running
	Idle State = iota
	// PendingShort means the initial grace timer is armed
	PendingShort
	// PendingDebounce means a compile is scheduled behind the debounce timer
	PendingDebounce
	// Running means a compile-then-mount cycle is in flight
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingShort:
		return "pending_short"
	case PendingDebounce:
		return "pending_debounce"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// phase tags which timer a firing belongs to
type phase int

const (
	phaseNone phase = iota
	phaseShort
	phaseDebounce
)
