package core

// State is the lifecycle state of an Instance. Transitions:
// Stopped → Starting → Running → Stopping → Stopped. A failed start returns
// the instance to Stopped; it is never left in Starting.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
