package wsession

import "fmt"

type State byte

const (
	StateDisconnected State = iota
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Status is the three-valued connection state. Reason is non-nil only when
// State is StateFailed and carries why the connection could not be opened.
type Status struct {
	State  State
	Reason error
}

func (s Status) IsConnected() bool {
	return s.State == StateConnected
}

func (s Status) String() string {
	if s.State == StateFailed && s.Reason != nil {
		return fmt.Sprintf("%s: %s", s.State, s.Reason)
	}
	return s.State.String()
}

func statusDisconnected() Status {
	return Status{State: StateDisconnected}
}

func statusConnected() Status {
	return Status{State: StateConnected}
}

func statusFailed(reason error) Status {
	return Status{State: StateFailed, Reason: reason}
}
