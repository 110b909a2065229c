package types

// State represents the controller's membership-driven lifecycle state.
//
// Transitions are driven by group events:
//
//	StateUnknown → StateMaster/StateStandby (on Connected/Changed)
//	StateMaster ↔ StateStandby (on mastership changes)
//	any → StateDisconnected (on coordination service loss)
type State int

const (
	// StateUnknown is the initial state before any membership event.
	StateUnknown State = iota

	// StateMaster indicates this node is the group master and runs
	// reconciliation.
	StateMaster

	// StateStandby indicates another node is master; this node is a passive
	// group member.
	StateStandby

	// StateDisconnected indicates the coordination service connection is
	// lost; the node assumes it is not master.
	StateDisconnected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateMaster:
		return "Master"
	case StateStandby:
		return "Standby"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Invalid"
	}
}
