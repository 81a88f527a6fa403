package wsocket

// State is the session lifecycle state.
//
// Transitions: Connecting -> Open -> Closing -> Closed. Any handshake-stage
// error moves Connecting directly to Failed; an unexpected I/O error
// moves Open or Closing to Failed. Closed and Failed are terminal.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether no further transitions are possible.
func (s State) terminal() bool {
	return s == StateClosed || s == StateFailed
}
