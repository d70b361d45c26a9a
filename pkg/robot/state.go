package robot

// ControlMode says who is allowed to move the arm. Exactly one mode is
// active at a time; joint writes are only legal in Programmatic.
type ControlMode int

const (
	// Idle: connected, no motion source selected.
	Idle ControlMode = iota
	// DirectTeach: gravity compensation is on, a human moves the arm.
	DirectTeach
	// Programmatic: joint commands from this link move the arm.
	Programmatic
)

func (m ControlMode) String() string {
	switch m {
	case Idle:
		return "idle"
	case DirectTeach:
		return "direct_teach"
	case Programmatic:
		return "programmatic"
	default:
		return "unknown"
	}
}

// ConnectionState is the lifecycle of the TCP session. It is owned by the
// link and only observable from outside.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	// Faulted is sticky after repeated timeouts or a socket error.
	// Only Disconnect or Connect leave it.
	Faulted
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}
