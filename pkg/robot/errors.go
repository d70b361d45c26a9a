package robot

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the link. Wire errors distinguish "retry is
// safe" (ErrTimeout on a read) from "retry is unsafe" (ErrTimeout wrapped
// by a write, where the controller's actual state is unknown).
var (
	// ErrConnection means the TCP session could not be established.
	ErrConnection = errors.New("connection failed")

	// ErrNotConnected means an operation was attempted while the link
	// is not in the Connected state.
	ErrNotConnected = errors.New("not connected")

	// ErrTimeout means the controller did not answer within the bound.
	ErrTimeout = errors.New("timeout waiting for controller response")

	// ErrProtocol means the controller's response did not parse.
	ErrProtocol = errors.New("protocol error")

	// ErrInvalidMode means the operation is illegal in the current
	// control mode (e.g. a joint write during direct teach).
	ErrInvalidMode = errors.New("operation not allowed in current control mode")

	// ErrInvalidModeTransition means the requested mode change is not
	// in the transition table (e.g. Programmatic directly to DirectTeach).
	ErrInvalidModeTransition = errors.New("invalid control mode transition")
)

// LimitViolation lists joints of a command that fall outside their
// configured bounds. It is raised before any transmission occurs.
type LimitViolation struct {
	Joints []JointViolation
}

// JointViolation describes a single out-of-bound joint value.
type JointViolation struct {
	Joint JointName
	Value float64
	Min   float64
	Max   float64
}

func (e *LimitViolation) Error() string {
	parts := make([]string, len(e.Joints))
	for i, v := range e.Joints {
		parts[i] = fmt.Sprintf("%s=%.2f outside [%.2f, %.2f]", v.Joint, v.Value, v.Min, v.Max)
	}
	return "joint limit violation: " + strings.Join(parts, ", ")
}

// IsLimitViolation reports whether err is (or wraps) a LimitViolation.
func IsLimitViolation(err error) bool {
	var lv *LimitViolation
	return errors.As(err, &lv)
}
