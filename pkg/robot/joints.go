// Package robot provides the TCP link to a Yaskawa NHC12 robot controller.
package robot

// JointName identifies a joint of the arm.
type JointName string

// Joint names for a 6-axis NHC12 arm, in wire order (J1-J6).
const (
	Joint1 JointName = "joint_1"
	Joint2 JointName = "joint_2"
	Joint3 JointName = "joint_3"
	Joint4 JointName = "joint_4"
	Joint5 JointName = "joint_5"
	Joint6 JointName = "joint_6"
)

// DefaultJoints returns all joint names in wire order.
func DefaultJoints() []JointName {
	return []JointName{Joint1, Joint2, Joint3, Joint4, Joint5, Joint6}
}

// JointState is a snapshot of joint positions in degrees, in wire order.
// It is produced by a read and never mutated afterwards.
type JointState []float64

// JointCommand holds target joint positions in degrees, in wire order.
// Speed, when non-zero, is a motion profile hint in percent of the
// controller's maximum joint speed.
type JointCommand struct {
	Positions []float64
	Speed     float64
}

// Clone returns an independent copy of the state.
func (s JointState) Clone() JointState {
	out := make(JointState, len(s))
	copy(out, s)
	return out
}

// Command converts a state into a command targeting the same positions.
// Used during recording, where the action is where the robot already is.
func (s JointState) Command() JointCommand {
	return JointCommand{Positions: s.Clone()}
}
