// Package leader drives an SO-101 arm on the feetech serial bus, used as
// a passive input device: the operator moves the leader by hand and the
// Yaskawa follower mirrors it.
package leader

import (
	"context"
	"fmt"
	"strings"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// Arm is a leader arm with one servo per follower joint.
type Arm struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	joints []robot.JointName
	cal    Calibration
}

// NewArm opens the serial bus and prepares the servo group. The
// calibration must cover every joint.
func NewArm(port string, joints []robot.JointName, cal Calibration) (*Arm, error) {
	if err := cal.Check(joints); err != nil {
		return nil, err
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open leader bus: %w", err)
	}

	ids := make([]int, len(joints))
	for i, name := range joints {
		ids[i] = cal[name].ID
	}
	group := feetech.NewServoGroupByIDs(bus, ids...)

	return &Arm{
		bus:    bus,
		group:  group,
		joints: joints,
		cal:    cal,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// SetPassive disables torque on all servos so the operator can move the
// leader freely.
func (a *Arm) SetPassive(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadDegrees reads all servo positions and maps them to follower joint
// degrees, in wire order.
func (a *Arm) ReadDegrees(ctx context.Context) (robot.JointState, error) {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read leader positions: %w", err)
	}

	state := make(robot.JointState, len(a.joints))
	for i, name := range a.joints {
		sc := a.cal[name]
		ticks, ok := raw[sc.ID]
		if !ok {
			return nil, fmt.Errorf("leader servo %d (%s) missing from sync read", sc.ID, name)
		}
		state[i] = sc.Degrees(ticks)
	}
	return state, nil
}

// FindPorts lists serial ports that could carry a leader arm.
func FindPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}
