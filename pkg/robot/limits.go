package robot

import "fmt"

// Limit is an inclusive position bound for one joint, in degrees.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Limits holds per-joint bounds, keyed by joint name. Loaded once at link
// construction and immutable for the connection's lifetime.
type Limits map[JointName]Limit

// DefaultLimits returns the NHC12 joint envelope in degrees.
func DefaultLimits() Limits {
	return Limits{
		Joint1: {Min: -170, Max: 170},
		Joint2: {Min: -130, Max: 90},
		Joint3: {Min: -170, Max: 90},
		Joint4: {Min: -200, Max: 200},
		Joint5: {Min: -135, Max: 135},
		Joint6: {Min: -360, Max: 360},
	}
}

// Check verifies that every bound is sane and that all given joints have
// a bound. Called at config load time.
func (l Limits) Check(joints []JointName) error {
	for name, lim := range l {
		if lim.Min >= lim.Max {
			return fmt.Errorf("limit for %s: min %.2f must be below max %.2f", name, lim.Min, lim.Max)
		}
	}
	for _, name := range joints {
		if _, ok := l[name]; !ok {
			return fmt.Errorf("no limit configured for %s", name)
		}
	}
	return nil
}

// Validate checks a command against the bounds. It returns a
// *LimitViolation listing every offending joint, or nil.
func (l Limits) Validate(joints []JointName, cmd JointCommand) error {
	if len(cmd.Positions) != len(joints) {
		return fmt.Errorf("%w: expected %d joint positions, got %d", ErrProtocol, len(joints), len(cmd.Positions))
	}
	var bad []JointViolation
	for i, name := range joints {
		lim, ok := l[name]
		if !ok {
			continue
		}
		if v := cmd.Positions[i]; v < lim.Min || v > lim.Max {
			bad = append(bad, JointViolation{Joint: name, Value: v, Min: lim.Min, Max: lim.Max})
		}
	}
	if len(bad) > 0 {
		return &LimitViolation{Joints: bad}
	}
	return nil
}

// Clamp returns a copy of the command with every position pulled inside
// its bound. Used by teleoperation, where a slightly out-of-range leader
// pose should saturate rather than abort.
func (l Limits) Clamp(joints []JointName, cmd JointCommand) JointCommand {
	out := JointCommand{Positions: make([]float64, len(cmd.Positions)), Speed: cmd.Speed}
	copy(out.Positions, cmd.Positions)
	for i, name := range joints {
		if i >= len(out.Positions) {
			break
		}
		lim, ok := l[name]
		if !ok {
			continue
		}
		if out.Positions[i] < lim.Min {
			out.Positions[i] = lim.Min
		}
		if out.Positions[i] > lim.Max {
			out.Positions[i] = lim.Max
		}
	}
	return out
}
