package leader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// ServoCalibration maps one leader servo's tick range onto the degree
// range of the follower joint it drives.
type ServoCalibration struct {
	ID       int     `json:"id"`
	TicksMin int     `json:"ticks_min"` // servo ticks at DegMin
	TicksMax int     `json:"ticks_max"` // servo ticks at DegMax
	DegMin   float64 `json:"deg_min"`
	DegMax   float64 `json:"deg_max"`
}

// Calibration holds servo calibrations keyed by follower joint name.
type Calibration map[robot.JointName]ServoCalibration

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// Save writes the calibration to a JSON file.
func (c Calibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Check verifies that every joint has a usable servo mapping.
func (c Calibration) Check(joints []robot.JointName) error {
	for _, name := range joints {
		sc, ok := c[name]
		if !ok {
			return fmt.Errorf("leader calibration missing joint %s", name)
		}
		if sc.TicksMin == sc.TicksMax {
			return fmt.Errorf("leader calibration for %s has an empty tick range", name)
		}
		if sc.DegMin >= sc.DegMax {
			return fmt.Errorf("leader calibration for %s: deg_min %.2f must be below deg_max %.2f", name, sc.DegMin, sc.DegMax)
		}
	}
	return nil
}

// Degrees maps a raw servo tick count onto the follower joint's degree
// range. Values outside the calibrated tick range extrapolate linearly;
// the teleop loop clamps to the joint limits before writing.
func (c ServoCalibration) Degrees(ticks int) float64 {
	span := float64(c.TicksMax - c.TicksMin)
	frac := float64(ticks-c.TicksMin) / span
	return c.DegMin + frac*(c.DegMax-c.DegMin)
}

// Ticks is the inverse of Degrees.
func (c ServoCalibration) Ticks(deg float64) int {
	span := c.DegMax - c.DegMin
	frac := (deg - c.DegMin) / span
	return c.TicksMin + int(frac*float64(c.TicksMax-c.TicksMin)+0.5)
}
