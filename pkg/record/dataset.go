// Package record implements direct-teach episode recording: joint
// trajectories captured while a human moves the arm under gravity
// compensation, stored as an on-disk dataset.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

const metaFile = "meta.json"

// Frame is one sample of a recorded trajectory.
type Frame struct {
	Index     int       `json:"index"`
	T         float64   `json:"t"` // seconds since episode start
	Positions []float64 `json:"positions"`
}

// Episode is one recorded demonstration.
type Episode struct {
	Index      int               `json:"index"`
	Task       string            `json:"task"`
	FPS        int               `json:"fps"`
	RecordedAt time.Time         `json:"recorded_at"`
	Joints     []robot.JointName `json:"joints"`
	Frames     []Frame           `json:"frames"`
}

// Duration returns the wall time covered by the episode.
func (e *Episode) Duration() time.Duration {
	if len(e.Frames) == 0 {
		return 0
	}
	return time.Duration(e.Frames[len(e.Frames)-1].T * float64(time.Second))
}

// Meta describes a dataset directory.
type Meta struct {
	Task      string            `json:"task"`
	RobotType string            `json:"robot_type"`
	FPS       int               `json:"fps"`
	Joints    []robot.JointName `json:"joints"`
	Episodes  int               `json:"episodes"`
}

// Dataset is a directory of episodes plus a meta file.
type Dataset struct {
	dir  string
	meta Meta
}

// Create makes a new dataset directory. It fails if the directory already
// holds a dataset.
func Create(dir, task string, fps int, joints []robot.JointName) (*Dataset, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err == nil {
		return nil, fmt.Errorf("dataset already exists in %s", dir)
	}
	d := &Dataset{
		dir: dir,
		meta: Meta{
			Task:      task,
			RobotType: "yaskawa_nhc12",
			FPS:       fps,
			Joints:    joints,
		},
	}
	if err := d.writeMeta(); err != nil {
		return nil, err
	}
	return d, nil
}

// Open loads an existing dataset.
func Open(dir string) (*Dataset, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	d := &Dataset{dir: dir}
	if err := json.Unmarshal(data, &d.meta); err != nil {
		return nil, fmt.Errorf("parse dataset meta: %w", err)
	}
	return d, nil
}

// Meta returns a copy of the dataset metadata.
func (d *Dataset) Meta() Meta { return d.meta }

// Episodes returns the number of saved episodes.
func (d *Dataset) Episodes() int { return d.meta.Episodes }

// Dir returns the dataset directory.
func (d *Dataset) Dir() string { return d.dir }

// SaveEpisode appends the episode to the dataset, assigning its index.
func (d *Dataset) SaveEpisode(ep *Episode) error {
	ep.Index = d.meta.Episodes
	ep.Task = d.meta.Task
	ep.FPS = d.meta.FPS
	ep.Joints = d.meta.Joints

	data, err := json.MarshalIndent(ep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.episodePath(ep.Index), data, 0644); err != nil {
		return fmt.Errorf("write episode %d: %w", ep.Index, err)
	}
	d.meta.Episodes++
	return d.writeMeta()
}

// LoadEpisode reads episode idx back from disk.
func (d *Dataset) LoadEpisode(idx int) (*Episode, error) {
	data, err := os.ReadFile(d.episodePath(idx))
	if err != nil {
		return nil, fmt.Errorf("load episode %d: %w", idx, err)
	}
	var ep Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return nil, fmt.Errorf("parse episode %d: %w", idx, err)
	}
	return &ep, nil
}

func (d *Dataset) episodePath(idx int) string {
	return filepath.Join(d.dir, fmt.Sprintf("episode_%06d.json", idx))
}

func (d *Dataset) writeMeta() error {
	data, err := json.MarshalIndent(d.meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.dir, metaFile), data, 0644)
}
