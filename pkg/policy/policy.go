// Package policy runs a control loop that drives the arm from a policy's
// predicted actions: read an observation, select an action, write it,
// once per control cycle.
package policy

import (
	"errors"

	"github.com/gwillem/lerobot-yaskawa/pkg/record"
	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// ErrDone is returned by a policy when its episode is finished.
var ErrDone = errors.New("policy episode finished")

// Policy turns the latest observation into the next joint command.
// Implementations wrap a trained model served elsewhere; Replay stands in
// for one by playing back a recorded demonstration.
type Policy interface {
	Name() string
	SelectAction(obs robot.JointState) (robot.JointCommand, error)
}

// Replay plays a recorded episode back frame by frame, ignoring the
// observation. Useful to verify a demonstration on the real arm before
// training on it.
type Replay struct {
	episode *record.Episode
	cursor  int
}

// NewReplay builds a replay policy over a recorded episode.
func NewReplay(ep *record.Episode) *Replay {
	return &Replay{episode: ep}
}

func (r *Replay) Name() string { return "replay" }

// SelectAction returns the next recorded frame as the action, or ErrDone
// after the last frame.
func (r *Replay) SelectAction(robot.JointState) (robot.JointCommand, error) {
	if r.cursor >= len(r.episode.Frames) {
		return robot.JointCommand{}, ErrDone
	}
	frame := r.episode.Frames[r.cursor]
	r.cursor++
	return robot.JointCommand{Positions: frame.Positions}, nil
}
