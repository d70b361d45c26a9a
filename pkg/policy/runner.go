package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// Stats summarizes one executed episode.
type Stats struct {
	Steps    int
	Duration time.Duration
}

// Runner executes a policy on the arm at a fixed control frequency.
type Runner struct {
	link   *robot.Link
	policy Policy
	hz     int
	// MaxSteps caps an episode; zero means unlimited.
	maxSteps int
}

// NewRunner builds a runner over an already connected link.
func NewRunner(link *robot.Link, p Policy, hz, maxSteps int) *Runner {
	if hz <= 0 {
		hz = 30
	}
	return &Runner{link: link, policy: p, hz: hz, maxSteps: maxSteps}
}

// RunEpisode claims programmatic control and runs the observe/act loop
// until the policy finishes, ctx is cancelled, the step cap is hit, or an
// error aborts the episode. A limit violation is fatal to the episode:
// the predicted action is unsafe and is never retried. A write timeout is
// also fatal, because the controller's resulting state is unknown and
// re-sending a motion command could double-apply it.
func (r *Runner) RunEpisode(ctx context.Context) (Stats, error) {
	if err := r.link.SetProgrammaticMode(); err != nil {
		return Stats{}, fmt.Errorf("claim programmatic control: %w", err)
	}
	defer r.link.ReturnToIdle()

	start := time.Now()
	stats := Stats{}
	ticker := time.NewTicker(time.Second / time.Duration(r.hz))
	defer ticker.Stop()

	for r.maxSteps == 0 || stats.Steps < r.maxSteps {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		case <-ticker.C:
		}

		obs, err := r.link.ReadJointPositions(ctx)
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("step %d: observe: %w", stats.Steps, err)
		}

		action, err := r.policy.SelectAction(obs)
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("step %d: select action: %w", stats.Steps, err)
		}

		if err := r.link.WriteJointPositions(ctx, action); err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("step %d: apply action: %w", stats.Steps, err)
		}
		stats.Steps++
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
