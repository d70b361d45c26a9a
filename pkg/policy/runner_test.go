package policy_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/lerobot-yaskawa/pkg/policy"
	"github.com/gwillem/lerobot-yaskawa/pkg/record"
	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
	"github.com/gwillem/lerobot-yaskawa/pkg/sim"
)

func newRig(t *testing.T) (*robot.Link, *sim.Controller) {
	t.Helper()

	ctrl := sim.New(robot.DefaultDialect(), 6)
	require.NoError(t, ctrl.Start("127.0.0.1:0"))
	t.Cleanup(func() { ctrl.Close() })

	host, portStr, err := net.SplitHostPort(ctrl.Addr())
	require.NoError(t, err)
	port, _ := strconv.Atoi(portStr)

	cfg := robot.DefaultConfig()
	cfg.Address = host
	cfg.Port = port
	cfg.OpTimeoutMs = 200
	cfg.ConnectRetries = 0
	cfg.LogLevel = "off"

	link, err := robot.NewLink(cfg)
	require.NoError(t, err)
	require.NoError(t, link.Connect(context.Background()))
	t.Cleanup(func() { link.Disconnect() })

	return link, ctrl
}

func episodeWith(frames ...[]float64) *record.Episode {
	ep := &record.Episode{FPS: 50}
	for i, pos := range frames {
		ep.Frames = append(ep.Frames, record.Frame{Index: i, T: float64(i) / 50, Positions: pos})
	}
	return ep
}

func TestRunner_ReplaysEpisode(t *testing.T) {
	link, ctrl := newRig(t)

	ep := episodeWith(
		[]float64{1, 0, 0, 0, 0, 0},
		[]float64{2, 0, 0, 0, 0, 0},
		[]float64{3, -5, 0, 0, 0, 0},
	)
	runner := policy.NewRunner(link, policy.NewReplay(ep), 100, 0)

	stats, err := runner.RunEpisode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Steps)
	assert.Equal(t, 3, ctrl.MoveCount())
	assert.Equal(t, []float64{3, -5, 0, 0, 0, 0}, ctrl.Positions())

	// Control is handed back after the episode.
	assert.Equal(t, robot.Idle, link.Mode())
}

func TestRunner_LimitViolationIsFatal(t *testing.T) {
	link, ctrl := newRig(t)

	ep := episodeWith(
		[]float64{10, 0, 0, 0, 0, 0},
		[]float64{999, 0, 0, 0, 0, 0}, // unsafe prediction
		[]float64{20, 0, 0, 0, 0, 0},
	)
	runner := policy.NewRunner(link, policy.NewReplay(ep), 100, 0)

	stats, err := runner.RunEpisode(context.Background())
	require.Error(t, err)
	assert.True(t, robot.IsLimitViolation(err), "want LimitViolation, got %v", err)
	assert.Equal(t, 1, stats.Steps, "only the safe step executed")
	assert.Equal(t, 1, ctrl.MoveCount(), "unsafe command must never reach the wire")
	assert.Equal(t, []float64{10, 0, 0, 0, 0, 0}, ctrl.Positions())
}

func TestRunner_MaxStepsCapsEpisode(t *testing.T) {
	link, ctrl := newRig(t)

	ep := episodeWith(
		[]float64{1, 0, 0, 0, 0, 0},
		[]float64{2, 0, 0, 0, 0, 0},
		[]float64{3, 0, 0, 0, 0, 0},
	)
	runner := policy.NewRunner(link, policy.NewReplay(ep), 100, 2)

	stats, err := runner.RunEpisode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Steps)
	assert.Equal(t, 2, ctrl.MoveCount())
}

func TestRunner_RequiresIdleLink(t *testing.T) {
	link, _ := newRig(t)
	require.NoError(t, link.EnableDirectTeach(context.Background()))

	runner := policy.NewRunner(link, policy.NewReplay(episodeWith()), 100, 0)
	_, err := runner.RunEpisode(context.Background())
	assert.ErrorIs(t, err, robot.ErrInvalidModeTransition)
}

func TestRunner_ContextCancel(t *testing.T) {
	link, _ := newRig(t)

	// Endless policy: always commands the current pose.
	hold := holdPolicy{}
	runner := policy.NewRunner(link, hold, 100, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	stats, err := runner.RunEpisode(ctx)
	require.Error(t, err)
	assert.Greater(t, stats.Steps, 0)
}

type holdPolicy struct{}

func (holdPolicy) Name() string { return "hold" }

func (holdPolicy) SelectAction(obs robot.JointState) (robot.JointCommand, error) {
	return obs.Command(), nil
}
