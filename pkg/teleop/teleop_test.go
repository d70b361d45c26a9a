package teleop_test

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
	"github.com/gwillem/lerobot-yaskawa/pkg/sim"
	"github.com/gwillem/lerobot-yaskawa/pkg/teleop"
)

// fakeLeader replays a fixed pose, optionally failing some reads.
type fakeLeader struct {
	mu       sync.Mutex
	pose     robot.JointState
	failNext int
}

func (f *fakeLeader) setPose(pose robot.JointState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pose = pose
}

func (f *fakeLeader) ReadDegrees(ctx context.Context) (robot.JointState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("servo sync read failed")
	}
	return f.pose.Clone(), nil
}

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

func TestController_MirrorsLeader(t *testing.T) {
	link, ctrl := newRig(t)
	leader := &fakeLeader{pose: robot.JointState{15, -20, 5, 0, 0, 0}}

	c := teleop.NewController(leader, link, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	// Wait for a successful state update.
	select {
	case s := <-c.States():
		require.NoError(t, s.Error)
		assert.Equal(t, robot.JointState{15, -20, 5, 0, 0, 0}, s.Positions)
	case <-time.After(2 * time.Second):
		t.Fatal("no state update")
	}

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []float64{15, -20, 5, 0, 0, 0}, ctrl.Positions())
	assert.Greater(t, ctrl.MoveCount(), 0)

	// Control handed back on shutdown.
	assert.Equal(t, robot.Idle, link.Mode())
}

func TestController_ClampsToFollowerLimits(t *testing.T) {
	link, ctrl := newRig(t)
	// Leader pushed past the follower's envelope on joint 1.
	leader := &fakeLeader{pose: robot.JointState{250, 0, 0, 0, 0, 0}}

	c := teleop.NewController(leader, link, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case s := <-c.States():
		require.NoError(t, s.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("no state update")
	}

	cancel()
	<-done

	assert.Equal(t, 170.0, ctrl.Positions()[0], "command saturates at the joint limit")
}

func TestController_SurvivesLeaderReadError(t *testing.T) {
	link, ctrl := newRig(t)
	leader := &fakeLeader{pose: robot.JointState{1, 2, 3, 4, 5, 6}, failNext: 2}

	c := teleop.NewController(leader, link, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-c.States():
			if s.Error == nil {
				cancel()
				<-done
				assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, ctrl.Positions())
				return
			}
		case <-deadline:
			t.Fatal("loop never recovered from leader errors")
		}
	}
}

func TestController_RequiresIdleFollower(t *testing.T) {
	link, _ := newRig(t)
	require.NoError(t, link.EnableDirectTeach(context.Background()))

	c := teleop.NewController(&fakeLeader{pose: robot.JointState{0, 0, 0, 0, 0, 0}}, link, 100)
	err := c.Start(context.Background())
	assert.ErrorIs(t, err, robot.ErrInvalidModeTransition)
}

func TestController_RejectsDoubleStart(t *testing.T) {
	link, _ := newRig(t)
	leader := &fakeLeader{pose: robot.JointState{0, 0, 0, 0, 0, 0}}
	c := teleop.NewController(leader, link, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-c.States():
	case <-time.After(2 * time.Second):
		t.Fatal("controller never started")
	}

	err := c.Start(context.Background())
	require.Error(t, err)

	cancel()
	<-done
}
