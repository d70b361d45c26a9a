// Package teleop mirrors a leader arm onto the Yaskawa follower in real
// time: leader joint angles are read at a fixed rate, clamped to the
// follower's limits and written as motion commands.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// Input supplies leader joint angles in follower degrees.
// *leader.Arm implements it.
type Input interface {
	ReadDegrees(ctx context.Context) (robot.JointState, error)
}

// State represents the current state of teleoperation.
type State struct {
	Positions robot.JointState
	Timestamp time.Time
	Error     error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	leader   Input
	follower *robot.Link
	hz       int

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// NewController creates a teleoperation controller over a connected
// follower link and a leader input.
func NewController(in Input, follower *robot.Link, hz int) *Controller {
	if hz <= 0 {
		hz = 60
	}
	return &Controller{
		leader:   in,
		follower: follower,
		hz:       hz,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start claims programmatic control of the follower and runs the mirror
// loop until ctx is cancelled. Control is returned to Idle on exit.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	if err := c.follower.SetProgrammaticMode(); err != nil {
		return fmt.Errorf("claim follower control: %w", err)
	}
	defer func() {
		if err := c.follower.ReturnToIdle(); err != nil {
			c.log("Warning: failed to release follower: %v", err)
		}
	}()

	c.log("Teleoperation started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log("Teleoperation stopped")
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	positions, err := c.leader.ReadDegrees(ctx)
	if err != nil {
		c.log("Leader read error: %v", err)
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	// The leader can be pushed slightly past the follower's envelope;
	// saturate rather than abort.
	cmd := c.follower.Limits().Clamp(c.follower.Joints(), robot.JointCommand{Positions: positions})

	if err := c.follower.WriteJointPositions(ctx, cmd); err != nil {
		c.log("Follower write error: %v", err)
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	c.sendState(State{
		Positions: positions,
		Timestamp: time.Now(),
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}
