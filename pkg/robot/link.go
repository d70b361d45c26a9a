package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// maxConsecutiveTimeouts is how many round trips may time out in a row
// before the link declares the session Faulted.
const maxConsecutiveTimeouts = 3

// staleDrainTimeout bounds the pre-send wait for a late response left
// over from a previous timed-out round trip.
const staleDrainTimeout = 50 * time.Millisecond

// Link owns one TCP session to an NHC12 controller. All operations are
// serialized: the protocol is strictly half-duplex request/response, so
// exactly one round trip is in flight at a time. The socket and its
// buffered state are owned exclusively by the link.
type Link struct {
	cfg    *Config
	logger *logrus.Logger

	mu       sync.Mutex
	conn     net.Conn
	reader   *lineReader
	state    ConnectionState
	mode     ControlMode
	pending  int // requests sent but not yet answered
	timeouts int // consecutive round-trip timeouts
}

// NewLink builds a link from a validated configuration. No connection is
// made until Connect.
func NewLink(cfg *Config) (*Link, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	logger := logrus.New()
	if cfg.LogLevel == "off" || cfg.LogLevel == "none" {
		logger.SetOutput(io.Discard)
	} else {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
		logger.SetOutput(os.Stdout)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &Link{
		cfg:    cfg,
		logger: logger,
		state:  Disconnected,
		mode:   Idle,
	}, nil
}

// Logger returns the link's logger.
func (l *Link) Logger() *logrus.Logger { return l.logger }

// Joints returns the configured joint names in wire order.
func (l *Link) Joints() []JointName { return l.cfg.Joints }

// DOF returns the number of joints.
func (l *Link) DOF() int { return len(l.cfg.Joints) }

// Limits returns the configured joint limits.
func (l *Link) Limits() Limits { return l.cfg.Limits }

// State returns the current connection state.
func (l *Link) State() ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Mode returns the current control mode.
func (l *Link) Mode() ControlMode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Connect establishes the TCP session. Calling while already connected is
// a no-op; calling while Faulted first tears the old session down. On
// success the connection is Connected and the control mode is Idle.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case Connected:
		return nil
	case Faulted:
		l.closeLocked()
	}

	l.state = Connecting
	attempts := 1 + l.cfg.ConnectRetries
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				l.state = Disconnected
				return ctx.Err()
			case <-time.After(l.cfg.ConnectBackoff()):
			}
		}
		l.logger.WithField("addr", l.cfg.Addr()).Info("connecting to controller")
		dialer := net.Dialer{Timeout: l.cfg.ConnectTimeout()}
		conn, err := dialer.DialContext(ctx, "tcp", l.cfg.Addr())
		if err == nil {
			l.conn = conn
			l.reader = newLineReader(conn, l.cfg.Dialect.Terminator)
			l.state = Connected
			l.mode = Idle
			l.pending = 0
			l.timeouts = 0
			l.logger.Info("connected")
			return nil
		}
		lastErr = err
		l.logger.WithError(err).Warn("connect attempt failed")
	}

	l.state = Disconnected
	return fmt.Errorf("%w: %s: %v", ErrConnection, l.cfg.Addr(), lastErr)
}

// Disconnect closes the session unconditionally and always succeeds. Safe
// to call repeatedly and from any state.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	l.state = Disconnected
	l.mode = Idle
	return nil
}

func (l *Link) closeLocked() {
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		l.reader = nil
	}
	l.pending = 0
	l.timeouts = 0
}

// faultLocked marks the session Faulted and releases the socket. Faulted
// is sticky: only Disconnect or Connect leave it.
func (l *Link) faultLocked(reason string) {
	l.logger.WithField("reason", reason).Error("link faulted")
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		l.reader = nil
	}
	l.state = Faulted
}

// ReadJointPositions reads the current joint positions. Available in any
// control mode: reading encoder telemetry is safe even during direct
// teach.
func (l *Link) ReadJointPositions(ctx context.Context) (JointState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Connected {
		return nil, fmt.Errorf("%w: state is %s", ErrNotConnected, l.state)
	}
	resp, err := l.roundTrip(ctx, l.cfg.Dialect.readLine())
	if err != nil {
		return nil, fmt.Errorf("read joint positions: %w", err)
	}
	state, err := l.cfg.Dialect.parsePositions(resp, len(l.cfg.Joints))
	if err != nil {
		return nil, fmt.Errorf("read joint positions: %w", err)
	}
	return state, nil
}

// WriteJointPositions validates cmd against the joint limits and sends a
// motion command. It is the only operation that causes physical motion:
// nothing reaches the wire on a validation or mode failure, and a timed
// out command is never re-sent by the link itself (the controller may
// have partially executed it; the caller decides).
func (l *Link) WriteJointPositions(ctx context.Context, cmd JointCommand) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Connected {
		return fmt.Errorf("%w: state is %s", ErrNotConnected, l.state)
	}
	if l.cfg.ClampToLimits {
		cmd = l.cfg.Limits.Clamp(l.cfg.Joints, cmd)
	}
	if err := l.cfg.Limits.Validate(l.cfg.Joints, cmd); err != nil {
		return err
	}
	if l.mode != Programmatic {
		return fmt.Errorf("%w: joint write in %s mode", ErrInvalidMode, l.mode)
	}

	resp, err := l.roundTrip(ctx, l.cfg.Dialect.moveLine(cmd))
	if err != nil {
		return fmt.Errorf("write joint positions: %w", err)
	}
	if err := l.cfg.Dialect.parseAck(resp); err != nil {
		return fmt.Errorf("write joint positions: %w", err)
	}
	return nil
}

// EnableDirectTeach turns gravity compensation on. Only legal from Idle.
// The mode changes only after the controller acknowledges: an unconfirmed
// transition must not be assumed to have taken physical effect.
func (l *Link) EnableDirectTeach(ctx context.Context) error {
	return l.teach(ctx, true)
}

// DisableDirectTeach turns gravity compensation off, returning to Idle.
// Only legal from DirectTeach.
func (l *Link) DisableDirectTeach(ctx context.Context) error {
	return l.teach(ctx, false)
}

func (l *Link) teach(ctx context.Context, on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Connected {
		return fmt.Errorf("%w: state is %s", ErrNotConnected, l.state)
	}
	if on && l.mode != Idle {
		return fmt.Errorf("%w: enable direct teach from %s", ErrInvalidModeTransition, l.mode)
	}
	if !on && l.mode != DirectTeach {
		return fmt.Errorf("%w: disable direct teach from %s", ErrInvalidModeTransition, l.mode)
	}

	resp, err := l.roundTrip(ctx, l.cfg.Dialect.teachLine(on))
	if err != nil {
		return fmt.Errorf("direct teach toggle: %w", err)
	}
	if err := l.cfg.Dialect.parseAck(resp); err != nil {
		return fmt.Errorf("direct teach toggle: %w", err)
	}
	if on {
		l.mode = DirectTeach
		l.logger.Info("direct teach enabled")
	} else {
		l.mode = Idle
		l.logger.Info("direct teach disabled")
	}
	return nil
}

// SetProgrammaticMode selects this link as the motion source. Only legal
// from Idle: switching straight out of direct teach without a confirmed
// exit risks an uncommanded motion.
func (l *Link) SetProgrammaticMode() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Connected {
		return fmt.Errorf("%w: state is %s", ErrNotConnected, l.state)
	}
	if l.mode != Idle {
		return fmt.Errorf("%w: set programmatic from %s", ErrInvalidModeTransition, l.mode)
	}
	l.mode = Programmatic
	return nil
}

// ReturnToIdle leaves programmatic mode. A no-op in Idle; illegal during
// direct teach, which must exit through DisableDirectTeach.
func (l *Link) ReturnToIdle() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Connected {
		return fmt.Errorf("%w: state is %s", ErrNotConnected, l.state)
	}
	if l.mode == DirectTeach {
		return fmt.Errorf("%w: return to idle from %s", ErrInvalidModeTransition, l.mode)
	}
	l.mode = Idle
	return nil
}

// roundTrip sends one command line and returns the matching response
// line. Must be called with l.mu held and the link Connected.
//
// The protocol answers in order, so l.pending unanswered requests mean
// the next l.pending lines on the stream are stale. Stale lines are
// drained before sending (bounded grace) and skipped after sending, which
// keeps a late response from a timed-out round trip from being taken as
// the answer to this one.
func (l *Link) roundTrip(ctx context.Context, line string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	deadline := time.Now().Add(l.cfg.OpTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := l.drainStale(); err != nil {
		return "", err
	}

	if err := l.conn.SetDeadline(deadline); err != nil {
		l.faultLocked(fmt.Sprintf("set deadline: %v", err))
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if _, err := l.conn.Write([]byte(line)); err != nil {
		return "", l.wireError(err, "write")
	}
	l.pending++

	for l.pending > 0 {
		resp, err := l.reader.next()
		if err != nil {
			return "", l.wireError(err, "read")
		}
		l.pending--
		if l.pending == 0 {
			l.timeouts = 0
			return resp, nil
		}
		l.logger.WithField("line", resp).Debug("discarding stale response")
	}
	// Unreachable: pending was incremented above.
	return "", fmt.Errorf("%w: no response", ErrProtocol)
}

// drainStale consumes late responses to previously timed-out requests so
// the stream is aligned before the next send. It waits at most
// staleDrainTimeout; anything still missing is skipped after the send
// via the pending count.
func (l *Link) drainStale() error {
	for l.pending > 0 {
		if err := l.conn.SetReadDeadline(time.Now().Add(staleDrainTimeout)); err != nil {
			l.faultLocked(fmt.Sprintf("set deadline: %v", err))
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		line, err := l.reader.next()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return nil // still outstanding, skip after send
			}
			return l.wireError(err, "drain")
		}
		l.pending--
		l.logger.WithField("line", line).Debug("discarding stale response")
	}
	return nil
}

// wireError classifies a socket error. Timeouts count toward the fault
// threshold; anything else (including peer close) faults immediately.
func (l *Link) wireError(err error, op string) error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		l.timeouts++
		l.logger.WithFields(logrus.Fields{"op": op, "consecutive": l.timeouts}).Warn("controller timeout")
		if l.timeouts >= maxConsecutiveTimeouts {
			l.faultLocked(fmt.Sprintf("%d consecutive timeouts", l.timeouts))
		}
		return fmt.Errorf("%w (%s)", ErrTimeout, op)
	}
	if errors.Is(err, io.EOF) {
		l.faultLocked("connection closed by controller")
		return fmt.Errorf("%w: connection closed by controller", ErrConnection)
	}
	l.faultLocked(fmt.Sprintf("%s: %v", op, err))
	return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
}
