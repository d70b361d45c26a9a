// Package sim implements a mock NHC12 controller: a TCP server speaking
// the same line protocol as the real hardware. Tests use it to exercise
// the link without a robot; the CLI exposes it for bench use.
package sim

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// Controller is a scriptable stand-in for the NHC12. It holds a joint
// state, answers read/move/teach commands, and can be told to delay,
// drop, mangle or fragment its responses to provoke client failure
// paths.
type Controller struct {
	dialect robot.Dialect
	dof     int

	mu        sync.Mutex
	positions []float64
	teach     bool

	reads   int
	moves   int
	toggles int

	respDelay   time.Duration
	dropNext    int
	malformNext int
	chunked     bool

	ln     net.Listener
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	closed chan struct{}
}

// New builds a controller with all joints at zero.
func New(dialect robot.Dialect, dof int) *Controller {
	return &Controller{
		dialect:   dialect,
		dof:       dof,
		positions: make([]float64, dof),
		conns:     make(map[net.Conn]struct{}),
		closed:    make(chan struct{}),
	}
}

// Start listens on addr (use "127.0.0.1:0" for an ephemeral port) and
// serves connections until Close.
func (c *Controller) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("sim listen: %w", err)
	}
	c.ln = ln
	c.wg.Add(1)
	go c.acceptLoop()
	return nil
}

// Addr returns the listen address, e.g. "127.0.0.1:40213".
func (c *Controller) Addr() string {
	return c.ln.Addr().String()
}

// Close stops the listener and all connections.
func (c *Controller) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
	}
	close(c.closed)
	err := c.ln.Close()
	c.mu.Lock()
	for conn := range c.conns {
		conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
	return err
}

// SetPositions overwrites the simulated joint state.
func (c *Controller) SetPositions(pos []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.positions, pos)
}

// Positions returns a copy of the simulated joint state.
func (c *Controller) Positions() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.positions))
	copy(out, c.positions)
	return out
}

// TeachEnabled reports whether direct teach is on.
func (c *Controller) TeachEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teach
}

// MoveCount returns how many motion commands reached the wire. The
// zero-transmission properties of the link are verified against this.
func (c *Controller) MoveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moves
}

// ReadCount returns how many read commands were received.
func (c *Controller) ReadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// ToggleCount returns how many teach toggles were received.
func (c *Controller) ToggleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}

// SetResponseDelay makes every following response wait d before being
// written. Set past the client timeout to simulate a late responder.
func (c *Controller) SetResponseDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respDelay = d
}

// DropResponses swallows the next n responses entirely.
func (c *Controller) DropResponses(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropNext = n
}

// MalformResponses replaces the next n responses with garbage.
func (c *Controller) MalformResponses(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.malformNext = n
}

// SetChunkedWrites fragments responses into tiny writes so client reads
// see arbitrary line boundaries.
func (c *Controller) SetChunkedWrites(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunked = on
}

func (c *Controller) acceptLoop() {
	defer c.wg.Done()
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.serve(conn)
		}()
	}
}

func (c *Controller) serve(conn net.Conn) {
	c.mu.Lock()
	c.conns[conn] = struct{}{}
	c.mu.Unlock()
	defer func() {
		conn.Close()
		c.mu.Lock()
		delete(c.conns, conn)
		c.mu.Unlock()
	}()
	r := bufio.NewReader(conn)
	term := c.dialect.Terminator
	last := term[len(term)-1]
	for {
		select {
		case <-c.closed:
			return
		default:
		}
		var line strings.Builder
		for {
			chunk, err := r.ReadString(last)
			line.WriteString(chunk)
			if err != nil {
				return
			}
			if strings.HasSuffix(line.String(), term) {
				break
			}
		}
		reply := c.handle(strings.TrimSuffix(line.String(), term))
		if reply == "" {
			continue // dropped
		}
		if err := c.send(conn, reply+term); err != nil {
			return
		}
	}
}

func (c *Controller) send(conn net.Conn, payload string) error {
	c.mu.Lock()
	delay := c.respDelay
	chunked := c.chunked
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !chunked {
		_, err := conn.Write([]byte(payload))
		return err
	}
	for len(payload) > 0 {
		n := 3
		if n > len(payload) {
			n = len(payload)
		}
		if _, err := conn.Write([]byte(payload[:n])); err != nil {
			return err
		}
		payload = payload[n:]
		time.Sleep(time.Millisecond)
	}
	return nil
}

// handle executes one command and returns the response line, or "" when
// the response is scripted to be dropped.
func (c *Controller) handle(line string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply string
	switch {
	case line == c.dialect.ReadPositions:
		c.reads++
		reply = c.positionsLineLocked()

	case strings.HasPrefix(line, c.dialect.MoveJoints+" "):
		c.moves++
		reply = c.moveLocked(strings.TrimPrefix(line, c.dialect.MoveJoints+" "))

	case line == c.dialect.TeachOn:
		c.toggles++
		c.teach = true
		reply = c.dialect.AckOK + " TEACH=ON"

	case line == c.dialect.TeachOff:
		c.toggles++
		c.teach = false
		reply = c.dialect.AckOK + " TEACH=OFF"

	default:
		reply = c.dialect.AckError + " unknown command"
	}

	if c.malformNext > 0 {
		c.malformNext--
		return "@#garbage#@"
	}
	if c.dropNext > 0 {
		c.dropNext--
		return ""
	}
	return reply
}

func (c *Controller) positionsLineLocked() string {
	parts := make([]string, len(c.positions))
	for i, pos := range c.positions {
		parts[i] = fmt.Sprintf("J%d=%.2f", i+1, pos)
	}
	return strings.Join(parts, ",")
}

func (c *Controller) moveLocked(payload string) string {
	if c.teach {
		return c.dialect.AckError + " direct teach active"
	}
	fields := strings.Split(payload, " ")
	joints := strings.Split(fields[0], ",")
	if len(joints) != c.dof {
		return fmt.Sprintf("%s expected %d joints", c.dialect.AckError, c.dof)
	}
	next := make([]float64, c.dof)
	for i, field := range joints {
		_, val, ok := strings.Cut(field, "=")
		if !ok {
			return c.dialect.AckError + " bad field " + field
		}
		pos, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return c.dialect.AckError + " bad value " + val
		}
		next[i] = pos
	}
	copy(c.positions, next)
	return c.dialect.AckOK
}
