package robot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dialect holds the literal command strings of the controller protocol.
// The NHC12 manual fixes the shape (one ASCII line per command, one line
// per response, explicit OK/ERROR ack for mode toggles) but the exact
// verbs vary per deployment, so they live in configuration.
type Dialect struct {
	ReadPositions string `json:"read_positions"`
	MoveJoints    string `json:"move_joints"`
	TeachOn       string `json:"teach_on"`
	TeachOff      string `json:"teach_off"`
	AckOK         string `json:"ack_ok"`
	AckError      string `json:"ack_error"`
	Terminator    string `json:"terminator"`
}

// DefaultDialect returns the verbs used by the reference controller setup.
func DefaultDialect() Dialect {
	return Dialect{
		ReadPositions: "READ_JOINT_POS",
		MoveJoints:    "MOVE_JOINT",
		TeachOn:       "TEACH_MODE ON",
		TeachOff:      "TEACH_MODE OFF",
		AckOK:         "OK",
		AckError:      "ERROR",
		Terminator:    "\r\n",
	}
}

// Check rejects dialects that cannot frame a command.
func (d Dialect) Check() error {
	if d.Terminator == "" {
		return fmt.Errorf("dialect: empty line terminator")
	}
	for _, s := range []string{d.ReadPositions, d.MoveJoints, d.TeachOn, d.TeachOff, d.AckOK} {
		if s == "" {
			return fmt.Errorf("dialect: empty command verb")
		}
		if strings.Contains(s, d.Terminator) {
			return fmt.Errorf("dialect: verb %q contains the line terminator", s)
		}
	}
	return nil
}

// readLine frames a read-positions request.
func (d Dialect) readLine() string {
	return d.ReadPositions + d.Terminator
}

// moveLine frames a motion command: "MOVE_JOINT J1=10.50,J2=0.00,..."
// with an optional trailing SPEED field.
func (d Dialect) moveLine(cmd JointCommand) string {
	var sb strings.Builder
	sb.WriteString(d.MoveJoints)
	sb.WriteByte(' ')
	for i, pos := range cmd.Positions {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "J%d=%.2f", i+1, pos)
	}
	if cmd.Speed > 0 {
		fmt.Fprintf(&sb, " SPEED=%.1f", cmd.Speed)
	}
	sb.WriteString(d.Terminator)
	return sb.String()
}

func (d Dialect) teachLine(on bool) string {
	if on {
		return d.TeachOn + d.Terminator
	}
	return d.TeachOff + d.Terminator
}

// parsePositions decodes a position response line such as
// "J1=10.50,J2=20.30,J3=30.10,J4=40.20,J5=50.00,J6=60.10" into a
// JointState of the expected length.
func (d Dialect) parsePositions(line string, dof int) (JointState, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != dof {
		return nil, fmt.Errorf("%w: expected %d joint fields, got %d in %q", ErrProtocol, dof, len(fields), line)
	}
	state := make(JointState, dof)
	for i, field := range fields {
		key, val, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			return nil, fmt.Errorf("%w: field %q is not key=value in %q", ErrProtocol, field, line)
		}
		want := fmt.Sprintf("J%d", i+1)
		if key != want {
			return nil, fmt.Errorf("%w: field %d is %q, want %q in %q", ErrProtocol, i, key, want, line)
		}
		pos, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad position %q for %s", ErrProtocol, val, key)
		}
		state[i] = pos
	}
	return state, nil
}

// parseAck decodes a status line. OK may carry a trailing payload
// ("OK TEACH=ON"); ERROR carries a message from the controller.
func (d Dialect) parseAck(line string) error {
	line = strings.TrimSpace(line)
	if line == d.AckOK || strings.HasPrefix(line, d.AckOK+" ") {
		return nil
	}
	if strings.HasPrefix(line, d.AckError) {
		msg := strings.TrimSpace(strings.TrimPrefix(line, d.AckError))
		if msg == "" {
			msg = "controller rejected command"
		}
		return fmt.Errorf("%w: %s", ErrProtocol, msg)
	}
	return fmt.Errorf("%w: unexpected response %q", ErrProtocol, line)
}

// lineReader splits the byte stream on the dialect terminator. Line
// boundaries do not align with socket reads: a single read may return a
// partial line, several lines, or zero bytes (peer closed).
type lineReader struct {
	r    *bufio.Reader
	term string
}

func newLineReader(r io.Reader, term string) *lineReader {
	return &lineReader{r: bufio.NewReader(r), term: term}
}

// next returns the next complete line without its terminator. It returns
// io.EOF when the peer closes the connection mid-line.
func (lr *lineReader) next() (string, error) {
	last := lr.term[len(lr.term)-1]
	var line strings.Builder
	for {
		// Accumulate until the full terminator is seen; the delimiter
		// byte alone is not enough (lone \n inside a \r\n protocol).
		chunk, err := lr.r.ReadString(last)
		line.WriteString(chunk)
		if err != nil {
			return "", err
		}
		if s := line.String(); strings.HasSuffix(s, lr.term) {
			return strings.TrimSuffix(s, lr.term), nil
		}
	}
}
