package robot

import (
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
)

func positionsLine(state JointState) string {
	parts := make([]string, len(state))
	for i, pos := range state {
		parts[i] = fmt.Sprintf("J%d=%.2f", i+1, pos)
	}
	return strings.Join(parts, ",")
}

func TestParsePositions_RoundTrip(t *testing.T) {
	d := DefaultDialect()
	want := JointState{10.5, -20.3, 30.1, -40.25, 0, 359.99}

	got, err := d.parsePositions(positionsLine(want), len(want))
	if err != nil {
		t.Fatalf("parsePositions: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 0.005 {
			t.Errorf("joint %d: got %f, want %f", i+1, got[i], want[i])
		}
	}
}

func TestParsePositions_Malformed(t *testing.T) {
	d := DefaultDialect()

	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"too few joints", "J1=1.00,J2=2.00"},
		{"too many joints", "J1=1,J2=2,J3=3,J4=4,J5=5,J6=6,J7=7"},
		{"missing equals", "J1=1,J2=2,J3=3,J4=4,J5=5,J6"},
		{"wrong key order", "J2=1,J1=2,J3=3,J4=4,J5=5,J6=6"},
		{"non numeric value", "J1=a,J2=2,J3=3,J4=4,J5=5,J6=6"},
		{"garbage", "@#garbage#@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.parsePositions(tt.line, 6); err == nil {
				t.Errorf("parsePositions(%q) succeeded, want error", tt.line)
			}
		})
	}
}

func TestMoveLine(t *testing.T) {
	d := DefaultDialect()

	cmd := JointCommand{Positions: []float64{10.5, 0, -30, 0, 0, 0}}
	got := d.moveLine(cmd)
	want := "MOVE_JOINT J1=10.50,J2=0.00,J3=-30.00,J4=0.00,J5=0.00,J6=0.00\r\n"
	if got != want {
		t.Errorf("moveLine = %q, want %q", got, want)
	}

	cmd.Speed = 25
	got = d.moveLine(cmd)
	if !strings.Contains(got, " SPEED=25.0") {
		t.Errorf("moveLine with speed = %q, want SPEED field", got)
	}
}

func TestParseAck(t *testing.T) {
	d := DefaultDialect()

	if err := d.parseAck("OK"); err != nil {
		t.Errorf("parseAck(OK): %v", err)
	}
	if err := d.parseAck("OK TEACH=ON"); err != nil {
		t.Errorf("parseAck(OK with payload): %v", err)
	}
	if err := d.parseAck("ERROR joint limit"); err == nil {
		t.Error("parseAck(ERROR ...) succeeded, want error")
	}
	if err := d.parseAck("OKNOT"); err == nil {
		t.Error("parseAck(OKNOT) succeeded, want error")
	}
	if err := d.parseAck("J1=1.00"); err == nil {
		t.Error("parseAck(position line) succeeded, want error")
	}
}

func TestLineReader_SplitAnywhere(t *testing.T) {
	// A response split across two arbitrary byte boundaries must parse
	// the same as one fed whole.
	payload := "J1=10.50,J2=20.30,J3=30.10,J4=40.20,J5=50.00,J6=60.10\r\n"

	for i := 0; i <= len(payload); i++ {
		r := io.MultiReader(strings.NewReader(payload[:i]), strings.NewReader(payload[i:]))
		lr := newLineReader(r, "\r\n")
		line, err := lr.next()
		if err != nil {
			t.Fatalf("split at %d: %v", i, err)
		}
		if line != strings.TrimSuffix(payload, "\r\n") {
			t.Fatalf("split at %d: got %q", i, line)
		}
	}
}

func TestLineReader_MultipleLines(t *testing.T) {
	lr := newLineReader(strings.NewReader("OK\r\nJ1=1.00\r\n"), "\r\n")

	first, err := lr.next()
	if err != nil || first != "OK" {
		t.Fatalf("first line = %q, %v", first, err)
	}
	second, err := lr.next()
	if err != nil || second != "J1=1.00" {
		t.Fatalf("second line = %q, %v", second, err)
	}
	if _, err := lr.next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestLineReader_LoneNewlineInsideLine(t *testing.T) {
	// A bare \n is not a terminator when the protocol uses \r\n.
	lr := newLineReader(strings.NewReader("OK\nSTILL SAME LINE\r\n"), "\r\n")
	line, err := lr.next()
	if err != nil {
		t.Fatal(err)
	}
	if line != "OK\nSTILL SAME LINE" {
		t.Errorf("got %q", line)
	}
}

func TestDialect_Check(t *testing.T) {
	d := DefaultDialect()
	if err := d.Check(); err != nil {
		t.Errorf("default dialect: %v", err)
	}

	bad := DefaultDialect()
	bad.Terminator = ""
	if err := bad.Check(); err == nil {
		t.Error("empty terminator accepted")
	}

	bad = DefaultDialect()
	bad.MoveJoints = ""
	if err := bad.Check(); err == nil {
		t.Error("empty verb accepted")
	}

	bad = DefaultDialect()
	bad.TeachOn = "TEACH\r\nON"
	if err := bad.Check(); err == nil {
		t.Error("verb containing terminator accepted")
	}
}
