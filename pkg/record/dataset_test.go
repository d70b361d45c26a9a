package record

import (
	"testing"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

func TestDataset_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ds, err := Create(dir, "pick and place", 30, robot.DefaultJoints())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ep := &Episode{
		RecordedAt: time.Now(),
		Frames: []Frame{
			{Index: 0, T: 0, Positions: []float64{0, 0, 0, 0, 0, 0}},
			{Index: 1, T: 0.033, Positions: []float64{1.5, 0, 0, 0, 0, 0}},
		},
	}
	if err := ds.SaveEpisode(ep); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ds.Episodes() != 1 {
		t.Fatalf("episode count = %d, want 1", ds.Episodes())
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if reopened.Meta().Task != "pick and place" {
		t.Errorf("task = %q", reopened.Meta().Task)
	}
	if reopened.Episodes() != 1 {
		t.Errorf("episodes after reopen = %d", reopened.Episodes())
	}

	loaded, err := reopened.LoadEpisode(0)
	if err != nil {
		t.Fatalf("load episode: %v", err)
	}
	if len(loaded.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(loaded.Frames))
	}
	if loaded.Frames[1].Positions[0] != 1.5 {
		t.Errorf("frame 1 joint 1 = %f", loaded.Frames[1].Positions[0])
	}
	if loaded.FPS != 30 {
		t.Errorf("fps = %d", loaded.FPS)
	}
}

func TestDataset_CreateRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	if _, err := Create(dir, "a", 30, robot.DefaultJoints()); err != nil {
		t.Fatal(err)
	}
	if _, err := Create(dir, "b", 30, robot.DefaultJoints()); err == nil {
		t.Error("second create on same dir succeeded")
	}
}

func TestDataset_LoadMissingEpisode(t *testing.T) {
	ds, err := Create(t.TempDir(), "a", 30, robot.DefaultJoints())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.LoadEpisode(7); err == nil {
		t.Error("missing episode loaded")
	}
}

func TestEpisode_Duration(t *testing.T) {
	ep := &Episode{Frames: []Frame{{T: 0}, {T: 1.5}}}
	if got := ep.Duration(); got != 1500*time.Millisecond {
		t.Errorf("duration = %v", got)
	}
	if (&Episode{}).Duration() != 0 {
		t.Error("empty episode has non-zero duration")
	}
}
