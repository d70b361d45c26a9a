package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

// State is a live snapshot published to the UI during recording.
type State struct {
	Positions robot.JointState
	Frames    int
	Elapsed   time.Duration
	Err       error
}

// Config holds recorder settings.
type Config struct {
	FPS         int
	MaxDuration time.Duration
	// MaxConsecutiveErrors aborts an episode when this many reads fail
	// in a row. A single failed read only drops that frame.
	MaxConsecutiveErrors int
}

// Recorder captures direct-teach demonstrations from a connected link.
// It owns the teach session: the arm is put into gravity compensation at
// session begin and taken out at session end.
type Recorder struct {
	link *robot.Link
	cfg  Config

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// NewRecorder builds a recorder over an already connected link.
func NewRecorder(link *robot.Link, cfg Config) *Recorder {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 60 * time.Second
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 5
	}
	return &Recorder{
		link:    link,
		cfg:     cfg,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// States returns a channel that receives live recording updates.
func (r *Recorder) States() <-chan State {
	return r.stateCh
}

// Logs returns a channel that receives log messages.
func (r *Recorder) Logs() <-chan string {
	return r.logCh
}

// FPS returns the capture frame rate.
func (r *Recorder) FPS() int {
	return r.cfg.FPS
}

func (r *Recorder) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case r.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// BeginSession enables direct teach so the arm can be moved by hand.
func (r *Recorder) BeginSession(ctx context.Context) error {
	if err := r.link.EnableDirectTeach(ctx); err != nil {
		return fmt.Errorf("begin teach session: %w", err)
	}
	r.log("Direct teach enabled, move the arm by hand")
	return nil
}

// EndSession disables direct teach.
func (r *Recorder) EndSession(ctx context.Context) error {
	if err := r.link.DisableDirectTeach(ctx); err != nil {
		return fmt.Errorf("end teach session: %w", err)
	}
	r.log("Direct teach disabled")
	return nil
}

// RecordEpisode samples joint positions at the configured rate until ctx
// is cancelled or the maximum duration is reached. A failed read drops
// that frame and the episode continues; too many failures in a row abort
// the episode with an error. The partial episode is returned either way
// so the operator can decide to keep it.
func (r *Recorder) RecordEpisode(ctx context.Context) (*Episode, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("already recording")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ep := &Episode{RecordedAt: time.Now()}
	maxFrames := int(r.cfg.MaxDuration.Seconds() * float64(r.cfg.FPS))
	start := time.Now()
	consecutive := 0

	r.log("Recording started at %d Hz", r.cfg.FPS)

	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.FPS))
	defer ticker.Stop()

	for len(ep.Frames) < maxFrames {
		select {
		case <-ctx.Done():
			r.log("Recording stopped: %d frames in %.1fs", len(ep.Frames), time.Since(start).Seconds())
			return ep, nil
		case <-ticker.C:
		}

		positions, err := r.link.ReadJointPositions(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ep, nil
			}
			consecutive++
			r.log("Frame dropped (%d in a row): %v", consecutive, err)
			r.sendState(State{Err: err, Frames: len(ep.Frames), Elapsed: time.Since(start)})
			if consecutive >= r.cfg.MaxConsecutiveErrors {
				return ep, fmt.Errorf("abort episode after %d consecutive read failures: %w", consecutive, err)
			}
			continue
		}
		consecutive = 0

		ep.Frames = append(ep.Frames, Frame{
			Index:     len(ep.Frames),
			T:         time.Since(start).Seconds(),
			Positions: positions,
		})
		r.sendState(State{
			Positions: positions,
			Frames:    len(ep.Frames),
			Elapsed:   time.Since(start),
		})
	}

	r.log("Episode complete: %d frames in %.1fs", len(ep.Frames), time.Since(start).Seconds())
	return ep, nil
}

func (r *Recorder) sendState(s State) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		r.stateCh <- s
	}
}
