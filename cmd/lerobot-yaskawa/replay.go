package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/lerobot-yaskawa/pkg/policy"
	"github.com/gwillem/lerobot-yaskawa/pkg/record"
)

type ReplayCommand struct {
	Dataset  string `long:"dataset" short:"d" required:"true" description:"Dataset directory"`
	Episode  int    `long:"episode" short:"e" description:"Episode index to replay" default:"0"`
	Hz       int    `long:"hz" description:"Playback rate (0 uses the episode's fps)"`
	MaxSteps int    `long:"max-steps" description:"Stop after this many steps (0 = full episode)"`
}

func (c *ReplayCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ds, err := record.Open(c.Dataset)
	if err != nil {
		return err
	}
	ep, err := ds.LoadEpisode(c.Episode)
	if err != nil {
		return err
	}

	hz := c.Hz
	if hz <= 0 {
		hz = ep.FPS
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	link, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer link.Disconnect()

	fmt.Printf("Replaying episode %d (%d frames, %.1fs) at %d Hz. Ctrl-C aborts.\n",
		ep.Index, len(ep.Frames), ep.Duration().Seconds(), hz)

	runner := policy.NewRunner(link, policy.NewReplay(ep), hz, c.MaxSteps)
	stats, err := runner.RunEpisode(ctx)
	if err != nil {
		return fmt.Errorf("replay stopped after %d steps: %w", stats.Steps, err)
	}

	fmt.Printf("Replay complete: %d steps in %.1fs.\n", stats.Steps, stats.Duration.Seconds())
	return nil
}
