package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
	"github.com/gwillem/lerobot-yaskawa/pkg/sim"
)

type SimCommand struct {
	Listen string `long:"listen" default:"127.0.0.1:10040" description:"Address to listen on"`
}

func (c *SimCommand) Execute(args []string) error {
	ctrl := sim.New(robot.DefaultDialect(), len(robot.DefaultJoints()))
	if err := ctrl.Start(c.Listen); err != nil {
		return fmt.Errorf("start mock controller: %w", err)
	}
	defer ctrl.Close()

	fmt.Printf("Mock NHC12 controller listening on %s. Ctrl-C stops.\n", ctrl.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	fmt.Printf("\nServed %d reads, %d moves, %d teach toggles.\n",
		ctrl.ReadCount(), ctrl.MoveCount(), ctrl.ToggleCount())
	return nil
}
