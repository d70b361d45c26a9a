package main

import (
	"fmt"
	"os"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

type InitCommand struct {
	Force bool `long:"force" description:"Overwrite an existing config file"`
}

func (c *InitCommand) Execute(args []string) error {
	if _, err := os.Stat(opts.Config); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", opts.Config)
	}

	cfg := robot.DefaultConfig()
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", opts.Config)
	fmt.Println("Edit the address and limits to match your controller, then run 'lerobot-yaskawa info'.")
	return nil
}
