package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

type InfoCommand struct {
	JSON bool `long:"json" description:"Print machine-readable output"`
}

type infoReport struct {
	Address   string            `json:"address"`
	State     string            `json:"state"`
	Mode      string            `json:"mode"`
	Joints    []robot.JointName `json:"joints"`
	Positions []float64         `json:"positions"`
}

func (c *InfoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	link, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer link.Disconnect()

	positions, err := link.ReadJointPositions(ctx)
	if err != nil {
		return fmt.Errorf("read joint positions: %w", err)
	}

	report := infoReport{
		Address:   cfg.Addr(),
		State:     link.State().String(),
		Mode:      link.Mode().String(),
		Joints:    link.Joints(),
		Positions: positions,
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Controller: %s (%s, %s)\n", report.Address, report.State, report.Mode)
	for i, name := range report.Joints {
		lim := cfg.Limits[name]
		fmt.Printf("  %-8s %8.2f°   [%.0f° .. %.0f°]\n", name, report.Positions[i], lim.Min, lim.Max)
	}
	return nil
}
