package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

type Options struct {
	Config      string             `long:"config" short:"c" description:"Config file path" default:"lerobot-yaskawa.json"`
	Init        InitCommand        `command:"init" description:"Write a default configuration file"`
	Info        InfoCommand        `command:"info" description:"Connect to the controller and print its state"`
	Record      RecordCommand      `command:"record" description:"Record direct-teach episodes into a dataset"`
	Replay      ReplayCommand      `command:"replay" description:"Replay a recorded episode on the robot"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Mirror an SO-101 leader arm onto the robot"`
	Sim         SimCommand         `command:"sim" description:"Run a mock controller for testing without hardware"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "LeRobot Yaskawa - Control CLI for Yaskawa NHC12 arms"

	// A .env file can override the controller address without touching
	// the config file. Missing file is fine.
	godotenv.Load()

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies ROBOT_IP / ROBOT_PORT
// environment overrides.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("no configuration found (%v), run 'lerobot-yaskawa init' first", err)
	}

	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		cfg.Address = ip
	}
	if p := os.Getenv("ROBOT_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad ROBOT_PORT %q: %w", p, err)
		}
		cfg.Port = port
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect builds a link from the config and establishes the session.
func connect(ctx context.Context, cfg *robot.Config) (*robot.Link, error) {
	link, err := robot.NewLink(cfg)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Connecting to %s...\n", cfg.Addr())
	if err := link.Connect(ctx); err != nil {
		return nil, err
	}
	fmt.Println("Connected.")
	return link, nil
}
