package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const DefaultConfigFile = "lerobot-yaskawa.json"

// Config holds everything the link needs to talk to one controller, plus
// the settings the recording and teleoperation tools read. Loaded once;
// treated as immutable afterwards.
type Config struct {
	// Controller network address, e.g. "192.168.1.31".
	Address string `json:"address"`
	// TCP port, 10040 on stock NHC12 controllers.
	Port int `json:"port"`

	Joints []JointName `json:"joints"`
	Limits Limits      `json:"limits"`

	// ClampToLimits saturates out-of-bound commands instead of
	// rejecting them. Keep false for policy playback: an out-of-limit
	// action means the policy is unsafe, not that it should be bent
	// into range.
	ClampToLimits bool `json:"clamp_to_limits"`

	Dialect Dialect `json:"dialect"`

	// ConnectTimeoutMs bounds session establishment, OpTimeoutMs bounds
	// each command/response round trip.
	ConnectTimeoutMs int `json:"connect_timeout_ms"`
	OpTimeoutMs      int `json:"op_timeout_ms"`

	// ConnectRetries and ConnectBackoffMs drive reconnect attempts.
	ConnectRetries   int `json:"connect_retries"`
	ConnectBackoffMs int `json:"connect_backoff_ms"`

	// RecordFPS is the frame rate of direct-teach recording.
	RecordFPS int `json:"record_fps"`

	// LogLevel is a logrus level name, or "off" to silence the link.
	LogLevel string `json:"log_level"`

	// LeaderPort is the serial port of an optional SO-101 leader arm
	// used for teleoperation.
	LeaderPort string `json:"leader_port,omitempty"`
}

// DefaultConfig returns the reference NHC12 setup.
func DefaultConfig() *Config {
	return &Config{
		Address:          "192.168.1.31",
		Port:             10040,
		Joints:           DefaultJoints(),
		Limits:           DefaultLimits(),
		Dialect:          DefaultDialect(),
		ConnectTimeoutMs: 5000,
		OpTimeoutMs:      1000,
		ConnectRetries:   3,
		ConnectBackoffMs: 500,
		RecordFPS:        30,
		LogLevel:         "info",
	}
}

// Check validates the configuration before a link is built from it.
func (c *Config) Check() error {
	if c.Address == "" {
		return fmt.Errorf("config: empty controller address")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: bad port %d", c.Port)
	}
	if len(c.Joints) == 0 {
		return fmt.Errorf("config: no joints configured")
	}
	if err := c.Limits.Check(c.Joints); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Dialect.Check(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.OpTimeoutMs <= 0 {
		return fmt.Errorf("config: op_timeout_ms must be positive")
	}
	if c.ConnectTimeoutMs <= 0 {
		return fmt.Errorf("config: connect_timeout_ms must be positive")
	}
	return nil
}

// OpTimeout returns the per-operation timeout as a duration.
func (c *Config) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutMs) * time.Millisecond
}

// ConnectTimeout returns the connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// ConnectBackoff returns the delay between reconnect attempts.
func (c *Config) ConnectBackoff() time.Duration {
	return time.Duration(c.ConnectBackoffMs) * time.Millisecond
}

// Addr returns the host:port dial target.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// LoadConfig loads configuration from the default config file.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists.
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
