package robot

import (
	"path/filepath"
	"testing"
)

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lerobot-yaskawa.json")

	cfg := DefaultConfig()
	cfg.Address = "10.0.0.42"
	cfg.Port = 10041
	cfg.OpTimeoutMs = 250
	cfg.Limits[Joint1] = Limit{Min: -90, Max: 90}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Address != "10.0.0.42" || loaded.Port != 10041 {
		t.Errorf("address round-trip: got %s:%d", loaded.Address, loaded.Port)
	}
	if loaded.OpTimeoutMs != 250 {
		t.Errorf("op timeout round-trip: got %d", loaded.OpTimeoutMs)
	}
	if lim := loaded.Limits[Joint1]; lim.Min != -90 || lim.Max != 90 {
		t.Errorf("limit round-trip: got %+v", lim)
	}
	if loaded.Dialect.MoveJoints != "MOVE_JOINT" {
		t.Errorf("dialect round-trip: got %q", loaded.Dialect.MoveJoints)
	}
}

func TestConfig_Check(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*Config)
	}{
		{"empty address", func(c *Config) { c.Address = "" }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"huge port", func(c *Config) { c.Port = 70000 }},
		{"no joints", func(c *Config) { c.Joints = nil }},
		{"inverted limit", func(c *Config) { c.Limits[Joint3] = Limit{Min: 5, Max: -5} }},
		{"missing limit", func(c *Config) { delete(c.Limits, Joint6) }},
		{"empty terminator", func(c *Config) { c.Dialect.Terminator = "" }},
		{"zero op timeout", func(c *Config) { c.OpTimeoutMs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.tweak(cfg)
			if err := cfg.Check(); err == nil {
				t.Error("bad config accepted")
			}
		})
	}

	if err := DefaultConfig().Check(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	if _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing file accepted")
	}
}
