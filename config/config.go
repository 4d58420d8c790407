// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Update modes for SwarmConfig.UpdateMode.
const (
	UpdateModeSequential  = "sequential"
	UpdateModeSynchronous = "synchronous"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Swarm     SwarmConfig     `yaml:"swarm"`
	Noise     NoiseConfig     `yaml:"noise"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Server    ServerConfig    `yaml:"server"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SwarmConfig holds the engine parameters and stepping options.
type SwarmConfig struct {
	Params      Params `yaml:"params"`
	UpdateMode  string `yaml:"update_mode"`  // sequential | synchronous
	SpatialGrid bool   `yaml:"spatial_grid"` // bucket neighbor candidates by interaction radius
	Workers     int    `yaml:"workers"`      // synchronous mode goroutines, 0 = GOMAXPROCS
}

// NoiseConfig selects the flow-field permutation table.
type NoiseConfig struct {
	Seed int64 `yaml:"seed"` // 0 = reference table
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // simulated seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// ViewerConfig holds renderer toggles.
type ViewerConfig struct {
	Connections bool  `yaml:"connections"`
	Glow        bool  `yaml:"glow"`
	FlowTracers int   `yaml:"flow_tracers"` // tracer count for the flow field overlay
	PanelWidth  int32 `yaml:"panel_width"`
}

// ServerConfig holds frame streamer settings.
type ServerConfig struct {
	Address      string `yaml:"address"`
	FPS          int    `yaml:"fps"`
	MaxParticles int    `yaml:"max_particles"` // particle_count cap for client edits
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize clamps swarm params and fills zero-valued settings.
func (c *Config) normalize() error {
	c.Swarm.Params = c.Swarm.Params.Normalized()

	switch c.Swarm.UpdateMode {
	case "":
		c.Swarm.UpdateMode = UpdateModeSequential
	case UpdateModeSequential, UpdateModeSynchronous:
	default:
		return fmt.Errorf("swarm.update_mode: unknown mode %q", c.Swarm.UpdateMode)
	}

	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("screen: size %dx%d must be positive", c.Screen.Width, c.Screen.Height)
	}
	if c.Screen.TargetFPS <= 0 {
		c.Screen.TargetFPS = 60
	}
	if c.Telemetry.StatsWindow <= 0 {
		c.Telemetry.StatsWindow = 10
	}
	if c.Viewer.FlowTracers < 0 {
		c.Viewer.FlowTracers = 0
	}
	if c.Server.FPS <= 0 {
		c.Server.FPS = 60
	}
	if c.Server.MaxParticles <= 0 {
		c.Server.MaxParticles = 2000
	}
	c.Server.MaxParticles = min(c.Server.MaxParticles, MaxParticleCount)
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
