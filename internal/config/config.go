// Package config handles pipeline configuration loading and management.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Faultbox/geovox/internal/sink"
	"github.com/Faultbox/geovox/pkg/classify"
	"github.com/Faultbox/geovox/pkg/voxel"
)

// Config holds all pipeline settings.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Strata    StrataConfig    `yaml:"strata"`
	Solid     SolidConfig     `yaml:"solid"`
	Boreholes BoreholesConfig `yaml:"boreholes"`
	Output    OutputConfig    `yaml:"output"`
	Run       RunConfig       `yaml:"run"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GridConfig selects a voxel resolution.
type GridConfig struct {
	Mode    string  `yaml:"mode"` // count, size or axis
	NumberX int     `yaml:"number_x"`
	NumberY int     `yaml:"number_y"` // axis mode only
	NumberZ int     `yaml:"number_z"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
}

// Resolution converts the settings to a voxel.Resolution.
func (g GridConfig) Resolution() (voxel.Resolution, error) {
	mode, err := voxel.ParseMode(g.Mode)
	if err != nil {
		return voxel.Resolution{}, err
	}
	return voxel.Resolution{
		Mode:    mode,
		NumberX: g.NumberX,
		NumberY: g.NumberY,
		NumberZ: g.NumberZ,
		Width:   g.Width,
		Height:  g.Height,
	}, nil
}

// StrataConfig holds column classification settings.
type StrataConfig struct {
	NoData string `yaml:"no_data"` // zero, ignore or skip_column

	// LabelAttribute names a surface attribute to use as layer label
	// instead of the surface's own layer.
	LabelAttribute string `yaml:"label_attribute"`
}

// SolidConfig holds solid classification settings.
type SolidConfig struct {
	Grid    GridConfig `yaml:"grid"`
	Epsilon float64    `yaml:"epsilon"`
}

// BoreholesConfig holds borehole import settings.
type BoreholesConfig struct {
	// Continuous additionally writes each borehole's drilled path as one
	// chain of segments.
	Continuous bool `yaml:"continuous"`
}

// OutputConfig selects where results are written.
type OutputConfig struct {
	Driver  string `yaml:"driver"`
	Path    string `yaml:"path"` // database file or output directory
	Dataset string `yaml:"dataset"`
}

// RunConfig holds execution limits.
type RunConfig struct {
	Workers int           `yaml:"workers"` // 0 = GOMAXPROCS
	Timeout time.Duration `yaml:"timeout"` // 0 = none
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Mode:    "count",
			NumberX: 100,
			NumberZ: 50,
			Width:   10,
			Height:  5,
		},
		Strata: StrataConfig{
			NoData: "zero",
		},
		Solid: SolidConfig{
			Grid: GridConfig{
				Mode:    "axis",
				NumberX: 50,
				NumberY: 50,
				NumberZ: 50,
				Width:   10,
				Height:  5,
			},
		},
		Output: OutputConfig{
			Driver: sink.DriverSQLite,
			Path:   "geovox.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate rejects unknown enum values and negative limits.
func (c *Config) Validate() error {
	if _, err := c.Grid.Resolution(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if _, err := c.Solid.Grid.Resolution(); err != nil {
		return fmt.Errorf("solid.grid: %w", err)
	}
	if _, err := classify.ParseNoDataPolicy(c.Strata.NoData); err != nil {
		return fmt.Errorf("strata: %w", err)
	}
	if c.Solid.Epsilon < 0 {
		return fmt.Errorf("solid: negative epsilon %v", c.Solid.Epsilon)
	}
	switch c.Output.Driver {
	case sink.DriverSQLite, sink.DriverGeoJSON, sink.DriverMemory:
	default:
		return fmt.Errorf("output: unknown driver %q", c.Output.Driver)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run: negative workers %d", c.Run.Workers)
	}
	if c.Run.Timeout < 0 {
		return fmt.Errorf("run: negative timeout %v", c.Run.Timeout)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	return nil
}

// NoDataPolicy returns the parsed strata no-data policy.
func (c *Config) NoDataPolicy() classify.NoDataPolicy {
	p, _ := classify.ParseNoDataPolicy(c.Strata.NoData)
	return p
}
