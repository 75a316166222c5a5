package config

import (
	"flag"
	"time"
)

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config     string
	Debug      bool
	Out        string
	Driver     string
	Dataset    string
	Mode       string
	NX         int
	NY         int
	NZ         int
	Width      float64
	Height     float64
	NoData     string
	Continuous bool
	Workers    int
	Timeout    time.Duration
}

// RegisterFlags defines the shared pipeline flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Out, "out", "", "Output database file or directory")
	fs.StringVar(&f.Driver, "driver", "", "Output driver: sqlite, geojson or memory")
	fs.StringVar(&f.Dataset, "dataset", "", "Dataset name prefix")
	fs.StringVar(&f.Mode, "mode", "", "Grid mode: count, size or axis")
	fs.IntVar(&f.NX, "nx", 0, "Voxel count along x")
	fs.IntVar(&f.NY, "ny", 0, "Voxel count along y (axis mode)")
	fs.IntVar(&f.NZ, "nz", 0, "Voxel count along z")
	fs.Float64Var(&f.Width, "width", 0, "Voxel width (size mode)")
	fs.Float64Var(&f.Height, "height", 0, "Voxel height (size mode)")
	fs.StringVar(&f.NoData, "nodata", "", "No-data policy: zero, ignore or skip_column")
	fs.BoolVar(&f.Continuous, "continuous", false, "Also write borehole paths as continuous lines")
	fs.IntVar(&f.Workers, "workers", 0, "Worker goroutines (0 = all CPUs)")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Abort the run after this duration")
	return f
}

// apply applies CLI flag overrides to the config. Grid flags apply to
// both the strata and the solid grid; a command only uses one of them.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Out != "" {
		cfg.Output.Path = f.Out
	}
	if f.Driver != "" {
		cfg.Output.Driver = f.Driver
	}
	if f.Dataset != "" {
		cfg.Output.Dataset = f.Dataset
	}
	for _, g := range []*GridConfig{&cfg.Grid, &cfg.Solid.Grid} {
		if f.Mode != "" {
			g.Mode = f.Mode
		}
		if f.NX > 0 {
			g.NumberX = f.NX
		}
		if f.NY > 0 {
			g.NumberY = f.NY
		}
		if f.NZ > 0 {
			g.NumberZ = f.NZ
		}
		if f.Width > 0 {
			g.Width = f.Width
		}
		if f.Height > 0 {
			g.Height = f.Height
		}
	}
	if f.NoData != "" {
		cfg.Strata.NoData = f.NoData
	}
	if f.Continuous {
		cfg.Boreholes.Continuous = true
	}
	if f.Workers > 0 {
		cfg.Run.Workers = f.Workers
	}
	if f.Timeout > 0 {
		cfg.Run.Timeout = f.Timeout
	}
}
