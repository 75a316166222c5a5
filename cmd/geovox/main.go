// geovox converts geological surface meshes into voxel grids.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/geovox/internal/config"
	"github.com/Faultbox/geovox/internal/logger"
	"github.com/Faultbox/geovox/internal/pipeline"
	"github.com/Faultbox/geovox/internal/sink"
	"github.com/Faultbox/geovox/pkg/boundary"
	"github.com/Faultbox/geovox/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "export", "triangles":
		cmdSurfaces("export", args, (*pipeline.Runner).ExportTriangles)
	case "boundary":
		cmdSurfaces("boundary", args, (*pipeline.Runner).Boundary)
	case "strata", "layers":
		cmdSurfaces("strata", args, (*pipeline.Runner).Strata)
	case "solid", "solids":
		cmdSurfaces("solid", args, (*pipeline.Runner).Solids)
	case "boreholes", "bif2":
		cmdBoreholes(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`geovox - geological mesh to voxel converter

Usage:
  geovox <command> [options] <files...>

Commands:
  info <surfaces...>        Show mesh statistics and closure
  export <surfaces...>      Write surface triangles to the output
  boundary <surfaces...>    Write the open boundary edges of each surface
  strata <surfaces...>      Classify one grid into the layers the surfaces bound
  solid <surfaces...>       Voxelize each closed surface on its own grid
  boreholes <logs...>       Write BIF2 borehole layers as segments

Supported inputs: GoCAD TSurf (.ts), VTK polydata (.vtk), TIN (.tin),
BIF2 borehole logs (.bif2).

Options (all commands except info):
  -config <file>   Config file (default ./geovox.yaml)
  -out <path>      Output database file or GeoJSON directory
  -driver <name>   sqlite, geojson or memory
  -mode <mode>     Grid mode: count, size or axis
  -nx/-ny/-nz <n>  Voxel counts
  -width/-height   Voxel size (size mode)
  -nodata <p>      zero, ignore or skip_column
  -workers <n>     Worker goroutines
  -timeout <d>     Abort after duration
  -continuous      Also write borehole paths as continuous lines
  -debug           Debug logging

Examples:
  geovox strata -mode count -nx 100 -nz 50 top.ts base.ts
  geovox solid -driver geojson -out ./out salt.ts
  geovox boundary -out model.db fault.vtk
  geovox boreholes -continuous -out logs.db kb*.bif2`)
}

// setup parses the shared flags and initializes config and logging.
// It exits on error.
func setup(name string, args []string) (*config.Config, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: geovox %s [options] <files...>\n", name)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	return cfg, fs.Args()
}

func cmdInfo(args []string) {
	cfg, files := setup("info", args)

	r := pipeline.NewRunner(cfg, sink.NewMemory(), "")
	surfaces, rep := r.ImportSurfaces(files)
	for _, s := range surfaces {
		printSurface(s)
	}
	code := printReport(rep, nil)
	logger.Sync()
	os.Exit(code)
}

func printSurface(s *mesh.Surface) {
	b := s.Bounds()
	res := boundary.Extract(s.Mesh)

	fmt.Printf("Surface:   %s\n", s.Name)
	fmt.Printf("Layer:     %s\n", s.Label())
	fmt.Printf("Vertices:  %d\n", s.Mesh.NumVertices())
	fmt.Printf("Triangles: %d\n", s.Mesh.NumTriangles())
	fmt.Printf("Bounds:    [%g %g %g] - [%g %g %g]\n", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	fmt.Printf("Closed:    %v (%d boundary, %d non-manifold edges)\n",
		res.Closed(), len(res.Boundary), len(res.NonManifold))

	keys := make([]string, 0, len(s.Attributes))
	for k := range s.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %s\n", k, s.Attributes[k])
	}
	fmt.Println()
}

type surfaceOp func(*pipeline.Runner, context.Context, []*mesh.Surface) (*pipeline.Report, error)

func cmdSurfaces(name string, args []string, op surfaceOp) {
	cfg, files := setup(name, args)

	r, out := openRunner(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	surfaces, rep := r.ImportSurfaces(files)
	var err error
	if len(surfaces) > 0 {
		var opRep *pipeline.Report
		opRep, err = op(r, ctx, surfaces)
		opRep.Inputs = 0 // already counted on import
		rep.Merge(opRep)
	}

	code := printReport(rep, closeSink(out, err))
	stop()
	logger.Sync()
	os.Exit(code)
}

func cmdBoreholes(args []string) {
	cfg, files := setup("boreholes", args)

	r, out := openRunner(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := r.Boreholes(ctx, files)
	code := printReport(rep, closeSink(out, err))
	stop()
	logger.Sync()
	os.Exit(code)
}

func openRunner(cfg *config.Config) (*pipeline.Runner, sink.Sink) {
	runID := uuid.NewString()
	out, err := sink.Open(cfg.Output.Driver, cfg.Output.Path, runID)
	if err != nil {
		logger.Error("failed to open output", zap.String("driver", cfg.Output.Driver), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("run started",
		zap.String("run_id", runID),
		zap.String("driver", cfg.Output.Driver),
		zap.String("path", cfg.Output.Path))
	return pipeline.NewRunner(cfg, out, runID), out
}

// closeSink closes out and returns the first of runErr and the close error.
func closeSink(out sink.Sink, runErr error) error {
	if err := out.Close(); err != nil && runErr == nil {
		return fmt.Errorf("close output: %w", err)
	}
	return runErr
}

// printReport prints rep and returns the process exit code.
func printReport(rep *pipeline.Report, err error) int {
	fmt.Printf("Run:       %s\n", rep.RunID)
	fmt.Printf("Inputs:    %d (%d ok, %d failed)\n", rep.Inputs, rep.Succeeded(), len(rep.Failures))

	names := make([]string, 0, len(rep.Grids))
	for n := range rep.Grids {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		g := rep.Grids[n]
		fmt.Printf("Grid %s: %s\n", n, g)
		fmt.Printf("  display as cubes: width=%g depth=%g height=%g\n", g.DX, g.DY, g.DZ)
	}

	datasets := make([]string, 0, len(rep.Written))
	for ds := range rep.Written {
		datasets = append(datasets, ds)
	}
	sort.Strings(datasets)
	if len(datasets) > 0 {
		fmt.Println("Written:")
	}
	for _, ds := range datasets {
		fmt.Printf("  %-30s %d\n", ds, rep.Written[ds])
	}

	for _, w := range rep.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", f)
	}

	if err != nil {
		logger.Error("run aborted", zap.String("run_id", rep.RunID), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(rep.Failures) > 0 {
		return 1
	}
	return 0
}
