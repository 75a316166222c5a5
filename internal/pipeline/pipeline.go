// Package pipeline runs the mesh-to-voxel workflows: importing surfaces,
// exporting their triangles and boundaries, and classifying voxel grids
// against stratigraphic surfaces or closed solids. Results go to a sink.
//
// Per-input problems (malformed files, bad references, open solids) are
// reported in the Report and do not stop the run. Context cancellation,
// timeouts and sink write failures abort it.
package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/internal/config"
	"github.com/Faultbox/geovox/internal/logger"
	"github.com/Faultbox/geovox/internal/sink"
	"github.com/Faultbox/geovox/pkg/boundary"
	"github.com/Faultbox/geovox/pkg/classify"
	"github.com/Faultbox/geovox/pkg/formats"
	"github.com/Faultbox/geovox/pkg/geom"
	"github.com/Faultbox/geovox/pkg/mesh"
	"github.com/Faultbox/geovox/pkg/sampling"
	"github.com/Faultbox/geovox/pkg/solid"
	"github.com/Faultbox/geovox/pkg/voxel"
)

// writeBatch bounds the number of records per sink call.
const writeBatch = 10000

// Runner executes pipeline operations with one configuration and sink.
type Runner struct {
	cfg   *config.Config
	sink  sink.Sink
	runID string
	log   *zap.Logger
}

// NewRunner creates a runner. An empty runID gets a fresh UUID.
func NewRunner(cfg *config.Config, s sink.Sink, runID string) *Runner {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Runner{
		cfg:   cfg,
		sink:  s,
		runID: runID,
		log:   logger.ForRun("pipeline", runID),
	}
}

// RunID returns the id stamped on every report of this runner.
func (r *Runner) RunID() string {
	return r.runID
}

// withTimeout applies the configured run timeout, if any.
func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Run.Timeout > 0 {
		return context.WithTimeout(ctx, r.cfg.Run.Timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) options() classify.Options {
	return classify.Options{Workers: r.cfg.Run.Workers, NoData: r.cfg.NoDataPolicy()}
}

// dataset prefixes name with the configured dataset name.
func (r *Runner) dataset(name string) string {
	if r.cfg.Output.Dataset == "" {
		return name
	}
	return r.cfg.Output.Dataset + "_" + name
}

// label returns the layer label of s, honouring strata.label_attribute.
func (r *Runner) label(s *mesh.Surface) string {
	if attr := r.cfg.Strata.LabelAttribute; attr != "" {
		if v := s.Attributes[attr]; v != "" {
			return v
		}
	}
	return s.Label()
}

// ImportSurfaces reads every path. Unreadable inputs are reported and
// skipped; the surfaces that did load are returned in input order.
func (r *Runner) ImportSurfaces(paths []string) ([]*mesh.Surface, *Report) {
	rep := newReport(r.runID)
	rep.Inputs = len(paths)
	var out []*mesh.Surface
	for _, p := range paths {
		s, err := formats.ReadSurface(p)
		if err != nil {
			r.log.Warn("import failed", zap.String("input", p), zap.Error(err))
			rep.fail(p, err)
			continue
		}
		r.log.Debug("imported surface",
			zap.String("input", p),
			zap.String("name", s.Name),
			zap.String("layer", s.Label()),
			zap.Int("vertices", s.Mesh.NumVertices()),
			zap.Int("triangles", s.Mesh.NumTriangles()))
		out = append(out, s)
	}
	return out, rep
}

// triangleAttributes copies the surface attributes and adds the layer and
// the triangle's 3D perimeter as length3D.
func triangleAttributes(s *mesh.Surface, a, b, c r3.Vec) map[string]string {
	attrs := make(map[string]string, len(s.Attributes)+2)
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	if l := s.Label(); l != "" {
		attrs["LAYER"] = l
	}
	perimeter := r3.Norm(r3.Sub(b, a)) + r3.Norm(r3.Sub(c, b)) + r3.Norm(r3.Sub(a, c))
	attrs["length3D"] = strconv.FormatFloat(perimeter, 'f', -1, 64)
	return attrs
}

// ExportTriangles writes each surface's triangles to its own dataset.
// Every triangle carries the surface attributes.
func (r *Runner) ExportTriangles(ctx context.Context, surfaces []*mesh.Surface) (*Report, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rep := newReport(r.runID)
	rep.Inputs = len(surfaces)
	for _, s := range surfaces {
		tris := make([]sink.Triangle, 0, s.Mesh.NumTriangles())
		for n, t := range s.Mesh.Triangles() {
			a, b, c := s.Mesh.Corners(t)
			tris = append(tris, sink.Triangle{
				Index:      n,
				A:          a,
				B:          b,
				C:          c,
				Attributes: triangleAttributes(s, a, b, c),
			})
		}
		ds := r.dataset(s.Name)
		if err := writeTriangles(ctx, r.sink, ds, tris); err != nil {
			return rep, err
		}
		rep.Written[ds] += len(tris)
	}
	r.log.Info("exported triangles", zap.Int("surfaces", len(surfaces)))
	return rep, nil
}

// Boundary writes the open boundary edges of each surface as segments.
// Non-manifold edges are reported as warnings.
func (r *Runner) Boundary(ctx context.Context, surfaces []*mesh.Surface) (*Report, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rep := newReport(r.runID)
	rep.Inputs = len(surfaces)
	for _, s := range surfaces {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := boundary.Extract(s.Mesh)
		if err := res.Check(); err != nil {
			rep.fail(s.Name, err)
			continue
		}
		for _, nm := range res.NonManifold {
			rep.warn("%s: non-manifold %s", s.Name, nm)
		}
		if n := len(res.NonManifold); n > 0 {
			r.log.Warn("non-manifold edges", zap.String("surface", s.Name), zap.Int("edges", n))
		}

		segs := make([]sink.Segment, len(res.Boundary))
		for n, b := range res.Boundary {
			segs[n] = sink.Segment{
				Name:  s.Name,
				Label: r.label(s),
				From:  b.From,
				To:    b.To,
			}
		}
		ds := r.dataset(s.Name + "_boundary")
		if err := writeSegments(ctx, r.sink, ds, segs); err != nil {
			return rep, err
		}
		rep.Written[ds] += len(segs)
		r.log.Info("boundary extracted",
			zap.String("surface", s.Name),
			zap.Int("boundary", len(res.Boundary)),
			zap.Int("interior", res.Interior),
			zap.Bool("closed", res.Closed()))
	}
	return rep, nil
}

// Strata classifies one grid spanning all surfaces into the layers they
// bound and writes the voxel centroids per label, plus the grid outline.
func (r *Runner) Strata(ctx context.Context, surfaces []*mesh.Surface) (*Report, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rep := newReport(r.runID)
	rep.Inputs = len(surfaces)

	var (
		layers []classify.Layer
		boxes  []geom.Box
	)
	for _, s := range surfaces {
		tin, err := sampling.NewTIN(s.Mesh)
		if err != nil {
			rep.fail(s.Name, err)
			continue
		}
		layers = append(layers, classify.Layer{Label: r.label(s), Sampler: tin})
		boxes = append(boxes, s.Bounds())
	}
	if len(layers) == 0 {
		return rep, classify.ErrNoLayers
	}

	res, err := r.cfg.Grid.Resolution()
	if err != nil {
		return rep, err
	}
	g, err := voxel.Build(res, boxes...)
	if err != nil {
		return rep, err
	}
	sum := g.Summary()
	rep.Grids["strata"] = sum
	r.log.Info("grid built", zap.Stringer("grid", sum), zap.Int("layers", len(layers)))

	out, err := classify.Strata(ctx, g, layers, r.options())
	if err != nil {
		return rep, err
	}
	if out.SkippedColumns > 0 {
		rep.warn("%d of %d columns skipped for missing elevations", out.SkippedColumns, out.Columns)
	}

	byLabel := out.ByLabel()
	for _, label := range out.Labels {
		voxels := byLabel[label]
		if len(voxels) == 0 {
			rep.warn("layer %s has no voxels", label)
			continue
		}
		pts := make([]sink.Point, len(voxels))
		for n, v := range voxels {
			pts[n] = point(g, v, label, 0)
		}
		ds := r.dataset("strata_" + label)
		if err := writePoints(ctx, r.sink, ds, pts); err != nil {
			return rep, err
		}
		rep.Written[ds] += len(pts)
	}

	if err := r.writeOutline(ctx, rep, "strata_grid", g); err != nil {
		return rep, err
	}
	r.log.Info("strata classified",
		zap.Int("assigned", len(out.Assignments)),
		zap.Int("voxels", g.Len()),
		zap.Any("counts", out.Counts))
	return rep, nil
}

// Solids voxelizes every closed surface on its own grid and writes the
// centroids inside it. Open solids are reported and skipped.
func (r *Runner) Solids(ctx context.Context, surfaces []*mesh.Surface) (*Report, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rep := newReport(r.runID)
	rep.Inputs = len(surfaces)

	res, err := r.cfg.Solid.Grid.Resolution()
	if err != nil {
		return rep, err
	}

	for _, s := range surfaces {
		if err := classify.CheckClosed(s.Mesh); err != nil {
			r.log.Warn("skipping solid", zap.String("solid", s.Name), zap.Error(err))
			rep.fail(s.Name, err)
			continue
		}
		g, err := voxel.Build(res, s.Bounds())
		if err != nil {
			rep.fail(s.Name, err)
			continue
		}
		parity, err := solid.NewParity(s.Mesh, r.cfg.Solid.Epsilon)
		if err != nil {
			rep.fail(s.Name, err)
			continue
		}
		rep.Grids[s.Name] = g.Summary()

		out, err := classify.Solid(ctx, g, s.Mesh, parity, r.options())
		if err != nil {
			return rep, err
		}

		pts := make([]sink.Point, len(out.Inside))
		for n, v := range out.Inside {
			pts[n] = point(g, v, r.label(s), classify.TypeInside)
		}
		ds := r.dataset("solid_" + s.Name)
		if err := writePoints(ctx, r.sink, ds, pts); err != nil {
			return rep, err
		}
		rep.Written[ds] += len(pts)
		if err := r.writeOutline(ctx, rep, "solid_"+s.Name+"_grid", g); err != nil {
			return rep, err
		}
		r.log.Info("solid voxelized",
			zap.String("solid", s.Name),
			zap.Stringer("grid", g.Summary()),
			zap.Int("inside", len(out.Inside)),
			zap.Int("tested", out.Tested))
	}
	return rep, nil
}

// Boreholes reads BIF2 logs and writes one segment per drilled layer,
// carrying the borehole and layer fields as attributes. With
// boreholes.continuous set, each surveyed path is written as well.
func (r *Runner) Boreholes(ctx context.Context, paths []string) (*Report, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rep := newReport(r.runID)
	rep.Inputs = len(paths)
	ds := r.dataset("boreholes")
	for _, p := range paths {
		b, err := formats.ReadBorehole(p)
		if err != nil {
			r.log.Warn("borehole import failed", zap.String("input", p), zap.Error(err))
			rep.fail(p, err)
			continue
		}
		name := b.Name
		if name == "" {
			name = b.ID
		}
		props := b.Properties()
		var segs []sink.Segment
		for _, s := range b.Segments() {
			attrs := s.Layer.Properties()
			for k, v := range props {
				attrs[k] = v
			}
			segs = append(segs, sink.Segment{
				Name:       name,
				Label:      s.Layer.Rock,
				From:       s.From,
				To:         s.To,
				Attributes: attrs,
			})
		}
		if len(segs) == 0 {
			rep.warn("%s: borehole %s has no layers", p, b.ID)
		}
		if err := writeSegments(ctx, r.sink, ds, segs); err != nil {
			return rep, err
		}
		rep.Written[ds] += len(segs)

		if r.cfg.Boreholes.Continuous {
			if err := r.writePath(ctx, rep, p, name, b, props); err != nil {
				return rep, err
			}
		}
	}
	r.log.Info("boreholes imported", zap.Int("ok", rep.Succeeded()), zap.Int("failed", len(rep.Failures)))
	return rep, nil
}

// writePath writes the surveyed trajectory of b as one chain of segments.
func (r *Runner) writePath(ctx context.Context, rep *Report, input, name string, b *formats.Borehole, props map[string]string) error {
	chain := b.PathSegments()
	if len(chain) == 0 {
		rep.warn("%s: borehole %s has no path", input, b.ID)
		return nil
	}
	segs := make([]sink.Segment, len(chain))
	for n, c := range chain {
		segs[n] = sink.Segment{Name: name, From: c[0], To: c[1], Attributes: props}
	}
	ds := r.dataset("boreholes_continuous")
	if err := writeSegments(ctx, r.sink, ds, segs); err != nil {
		return err
	}
	rep.Written[ds] += len(segs)
	return nil
}

// writeOutline writes the 12 edges of the grid extent.
func (r *Runner) writeOutline(ctx context.Context, rep *Report, name string, g *voxel.Grid) error {
	edges := g.Extent().Edges()
	segs := make([]sink.Segment, len(edges))
	for n, e := range edges {
		segs[n] = sink.Segment{Name: name, From: e[0], To: e[1]}
	}
	ds := r.dataset(name)
	if err := writeSegments(ctx, r.sink, ds, segs); err != nil {
		return err
	}
	rep.Written[ds] += len(segs)
	return nil
}

func point(g *voxel.Grid, v voxel.Voxel, label string, typ int) sink.Point {
	c := g.Centroid(v)
	return sink.Point{X: c.X, Y: c.Y, Z: c.Z, I: v.I, J: v.J, K: v.K, Label: label, Type: typ}
}

func writeTriangles(ctx context.Context, s sink.Sink, ds string, tris []sink.Triangle) error {
	return inBatches(len(tris), func(lo, hi int) error {
		return s.WriteTriangles(ctx, ds, tris[lo:hi])
	}, ds)
}

func writeSegments(ctx context.Context, s sink.Sink, ds string, segs []sink.Segment) error {
	return inBatches(len(segs), func(lo, hi int) error {
		return s.WriteSegments(ctx, ds, segs[lo:hi])
	}, ds)
}

func writePoints(ctx context.Context, s sink.Sink, ds string, pts []sink.Point) error {
	return inBatches(len(pts), func(lo, hi int) error {
		return s.WritePoints(ctx, ds, pts[lo:hi])
	}, ds)
}

func inBatches(n int, fn func(lo, hi int) error, ds string) error {
	for lo := 0; lo < n; lo += writeBatch {
		if err := fn(lo, min(lo+writeBatch, n)); err != nil {
			return fmt.Errorf("write %s: %w", ds, err)
		}
	}
	return nil
}
