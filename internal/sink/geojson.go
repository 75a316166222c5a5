package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/multierr"
)

// GeoJSON collects one FeatureCollection per dataset and writes them to
// <dir>/<dataset>.geojson on Close. GeoJSON geometries are 2D here, so
// elevations and voxel indices travel in feature properties.
type GeoJSON struct {
	dir string

	mu          sync.Mutex
	closed      bool
	collections map[string]*geojson.FeatureCollection
}

// NewGeoJSON creates dir if needed and returns a GeoJSON sink writing into it.
func NewGeoJSON(dir string) (*GeoJSON, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &GeoJSON{dir: dir, collections: make(map[string]*geojson.FeatureCollection)}, nil
}

func (g *GeoJSON) WriteTriangles(ctx context.Context, dataset string, tris []Triangle) error {
	features := make([]*geojson.Feature, len(tris))
	for n, t := range tris {
		ring := orb.Ring{{t.A.X, t.A.Y}, {t.B.X, t.B.Y}, {t.C.X, t.C.Y}, {t.A.X, t.A.Y}}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties = properties(t.Attributes)
		f.Properties["index"] = t.Index
		f.Properties["z"] = []float64{t.A.Z, t.B.Z, t.C.Z}
		features[n] = f
	}
	return g.append(ctx, dataset, features)
}

func (g *GeoJSON) WriteSegments(ctx context.Context, dataset string, segs []Segment) error {
	features := make([]*geojson.Feature, len(segs))
	for n, s := range segs {
		f := geojson.NewFeature(orb.LineString{{s.From.X, s.From.Y}, {s.To.X, s.To.Y}})
		f.Properties = properties(s.Attributes)
		f.Properties["name"] = s.Name
		f.Properties["z"] = []float64{s.From.Z, s.To.Z}
		if s.Label != "" {
			f.Properties["label"] = s.Label
		}
		features[n] = f
	}
	return g.append(ctx, dataset, features)
}

func (g *GeoJSON) WritePoints(ctx context.Context, dataset string, pts []Point) error {
	features := make([]*geojson.Feature, len(pts))
	for n, p := range pts {
		f := geojson.NewFeature(orb.Point{p.X, p.Y})
		f.Properties = geojson.Properties{
			"z":     p.Z,
			"i":     p.I,
			"j":     p.J,
			"k":     p.K,
			"label": p.Label,
			"type":  p.Type,
		}
		features[n] = f
	}
	return g.append(ctx, dataset, features)
}

// properties starts a feature's properties from its attributes. Geometry
// properties set afterwards win over attributes of the same name.
func properties(attrs map[string]string) geojson.Properties {
	p := make(geojson.Properties, len(attrs)+3)
	for k, v := range attrs {
		p[k] = v
	}
	return p
}

func (g *GeoJSON) append(ctx context.Context, dataset string, features []*geojson.Feature) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	fc, ok := g.collections[dataset]
	if !ok {
		fc = geojson.NewFeatureCollection()
		g.collections[dataset] = fc
	}
	fc.Features = append(fc.Features, features...)
	return nil
}

// Path returns the file a dataset is written to.
func (g *GeoJSON) Path(dataset string) string {
	return filepath.Join(g.dir, fileName(dataset)+".geojson")
}

// Close writes every collected dataset. Failures for one dataset do not
// stop the others; all of them are returned.
func (g *GeoJSON) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var errs error
	for name, fc := range g.collections {
		data, err := fc.MarshalJSON()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("encode %s: %w", name, err))
			continue
		}
		if err := os.WriteFile(g.Path(name), data, 0644); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("write %s: %w", name, err))
		}
	}
	return errs
}

// fileName replaces characters that are unsafe in file names.
func fileName(dataset string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, dataset)
}
