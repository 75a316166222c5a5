// Package sampling interpolates surface elevations from triangle meshes.
package sampling

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/geom"
	"github.com/Faultbox/geovox/pkg/mesh"
)

// ErrEmptySurface is returned when a mesh has no triangle with a
// non-degenerate XY footprint.
var ErrEmptySurface = errors.New("surface has no sampleable triangles")

// baryEpsilon lets points on a shared edge resolve to either neighbour.
const baryEpsilon = 1e-9

type tri struct {
	a, b, c r3.Vec
	det     float64 // doubled signed XY area
	minX    float64
	minY    float64
	maxX    float64
	maxY    float64
}

// TIN is a linear interpolator over the XY projection of a surface mesh.
// It is immutable once built and safe for concurrent use.
type TIN struct {
	tris   []tri
	bounds geom.Box

	// Uniform bucket index over the XY bounds.
	cols, rows int
	cellW      float64
	cellH      float64
	buckets    [][]int32
}

// NewTIN indexes the triangles of m. Vertical triangles (zero XY area)
// are left out.
func NewTIN(m *mesh.Mesh) (*TIN, error) {
	s := &TIN{bounds: m.Bounds()}
	for _, t := range m.Triangles() {
		a, b, c := m.Corners(t)
		det := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
		if det == 0 {
			continue
		}
		s.tris = append(s.tris, tri{
			a: a, b: b, c: c, det: det,
			minX: math.Min(a.X, math.Min(b.X, c.X)),
			minY: math.Min(a.Y, math.Min(b.Y, c.Y)),
			maxX: math.Max(a.X, math.Max(b.X, c.X)),
			maxY: math.Max(a.Y, math.Max(b.Y, c.Y)),
		})
	}
	if len(s.tris) == 0 {
		return nil, ErrEmptySurface
	}
	s.index()
	return s, nil
}

// index distributes triangles into roughly sqrt(n) x sqrt(n) buckets.
func (s *TIN) index() {
	n := int(math.Ceil(math.Sqrt(float64(len(s.tris)))))
	w := s.bounds.Max.X - s.bounds.Min.X
	h := s.bounds.Max.Y - s.bounds.Min.Y
	s.cols, s.rows = n, n
	if w == 0 {
		s.cols = 1
	}
	if h == 0 {
		s.rows = 1
	}
	s.cellW = w / float64(s.cols)
	s.cellH = h / float64(s.rows)
	s.buckets = make([][]int32, s.cols*s.rows)

	for idx, t := range s.tris {
		c0, r0 := s.cell(t.minX, t.minY)
		c1, r1 := s.cell(t.maxX, t.maxY)
		for c := c0; c <= c1; c++ {
			for r := r0; r <= r1; r++ {
				b := r*s.cols + c
				s.buckets[b] = append(s.buckets[b], int32(idx))
			}
		}
	}
}

// cell returns the bucket containing (x, y), clamped to the index.
func (s *TIN) cell(x, y float64) (col, row int) {
	if s.cellW > 0 {
		col = int((x - s.bounds.Min.X) / s.cellW)
	}
	if s.cellH > 0 {
		row = int((y - s.bounds.Min.Y) / s.cellH)
	}
	col = max(0, min(col, s.cols-1))
	row = max(0, min(row, s.rows-1))
	return col, row
}

// Bounds returns the 3D bounds of the sampled surface.
func (s *TIN) Bounds() geom.Box {
	return s.bounds
}

// Elevation returns the interpolated z at (x, y). ok is false outside the
// surface's footprint.
func (s *TIN) Elevation(x, y float64) (float64, bool) {
	if !s.bounds.ContainsXY(x, y) {
		return 0, false
	}
	col, row := s.cell(x, y)
	for _, idx := range s.buckets[row*s.cols+col] {
		t := &s.tris[idx]
		if x < t.minX || x > t.maxX || y < t.minY || y > t.maxY {
			continue
		}
		// Barycentric weights from signed XY areas.
		u := ((t.c.X-x)*(t.a.Y-y) - (t.a.X-x)*(t.c.Y-y)) / t.det
		v := ((t.a.X-x)*(t.b.Y-y) - (t.b.X-x)*(t.a.Y-y)) / t.det
		w := 1 - u - v
		if u < -baryEpsilon || v < -baryEpsilon || w < -baryEpsilon {
			continue
		}
		return w*t.a.Z + u*t.b.Z + v*t.c.Z, true
	}
	return 0, false
}
