// Package solid implements a point-in-closed-surface test by ray parity.
//
// A ray cast from the query point crosses a closed surface an odd number of
// times iff the point is inside. Rays are cast along fixed skewed directions
// so they are never parallel to axis-aligned faces, which dominate extruded
// geological solids.
//
// Conventions:
//   - A point within Epsilon of a face (along the ray) is inside.
//   - A cast is ambiguous when a crossing lies within Epsilon of a triangle
//     edge or vertex, or the ray runs in the plane of a triangle. An
//     ambiguous cast is discarded and the next direction is tried.
//   - When every direction is ambiguous, the majority of their parities
//     decides; a tie counts as outside.
package solid

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/geom"
	"github.com/Faultbox/geovox/pkg/mesh"
)

// ErrEmptySolid is returned for a mesh without triangles.
var ErrEmptySolid = errors.New("solid has no triangles")

// DefaultEpsilon is the relative tolerance, scaled by the bounding box
// diagonal for distances.
const DefaultEpsilon = 1e-9

var castDirections = [...]r3.Vec{
	{X: 1, Y: 0.3183099, Z: 0.1591549},
	{X: -0.2718282, Y: 1, Z: 0.4142136},
	{X: 0.1414214, Y: -0.3010300, Z: 1},
	{X: -0.5772157, Y: -0.6931472, Z: -1},
	{X: 0.7071068, Y: -1, Z: -0.2236068},
}

type face struct {
	a, b, c r3.Vec
	n       r3.Vec  // unnormalized normal
	nlen    float64 // |n|
}

// Parity tests containment against a closed triangle mesh.
// It is safe for concurrent use.
type Parity struct {
	faces   []face
	bounds  geom.Box
	eps     float64 // distance tolerance
	baryEps float64 // barycentric tolerance
	dirs    []r3.Vec
}

// NewParity prepares m for containment queries. epsilon <= 0 selects
// DefaultEpsilon. The caller is responsible for m being closed.
func NewParity(m *mesh.Mesh, epsilon float64) (*Parity, error) {
	if m.IsEmpty() {
		return nil, ErrEmptySolid
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	b := m.Bounds()
	diag := r3.Norm(b.Size())
	if diag == 0 {
		diag = 1
	}
	eps := epsilon * diag

	p := &Parity{
		faces:   make([]face, 0, m.NumTriangles()),
		eps:     eps,
		baryEps: epsilon,
		bounds: geom.Box{
			Min: r3.Sub(b.Min, r3.Vec{X: eps, Y: eps, Z: eps}),
			Max: r3.Add(b.Max, r3.Vec{X: eps, Y: eps, Z: eps}),
		},
	}
	for _, t := range m.Triangles() {
		a, bb, c := m.Corners(t)
		n := geom.Normal(a, bb, c)
		p.faces = append(p.faces, face{a: a, b: bb, c: c, n: n, nlen: r3.Norm(n)})
	}
	for _, d := range castDirections {
		p.dirs = append(p.dirs, r3.Unit(d))
	}
	return p, nil
}

// Contains reports whether pt lies inside the solid.
func (p *Parity) Contains(pt r3.Vec) bool {
	if !p.bounds.Contains(pt) {
		return false
	}

	votes, casts := 0, 0
	for _, d := range p.dirs {
		inside, onSurface, ambiguous := p.cast(geom.Ray{Origin: pt, Direction: d})
		if onSurface {
			return true
		}
		if !ambiguous {
			return inside
		}
		casts++
		if inside {
			votes++
		}
	}
	return votes*2 > casts
}

func (p *Parity) cast(r geom.Ray) (inside, onSurface, ambiguous bool) {
	crossings := 0
	for i := range p.faces {
		f := &p.faces[i]
		if f.nlen == 0 {
			continue // zero-area face
		}
		h, ok := r.IntersectTriangle(f.a, f.b, f.c)
		if !ok {
			// Ray parallel to the face: only a problem when it runs in its plane.
			if math.Abs(r3.Dot(f.n, r3.Sub(r.Origin, f.a))) <= p.eps*f.nlen {
				ambiguous = true
			}
			continue
		}
		if !h.Inside(p.baryEps) {
			continue
		}
		if math.Abs(h.T) <= p.eps {
			return false, true, false
		}
		if h.T < 0 {
			continue
		}
		if h.NearEdge(p.baryEps) {
			ambiguous = true
		}
		crossings++
	}
	return crossings%2 == 1, false, ambiguous
}
