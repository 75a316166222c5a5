// Package boundary extracts the open rim of a triangle mesh by counting how
// many triangles use each edge.
//
// An edge used by exactly one triangle is a boundary edge, an edge used by
// two is interior. Edges used by more than two triangles make the mesh
// non-manifold; they are reported separately and never appear in the
// boundary output.
package boundary

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/mesh"
)

// Edge is an unordered vertex pair stored with the lower index first, so the
// two directed traversals of a shared edge produce the same key.
type Edge struct {
	A, B int
}

// NewEdge returns the canonical edge between vertex indices a and b.
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

func (e Edge) String() string {
	return fmt.Sprintf("%d-%d", e.A, e.B)
}

func edgeLess(x, y Edge) bool {
	if x.A != y.A {
		return x.A < y.A
	}
	return x.B < y.B
}

// Segment is a boundary edge resolved to its two vertex positions.
type Segment struct {
	Edge
	From r3.Vec
	To   r3.Vec
}

// NonManifoldEdge is a structural warning: Count triangles share Edge.
type NonManifoldEdge struct {
	Edge
	Count int
}

func (n NonManifoldEdge) String() string {
	return fmt.Sprintf("edge %s shared by %d triangles", n.Edge, n.Count)
}

// Result holds the outcome of Extract. Slices are sorted by edge.
type Result struct {
	Boundary    []Segment
	NonManifold []NonManifoldEdge
	Interior    int // number of distinct edges with count 2
	Triangles   int
}

// Closed reports whether every edge is shared by exactly two triangles.
func (r *Result) Closed() bool {
	return len(r.Boundary) == 0 && len(r.NonManifold) == 0
}

// Check verifies the edge partition identity
// 3·|T| = 2·interior + boundary + Σ count over non-manifold edges.
func (r *Result) Check() error {
	sum := 2*r.Interior + len(r.Boundary)
	for _, n := range r.NonManifold {
		sum += n.Count
	}
	if sum != 3*r.Triangles {
		return fmt.Errorf("edge partition mismatch: 3*%d != %d", r.Triangles, sum)
	}
	return nil
}

// Extract counts the canonical edges of every triangle in m and classifies
// them in a single pass. The result depends only on m.
func Extract(m *mesh.Mesh) *Result {
	tris := m.Triangles()
	counts := make(map[Edge]int, len(tris)*3/2+1)
	for _, t := range tris {
		counts[NewEdge(t[0], t[1])]++
		counts[NewEdge(t[1], t[2])]++
		counts[NewEdge(t[2], t[0])]++
	}

	res := &Result{Triangles: len(tris)}
	for e, n := range counts {
		switch {
		case n == 1:
			res.Boundary = append(res.Boundary, Segment{
				Edge: e,
				From: m.Vertex(e.A).Pos,
				To:   m.Vertex(e.B).Pos,
			})
		case n == 2:
			res.Interior++
		default:
			res.NonManifold = append(res.NonManifold, NonManifoldEdge{Edge: e, Count: n})
		}
	}

	sort.Slice(res.Boundary, func(i, j int) bool {
		return edgeLess(res.Boundary[i].Edge, res.Boundary[j].Edge)
	})
	sort.Slice(res.NonManifold, func(i, j int) bool {
		return edgeLess(res.NonManifold[i].Edge, res.NonManifold[j].Edge)
	})
	return res
}

// IsClosed reports whether m has no boundary or non-manifold edges.
func IsClosed(m *mesh.Mesh) bool {
	return Extract(m).Closed()
}
