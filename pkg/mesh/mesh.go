// Package mesh provides the indexed triangle mesh shared by every stage of
// the voxel pipeline.
package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/geom"
)

// ErrReference is matched by every *ReferenceError.
var ErrReference = errors.New("invalid vertex reference")

// ReferenceError reports a triangle that points at a vertex outside the
// vertex list, or at the same vertex more than once.
type ReferenceError struct {
	Triangle    int // 0-based position of the offending triangle record
	Index       int // offending 1-based index, out-of-range errors only
	VertexCount int // set for out-of-range errors only
	Reason      string
}

func (e *ReferenceError) Error() string {
	if e.VertexCount > 0 || e.Index != 0 {
		return fmt.Sprintf("triangle %d: %s: index %d not in [1, %d]",
			e.Triangle, e.Reason, e.Index, e.VertexCount)
	}
	return fmt.Sprintf("triangle %d: %s", e.Triangle, e.Reason)
}

// Is makes errors.Is(err, ErrReference) match.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrReference
}

// VertexRecord is a vertex as read from an input file.
type VertexRecord struct {
	ID      int
	X, Y, Z float64
}

// TriangleRecord holds three 1-based positional indices into the vertex
// records, matching the numbering used by the supported formats.
type TriangleRecord [3]int

// Vertex is an immutable mesh vertex.
type Vertex struct {
	ID  int
	Pos r3.Vec
}

// Triangle holds three distinct 0-based indices into Mesh.Vertices.
type Triangle [3]int

// Mesh is an immutable indexed triangle mesh. Vertex and triangle order
// match the records it was built from.
type Mesh struct {
	vertices  []Vertex
	triangles []Triangle
	bounds    geom.Box
}

// Build validates the records and assembles a Mesh.
func Build(vertices []VertexRecord, triangles []TriangleRecord) (*Mesh, error) {
	n := len(vertices)
	m := &Mesh{
		vertices:  make([]Vertex, n),
		triangles: make([]Triangle, len(triangles)),
		bounds:    geom.EmptyBox(),
	}

	for i, v := range vertices {
		p := r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
		m.vertices[i] = Vertex{ID: v.ID, Pos: p}
		m.bounds = m.bounds.Extend(p)
	}

	for ti, t := range triangles {
		for _, idx := range t {
			if idx < 1 || idx > n {
				return nil, &ReferenceError{
					Triangle:    ti,
					Index:       idx,
					VertexCount: n,
					Reason:      "out of range",
				}
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			return nil, &ReferenceError{
				Triangle: ti,
				Reason:   fmt.Sprintf("degenerate: fewer than 3 distinct vertices %v", [3]int(t)),
			}
		}
		m.triangles[ti] = Triangle{t[0] - 1, t[1] - 1, t[2] - 1}
	}

	return m, nil
}

// Vertices returns the vertex slice. Callers must not modify it.
func (m *Mesh) Vertices() []Vertex {
	return m.vertices
}

// Triangles returns the triangle slice. Callers must not modify it.
func (m *Mesh) Triangles() []Triangle {
	return m.triangles
}

// NumVertices returns the number of vertices.
func (m *Mesh) NumVertices() int {
	return len(m.vertices)
}

// NumTriangles returns the number of triangles.
func (m *Mesh) NumTriangles() int {
	return len(m.triangles)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.triangles) == 0
}

// Vertex returns the vertex at 0-based index i.
func (m *Mesh) Vertex(i int) Vertex {
	return m.vertices[i]
}

// Corners returns the positions of triangle t's three vertices.
func (m *Mesh) Corners(t Triangle) (a, b, c r3.Vec) {
	return m.vertices[t[0]].Pos, m.vertices[t[1]].Pos, m.vertices[t[2]].Pos
}

// Bounds returns the bounding box of all vertices.
func (m *Mesh) Bounds() geom.Box {
	return m.bounds
}
