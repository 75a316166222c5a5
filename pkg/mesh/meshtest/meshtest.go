// Package meshtest provides small fixture meshes for tests.
package meshtest

import (
	"testing"

	"github.com/Faultbox/geovox/pkg/mesh"
)

// MustBuild builds a mesh or fails the test.
func MustBuild(t testing.TB, vs []mesh.VertexRecord, ts []mesh.TriangleRecord) *mesh.Mesh {
	t.Helper()
	m, err := mesh.Build(vs, ts)
	if err != nil {
		t.Fatalf("mesh.Build failed: %v", err)
	}
	return m
}

// Triangle is a single right triangle in the z=0 plane.
func Triangle(t testing.TB) *mesh.Mesh {
	return MustBuild(t,
		[]mesh.VertexRecord{{ID: 1, X: 0, Y: 0, Z: 0}, {ID: 2, X: 1, Y: 0, Z: 0}, {ID: 3, X: 0, Y: 1, Z: 0}},
		[]mesh.TriangleRecord{{1, 2, 3}},
	)
}

// Square is a unit square in the z=0 plane split along its 1-3 diagonal.
func Square(t testing.TB) *mesh.Mesh {
	return MustBuild(t,
		[]mesh.VertexRecord{{ID: 1, X: 0, Y: 0, Z: 0}, {ID: 2, X: 1, Y: 0, Z: 0}, {ID: 3, X: 1, Y: 1, Z: 0}, {ID: 4, X: 0, Y: 1, Z: 0}},
		[]mesh.TriangleRecord{{1, 2, 3}, {1, 3, 4}},
	)
}

// Plane is a flat rectangle at height z covering [x0,x1]x[y0,y1].
func Plane(t testing.TB, x0, y0, x1, y1, z float64) *mesh.Mesh {
	return MustBuild(t,
		[]mesh.VertexRecord{{ID: 1, X: x0, Y: y0, Z: z}, {ID: 2, X: x1, Y: y0, Z: z}, {ID: 3, X: x1, Y: y1, Z: z}, {ID: 4, X: x0, Y: y1, Z: z}},
		[]mesh.TriangleRecord{{1, 2, 3}, {1, 3, 4}},
	)
}

// Tetrahedron is a closed manifold with 4 faces.
func Tetrahedron(t testing.TB) *mesh.Mesh {
	return MustBuild(t,
		[]mesh.VertexRecord{{ID: 1, X: 0, Y: 0, Z: 0}, {ID: 2, X: 1, Y: 0, Z: 0}, {ID: 3, X: 0, Y: 1, Z: 0}, {ID: 4, X: 0, Y: 0, Z: 1}},
		[]mesh.TriangleRecord{{1, 3, 2}, {1, 2, 4}, {2, 3, 4}, {3, 1, 4}},
	)
}

// Cube is a closed axis-aligned box [x0,x1]^3 made of 12 triangles.
func Cube(t testing.TB, x0, x1 float64) *mesh.Mesh {
	vs := []mesh.VertexRecord{
		{ID: 1, X: x0, Y: x0, Z: x0}, {ID: 2, X: x1, Y: x0, Z: x0}, {ID: 3, X: x1, Y: x1, Z: x0}, {ID: 4, X: x0, Y: x1, Z: x0},
		{ID: 5, X: x0, Y: x0, Z: x1}, {ID: 6, X: x1, Y: x0, Z: x1}, {ID: 7, X: x1, Y: x1, Z: x1}, {ID: 8, X: x0, Y: x1, Z: x1},
	}
	ts := []mesh.TriangleRecord{
		{1, 3, 2}, {1, 4, 3}, // bottom
		{5, 6, 7}, {5, 7, 8}, // top
		{1, 2, 6}, {1, 6, 5}, // front
		{2, 3, 7}, {2, 7, 6}, // right
		{3, 4, 8}, {3, 8, 7}, // back
		{4, 1, 5}, {4, 5, 8}, // left
	}
	return MustBuild(t, vs, ts)
}

// LPrism is a closed L-shaped prism of height 1 over the polygon
// (0,0) (2,0) (2,1) (1,1) (1,2) (0,2). The notch [1,2]x[1,2] is outside.
func LPrism(t testing.TB) *mesh.Mesh {
	ring := [][2]float64{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}
	n := len(ring)
	var vs []mesh.VertexRecord
	for _, z := range []float64{0, 1} {
		for _, p := range ring {
			vs = append(vs, mesh.VertexRecord{ID: len(vs) + 1, X: p[0], Y: p[1], Z: z})
		}
	}
	var ts []mesh.TriangleRecord
	// Fan from the first corner covers the L on both caps.
	for i := 1; i+1 < n; i++ {
		ts = append(ts, mesh.TriangleRecord{1, i + 2, i + 1})
		ts = append(ts, mesh.TriangleRecord{n + 1, n + i + 1, n + i + 2})
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		ts = append(ts,
			mesh.TriangleRecord{i + 1, j + 1, n + j + 1},
			mesh.TriangleRecord{i + 1, n + j + 1, n + i + 1})
	}
	return MustBuild(t, vs, ts)
}
