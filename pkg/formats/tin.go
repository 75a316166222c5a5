package formats

import (
	"slices"
	"strings"

	"github.com/Faultbox/geovox/pkg/mesh"
)

// ParseTIN parses a Dude TIN export: a NODES section of "id x y z" rows,
// an EDGES section of "id p1 p2 m" rows and a TRIANGLES section of
// "id e1 e2 e3" rows. Nodes and edges are referenced by 1-based position.
// Each triangle's corners are the distinct endpoints of its three edges.
func ParseTIN(data []byte) (*mesh.Surface, error) {
	l := newLines(data)

	type edge struct{ a, b int }
	var (
		vs      []mesh.VertexRecord
		edges   []edge
		ts      []mesh.TriangleRecord
		section string
	)
	for l.next() {
		fields := strings.Fields(l.text)
		switch strings.ToUpper(fields[0]) {
		case "NODES", "EDGES", "TRIANGLES":
			section = strings.ToUpper(fields[0])
			continue
		}

		switch section {
		case "NODES":
			if len(fields) != 4 {
				return nil, formatErr(l.num, "node needs id x y z")
			}
			vals, err := parseFloats(fields)
			if err != nil {
				return nil, formatErr(l.num, "bad node: %v", err)
			}
			vs = append(vs, mesh.VertexRecord{ID: int(vals[0]), X: vals[1], Y: vals[2], Z: vals[3]})

		case "EDGES":
			if len(fields) < 3 {
				return nil, formatErr(l.num, "edge needs id p1 p2")
			}
			idx, err := parseInts(fields[1:3])
			if err != nil {
				return nil, formatErr(l.num, "bad edge: %v", err)
			}
			edges = append(edges, edge{idx[0], idx[1]})

		case "TRIANGLES":
			if len(fields) != 4 {
				return nil, formatErr(l.num, "triangle needs id e1 e2 e3")
			}
			idx, err := parseInts(fields[1:4])
			if err != nil {
				return nil, formatErr(l.num, "bad triangle: %v", err)
			}
			var corners []int
			for _, e := range idx {
				if e < 1 || e > len(edges) {
					return nil, formatErr(l.num, "edge %d not in [1, %d]", e, len(edges))
				}
				for _, p := range [2]int{edges[e-1].a, edges[e-1].b} {
					if !slices.Contains(corners, p) {
						corners = append(corners, p)
					}
				}
			}
			if len(corners) != 3 {
				return nil, formatErr(l.num, "edges %v span %d vertices, want 3", idx, len(corners))
			}
			ts = append(ts, mesh.TriangleRecord{corners[0], corners[1], corners[2]})

		default:
			return nil, formatErr(l.num, "data before NODES section")
		}
	}
	if err := l.err(); err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, formatErr(0, "no NODES section")
	}
	return buildSurface(&mesh.Surface{Attributes: map[string]string{}}, vs, ts)
}
