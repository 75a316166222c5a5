package formats

import (
	"strconv"
	"strings"

	"github.com/Faultbox/geovox/pkg/mesh"
)

// ParseVTK parses a legacy ASCII VTK file holding a triangulated surface
// (POLYDATA with POLYGONS, or UNSTRUCTURED_GRID with CELLS). Cell indices
// are 0-based. The title line becomes the surface name.
func ParseVTK(data []byte) (*mesh.Surface, error) {
	l := newLines(data)
	if !l.next() || !strings.HasPrefix(strings.ToLower(l.text), "# vtk") {
		return nil, formatErr(l.num, "missing VTK header")
	}
	if !l.next() {
		return nil, formatErr(l.num, "missing VTK title")
	}
	s := &mesh.Surface{Name: l.text, Attributes: map[string]string{}}
	if !l.next() {
		return nil, formatErr(l.num, "missing VTK data type")
	}
	if !strings.EqualFold(l.text, "ASCII") {
		return nil, formatErr(l.num, "unsupported VTK data type %q", l.text)
	}

	var (
		vs []mesh.VertexRecord
		ts []mesh.TriangleRecord
	)
	for l.next() {
		fields := strings.Fields(l.text)
		switch strings.ToUpper(fields[0]) {
		case "DATASET":
			if len(fields) > 1 {
				s.Attributes[AttrObjectType] = fields[1]
			}

		case "POINTS":
			n, err := countField(fields)
			if err != nil {
				return nil, formatErr(l.num, "bad POINTS count: %v", err)
			}
			if n > l.maxValues()/3 {
				return nil, formatErr(l.num, "POINTS count %d exceeds input", n)
			}
			coords, err := readFloats(l, 3*n)
			if err != nil {
				return nil, err
			}
			vs = make([]mesh.VertexRecord, n)
			for i := range vs {
				vs[i] = mesh.VertexRecord{ID: i, X: coords[3*i], Y: coords[3*i+1], Z: coords[3*i+2]}
			}

		case "POLYGONS", "CELLS":
			n, err := countField(fields)
			if err != nil {
				return nil, formatErr(l.num, "bad %s count: %v", fields[0], err)
			}
			if n > l.maxValues()/4 {
				return nil, formatErr(l.num, "%s count %d exceeds input", fields[0], n)
			}
			for c := 0; c < n; c++ {
				if !l.next() {
					return nil, formatErr(l.num, "expected %d cells, got %d", n, c)
				}
				idx, err := parseInts(strings.Fields(l.text))
				if err != nil {
					return nil, formatErr(l.num, "bad cell: %v", err)
				}
				if len(idx) != 4 || idx[0] != 3 {
					return nil, formatErr(l.num, "only triangle cells are supported, got %q", l.text)
				}
				ts = append(ts, mesh.TriangleRecord{idx[1] + 1, idx[2] + 1, idx[3] + 1})
			}

		case "CELL_TYPES":
			n, err := countField(fields)
			if err != nil {
				return nil, formatErr(l.num, "bad CELL_TYPES count: %v", err)
			}
			if _, err := readFloats(l, n); err != nil {
				return nil, err
			}

		case "POINT_DATA", "CELL_DATA":
			// Attribute sections carry nothing the surface needs.
			return buildSurface(s, vs, ts)
		}
	}
	if err := l.err(); err != nil {
		return nil, err
	}
	return buildSurface(s, vs, ts)
}

func countField(fields []string) (int, error) {
	if len(fields) < 2 {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// readFloats collects n numbers spread over as many lines as needed.
func readFloats(l *lines, n int) ([]float64, error) {
	if n > l.maxValues() {
		return nil, formatErr(l.num, "value count %d exceeds input", n)
	}
	out := make([]float64, 0, n)
	for len(out) < n {
		if !l.next() {
			return nil, formatErr(l.num, "expected %d values, got %d", n, len(out))
		}
		vals, err := parseFloats(strings.Fields(l.text))
		if err != nil {
			return nil, formatErr(l.num, "bad value: %v", err)
		}
		out = append(out, vals...)
	}
	if len(out) > n {
		return nil, formatErr(l.num, "expected %d values, got %d", n, len(out))
	}
	return out, nil
}
