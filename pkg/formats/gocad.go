package formats

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Faultbox/geovox/pkg/mesh"
)

// GoCAD attribute keys copied into Surface.Attributes.
const (
	AttrObjectType        = "OBJECT_TYPE"
	AttrVersion           = "VERSION"
	AttrGeologicalFeature = "GEOLOGICAL_FEATURE"
	AttrGeologicalType    = "GEOLOGICAL_TYPE"
	AttrProjection        = "PROJECTION"
	AttrDatum             = "DATUM"
	// AttrColor holds the *solid*color header entry as #rrggbbaa.
	AttrColor = "COLOR"
)

var gocadObjectTypes = map[string]bool{
	"TSurf":  true,
	"PLine":  true,
	"TSolid": true,
}

// ParseGocad parses a GoCAD TSurf ASCII object.
//
// Vertices come from VRTX/PVRTX records and ATOM/PATOM aliases; TRGL
// records address vertices by their 1-based position in the file.
// Parsing stops at the first END. The surface layer is the
// GEOLOGICAL_FEATURE attribute when present.
func ParseGocad(data []byte) (*mesh.Surface, error) {
	l := newLines(data)
	if !l.next() {
		return nil, formatErr(0, "empty GoCAD file")
	}
	head := strings.Fields(l.text)
	if len(head) < 2 || head[0] != "GOCAD" {
		return nil, formatErr(l.num, "expected GOCAD header, got %q", l.text)
	}
	if !gocadObjectTypes[head[1]] {
		return nil, formatErr(l.num, "unsupported GoCAD object type %q", head[1])
	}

	s := &mesh.Surface{Attributes: map[string]string{AttrObjectType: head[1]}}
	if len(head) > 2 {
		s.Attributes[AttrVersion] = head[2]
	}

	var (
		vs       []mesh.VertexRecord
		ts       []mesh.TriangleRecord
		byID     = make(map[int]int) // vertex id -> position
		inHeader bool
	)

	for l.next() {
		line := l.text
		if inHeader {
			if strings.HasPrefix(line, "}") {
				inHeader = false
				continue
			}
			parseHeaderLine(s, line)
			continue
		}

		fields := strings.Fields(line)
		switch kw := fields[0]; kw {
		case "HEADER":
			// Either "HEADER {" opening a block or "HEADER {name:x}" on one line.
			rest := strings.TrimSpace(strings.TrimPrefix(line, "HEADER"))
			rest = strings.TrimPrefix(rest, "{")
			if i := strings.Index(rest, "}"); i >= 0 {
				parseHeaderLine(s, rest[:i])
			} else {
				inHeader = true
				parseHeaderLine(s, rest)
			}

		case "GEOLOGICAL_FEATURE", "GEOLOGICAL_TYPE", "PROJECTION", "DATUM":
			s.Attributes[kw] = restOf(line, kw)

		case "VRTX", "PVRTX":
			if len(fields) < 5 {
				return nil, formatErr(l.num, "%s needs id x y z", kw)
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, formatErr(l.num, "bad vertex id %q", fields[1])
			}
			xyz, err := parseFloats(fields[2:5])
			if err != nil {
				return nil, formatErr(l.num, "bad vertex coordinates: %v", err)
			}
			byID[id] = len(vs)
			vs = append(vs, mesh.VertexRecord{ID: id, X: xyz[0], Y: xyz[1], Z: xyz[2]})

		case "ATOM", "PATOM":
			if len(fields) < 3 {
				return nil, formatErr(l.num, "%s needs id ref", kw)
			}
			ids, err := parseInts(fields[1:3])
			if err != nil {
				return nil, formatErr(l.num, "bad %s: %v", kw, err)
			}
			pos, ok := byID[ids[1]]
			if !ok {
				return nil, formatErr(l.num, "%s references unknown vertex %d", kw, ids[1])
			}
			v := vs[pos]
			v.ID = ids[0]
			byID[ids[0]] = len(vs)
			vs = append(vs, v)

		case "TRGL":
			if len(fields) < 4 {
				return nil, formatErr(l.num, "TRGL needs three indices")
			}
			idx, err := parseInts(fields[1:4])
			if err != nil {
				return nil, formatErr(l.num, "bad TRGL: %v", err)
			}
			ts = append(ts, mesh.TriangleRecord{idx[0], idx[1], idx[2]})

		case "END":
			return buildSurface(s, vs, ts)
		}
	}
	if err := l.err(); err != nil {
		return nil, err
	}
	return buildSurface(s, vs, ts)
}

// parseHeaderLine handles "key: value" entries of a HEADER block.
func parseHeaderLine(s *mesh.Surface, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "name":
		s.Name = value
	case "*solid*color":
		if c, ok := parseColor(value); ok {
			s.Attributes[AttrColor] = c
		} else {
			s.Attributes[AttrColor] = value
		}
	}
}

// parseColor normalizes a GoCAD color, either "#rgb", "#rrggbb" or four
// floats "r g b a" in [0, 1], to "#rrggbbaa".
func parseColor(v string) (string, bool) {
	if hex, ok := strings.CutPrefix(v, "#"); ok {
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return "", false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", false
		}
		return "#" + strings.ToLower(hex) + "ff", true
	}

	fields := strings.Fields(v)
	if len(fields) == 3 {
		fields = append(fields, "1")
	}
	if len(fields) != 4 {
		return "", false
	}
	rgba, err := parseFloats(fields)
	if err != nil {
		return "", false
	}
	var b strings.Builder
	b.WriteByte('#')
	for _, c := range rgba {
		if c < 0 || c > 1 {
			return "", false
		}
		fmt.Fprintf(&b, "%02x", int(math.Round(c*255)))
	}
	return b.String(), true
}

// restOf returns the line after its leading keyword.
func restOf(line, kw string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, kw))
}

func buildSurface(s *mesh.Surface, vs []mesh.VertexRecord, ts []mesh.TriangleRecord) (*mesh.Surface, error) {
	m, err := mesh.Build(vs, ts)
	if err != nil {
		return nil, err
	}
	s.Mesh = m
	if s.Layer == "" {
		s.Layer = s.Attributes[AttrGeologicalFeature]
	}
	return s, nil
}
