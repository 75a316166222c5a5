package formats

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/geovox/pkg/boundary"
	"github.com/Faultbox/geovox/pkg/mesh"
)

// createTestGocad builds a TSurf holding a unit square split in two.
func createTestGocad(header string, extra ...string) []byte {
	var b strings.Builder
	b.WriteString("GOCAD TSurf 1\n")
	b.WriteString(header)
	b.WriteString("GEOLOGICAL_FEATURE Basis Quartaer\n")
	b.WriteString("GOCAD_ORIGINAL_COORDINATE_SYSTEM\n")
	b.WriteString("PROJECTION Gauss-Krueger\n")
	b.WriteString("DATUM Potsdam Datum\n")
	b.WriteString("END_ORIGINAL_COORDINATE_SYSTEM\n")
	b.WriteString("TFACE\n")
	b.WriteString("VRTX 1 0 0 10\n")
	b.WriteString("PVRTX 2 1 0 10 0.5\n")
	b.WriteString("VRTX 3 1 1 12,5\n")
	b.WriteString("VRTX 4 0 1 12\n")
	b.WriteString("TRGL 1 2 3\n")
	b.WriteString("TRGL 1 3 4\n")
	for _, e := range extra {
		b.WriteString(e + "\n")
	}
	b.WriteString("END\n")
	return []byte(b.String())
}

func TestParseGocad_ValidFile(t *testing.T) {
	data := createTestGocad("HEADER {\nname: horizon_top\n*solid*color: 1 0 0 1\n}\n")

	s, err := ParseGocad(data)
	if err != nil {
		t.Fatalf("ParseGocad failed: %v", err)
	}

	if s.Name != "horizon_top" {
		t.Errorf("expected name horizon_top, got %q", s.Name)
	}
	if s.Layer != "Basis Quartaer" {
		t.Errorf("expected layer 'Basis Quartaer', got %q", s.Layer)
	}
	if s.Attributes[AttrProjection] != "Gauss-Krueger" {
		t.Errorf("expected projection Gauss-Krueger, got %q", s.Attributes[AttrProjection])
	}
	if s.Attributes[AttrDatum] != "Potsdam Datum" {
		t.Errorf("expected datum 'Potsdam Datum', got %q", s.Attributes[AttrDatum])
	}
	if s.Attributes[AttrColor] != "#ff0000ff" {
		t.Errorf("expected color #ff0000ff, got %q", s.Attributes[AttrColor])
	}
	if s.Attributes[AttrObjectType] != "TSurf" {
		t.Errorf("expected object type TSurf, got %q", s.Attributes[AttrObjectType])
	}
	if s.Mesh.NumVertices() != 4 {
		t.Errorf("expected 4 vertices, got %d", s.Mesh.NumVertices())
	}
	if s.Mesh.NumTriangles() != 2 {
		t.Errorf("expected 2 triangles, got %d", s.Mesh.NumTriangles())
	}
	if z := s.Mesh.Vertex(2).Pos.Z; z != 12.5 {
		t.Errorf("expected decimal comma z 12.5, got %v", z)
	}
	if got := len(boundary.Extract(s.Mesh).Boundary); got != 4 {
		t.Errorf("expected 4 boundary edges, got %d", got)
	}
}

func TestParseGocad_InlineHeader(t *testing.T) {
	s, err := ParseGocad(createTestGocad("HEADER {name:fault_a}\n"))
	if err != nil {
		t.Fatalf("ParseGocad failed: %v", err)
	}
	if s.Name != "fault_a" {
		t.Errorf("expected name fault_a, got %q", s.Name)
	}
}

func TestParseGocad_StopsAtEnd(t *testing.T) {
	data := append(createTestGocad(""), []byte("GOCAD TSurf 1\nVRTX 1 5 5 5\n")...)
	s, err := ParseGocad(data)
	if err != nil {
		t.Fatalf("ParseGocad failed: %v", err)
	}
	if s.Mesh.NumVertices() != 4 {
		t.Errorf("expected 4 vertices, got %d", s.Mesh.NumVertices())
	}
}

func TestParseGocad_Atom(t *testing.T) {
	s, err := ParseGocad(createTestGocad("", "ATOM 5 2", "TRGL 5 3 1"))
	if err != nil {
		t.Fatalf("ParseGocad failed: %v", err)
	}
	if s.Mesh.NumVertices() != 5 {
		t.Fatalf("expected 5 vertices, got %d", s.Mesh.NumVertices())
	}
	v := s.Mesh.Vertex(4)
	if v.ID != 5 || v.Pos.X != 1 || v.Pos.Y != 0 {
		t.Errorf("expected ATOM copy of vertex 2 with id 5, got %+v", v)
	}
}

func TestParseGocad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"bad magic", "SURFACE TSurf 1\nEND\n"},
		{"bad object", "GOCAD Voxet 1\nEND\n"},
		{"short vertex", "GOCAD TSurf 1\nVRTX 1 0 0\nEND\n"},
		{"bad coordinate", "GOCAD TSurf 1\nVRTX 1 0 x 0\nEND\n"},
		{"short trgl", "GOCAD TSurf 1\nVRTX 1 0 0 0\nTRGL 1 2\nEND\n"},
		{"unknown atom", "GOCAD TSurf 1\nVRTX 1 0 0 0\nATOM 2 9\nEND\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGocad([]byte(tt.data))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestParseGocad_BadReference(t *testing.T) {
	_, err := ParseGocad(createTestGocad("", "TRGL 1 2 9"))
	if !errors.Is(err, mesh.ErrReference) {
		t.Errorf("expected mesh.ErrReference, got %v", err)
	}
}

func TestReadSurface(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Basis_Tertiaer.ts")
	if err := os.WriteFile(path, createTestGocad(""), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s, err := ReadSurface(path)
	if err != nil {
		t.Fatalf("ReadSurface failed: %v", err)
	}
	if s.Name != "Basis_Tertiaer" {
		t.Errorf("expected name from file, got %q", s.Name)
	}
	if s.Label() != "Basis Quartaer" {
		t.Errorf("expected label from GEOLOGICAL_FEATURE, got %q", s.Label())
	}
}

func TestReadSurface_ErrorHasPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.ts")
	if err := os.WriteFile(path, []byte("GOCAD TSurf 1\nVRTX 1 a b c\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := ReadSurface(path)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
	if fe.Path != path || fe.Line != 2 {
		t.Errorf("expected %s:2, got %s:%d", path, fe.Path, fe.Line)
	}
}

func TestReadSurface_Unsupported(t *testing.T) {
	_, err := ReadSurface("model.obj")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1 0 0 1", "#ff0000ff", true},
		{"0.5 0.5 0.5 0", "#80808000", true},
		{"0 0,5 1", "#0080ffff", true},
		{"#00FF7f", "#00ff7fff", true},
		{"#f0a", "#ff00aaff", true},
		{"#12345", "", false},
		{"#zzzzzz", "", false},
		{"2 0 0 1", "", false},
		{"red", "", false},
	}
	for _, tt := range tests {
		got, ok := parseColor(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseColor(%q) = %q, %v; expected %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseGocad_UnparsedColorKept(t *testing.T) {
	s, err := ParseGocad(createTestGocad("HEADER {\n*solid*color: salmon\n}\n"))
	if err != nil {
		t.Fatalf("ParseGocad failed: %v", err)
	}
	if s.Attributes[AttrColor] != "salmon" {
		t.Errorf("expected raw color kept, got %q", s.Attributes[AttrColor])
	}
}
