package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/geovox/internal/config"
	"github.com/Faultbox/geovox/internal/sink"
	"github.com/Faultbox/geovox/pkg/classify"
	"github.com/Faultbox/geovox/pkg/formats"
	"github.com/Faultbox/geovox/pkg/mesh"
	"github.com/Faultbox/geovox/pkg/mesh/meshtest"
)

// writeGocad serializes m as a TSurf file in dir and returns its path.
func writeGocad(t *testing.T, dir, name, feature string, m *mesh.Mesh) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "GOCAD TSurf 1\nHEADER {\nname: %s\n}\n", name)
	if feature != "" {
		fmt.Fprintf(&b, "GEOLOGICAL_FEATURE %s\n", feature)
	}
	b.WriteString("TFACE\n")
	for n, v := range m.Vertices() {
		fmt.Fprintf(&b, "VRTX %d %g %g %g\n", n+1, v.Pos.X, v.Pos.Y, v.Pos.Z)
	}
	for _, tr := range m.Triangles() {
		fmt.Fprintf(&b, "TRGL %d %d %d\n", tr[0]+1, tr[1]+1, tr[2]+1)
	}
	b.WriteString("END\n")

	path := filepath.Join(dir, name+".ts")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Output.Driver = sink.DriverMemory
	cfg.Run.Workers = 2
	return cfg
}

func TestImportSurfaces_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeGocad(t, dir, "top", "Quartaer", meshtest.Plane(t, 0, 0, 10, 10, 5))
	bad := filepath.Join(dir, "broken.ts")
	require.NoError(t, os.WriteFile(bad, []byte("GOCAD TSurf 1\nVRTX 1 x y z\n"), 0o644))
	missing := filepath.Join(dir, "missing.vtk")

	r := NewRunner(testConfig(), sink.NewMemory(), "")
	surfaces, rep := r.ImportSurfaces([]string{bad, good, missing})

	require.Len(t, surfaces, 1)
	assert.Equal(t, "top", surfaces[0].Name)
	assert.Equal(t, 3, rep.Inputs)
	assert.Equal(t, 1, rep.Succeeded())
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, bad, rep.Failures[0].Path)
	assert.ErrorIs(t, rep.Err(), formats.ErrFormat)
	assert.ErrorIs(t, rep.Err(), os.ErrNotExist)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, r.RunID(), rep.RunID)
}

func TestExportTriangles(t *testing.T) {
	mem := sink.NewMemory()
	cfg := testConfig()
	cfg.Output.Dataset = "model"
	r := NewRunner(cfg, mem, "run-1")

	s := &mesh.Surface{Name: "tet", Mesh: meshtest.Tetrahedron(t)}
	rep, err := r.ExportTriangles(context.Background(), []*mesh.Surface{s})
	require.NoError(t, err)

	tris := mem.Triangles("model_tet")
	require.Len(t, tris, 4)
	assert.Equal(t, 4, rep.Written["model_tet"])
	assert.Equal(t, 3, tris[3].Index)
}

func TestExportTriangles_Attributes(t *testing.T) {
	path := writeGocad(t, t.TempDir(), "base", "Basis Quartaer", meshtest.Triangle(t))
	mem := sink.NewMemory()
	r := NewRunner(testConfig(), mem, "run-1")

	surfaces, rep := r.ImportSurfaces([]string{path})
	require.NoError(t, rep.Err())
	require.Len(t, surfaces, 1)
	s := surfaces[0]
	s.Attributes[formats.AttrProjection] = "Unknown"

	_, err := r.ExportTriangles(context.Background(), surfaces)
	require.NoError(t, err)

	tris := mem.Triangles("base")
	require.Len(t, tris, 1)
	attrs := tris[0].Attributes
	assert.Equal(t, "Basis Quartaer", attrs[formats.AttrGeologicalFeature])
	assert.Equal(t, "Unknown", attrs[formats.AttrProjection])
	assert.Equal(t, "Basis Quartaer", attrs["LAYER"])

	perimeter, err := strconv.ParseFloat(attrs["length3D"], 64)
	require.NoError(t, err)
	assert.InDelta(t, 2+math.Sqrt2, perimeter, 1e-12)

	_, shared := s.Attributes["length3D"]
	assert.False(t, shared, "surface attributes must not be modified")
}

func TestBoundary(t *testing.T) {
	mem := sink.NewMemory()
	r := NewRunner(testConfig(), mem, "run-1")

	// Three triangles on one edge: the fan edge is non-manifold.
	fan := meshtest.MustBuild(t,
		[]mesh.VertexRecord{{ID: 1, X: 0, Y: 0, Z: 0}, {ID: 2, X: 1, Y: 0, Z: 0}, {ID: 3, X: 0, Y: 1, Z: 0}, {ID: 4, X: 0, Y: -1, Z: 0}, {ID: 5, X: 0, Y: 0, Z: 1}},
		[]mesh.TriangleRecord{{1, 2, 3}, {1, 2, 4}, {1, 2, 5}},
	)
	surfaces := []*mesh.Surface{
		{Name: "square", Mesh: meshtest.Square(t)},
		{Name: "cube", Mesh: meshtest.Cube(t, 0, 1)},
		{Name: "fan", Mesh: fan},
	}
	rep, err := r.Boundary(context.Background(), surfaces)
	require.NoError(t, err)
	assert.NoError(t, rep.Err())

	assert.Len(t, mem.Segments("square_boundary"), 4)
	assert.Empty(t, mem.Segments("cube_boundary"))
	assert.Len(t, mem.Segments("fan_boundary"), 6)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "fan")
	assert.Equal(t, "square", mem.Segments("square_boundary")[0].Name)
}

func TestStrata(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeGocad(t, dir, "base", "A", meshtest.Plane(t, 0, 0, 10, 10, 0)),
		writeGocad(t, dir, "top", "B", meshtest.Plane(t, 0, 0, 10, 10, 20)),
		writeGocad(t, dir, "middle", "C", meshtest.Plane(t, 0, 0, 10, 10, 10)),
	}

	mem := sink.NewMemory()
	cfg := testConfig()
	cfg.Grid = config.GridConfig{Mode: "count", NumberX: 2, NumberZ: 4}
	r := NewRunner(cfg, mem, "run-1")

	surfaces, imp := r.ImportSurfaces(paths)
	require.NoError(t, imp.Err())
	rep, err := r.Strata(context.Background(), surfaces)
	require.NoError(t, err)

	sum, ok := rep.Grids["strata"]
	require.True(t, ok)
	assert.Equal(t, 5.0, sum.DX)
	assert.Equal(t, 5.0, sum.DZ)
	assert.Equal(t, 2, sum.NY)
	assert.Equal(t, 16, sum.Voxels)

	// Centroids 2.5 and 7.5 lie under C, 12.5 and 17.5 under B.
	assert.Len(t, mem.Points("strata_C"), 8)
	assert.Len(t, mem.Points("strata_B"), 8)
	assert.Empty(t, mem.Points("strata_A"))
	for _, p := range mem.Points("strata_C") {
		assert.Less(t, p.Z, 10.0)
		assert.Equal(t, "C", p.Label)
	}
	assert.Len(t, mem.Segments("strata_grid"), 12)
	assert.Contains(t, rep.Warnings, "layer A has no voxels")
}

func TestStrata_LabelAttribute(t *testing.T) {
	mem := sink.NewMemory()
	cfg := testConfig()
	cfg.Grid = config.GridConfig{Mode: "axis", NumberX: 1, NumberY: 1, NumberZ: 2}
	cfg.Strata.LabelAttribute = "UNIT"
	r := NewRunner(cfg, mem, "run-1")

	surfaces := []*mesh.Surface{
		{Name: "low", Mesh: meshtest.Plane(t, 0, 0, 1, 1, 0)},
		{Name: "high", Mesh: meshtest.Plane(t, 0, 0, 1, 1, 2), Attributes: map[string]string{"UNIT": "kreide"}},
	}
	_, err := r.Strata(context.Background(), surfaces)
	require.NoError(t, err)
	assert.Len(t, mem.Points("strata_kreide"), 2)
}

func TestStrata_DegenerateGrid(t *testing.T) {
	r := NewRunner(testConfig(), sink.NewMemory(), "run-1")
	// A single flat surface has zero z extent.
	_, err := r.Strata(context.Background(), []*mesh.Surface{{Name: "flat", Mesh: meshtest.Plane(t, 0, 0, 1, 1, 3)}})
	assert.Error(t, err)
}

func TestStrata_Cancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Grid = config.GridConfig{Mode: "axis", NumberX: 8, NumberY: 8, NumberZ: 8}
	r := NewRunner(cfg, sink.NewMemory(), "run-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	surfaces := []*mesh.Surface{
		{Name: "a", Mesh: meshtest.Plane(t, 0, 0, 10, 10, 0)},
		{Name: "b", Mesh: meshtest.Plane(t, 0, 0, 10, 10, 10)},
	}
	_, err := r.Strata(ctx, surfaces)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolids(t *testing.T) {
	mem := sink.NewMemory()
	cfg := testConfig()
	cfg.Solid.Grid = config.GridConfig{Mode: "axis", NumberX: 4, NumberY: 4, NumberZ: 4}
	r := NewRunner(cfg, mem, "run-1")

	surfaces := []*mesh.Surface{
		{Name: "open", Mesh: meshtest.Square(t)},
		{Name: "block", Layer: "salt", Mesh: meshtest.Cube(t, 0, 10)},
	}
	rep, err := r.Solids(context.Background(), surfaces)
	require.NoError(t, err)

	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "open", rep.Failures[0].Path)
	assert.True(t, errors.Is(rep.Err(), classify.ErrNotClosed))

	pts := mem.Points("solid_block")
	require.Len(t, pts, 64)
	for _, p := range pts {
		assert.Equal(t, classify.TypeInside, p.Type)
		assert.Equal(t, "salt", p.Label)
	}
	assert.Equal(t, 64, rep.Grids["block"].Voxels)
	assert.Len(t, mem.Segments("solid_block_grid"), 12)
}

func TestBoreholes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "kb1.bif2")
	require.NoError(t, os.WriteFile(good, []byte(
		"Bl.BLIDM: 1\nBl.Beschreibung.Name: KB1\n"+
			"Bl.Beschreibung.Ansatzpunkt.Rechtswert: 0\nBl.Beschreibung.Ansatzpunkt.Hochwert: 0\nBl.Beschreibung.Ansatzpunkt.Hoehe: 50\n"+
			"#Bl.Schicht.Schicht-ID: 1\nBl.Schicht.Gestein.Code: S\nBl.Schicht.Punkt.Rechtswert: 0\nBl.Schicht.Punkt.Hochwert: 0\nBl.Schicht.Punkt.Hoehe: 40\n"+
			"#Bl.Schicht.Schicht-ID: 2\nBl.Schicht.Gestein.Code: T\nBl.Schicht.Punkt.Rechtswert: 0\nBl.Schicht.Punkt.Hochwert: 0\nBl.Schicht.Punkt.Hoehe: 20\n"),
		0o644))
	bad := filepath.Join(dir, "bad.bif2")
	require.NoError(t, os.WriteFile(bad, []byte("Bl.Beschreibung.Name: x\n"), 0o644))

	mem := sink.NewMemory()
	r := NewRunner(testConfig(), mem, "run-1")
	rep, err := r.Boreholes(context.Background(), []string{good, bad})
	require.NoError(t, err)

	segs := mem.Segments("boreholes")
	require.Len(t, segs, 2)
	assert.Equal(t, "KB1", segs[0].Name)
	assert.Equal(t, "T", segs[1].Label)
	assert.Equal(t, 40.0, segs[1].From.Z)
	assert.Equal(t, 20.0, segs[1].To.Z)
	assert.Equal(t, "2", segs[1].Attributes["Schicht_Schicht_ID"])
	assert.Equal(t, "1", segs[1].Attributes["BLIDM"])
	assert.Equal(t, "50", segs[1].Attributes["Ansatzpunkt_Hoehe"])
	require.Len(t, rep.Failures, 1)
	assert.ErrorIs(t, rep.Err(), formats.ErrFormat)
	assert.Empty(t, mem.Segments("boreholes_continuous"))
}

func TestBoreholes_Continuous(t *testing.T) {
	dir := t.TempDir()
	surveyed := filepath.Join(dir, "kb2.bif2")
	require.NoError(t, os.WriteFile(surveyed, []byte(
		"Bl.BLIDM: 2\nBl.Beschreibung.Name: KB2\n"+
			"Bl.Beschreibung.Ansatzpunkt.Rechtswert: 0\nBl.Beschreibung.Ansatzpunkt.Hochwert: 0\nBl.Beschreibung.Ansatzpunkt.Hoehe: 50\n"+
			"Bl.Verlauf.Punkt.Rechtswert: 0\nBl.Verlauf.Punkt.Hochwert: 0\nBl.Verlauf.Punkt.Hoehe: 50\n"+
			"Bl.Verlauf.Punkt.Rechtswert: 1\nBl.Verlauf.Punkt.Hochwert: 0\nBl.Verlauf.Punkt.Hoehe: 40\n"+
			"Bl.Verlauf.Punkt.Rechtswert: 2\nBl.Verlauf.Punkt.Hochwert: 1\nBl.Verlauf.Punkt.Hoehe: 30\n"+
			"#Bl.Schicht.Schicht-ID: 1\nBl.Schicht.Gestein.Code: S\nBl.Schicht.Punkt.Rechtswert: 2\nBl.Schicht.Punkt.Hochwert: 1\nBl.Schicht.Punkt.Hoehe: 30\n"),
		0o644))
	unsurveyed := filepath.Join(dir, "kb3.bif2")
	require.NoError(t, os.WriteFile(unsurveyed, []byte(
		"Bl.BLIDM: 3\nBl.Beschreibung.Name: KB3\n"+
			"Bl.Beschreibung.Ansatzpunkt.Rechtswert: 0\nBl.Beschreibung.Ansatzpunkt.Hochwert: 0\nBl.Beschreibung.Ansatzpunkt.Hoehe: 50\n"+
			"#Bl.Schicht.Schicht-ID: 1\nBl.Schicht.Gestein.Code: S\nBl.Schicht.Punkt.Rechtswert: 0\nBl.Schicht.Punkt.Hochwert: 0\nBl.Schicht.Punkt.Hoehe: 40\n"),
		0o644))

	mem := sink.NewMemory()
	cfg := testConfig()
	cfg.Boreholes.Continuous = true
	r := NewRunner(cfg, mem, "run-1")
	rep, err := r.Boreholes(context.Background(), []string{surveyed, unsurveyed})
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	chain := mem.Segments("boreholes_continuous")
	require.Len(t, chain, 2)
	assert.Equal(t, 2, rep.Written["boreholes_continuous"])
	assert.Equal(t, "KB2", chain[0].Name)
	assert.Equal(t, 50.0, chain[0].From.Z)
	assert.Equal(t, chain[0].To, chain[1].From)
	assert.Equal(t, 30.0, chain[1].To.Z)
	assert.Equal(t, "2", chain[1].Attributes["BLIDM"])

	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "no path")
	assert.Len(t, mem.Segments("boreholes"), 2)
}

func TestReport_Merge(t *testing.T) {
	a := newReport("run")
	a.Inputs = 2
	a.Written["x"] = 3
	b := newReport("run")
	b.Inputs = 1
	b.Written["x"] = 4
	b.fail("p", errors.New("boom"))
	b.warn("careful %d", 1)

	a.Merge(b)
	assert.Equal(t, 3, a.Inputs)
	assert.Equal(t, 7, a.Written["x"])
	assert.Equal(t, []string{"careful 1"}, a.Warnings)
	assert.EqualError(t, a.Err(), "p: boom")
}

func TestSQLiteSinkEndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "out.db")
	s, err := sink.OpenSQLite(dbPath, "run-e2e")
	require.NoError(t, err)

	r := NewRunner(testConfig(), s, "run-e2e")
	_, err = r.ExportTriangles(context.Background(), []*mesh.Surface{{Name: "sq", Mesh: meshtest.Square(t)}})
	require.NoError(t, err)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM triangles`).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, s.Close())
}
