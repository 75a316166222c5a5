package classify

import (
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/geom"
	"github.com/Faultbox/geovox/pkg/mesh/meshtest"
	"github.com/Faultbox/geovox/pkg/voxel"
)

func boxOf(x0, y0, z0, x1, y1, z1 float64) geom.Box {
	return geom.NewBox(x0, y0, z0, x1, y1, z1)
}

func TestSolid_CubeInOwnGrid(t *testing.T) {
	m := meshtest.Cube(t, 0, 10)
	g, err := voxel.Build(voxel.AxisCounts(4, 4, 4), m.Bounds())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res, err := Solid(context.Background(), g, m, nil, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Solid failed: %v", err)
	}
	if res.Tested != 64 {
		t.Errorf("expected 64 tested, got %d", res.Tested)
	}
	if len(res.Inside) != 64 {
		t.Errorf("expected all 64 voxels inside, got %d", len(res.Inside))
	}
}

func TestSolid_CubeInLargerGrid(t *testing.T) {
	m := meshtest.Cube(t, 2.5, 7.5)
	g, err := voxel.Build(voxel.AxisCounts(10, 10, 10), boxOf(0, 0, 0, 10, 10, 10))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res, err := Solid(context.Background(), g, m, nil, Options{})
	if err != nil {
		t.Fatalf("Solid failed: %v", err)
	}
	// Centroids 3.5 .. 6.5 on each axis: 4^3 voxels.
	if len(res.Inside) != 64 {
		t.Errorf("expected 64 voxels inside, got %d", len(res.Inside))
	}
	for _, v := range res.Inside {
		if v.I < 3 || v.I > 6 || v.J < 3 || v.J > 6 || v.K < 3 || v.K > 6 {
			t.Errorf("unexpected voxel inside: %+v", v)
		}
	}
}

func TestSolid_CustomContainment(t *testing.T) {
	m := meshtest.Cube(t, 0, 10)
	g, err := voxel.Build(voxel.AxisCounts(2, 2, 2), m.Bounds())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	lower := containsFunc(func(p r3.Vec) bool { return p.Z < 5 })

	res, err := Solid(context.Background(), g, m, lower, Options{})
	if err != nil {
		t.Fatalf("Solid failed: %v", err)
	}
	if len(res.Inside) != 4 {
		t.Errorf("expected 4 voxels, got %d", len(res.Inside))
	}
	for _, v := range res.Inside {
		if v.K != 0 {
			t.Errorf("expected only k=0, got %+v", v)
		}
	}
}

func TestSolid_NotClosed(t *testing.T) {
	m := meshtest.Square(t)
	g, err := voxel.Build(voxel.AxisCounts(2, 2, 2), boxOf(0, 0, 0, 1, 1, 1))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err = Solid(context.Background(), g, m, nil, Options{})
	if !errors.Is(err, ErrNotClosed) {
		t.Fatalf("expected ErrNotClosed, got %v", err)
	}
	var nc *NotClosedError
	if !errors.As(err, &nc) {
		t.Fatalf("expected *NotClosedError, got %T", err)
	}
	if nc.Boundary != 4 || nc.NonManifold != 0 {
		t.Errorf("expected 4 boundary / 0 non-manifold, got %d / %d", nc.Boundary, nc.NonManifold)
	}
}

func TestCheckClosed(t *testing.T) {
	if err := CheckClosed(meshtest.Tetrahedron(t)); err != nil {
		t.Errorf("expected tetrahedron closed, got %v", err)
	}
	if err := CheckClosed(meshtest.Triangle(t)); !errors.Is(err, ErrNotClosed) {
		t.Errorf("expected ErrNotClosed, got %v", err)
	}
}

type containsFunc func(p r3.Vec) bool

func (f containsFunc) Contains(p r3.Vec) bool { return f(p) }
