// Package voxel builds regular 3D voxel grids over bounding volumes.
package voxel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/geom"
)

// ErrDegenerateGrid is matched by every *DegenerateGridError.
var ErrDegenerateGrid = errors.New("degenerate voxel grid")

// DegenerateGridError reports a grid request that cannot produce at least
// one voxel of positive size on every axis.
type DegenerateGridError struct {
	Axis   string // "x", "y", "z" or "" for the whole box
	Reason string
}

func (e *DegenerateGridError) Error() string {
	if e.Axis == "" {
		return fmt.Sprintf("%v: %s", ErrDegenerateGrid, e.Reason)
	}
	return fmt.Sprintf("%v: axis %s: %s", ErrDegenerateGrid, e.Axis, e.Reason)
}

// Is makes errors.Is(err, ErrDegenerateGrid) match.
func (e *DegenerateGridError) Is(target error) bool {
	return target == ErrDegenerateGrid
}

// Voxel addresses a grid cell by its indices.
type Voxel struct {
	I, J, K int
}

// Grid is a regular voxel grid. It is read-only once built and may be
// shared between goroutines.
type Grid struct {
	Origin r3.Vec // (xmin, ymin, zmin)
	Step   r3.Vec // (dx, dy, dz)
	NX     int
	NY     int
	NZ     int

	// Bounds is the box the grid was derived from.
	Bounds geom.Box
}

// Build derives a grid from res over the union of boxes.
func Build(res Resolution, boxes ...geom.Box) (*Grid, error) {
	b := geom.UnionAll(boxes...)
	if b.IsEmpty() {
		return nil, &DegenerateGridError{Reason: "empty bounding box"}
	}

	size := b.Size()
	for _, ax := range []struct {
		name string
		v    float64
	}{{"x", size.X}, {"y", size.Y}, {"z", size.Z}} {
		if !(ax.v > 0) || math.IsInf(ax.v, 0) {
			return nil, &DegenerateGridError{Axis: ax.name, Reason: fmt.Sprintf("extent %v", ax.v)}
		}
	}

	g := &Grid{Origin: b.Min, Bounds: b}

	switch res.Mode {
	case ModeCount:
		if res.NumberX <= 0 || res.NumberZ <= 0 {
			return nil, &DegenerateGridError{Reason: fmt.Sprintf("voxel counts x=%d z=%d", res.NumberX, res.NumberZ)}
		}
		w := size.X / float64(res.NumberX)
		h := size.Z / float64(res.NumberZ)
		g.Step = r3.Vec{X: w, Y: w, Z: h}
		g.NX = res.NumberX
		g.NY = int(math.Round(size.Y / w))
		g.NZ = res.NumberZ

	case ModeSize:
		if !(res.Width > 0) || !(res.Height > 0) {
			return nil, &DegenerateGridError{Reason: fmt.Sprintf("voxel size width=%v height=%v", res.Width, res.Height)}
		}
		g.Step = r3.Vec{X: res.Width, Y: res.Width, Z: res.Height}
		g.NX = int(math.Round(size.X / res.Width))
		g.NY = int(math.Round(size.Y / res.Width))
		g.NZ = int(math.Round(size.Z / res.Height))

	case ModeAxisCounts:
		if res.NumberX <= 0 || res.NumberY <= 0 || res.NumberZ <= 0 {
			return nil, &DegenerateGridError{Reason: fmt.Sprintf("voxel counts x=%d y=%d z=%d",
				res.NumberX, res.NumberY, res.NumberZ)}
		}
		g.NX, g.NY, g.NZ = res.NumberX, res.NumberY, res.NumberZ
		g.Step = r3.Vec{
			X: size.X / float64(res.NumberX),
			Y: size.Y / float64(res.NumberY),
			Z: size.Z / float64(res.NumberZ),
		}

	default:
		return nil, fmt.Errorf("unsupported grid mode %v", res.Mode)
	}

	if g.NX <= 0 {
		return nil, &DegenerateGridError{Axis: "x", Reason: fmt.Sprintf("computed count %d", g.NX)}
	}
	if g.NY <= 0 {
		return nil, &DegenerateGridError{Axis: "y", Reason: fmt.Sprintf("computed count %d", g.NY)}
	}
	if g.NZ <= 0 {
		return nil, &DegenerateGridError{Axis: "z", Reason: fmt.Sprintf("computed count %d", g.NZ)}
	}
	return g, nil
}

// Len returns the number of voxels.
func (g *Grid) Len() int {
	return g.NX * g.NY * g.NZ
}

// Columns returns the number of (i, j) columns.
func (g *Grid) Columns() int {
	return g.NX * g.NY
}

// Centroid returns the center of voxel v.
func (g *Grid) Centroid(v Voxel) r3.Vec {
	return r3.Vec{
		X: g.Origin.X + (float64(v.I)+0.5)*g.Step.X,
		Y: g.Origin.Y + (float64(v.J)+0.5)*g.Step.Y,
		Z: g.Origin.Z + (float64(v.K)+0.5)*g.Step.Z,
	}
}

// ColumnCenter returns the horizontal center of column (i, j).
func (g *Grid) ColumnCenter(i, j int) (x, y float64) {
	return g.Origin.X + (float64(i)+0.5)*g.Step.X, g.Origin.Y + (float64(j)+0.5)*g.Step.Y
}

// LayerZ returns the z-centroid of layer k.
func (g *Grid) LayerZ(k int) float64 {
	return g.Origin.Z + (float64(k)+0.5)*g.Step.Z
}

// Column returns the (i, j) indices of the n-th column in row-major order
// (i outer, j inner).
func (g *Grid) Column(n int) (i, j int) {
	return n / g.NY, n % g.NY
}

// Index returns the linear index of v with k varying fastest.
func (g *Grid) Index(v Voxel) int {
	return (v.I*g.NY+v.J)*g.NZ + v.K
}

// At is the inverse of Index.
func (g *Grid) At(n int) Voxel {
	k := n % g.NZ
	n /= g.NZ
	return Voxel{I: n / g.NY, J: n % g.NY, K: k}
}

// Extent returns the box actually covered by the grid. Because counts are
// rounded in ModeCount (y) and ModeSize, it may differ slightly from Bounds.
func (g *Grid) Extent() geom.Box {
	return geom.Box{
		Min: g.Origin,
		Max: r3.Vec{
			X: g.Origin.X + float64(g.NX)*g.Step.X,
			Y: g.Origin.Y + float64(g.NY)*g.Step.Y,
			Z: g.Origin.Z + float64(g.NZ)*g.Step.Z,
		},
	}
}

// Summary is the resolved grid parameters reported back to the caller.
type Summary struct {
	DX     float64    `yaml:"dx" json:"dx"`
	DY     float64    `yaml:"dy" json:"dy"`
	DZ     float64    `yaml:"dz" json:"dz"`
	NX     int        `yaml:"nx" json:"nx"`
	NY     int        `yaml:"ny" json:"ny"`
	NZ     int        `yaml:"nz" json:"nz"`
	Voxels int        `yaml:"voxels" json:"voxels"`
	Origin [3]float64 `yaml:"origin" json:"origin"`
}

// Summary returns the grid's step sizes and counts.
func (g *Grid) Summary() Summary {
	return Summary{
		DX:     g.Step.X,
		DY:     g.Step.Y,
		DZ:     g.Step.Z,
		NX:     g.NX,
		NY:     g.NY,
		NZ:     g.NZ,
		Voxels: g.Len(),
		Origin: [3]float64{g.Origin.X, g.Origin.Y, g.Origin.Z},
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("voxel size %gx%gx%g, counts %dx%dx%d (%d voxels)",
		s.DX, s.DY, s.DZ, s.NX, s.NY, s.NZ, s.Voxels)
}
