package classify

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geovox/pkg/boundary"
	"github.com/Faultbox/geovox/pkg/mesh"
	"github.com/Faultbox/geovox/pkg/solid"
	"github.com/Faultbox/geovox/pkg/voxel"
)

// TypeInside is the type code attached to voxels inside a solid.
const TypeInside = 1

// ErrNotClosed is returned when a solid's mesh has boundary or
// non-manifold edges.
var ErrNotClosed = errors.New("solid is not closed")

// NotClosedError describes why a mesh failed the closure check.
type NotClosedError struct {
	Boundary    int
	NonManifold int
}

func (e *NotClosedError) Error() string {
	return fmt.Sprintf("solid is not closed: %d boundary edges, %d non-manifold edges",
		e.Boundary, e.NonManifold)
}

// Is makes errors.Is(err, ErrNotClosed) match.
func (e *NotClosedError) Is(target error) bool {
	return target == ErrNotClosed
}

// Containment reports whether a point lies inside a solid.
// Implementations must be safe for concurrent use.
type Containment interface {
	Contains(p r3.Vec) bool
}

// CheckClosed returns a *NotClosedError unless every edge of m is shared by
// exactly two triangles.
func CheckClosed(m *mesh.Mesh) error {
	r := boundary.Extract(m)
	if r.Closed() {
		return nil
	}
	return &NotClosedError{Boundary: len(r.Boundary), NonManifold: len(r.NonManifold)}
}

// SolidResult is the outcome of Solid.
type SolidResult struct {
	// Inside lists voxels whose centroid is inside, ordered by column
	// (i outer, j inner), then k.
	Inside []voxel.Voxel
	// Tested is the number of voxels evaluated.
	Tested int
}

// Solid marks which voxels of g have their centroid inside m. m must be
// closed. c overrides the containment test; nil uses ray parity.
func Solid(ctx context.Context, g *voxel.Grid, m *mesh.Mesh, c Containment, opts Options) (*SolidResult, error) {
	if err := CheckClosed(m); err != nil {
		return nil, err
	}
	if c == nil {
		p, err := solid.NewParity(m, 0)
		if err != nil {
			return nil, err
		}
		c = p
	}

	cols := g.Columns()
	perColumn := make([][]voxel.Voxel, cols)
	err := forEach(ctx, cols, opts.workers(), func(n int) {
		i, j := g.Column(n)
		var in []voxel.Voxel
		for k := 0; k < g.NZ; k++ {
			v := voxel.Voxel{I: i, J: j, K: k}
			if c.Contains(g.Centroid(v)) {
				in = append(in, v)
			}
		}
		perColumn[n] = in
	})
	if err != nil {
		return nil, fmt.Errorf("classifying columns: %w", err)
	}

	res := &SolidResult{Tested: g.Len()}
	for _, in := range perColumn {
		res.Inside = append(res.Inside, in...)
	}
	return res, nil
}
