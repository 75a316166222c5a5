// Package classify assigns voxels of a grid to stratigraphic layers or to
// the inside of a closed solid.
//
// Both classifiers are parallel maps over grid columns. Inputs (grid, mesh,
// samplers, containment predicate) are shared read-only; each column writes
// only its own result slot and slots are merged in column order, so output
// is deterministic regardless of the worker count.
package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Faultbox/geovox/pkg/voxel"
)

// ErrNoLayers is returned by Strata when no layers are given.
var ErrNoLayers = errors.New("no layers to classify against")

// Sampler returns the elevation of a surface at (x, y). ok is false when the
// surface has no data there. Implementations must be safe for concurrent use.
type Sampler interface {
	Elevation(x, y float64) (z float64, ok bool)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(x, y float64) (float64, bool)

// Elevation calls f(x, y).
func (f SamplerFunc) Elevation(x, y float64) (float64, bool) {
	return f(x, y)
}

// Layer pairs a surface's elevation sampler with the label assigned to
// voxels lying directly below it.
type Layer struct {
	Label   string
	Sampler Sampler
}

// NoDataPolicy decides how a missing elevation is handled.
type NoDataPolicy int

const (
	// NoDataZero uses elevation 0 for the surface at that column.
	NoDataZero NoDataPolicy = iota
	// NoDataIgnore leaves the surface out of that column.
	NoDataIgnore
	// NoDataSkipColumn emits nothing for the whole column.
	NoDataSkipColumn
)

// String returns the configuration name of the policy.
func (p NoDataPolicy) String() string {
	switch p {
	case NoDataZero:
		return "zero"
	case NoDataIgnore:
		return "ignore"
	case NoDataSkipColumn:
		return "skip_column"
	default:
		return fmt.Sprintf("NoDataPolicy(%d)", int(p))
	}
}

// ParseNoDataPolicy converts a configuration name to a policy.
// The empty string selects NoDataZero.
func ParseNoDataPolicy(s string) (NoDataPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return NoDataZero, nil
	case "ignore":
		return NoDataIgnore, nil
	case "skip_column", "skip":
		return NoDataSkipColumn, nil
	default:
		return 0, fmt.Errorf("unknown no-data policy %q", s)
	}
}

// Threshold is one surface's elevation at a column.
type Threshold struct {
	Elevation float64
	Label     string
}

// Assignment is a voxel classified into a layer.
type Assignment struct {
	Voxel voxel.Voxel
	Label string
}

// Column classifies the voxels of column (i, j) against thresholds.
// Thresholds are sorted ascending by elevation, ties kept in input order.
// Sweeping upward, every threshold with elevation <= the voxel's z-centroid
// is passed; the voxel takes the label of the nearest remaining threshold
// above it. Once no threshold remains the rest of the column is dropped.
// thresholds is not modified.
func Column(g *voxel.Grid, i, j int, thresholds []Threshold) []Assignment {
	sorted := make([]Threshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Elevation < sorted[b].Elevation
	})

	var out []Assignment
	head := 0
	for k := 0; k < g.NZ; k++ {
		z := g.LayerZ(k)
		for head < len(sorted) && sorted[head].Elevation <= z {
			head++
		}
		if head == len(sorted) {
			break
		}
		out = append(out, Assignment{
			Voxel: voxel.Voxel{I: i, J: j, K: k},
			Label: sorted[head].Label,
		})
	}
	return out
}

// sampleColumn builds the thresholds for a column. ok is false when the
// column must be skipped.
func sampleColumn(layers []Layer, x, y float64, policy NoDataPolicy) ([]Threshold, bool) {
	ts := make([]Threshold, 0, len(layers))
	for _, l := range layers {
		z, ok := l.Sampler.Elevation(x, y)
		if !ok {
			switch policy {
			case NoDataIgnore:
				continue
			case NoDataSkipColumn:
				return nil, false
			default:
				z = 0
			}
		}
		ts = append(ts, Threshold{Elevation: z, Label: l.Label})
	}
	return ts, true
}

// StrataResult is the outcome of Strata.
type StrataResult struct {
	// Assignments are ordered by column (i outer, j inner), then k.
	Assignments []Assignment
	// Labels lists the distinct layer labels in input order.
	Labels []string
	// Counts is the number of voxels assigned per label.
	Counts map[string]int

	Columns        int
	SkippedColumns int
}

// ByLabel groups assigned voxels per label, preserving order.
func (r *StrataResult) ByLabel() map[string][]voxel.Voxel {
	out := make(map[string][]voxel.Voxel, len(r.Labels))
	for _, a := range r.Assignments {
		out[a.Label] = append(out[a.Label], a.Voxel)
	}
	return out
}

// Strata classifies every column of g against layers.
func Strata(ctx context.Context, g *voxel.Grid, layers []Layer, opts Options) (*StrataResult, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	cols := g.Columns()
	perColumn := make([][]Assignment, cols)
	skipped := make([]bool, cols)

	err := forEach(ctx, cols, opts.workers(), func(n int) {
		i, j := g.Column(n)
		x, y := g.ColumnCenter(i, j)
		ts, ok := sampleColumn(layers, x, y, opts.NoData)
		if !ok {
			skipped[n] = true
			return
		}
		perColumn[n] = Column(g, i, j, ts)
	})
	if err != nil {
		return nil, fmt.Errorf("classifying columns: %w", err)
	}

	res := &StrataResult{
		Counts:  make(map[string]int),
		Columns: cols,
	}
	seen := make(map[string]bool)
	for _, l := range layers {
		if !seen[l.Label] {
			seen[l.Label] = true
			res.Labels = append(res.Labels, l.Label)
		}
	}

	total := 0
	for _, as := range perColumn {
		total += len(as)
	}
	res.Assignments = make([]Assignment, 0, total)
	for n, as := range perColumn {
		if skipped[n] {
			res.SkippedColumns++
		}
		for _, a := range as {
			res.Counts[a.Label]++
		}
		res.Assignments = append(res.Assignments, as...)
	}
	return res, nil
}
