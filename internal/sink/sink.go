// Package sink persists pipeline output: surface triangles, line segments
// (boundaries, grid outlines, borehole layers) and classified voxel points.
package sink

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Output drivers accepted by Open.
const (
	DriverSQLite  = "sqlite"
	DriverGeoJSON = "geojson"
	DriverMemory  = "memory"
)

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("sink is closed")

// Triangle is one surface triangle.
type Triangle struct {
	Index   int
	A, B, C r3.Vec

	// Attributes are feature properties (geological feature, projection,
	// length3D, ...). Sinks must not modify the map.
	Attributes map[string]string
}

// Segment is a 3D line segment with a name (surface, borehole) and an
// optional label (layer, rock code).
type Segment struct {
	Name       string
	Label      string
	From, To   r3.Vec
	Attributes map[string]string
}

// Point is a classified voxel centroid.
type Point struct {
	X, Y, Z float64
	I, J, K int
	Label   string
	Type    int
}

// Sink receives pipeline output grouped in named datasets. Writing to an
// existing dataset appends. Implementations are safe for concurrent use.
type Sink interface {
	WriteTriangles(ctx context.Context, dataset string, tris []Triangle) error
	WriteSegments(ctx context.Context, dataset string, segs []Segment) error
	WritePoints(ctx context.Context, dataset string, pts []Point) error
	Close() error
}

// Open creates a sink for driver. path is a database file for sqlite and
// a directory for geojson; it is ignored for memory.
func Open(driver, path, runID string) (Sink, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path, runID)
	case DriverGeoJSON:
		return NewGeoJSON(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown sink driver %q", driver)
	}
}
