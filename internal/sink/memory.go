package sink

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps everything in process. Useful for tests and dry runs.
type Memory struct {
	mu        sync.Mutex
	closed    bool
	triangles map[string][]Triangle
	segments  map[string][]Segment
	points    map[string][]Point
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		triangles: make(map[string][]Triangle),
		segments:  make(map[string][]Segment),
		points:    make(map[string][]Point),
	}
}

func (m *Memory) WriteTriangles(ctx context.Context, dataset string, tris []Triangle) error {
	return m.write(ctx, func() { m.triangles[dataset] = append(m.triangles[dataset], tris...) })
}

func (m *Memory) WriteSegments(ctx context.Context, dataset string, segs []Segment) error {
	return m.write(ctx, func() { m.segments[dataset] = append(m.segments[dataset], segs...) })
}

func (m *Memory) WritePoints(ctx context.Context, dataset string, pts []Point) error {
	return m.write(ctx, func() { m.points[dataset] = append(m.points[dataset], pts...) })
}

func (m *Memory) write(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	fn()
	return nil
}

// Close marks the sink closed; stored data stays readable.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Triangles returns the triangles written to dataset.
func (m *Memory) Triangles(dataset string) []Triangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Triangle(nil), m.triangles[dataset]...)
}

// Segments returns the segments written to dataset.
func (m *Memory) Segments(dataset string) []Segment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Segment(nil), m.segments[dataset]...)
}

// Points returns the points written to dataset.
func (m *Memory) Points(dataset string) []Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Point(nil), m.points[dataset]...)
}

// Datasets lists every dataset name written so far, sorted.
func (m *Memory) Datasets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	for name := range m.triangles {
		seen[name] = true
	}
	for name := range m.segments {
		seen[name] = true
	}
	for name := range m.points {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
