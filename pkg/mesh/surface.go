package mesh

import "github.com/Faultbox/geovox/pkg/geom"

// Surface is a named mesh plus the stratigraphic layer it bounds.
// The mesh is borrowed, not copied.
type Surface struct {
	Name  string
	Layer string // target label used by column classification
	Mesh  *Mesh

	// Attributes holds format metadata (projection, datum, ...).
	Attributes map[string]string
}

// Label returns Layer, falling back to Name.
func (s *Surface) Label() string {
	if s.Layer != "" {
		return s.Layer
	}
	return s.Name
}

// Bounds returns the surface mesh bounds.
func (s *Surface) Bounds() geom.Box {
	return s.Mesh.Bounds()
}

// UnionBounds returns the union of the bounds of all surfaces.
func UnionBounds(surfaces []*Surface) geom.Box {
	u := geom.EmptyBox()
	for _, s := range surfaces {
		u = u.Union(s.Bounds())
	}
	return u
}
