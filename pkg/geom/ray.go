package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// parallelEpsilon bounds the sine of the angle between a ray and a
// triangle's plane below which the two are treated as parallel.
const parallelEpsilon = 1e-12

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec // Normalized direction
}

// NewRay creates a ray, normalizing dir.
func NewRay(origin, dir r3.Vec) Ray {
	return Ray{Origin: origin, Direction: r3.Unit(dir)}
}

// At returns the point Origin + t*Direction.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

// Hit is the result of a ray/plane-of-triangle intersection.
// U and V are the barycentric weights of the second and third corner;
// the first corner's weight is 1-U-V.
type Hit struct {
	T float64
	U float64
	V float64
}

// W returns the barycentric weight of the first corner.
func (h Hit) W() float64 {
	return 1 - h.U - h.V
}

// Inside reports whether the hit lies within the triangle, allowing eps of
// slack on every barycentric weight.
func (h Hit) Inside(eps float64) bool {
	return h.U >= -eps && h.V >= -eps && h.W() >= -eps
}

// NearEdge reports whether the hit lies within eps of an edge or vertex.
func (h Hit) NearEdge(eps float64) bool {
	return math.Abs(h.U) <= eps || math.Abs(h.V) <= eps || math.Abs(h.W()) <= eps
}

// IntersectTriangle intersects the ray's line with the plane of triangle abc
// (Möller–Trumbore). ok is false when the ray is parallel to the plane.
// The parallel test is relative to the edge lengths, so it does not depend
// on the triangle's scale.
// The hit is returned even when it falls outside the triangle or behind the
// origin so callers can apply their own edge conventions.
func (r Ray) IntersectTriangle(a, b, c r3.Vec) (h Hit, ok bool) {
	e1 := r3.Sub(b, a)
	e2 := r3.Sub(c, a)
	p := r3.Cross(r.Direction, e2)
	det := r3.Dot(e1, p)
	if det == 0 || math.Abs(det) < parallelEpsilon*r3.Norm(e1)*r3.Norm(e2) {
		return Hit{}, false
	}
	inv := 1 / det

	s := r3.Sub(r.Origin, a)
	h.U = r3.Dot(s, p) * inv
	q := r3.Cross(s, e1)
	h.V = r3.Dot(r.Direction, q) * inv
	h.T = r3.Dot(e2, q) * inv
	return h, true
}

// Normal returns the unnormalized normal of triangle abc (right-hand rule).
// Its length is twice the triangle's area.
func Normal(a, b, c r3.Vec) r3.Vec {
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}
