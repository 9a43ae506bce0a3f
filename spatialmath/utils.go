package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// PlaneNormal returns the plane normal of the triangle defined by the three
// given points, following the right-hand rule on the winding order.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// OrthogonalBasis returns two unit vectors that, together with the given
// normal, form a right-handed orthonormal basis. The normal need not be
// normalized.
func OrthogonalBasis(normal r3.Vector) (r3.Vector, r3.Vector) {
	n := normal.Normalize()
	// pick the smallest normal component to avoid degeneracy
	other := r3.Vector{X: 1}
	if math.Abs(n.X) >= math.Abs(n.Y) && math.Abs(n.X) >= math.Abs(n.Z) {
		other = r3.Vector{Y: 1}
	}
	u := n.Cross(other).Normalize()
	v := n.Cross(u)
	return u, v
}

// ClosestPointSegmentPoint takes a line segment defined by ap1 and ap2, and
// a point, and returns the point on the segment closest to the given point.
func ClosestPointSegmentPoint(ap1, ap2, p r3.Vector) r3.Vector {
	ab := ap2.Sub(ap1)
	lenSq := ab.Norm2()
	if lenSq == 0 {
		return ap1
	}
	t := p.Sub(ap1).Dot(ab) / lenSq
	if t <= 0 {
		return ap1
	} else if t >= 1 {
		return ap2
	}
	return ap1.Add(ab.Mul(t))
}
