package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestEmptyPlane(t *testing.T) {
	plane := NewEmptyPlane()
	test.That(t, plane.Equation(), test.ShouldResemble, [4]float64{})
	test.That(t, plane.Normal(), test.ShouldResemble, r3.Vector{})
	test.That(t, plane.Center(), test.ShouldResemble, r3.Vector{})
	test.That(t, plane.Offset(), test.ShouldEqual, 0.0)
	cloud, err := plane.PointCloud()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud, test.ShouldNotBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
	pt := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, plane.Distance(pt), test.ShouldEqual, 0)
}

func TestNewPlane(t *testing.T) {
	// a diamond of slope 1 in x and y
	pc := New()
	test.That(t, pc.Set(NewVector(0., 0., 0.), nil), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(0., 2., 2.), nil), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(2., 0., 2.), nil), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(2., 2., 4.), nil), test.ShouldBeNil)
	eq := [4]float64{1, 1, -1, 0}

	plane := NewPlane(pc, eq)
	test.That(t, plane.Equation(), test.ShouldResemble, eq)
	test.That(t, plane.Normal(), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: -1})
	test.That(t, plane.Center(), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 2})
	test.That(t, plane.Offset(), test.ShouldEqual, 0.0)
	cloud, err := plane.PointCloud()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud, test.ShouldNotBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 4)
	pt := r3.Vector{X: -1, Y: -1, Z: 1}
	test.That(t, math.Abs(plane.Distance(pt)), test.ShouldAlmostEqual, math.Sqrt(3))
}

func TestPlaneIntersect(t *testing.T) {
	// plane at z = 0
	plane := NewPlane(nil, [4]float64{0, 0, 1, 0})
	// perpendicular line at x=4, y=9 intersects at (4,9,0)
	p0, p1 := r3.Vector{X: 4, Y: 9, Z: 22}, r3.Vector{X: 4, Y: 9, Z: 12.3}
	result := plane.Intersect(p0, p1)
	test.That(t, result, test.ShouldNotBeNil)
	test.That(t, result.X, test.ShouldAlmostEqual, 4.0)
	test.That(t, result.Y, test.ShouldAlmostEqual, 9.0)
	test.That(t, result.Z, test.ShouldAlmostEqual, 0.0)
	// parallel line at z=4 returns nil
	p0, p1 = r3.Vector{X: 4, Y: 9, Z: 4}, r3.Vector{X: 22, Y: -3, Z: 4}
	result = plane.Intersect(p0, p1)
	test.That(t, result, test.ShouldBeNil)
	// tilted line with slope of 1 intersects at (2, 9, 0)
	p0, p1 = r3.Vector{X: 4, Y: 9, Z: 2}, r3.Vector{X: 3, Y: 9, Z: 1}
	result = plane.Intersect(p0, p1)
	test.That(t, result, test.ShouldNotBeNil)
	test.That(t, result.X, test.ShouldAlmostEqual, 2.0)
	test.That(t, result.Y, test.ShouldAlmostEqual, 9.0)
	test.That(t, result.Z, test.ShouldAlmostEqual, 0.0)
	// swapping p0 and p1 gives the same intersection
	result = plane.Intersect(p1, p0)
	test.That(t, result, test.ShouldNotBeNil)
	test.That(t, result.X, test.ShouldAlmostEqual, 2.0)
	test.That(t, result.Y, test.ShouldAlmostEqual, 9.0)
	test.That(t, result.Z, test.ShouldAlmostEqual, 0.0)
}
