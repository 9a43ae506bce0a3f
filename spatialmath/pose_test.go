package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestZeroPose(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, OrientationAlmostEqual(p.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)

	// nil orientation means identity
	p = NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, nil)
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, OrientationAlmostEqual(p.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)
}

func TestTransformPoint(t *testing.T) {
	// quarter turn around z plus a translation
	p := NewPose(r3.Vector{X: 0, Y: 10, Z: 0}, &R4AA{math.Pi / 2., 0., 0., 1.})
	pt := TransformPoint(p, r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, pt.X, test.ShouldAlmostEqual, 0)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 11)
	test.That(t, pt.Z, test.ShouldAlmostEqual, 0)

	// identity leaves the point alone
	pt = TransformPoint(NewZeroPose(), r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, pt.X, test.ShouldAlmostEqual, 1)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 2)
	test.That(t, pt.Z, test.ShouldAlmostEqual, 3)
}

func TestComposeAndInverse(t *testing.T) {
	a := NewPose(r3.Vector{X: 1, Y: 0, Z: 0}, &R4AA{math.Pi / 2., 0., 0., 1.})
	b := NewPose(r3.Vector{X: 0, Y: 1, Z: 0}, &EulerAngles{Roll: 0.2, Pitch: 0, Yaw: 0})

	ab := Compose(a, b)
	// composing with the inverse gets back to b
	test.That(t, PoseAlmostEqual(Compose(PoseInverse(a), ab), b), test.ShouldBeTrue)

	// a pose composed with its inverse is the identity
	ident := Compose(a, PoseInverse(a))
	test.That(t, PoseAlmostEqual(ident, NewZeroPose()), test.ShouldBeTrue)

	// PoseBetween(a, b) is the delta that takes a to b
	delta := PoseBetween(a, b)
	test.That(t, PoseAlmostEqual(Compose(a, delta), b), test.ShouldBeTrue)
}

func TestComposeTranslationOnly(t *testing.T) {
	a := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	b := NewPoseFromPoint(r3.Vector{X: 10, Y: 20, Z: 30})
	ab := Compose(a, b)
	test.That(t, ab.Point().X, test.ShouldAlmostEqual, 11)
	test.That(t, ab.Point().Y, test.ShouldAlmostEqual, 22)
	test.That(t, ab.Point().Z, test.ShouldAlmostEqual, 33)
}
