package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof rigid transform: a position in 3D space and an
// orientation about that position.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basicPose struct {
	point       r3.Vector
	orientation Orientation
}

// NewZeroPose returns a pose at (0,0,0) with no rotation.
func NewZeroPose() Pose {
	return &basicPose{orientation: NewZeroOrientation()}
}

// NewPose takes in a position and an orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basicPose{point: p, orientation: o}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// The orientation is zero initialized.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basicPose{point: point, orientation: NewZeroOrientation()}
}

// NewPoseFromOrientation takes in a position and orientation and returns a
// Pose. A nil orientation is taken to be zero.
func NewPoseFromOrientation(point r3.Vector, o Orientation) Pose {
	return NewPose(point, o)
}

func (bp *basicPose) Point() r3.Vector {
	return bp.point
}

func (bp *basicPose) Orientation() Orientation {
	return bp.orientation
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function
// C(x) = A(B(x)), or "A after B".
func Compose(a, b Pose) Pose {
	aq := a.Orientation().Quaternion()
	q := quaternion(Normalize(quat.Mul(aq, b.Orientation().Quaternion())))
	return &basicPose{
		point:       a.Point().Add(QuatRotateVector(aq, b.Point())),
		orientation: &q,
	}
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the
// pose of A relative to B, PoseInverse(p) will give the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.Orientation().Quaternion())
	q := quaternion(inv)
	return &basicPose{
		point:       QuatRotateVector(inv, p.Point().Mul(-1)),
		orientation: &q,
	}
}

// PoseBetween returns the difference between two poses: the pose that if
// composed with one will give the other.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostEqual checks if two poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-3) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincidentEps checks if two poses approximately the same point
// within a user-defined epsilon.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	ptA, ptB := a.Point(), b.Point()
	return math.Abs(ptA.X-ptB.X) < epsilon &&
		math.Abs(ptA.Y-ptB.Y) < epsilon &&
		math.Abs(ptA.Z-ptB.Z) < epsilon
}

// TransformPoint applies a pose to a point: the point is rotated by the pose
// orientation and then offset by the pose position.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return QuatRotateVector(p.Orientation().Quaternion(), pt).Add(p.Point())
}

// QuatRotateVector rotates a vector by a quaternion, computing q*v*q^-1.
func QuatRotateVector(q quat.Number, v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
