// Package spatialmath defines spatial mathematical operations, most notably
// rigid poses and the various parameterizations of 3D orientation.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations
// of the orientation of a rigid object or a frame of reference in 3D space.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
}

// NewZeroOrientation returns an orientation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// OrientationAlmostEqual will return a bool describing whether two
// orientations are approximately the same.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationBetween returns the orientation representing the difference
// between the two given orientations.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// NewOrientationFromQuaternion returns an Orientation backed by the given
// quaternion, normalized to a unit quaternion.
func NewOrientationFromQuaternion(q quat.Number) Orientation {
	qq := quaternion(Normalize(q))
	return &qq
}

// OrientationInverse returns the orientation representing the inverse rotation.
func OrientationInverse(o Orientation) Orientation {
	q := quaternion(quat.Conj(o.Quaternion()))
	return &q
}

// QuaternionAlmostEqual checks if two quaternions represent the same rotation
// to within a given tolerance. Q and -Q represent the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	return math.Abs(math.Abs(dot)-1) < tol
}

// quaternion is an internal Orientation backed directly by a unit quaternion.
type quaternion quat.Number

func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

func (q *quaternion) EulerAngles() *EulerAngles {
	return quatToEulerAngles(q.Quaternion())
}

func (q *quaternion) AxisAngles() *R4AA {
	return quatToR4AA(q.Quaternion())
}

func quatToEulerAngles(q quat.Number) *EulerAngles {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinPitch := 2 * (w*y - z*x)
	var pitch float64
	if math.Abs(sinPitch) >= 1 {
		// gimbal lock
		pitch = math.Copysign(math.Pi/2, sinPitch)
	} else {
		pitch = math.Asin(sinPitch)
	}

	return &EulerAngles{
		Roll:  math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Pitch: pitch,
		Yaw:   math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)),
	}
}

func quatToR4AA(q quat.Number) *R4AA {
	denom := math.Sqrt(1 - q.Real*q.Real)
	angle := 2 * math.Acos(math.Min(1, math.Abs(q.Real)))
	if q.Real < 0 {
		angle = 2 * math.Acos(math.Max(-1, q.Real))
	}
	if denom < 1e-8 {
		// no rotation, axis is arbitrary
		return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
	}
	return &R4AA{
		Theta: angle,
		RX:    q.Imag / denom,
		RY:    q.Jmag / denom,
		RZ:    q.Kmag / denom,
	}
}

// Normalize returns a unit quaternion. The zero quaternion maps to identity.
func Normalize(q quat.Number) quat.Number {
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}
