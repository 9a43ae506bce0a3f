package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles are three angles (in radians) used to represent the rotation of
// an object in 3D Euclidean space. The Tait-Bryan angle formalism is used,
// with rotations around X (roll), Y (pitch), and Z (yaw), applied Z-Y-X.
type EulerAngles struct {
	Roll  float64 // rotation around X
	Pitch float64 // rotation around Y
	Yaw   float64 // rotation around Z
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{Roll: 0, Pitch: 0, Yaw: 0}
}

// EulerAngles returns the orientation in euler angle representation.
func (ea *EulerAngles) EulerAngles() *EulerAngles {
	return ea
}

// Quaternion returns the orientation in quaternion representation.
func (ea *EulerAngles) Quaternion() quat.Number {
	cy := math.Cos(ea.Yaw / 2)
	sy := math.Sin(ea.Yaw / 2)
	cp := math.Cos(ea.Pitch / 2)
	sp := math.Sin(ea.Pitch / 2)
	cr := math.Cos(ea.Roll / 2)
	sr := math.Sin(ea.Roll / 2)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// AxisAngles returns the orientation in axis angle representation.
func (ea *EulerAngles) AxisAngles() *R4AA {
	return quatToR4AA(ea.Quaternion())
}
