package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// R4AA represents an R4 axis angle; the axis is a unit vector and theta is the
// rotation around it in radians.
type R4AA struct {
	Theta float64
	RX    float64
	RY    float64
	RZ    float64
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// AxisAngles returns the orientation in axis angle representation.
func (r4 *R4AA) AxisAngles() *R4AA {
	return r4
}

// Quaternion returns the orientation in quaternion representation.
func (r4 *R4AA) Quaternion() quat.Number {
	sinA := math.Sin(r4.Theta / 2)
	// ensure the axis is normalized before conversion
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return Normalize(quat.Number{
		Real: math.Cos(r4.Theta / 2),
		Imag: sinA * r4.RX / norm,
		Jmag: sinA * r4.RY / norm,
		Kmag: sinA * r4.RZ / norm,
	})
}

// EulerAngles returns the orientation in euler angle representation.
func (r4 *R4AA) EulerAngles() *EulerAngles {
	return quatToEulerAngles(r4.Quaternion())
}
