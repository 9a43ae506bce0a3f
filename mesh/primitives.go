package mesh

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/viam-labs/rgbd/pointcloud"
	"github.com/viam-labs/rgbd/spatialmath"
)

// A Surfel is an oriented disk used to render dense point clouds as
// geometry. Its normal must be unit length.
type Surfel struct {
	Location r3.Vector
	Normal   r3.Vector
	Color    color.NRGBA
	Radius   float64
}

// AddSurfelPoint adds the surfel as a single colored, oriented vertex.
func (m *Mesh) AddSurfelPoint(s Surfel) {
	m.Vertices = append(m.Vertices, s.Location)
	m.Colors = append(m.Colors, s.Color)
	m.Normals = append(m.Normals, s.Normal)
}

// AddSurfel adds a hexagonal patch centered on the surfel location and
// orthogonal to its normal.
func (m *Mesh) AddSurfel(s Surfel) error {
	if s.Normal.Norm() < 0.9 {
		return errors.New("surfel normal must be unit length")
	}

	idx := len(m.Vertices)
	v1, v2 := spatialmath.OrthogonalBasis(s.Normal)

	m.Vertices = append(m.Vertices,
		s.Location.Add(v1.Mul(s.Radius)),
		s.Location.Add(v1.Mul(s.Radius/2)).Add(v2.Mul(s.Radius)),
		s.Location.Add(v1.Mul(-s.Radius/2)).Add(v2.Mul(s.Radius)),
		s.Location.Add(v1.Mul(-s.Radius)),
		s.Location.Add(v1.Mul(-s.Radius/2)).Add(v2.Mul(-s.Radius)),
		s.Location.Add(v1.Mul(s.Radius/2)).Add(v2.Mul(-s.Radius)),
	)
	for k := 0; k < 6; k++ {
		m.Colors = append(m.Colors, s.Color)
		m.Normals = append(m.Normals, s.Normal)
	}

	m.Faces = append(m.Faces,
		Face{idx + 5, idx + 0, idx + 1},
		Face{idx + 5, idx + 1, idx + 2},
		Face{idx + 4, idx + 5, idx + 2},
		Face{idx + 4, idx + 2, idx + 3},
	)
	return nil
}

// cubeLinks describes the winding of the 12 triangles of an axis-aligned
// box whose 8 corners are enumerated x-major.
var cubeLinks = [12]Face{
	{0, 1, 3},
	{0, 3, 2},

	{0, 5, 1},
	{0, 4, 5},

	{3, 1, 5},
	{3, 5, 7},

	{2, 3, 7},
	{2, 7, 6},

	{6, 5, 4},
	{6, 7, 5},

	{0, 2, 6},
	{0, 6, 4},
}

// AddCube adds an axis-aligned box centered at center with the given edge
// lengths. The color is applied per-vertex only if the mesh already carries
// colors.
func (m *Mesh) AddCube(center, sizes r3.Vector, c color.NRGBA) {
	hasColors := m.HasColors()

	xvals := [2]float64{center.X - sizes.X/2, center.X + sizes.X/2}
	yvals := [2]float64{center.Y - sizes.Y/2, center.Y + sizes.Y/2}
	zvals := [2]float64{center.Z - sizes.Z/2, center.Z + sizes.Z/2}

	firstVertexIndex := len(m.Vertices)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				m.Vertices = append(m.Vertices, r3.Vector{X: xvals[i], Y: yvals[j], Z: zvals[k]})
				if hasColors {
					m.Colors = append(m.Colors, c)
				}
			}
		}
	}

	for _, link := range cubeLinks {
		m.Faces = append(m.Faces, Face{
			firstVertexIndex + link[0],
			firstVertexIndex + link[1],
			firstVertexIndex + link[2],
		})
	}
}

// NewFromBox returns a mesh of the axis-aligned box centered at center with
// the given edge lengths.
func NewFromBox(center, sizes r3.Vector) *Mesh {
	m := New()
	m.AddCube(center, sizes, color.NRGBA{})
	return m
}

// NewFromPlane returns a two-triangle quad lying on the plane, bounded by
// the vertical extent of an axis-aligned box of half-size halfSize around
// center. The plane must not be parallel to the Y axis.
func NewFromPlane(plane pointcloud.Plane, center r3.Vector, halfSize float64) (*Mesh, error) {
	lines := [4][2]r3.Vector{
		{
			{X: center.X - halfSize, Y: center.Y - halfSize, Z: center.Z - halfSize},
			{X: center.X - halfSize, Y: center.Y + halfSize, Z: center.Z - halfSize},
		},
		{
			{X: center.X + halfSize, Y: center.Y - halfSize, Z: center.Z - halfSize},
			{X: center.X + halfSize, Y: center.Y + halfSize, Z: center.Z - halfSize},
		},
		{
			{X: center.X - halfSize, Y: center.Y - halfSize, Z: center.Z + halfSize},
			{X: center.X - halfSize, Y: center.Y + halfSize, Z: center.Z + halfSize},
		},
		{
			{X: center.X + halfSize, Y: center.Y - halfSize, Z: center.Z + halfSize},
			{X: center.X + halfSize, Y: center.Y + halfSize, Z: center.Z + halfSize},
		},
	}

	m := New()
	for _, line := range lines {
		pt := plane.Intersect(line[0], line[1])
		if pt == nil {
			return nil, errors.New("plane does not intersect the bounding lines")
		}
		m.Vertices = append(m.Vertices, *pt)
	}
	m.Faces = append(m.Faces, Face{0, 1, 2}, Face{2, 1, 3})
	return m, nil
}
