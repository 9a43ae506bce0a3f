package mesh

import (
	"bytes"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-labs/rgbd/spatialmath"
)

func rightTriangle() *Mesh {
	m := New()
	m.Vertices = []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	m.Faces = []Face{{0, 1, 2}}
	return m
}

func TestMeshBasics(t *testing.T) {
	m := New()
	test.That(t, m.HasColors(), test.ShouldBeFalse)
	test.That(t, m.HasNormals(), test.ShouldBeFalse)
	test.That(t, m.HasTexcoords(), test.ShouldBeFalse)
	test.That(t, m.HasFaces(), test.ShouldBeFalse)
	test.That(t, m.Center(), test.ShouldResemble, r3.Vector{})

	m = rightTriangle()
	test.That(t, m.HasFaces(), test.ShouldBeTrue)
	c := m.Center()
	test.That(t, c.X, test.ShouldAlmostEqual, 1/3.)
	test.That(t, c.Y, test.ShouldAlmostEqual, 1/3.)
	test.That(t, c.Z, test.ShouldAlmostEqual, 0)

	prev := m.Centerize()
	test.That(t, prev.X, test.ShouldAlmostEqual, 1/3.)
	test.That(t, m.Center().Norm(), test.ShouldAlmostEqual, 0)

	m.Clear()
	test.That(t, len(m.Vertices), test.ShouldEqual, 0)
	test.That(t, m.HasFaces(), test.ShouldBeFalse)
}

func TestMeshTransformAndScale(t *testing.T) {
	m := rightTriangle()
	m.ComputeNormalsFromFaces()

	// quarter turn around z plus translation
	pose := spatialmath.NewPose(r3.Vector{X: 10, Y: 0, Z: 0}, &spatialmath.R4AA{Theta: math.Pi / 2., RX: 0., RY: 0., RZ: 1.})
	m.Transform(pose)
	test.That(t, m.Vertices[1].X, test.ShouldAlmostEqual, 10)
	test.That(t, m.Vertices[1].Y, test.ShouldAlmostEqual, 1)
	// normals rotate but do not translate
	test.That(t, m.Normals[0].Z, test.ShouldAlmostEqual, 1)

	m = rightTriangle()
	m.Scale(2, 3, 4)
	test.That(t, m.Vertices[1], test.ShouldResemble, r3.Vector{X: 2, Y: 0, Z: 0})
	test.That(t, m.Vertices[2], test.ShouldResemble, r3.Vector{X: 0, Y: 3, Z: 0})
}

func TestMeshAppend(t *testing.T) {
	a := rightTriangle()
	b := rightTriangle()
	b.Transform(spatialmath.NewPoseFromPoint(r3.Vector{X: 5, Y: 0, Z: 0}))

	test.That(t, a.Append(b), test.ShouldBeNil)
	test.That(t, len(a.Vertices), test.ShouldEqual, 6)
	test.That(t, len(a.Faces), test.ShouldEqual, 2)
	// the second face indexes the appended vertices
	test.That(t, a.Faces[1], test.ShouldResemble, Face{3, 4, 5})

	// appending into an empty mesh copies
	empty := New()
	test.That(t, empty.Append(a), test.ShouldBeNil)
	test.That(t, len(empty.Vertices), test.ShouldEqual, 6)

	// mixed attributes cannot be merged
	colored := rightTriangle()
	colored.Colors = []color.NRGBA{{}, {}, {}}
	err := a.Append(colored)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "different per-vertex attributes")
}

func TestMeshAppendTextured(t *testing.T) {
	texTriangle := func() *Mesh {
		m := rightTriangle()
		m.Texcoords = []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
		return m
	}

	a := texTriangle()
	b := texTriangle()
	b.Transform(spatialmath.NewPoseFromPoint(r3.Vector{X: 5, Y: 0, Z: 0}))

	test.That(t, a.Append(b), test.ShouldBeNil)
	test.That(t, len(a.Vertices), test.ShouldEqual, 6)
	// texcoords stay parallel to the vertices
	test.That(t, len(a.Texcoords), test.ShouldEqual, 6)
	test.That(t, a.Texcoords[4], test.ShouldResemble, r2.Point{X: 1, Y: 0})

	var buf bytes.Buffer
	test.That(t, a.WritePLY(&buf), test.ShouldBeNil)

	// textured plus untextured cannot be merged
	err := a.Append(rightTriangle())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "different per-vertex attributes")
}

func TestComputeNormalsFromFaces(t *testing.T) {
	m := rightTriangle()
	m.ComputeNormalsFromFaces()
	test.That(t, len(m.Normals), test.ShouldEqual, 3)
	for _, n := range m.Normals {
		test.That(t, n.X, test.ShouldAlmostEqual, 0)
		test.That(t, n.Y, test.ShouldAlmostEqual, 0)
		test.That(t, n.Z, test.ShouldAlmostEqual, 1)
	}
}

func TestVertexFaceMap(t *testing.T) {
	m := rightTriangle()
	other := rightTriangle()
	other.Transform(spatialmath.NewPoseFromPoint(r3.Vector{X: 5, Y: 0, Z: 0}))
	test.That(t, m.Append(other), test.ShouldBeNil)

	fm := m.VertexFaceMap()
	test.That(t, len(fm), test.ShouldEqual, 6)
	test.That(t, fm[0], test.ShouldResemble, []int{0})
	test.That(t, fm[4], test.ShouldResemble, []int{1})
}

func TestRemoveDuplicatedVertices(t *testing.T) {
	// two triangles sharing an edge, stored with duplicated vertices
	m := New()
	m.Vertices = []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 1, Z: 0},
	}
	m.Faces = []Face{{0, 1, 2}, {3, 4, 5}}

	m.RemoveDuplicatedVertices()
	test.That(t, m.Faces[1], test.ShouldResemble, Face{1, 2, 5})

	m.RemoveIsolatedVertices()
	test.That(t, len(m.Vertices), test.ShouldEqual, 4)
	test.That(t, len(m.Faces), test.ShouldEqual, 2)
	test.That(t, m.Faces[0], test.ShouldResemble, Face{0, 1, 2})
	test.That(t, m.Faces[1], test.ShouldResemble, Face{1, 2, 3})
}

func TestRemoveIsolatedVertices(t *testing.T) {
	m := rightTriangle()
	// a vertex no face references
	m.Vertices = append(m.Vertices, r3.Vector{X: 9, Y: 9, Z: 9})
	m.RemoveIsolatedVertices()
	test.That(t, len(m.Vertices), test.ShouldEqual, 3)
	test.That(t, m.Faces[0], test.ShouldResemble, Face{0, 1, 2})
}
