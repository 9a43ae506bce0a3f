// Package mesh defines a triangle mesh with optional per-vertex colors,
// normals, and texture coordinates, along with geometric construction
// routines and PLY file I/O.
//
// Vertex positions are in millimeters; PLY files store meters.
package mesh

import (
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/viam-labs/rgbd/spatialmath"
)

// A Face is a triangle described by three indices into the vertex arrays.
type Face [3]int

// NumVertices returns the number of vertices in a face. Faces are always
// triangles.
func (f Face) NumVertices() int { return 3 }

// Mesh is a triangle mesh. The Normals, Colors and Texcoords arrays are
// either empty or parallel to Vertices.
type Mesh struct {
	Vertices  []r3.Vector
	Normals   []r3.Vector
	Colors    []color.NRGBA
	Texcoords []r2.Point
	Faces     []Face
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// HasColors returns whether the mesh carries per-vertex colors.
func (m *Mesh) HasColors() bool { return len(m.Colors) > 0 }

// HasNormals returns whether the mesh carries per-vertex normals.
func (m *Mesh) HasNormals() bool { return len(m.Normals) > 0 }

// HasTexcoords returns whether the mesh carries per-vertex texture coordinates.
func (m *Mesh) HasTexcoords() bool { return len(m.Texcoords) > 0 }

// HasFaces returns whether the mesh has any triangles.
func (m *Mesh) HasFaces() bool { return len(m.Faces) > 0 }

// Clear empties the mesh.
func (m *Mesh) Clear() {
	m.Vertices = nil
	m.Normals = nil
	m.Colors = nil
	m.Texcoords = nil
	m.Faces = nil
}

// Center returns the centroid of the mesh vertices.
func (m *Mesh) Center() r3.Vector {
	center := r3.Vector{}
	if len(m.Vertices) == 0 {
		return center
	}
	for _, v := range m.Vertices {
		center = center.Add(v)
	}
	return center.Mul(1 / float64(len(m.Vertices)))
}

// Centerize translates the mesh so that its centroid is the origin, and
// returns the previous centroid.
func (m *Mesh) Centerize() r3.Vector {
	center := m.Center()
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Sub(center)
	}
	return center
}

// Transform applies a rigid transform to every vertex, and rotates the
// normals if present.
func (m *Mesh) Transform(pose spatialmath.Pose) {
	for i := range m.Vertices {
		m.Vertices[i] = spatialmath.TransformPoint(pose, m.Vertices[i])
	}
	q := pose.Orientation().Quaternion()
	for i := range m.Normals {
		m.Normals[i] = spatialmath.QuatRotateVector(q, m.Normals[i])
	}
}

// Scale applies a per-axis scale to every vertex.
func (m *Mesh) Scale(sx, sy, sz float64) {
	for i := range m.Vertices {
		m.Vertices[i].X *= sx
		m.Vertices[i].Y *= sy
		m.Vertices[i].Z *= sz
	}
}

// Append merges the other mesh into this one, offsetting the face indices.
// Meshes with differing per-vertex attributes cannot be merged.
func (m *Mesh) Append(rhs *Mesh) error {
	if len(m.Vertices) == 0 {
		*m = *rhs.Clone()
		return nil
	}

	// must be checked before the vertex arrays grow
	hasColors := m.HasColors()
	hasNormals := m.HasNormals()
	hasTexcoords := m.HasTexcoords()

	if hasColors != rhs.HasColors() || hasNormals != rhs.HasNormals() || hasTexcoords != rhs.HasTexcoords() {
		return errors.New("cannot merge meshes with different per-vertex attributes")
	}

	offset := len(m.Vertices)
	m.Vertices = append(m.Vertices, rhs.Vertices...)
	if hasColors {
		m.Colors = append(m.Colors, rhs.Colors...)
	}
	if hasNormals {
		m.Normals = append(m.Normals, rhs.Normals...)
	}
	if hasTexcoords {
		m.Texcoords = append(m.Texcoords, rhs.Texcoords...)
	}

	for _, face := range rhs.Faces {
		m.Faces = append(m.Faces, Face{face[0] + offset, face[1] + offset, face[2] + offset})
	}
	return nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Vertices:  append([]r3.Vector{}, m.Vertices...),
		Normals:   append([]r3.Vector{}, m.Normals...),
		Colors:    append([]color.NRGBA{}, m.Colors...),
		Texcoords: append([]r2.Point{}, m.Texcoords...),
		Faces:     append([]Face{}, m.Faces...),
	}
	return clone
}

// ComputeNormalsFromFaces recomputes the per-vertex normals as the normalized
// sum of the normals of the faces each vertex belongs to. Faces with larger
// area count for more.
func (m *Mesh) ComputeNormalsFromFaces() {
	m.Normals = make([]r3.Vector, len(m.Vertices))
	for _, face := range m.Faces {
		v01 := m.Vertices[face[1]].Sub(m.Vertices[face[0]])
		v02 := m.Vertices[face[2]].Sub(m.Vertices[face[0]])
		n := v01.Cross(v02)
		for _, idx := range face {
			m.Normals[idx] = m.Normals[idx].Add(n)
		}
	}

	for i, n := range m.Normals {
		if n.Norm2() > 0 {
			m.Normals[i] = n.Normalize()
		}
	}
}

// VertexFaceMap returns, for every vertex, the list of face indices the
// vertex belongs to.
func (m *Mesh) VertexFaceMap() [][]int {
	facesPerVertex := make([][]int, len(m.Vertices))
	for faceIdx, face := range m.Faces {
		for _, vertexIdx := range face {
			facesPerVertex[vertexIdx] = append(facesPerVertex[vertexIdx], faceIdx)
		}
	}
	return facesPerVertex
}

// invalidVertex marks a vertex slot that no longer holds a real vertex.
func invalidVertex() r3.Vector {
	return r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
}

func isInvalidVertex(v r3.Vector) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

// RemoveDuplicatedVertices rewrites faces so that vertices at exactly the
// same position are shared, marking the now-unreferenced duplicates as
// invalid. Call RemoveIsolatedVertices afterwards to compact the arrays.
func (m *Mesh) RemoveDuplicatedVertices() {
	firstIndex := make(map[r3.Vector]int, len(m.Vertices))
	alias := make(map[int]int)
	for i, v := range m.Vertices {
		if first, seen := firstIndex[v]; seen {
			alias[i] = first
			m.Vertices[i] = invalidVertex()
			continue
		}
		firstIndex[v] = i
	}

	for faceIdx := range m.Faces {
		for k, vertexIdx := range m.Faces[faceIdx] {
			if first, ok := alias[vertexIdx]; ok {
				m.Faces[faceIdx][k] = first
			}
		}
	}
}

// RemoveIsolatedVertices drops invalid vertices, and vertices that no face
// references when the mesh has faces, reindexing the faces accordingly.
func (m *Mesh) RemoveIsolatedVertices() {
	referenced := make([]bool, len(m.Vertices))
	if m.HasFaces() {
		for _, face := range m.Faces {
			for _, vertexIdx := range face {
				referenced[vertexIdx] = true
			}
		}
	} else {
		for i := range referenced {
			referenced[i] = true
		}
	}

	newIndices := make([]int, len(m.Vertices))
	curIndex := 0
	for i, v := range m.Vertices {
		if isInvalidVertex(v) || !referenced[i] {
			newIndices[i] = -1
			continue
		}
		newIndices[i] = curIndex
		curIndex++
	}

	compacted := Mesh{Vertices: make([]r3.Vector, 0, curIndex)}
	if m.HasColors() {
		compacted.Colors = make([]color.NRGBA, 0, curIndex)
	}
	if m.HasNormals() {
		compacted.Normals = make([]r3.Vector, 0, curIndex)
	}
	if m.HasTexcoords() {
		compacted.Texcoords = make([]r2.Point, 0, curIndex)
	}

	for i, v := range m.Vertices {
		if newIndices[i] < 0 {
			continue
		}
		compacted.Vertices = append(compacted.Vertices, v)
		if m.HasColors() {
			compacted.Colors = append(compacted.Colors, m.Colors[i])
		}
		if m.HasNormals() {
			compacted.Normals = append(compacted.Normals, m.Normals[i])
		}
		if m.HasTexcoords() {
			compacted.Texcoords = append(compacted.Texcoords, m.Texcoords[i])
		}
	}

	for faceIdx := range m.Faces {
		for k, oldIndex := range m.Faces[faceIdx] {
			m.Faces[faceIdx][k] = newIndices[oldIndex]
		}
	}

	m.Vertices = compacted.Vertices
	m.Colors = compacted.Colors
	m.Normals = compacted.Normals
	m.Texcoords = compacted.Texcoords
}
