package mesh

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// WritePLY writes the mesh as an ascii PLY file. Positions are converted
// from millimeters to meters. Texture coordinates are written both
// per-vertex (s, t) and as per-face wedges for meshlab, with the v axis
// flipped on the wedges.
func (m *Mesh) WritePLY(out io.Writer) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "ply\nformat ascii 1.0\n")
	fmt.Fprintf(w, "element vertex %d\n", len(m.Vertices))
	fmt.Fprintf(w, "property float x\nproperty float y\nproperty float z\n")
	if m.HasNormals() {
		fmt.Fprintf(w, "property float nx\nproperty float ny\nproperty float nz\n")
	}
	if m.HasTexcoords() {
		fmt.Fprintf(w, "property float s\nproperty float t\n")
	}
	if m.HasColors() {
		fmt.Fprintf(w, "property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	if m.HasFaces() {
		fmt.Fprintf(w, "element face %d\n", len(m.Faces))
		fmt.Fprintf(w, "property list uchar uint vertex_indices\n")
		if m.HasTexcoords() {
			fmt.Fprintf(w, "property list uchar float texcoord\n")
		}
	}
	fmt.Fprintf(w, "end_header\n")

	for i, v := range m.Vertices {
		fmt.Fprintf(w, "%g %g %g", v.X/1000., v.Y/1000., v.Z/1000.)
		if m.HasNormals() {
			n := m.Normals[i]
			fmt.Fprintf(w, " %g %g %g", zeroIfNaN(n.X), zeroIfNaN(n.Y), zeroIfNaN(n.Z))
		}
		if m.HasTexcoords() {
			fmt.Fprintf(w, " %g %g", m.Texcoords[i].X, m.Texcoords[i].Y)
		}
		if m.HasColors() {
			c := m.Colors[i]
			fmt.Fprintf(w, " %d %d %d", c.R, c.G, c.B)
		}
		fmt.Fprintf(w, "\n")
	}

	for _, face := range m.Faces {
		fmt.Fprintf(w, "%d %d %d %d\n", face.NumVertices(), face[0], face[1], face[2])
		if m.HasTexcoords() {
			fmt.Fprintf(w, "6")
			for _, idx := range face {
				tc := m.Texcoords[idx]
				fmt.Fprintf(w, " %g %g", tc.X, 1.0-tc.Y)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	return w.Flush()
}

// WritePLYFile writes the mesh to an ascii PLY file at the given path.
func (m *Mesh) WritePLYFile(fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return m.WritePLY(f)
}

func zeroIfNaN(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// ReadPLY reads a triangle mesh from a PLY file. Positions are converted
// from meters to millimeters. Per-vertex normals, colors and texture
// coordinates are kept when present.
func ReadPLY(in io.Reader) (*Mesh, error) {
	ply := goply.New(in)

	m := New()
	for i, vertex := range ply.Elements("vertex") {
		x, xok := plyFloat(vertex["x"])
		y, yok := plyFloat(vertex["y"])
		z, zok := plyFloat(vertex["z"])
		if !xok || !yok || !zok {
			return nil, errors.Errorf("PLY vertex %d is missing a position component", i)
		}
		m.Vertices = append(m.Vertices, r3.Vector{X: 1000. * x, Y: 1000. * y, Z: 1000. * z})

		if nx, ok := plyFloat(vertex["nx"]); ok {
			ny, _ := plyFloat(vertex["ny"])
			nz, _ := plyFloat(vertex["nz"])
			m.Normals = append(m.Normals, r3.Vector{X: nx, Y: ny, Z: nz})
		}
		if s, ok := plyFloat(vertex["s"]); ok {
			t, _ := plyFloat(vertex["t"])
			m.Texcoords = append(m.Texcoords, r2.Point{X: s, Y: t})
		}
		if r, ok := plyUint8(vertex["red"]); ok {
			g, _ := plyUint8(vertex["green"])
			b, _ := plyUint8(vertex["blue"])
			m.Colors = append(m.Colors, color.NRGBA{r, g, b, 255})
		}
	}

	for i, face := range ply.Elements("face") {
		indices, ok := plyIndices(face["vertex_indices"])
		if !ok {
			indices, ok = plyIndices(face["vertex_index"])
		}
		if !ok {
			return nil, errors.Errorf("PLY face %d has no vertex indices", i)
		}
		if len(indices) != 3 {
			return nil, errors.Errorf("PLY face %d has %d vertices, only triangles are supported", i, len(indices))
		}
		for _, idx := range indices {
			if idx < 0 || idx >= len(m.Vertices) {
				return nil, errors.Errorf("PLY face %d references vertex %d out of %d", i, idx, len(m.Vertices))
			}
		}
		m.Faces = append(m.Faces, Face{indices[0], indices[1], indices[2]})
	}

	return m, nil
}

// ReadPLYFile reads a triangle mesh from the PLY file at the given path.
func ReadPLYFile(fn string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ReadPLY(f)
}

// plyFloat coerces a property value parsed by goply into a float64.
func plyFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// plyUint8 coerces a numeric property value into a uint8.
func plyUint8(v interface{}) (uint8, bool) {
	switch n := v.(type) {
	case uint8:
		return n, true
	case int8:
		return uint8(n), true
	case uint16:
		return uint8(n), true
	case int16:
		return uint8(n), true
	case uint32:
		return uint8(n), true
	case int32:
		return uint8(n), true
	case int:
		return uint8(n), true
	case float64:
		return uint8(n), true
	case float32:
		return uint8(n), true
	default:
		return 0, false
	}
}

// plyIndices coerces a list property value into vertex indices.
func plyIndices(v interface{}) ([]int, bool) {
	switch list := v.(type) {
	case []int:
		return list, true
	case []interface{}:
		indices := make([]int, 0, len(list))
		for _, elem := range list {
			idx, ok := plyInt(elem)
			if !ok {
				return nil, false
			}
			indices = append(indices, idx)
		}
		return indices, true
	case []uint32:
		indices := make([]int, 0, len(list))
		for _, elem := range list {
			indices = append(indices, int(elem))
		}
		return indices, true
	case []int32:
		indices := make([]int, 0, len(list))
		for _, elem := range list {
			indices = append(indices, int(elem))
		}
		return indices, true
	default:
		return nil, false
	}
}

func plyInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case uint8:
		return int(n), true
	case int16:
		return int(n), true
	case uint16:
		return int(n), true
	case int32:
		return int(n), true
	case uint32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
