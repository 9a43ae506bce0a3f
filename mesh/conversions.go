package mesh

import (
	"image"
	"image/color"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/viam-labs/rgbd/pointcloud"
	"github.com/viam-labs/rgbd/rimage"
)

// ToPointCloud returns the mesh vertices as a point cloud, keeping colors
// when present. Faces are dropped.
func (m *Mesh) ToPointCloud() (pointcloud.PointCloud, error) {
	pc := pointcloud.NewWithPrealloc(len(m.Vertices))
	hasColors := m.HasColors()
	for i, v := range m.Vertices {
		var d pointcloud.Data
		if hasColors {
			d = pointcloud.NewColoredData(m.Colors[i])
		}
		if err := pc.Set(v, d); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

// NewFromPointCloud returns a face-less mesh with one vertex per cloud point.
func NewFromPointCloud(cloud pointcloud.PointCloud) *Mesh {
	m := New()
	hasColor := cloud.MetaData().HasColor
	cloud.Iterate(0, 0, func(pos r3.Vector, d pointcloud.Data) bool {
		m.Vertices = append(m.Vertices, pos)
		if hasColor {
			c := color.NRGBA{255, 255, 255, 255}
			if d != nil && d.HasColor() {
				r, g, b := d.RGB255()
				c = color.NRGBA{r, g, b, 255}
			}
			m.Colors = append(m.Colors, c)
		}
		return true
	})
	return m
}

// NewFromDepthMap triangulates a depth map into a mesh by connecting
// neighboring pixels, using the camera parameters to project pixels to 3D.
// Triangles with an edge longer than maxEdgeMM are dropped, which keeps
// depth discontinuities from being bridged. If img is non-nil it must have
// the depth map dimensions and provides per-vertex colors. Texture
// coordinates are generated from the pixel grid.
func NewFromDepthMap(
	dm *rimage.DepthMap,
	img image.Image,
	params *rimage.PinholeCameraIntrinsics,
	maxEdgeMM float64,
) (*Mesh, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if dm == nil {
		return nil, errors.New("no depth channel. Cannot triangulate")
	}
	if img != nil && img.Bounds() != dm.Bounds() {
		return nil, errors.Errorf("depth map and color dimensions don't match Depth(%d,%d) != Color(%d,%d)",
			dm.Width(), dm.Height(), img.Bounds().Dx(), img.Bounds().Dy())
	}
	if maxEdgeMM <= 0 {
		return nil, errors.Errorf("invalid maximum edge length %f", maxEdgeMM)
	}

	width, height := dm.Width(), dm.Height()
	texDenomX, texDenomY := float64(width-1), float64(height-1)
	if width < 2 {
		texDenomX = 1
	}
	if height < 2 {
		texDenomY = 1
	}
	m := New()

	vertexIndex := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			z := dm.GetDepth(x, y)
			if z == 0 {
				vertexIndex[y*width+x] = -1
				continue
			}
			px, py, pz := params.PixelToPoint(float64(x), float64(y), float64(z))
			vertexIndex[y*width+x] = len(m.Vertices)
			m.Vertices = append(m.Vertices, r3.Vector{X: px, Y: py, Z: pz})
			m.Texcoords = append(m.Texcoords, r2.Point{
				X: float64(x) / texDenomX,
				Y: float64(y) / texDenomY,
			})
			if img != nil {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				c.A = 255
				m.Colors = append(m.Colors, c)
			}
		}
	}

	maxEdgeSq := maxEdgeMM * maxEdgeMM
	shortEnough := func(a, b int) bool {
		return m.Vertices[a].Sub(m.Vertices[b]).Norm2() <= maxEdgeSq
	}

	for y := 0; y+1 < height; y++ {
		for x := 0; x+1 < width; x++ {
			v00 := vertexIndex[y*width+x]
			v10 := vertexIndex[y*width+x+1]
			v01 := vertexIndex[(y+1)*width+x]
			v11 := vertexIndex[(y+1)*width+x+1]

			if v00 >= 0 && v01 >= 0 && v10 >= 0 &&
				shortEnough(v00, v01) && shortEnough(v01, v10) && shortEnough(v10, v00) {
				m.Faces = append(m.Faces, Face{v00, v01, v10})
			}
			if v10 >= 0 && v01 >= 0 && v11 >= 0 &&
				shortEnough(v10, v01) && shortEnough(v01, v11) && shortEnough(v11, v10) {
				m.Faces = append(m.Faces, Face{v10, v01, v11})
			}
		}
	}

	m.ComputeNormalsFromFaces()
	return m, nil
}
