package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// CloudCentroid returns the centroid of a pointcloud as a vector.
func CloudCentroid(pc PointCloud) r3.Vector {
	if pc == nil || pc.Size() == 0 {
		return r3.Vector{}
	}
	var x, y, z float64
	n := float64(pc.Size())
	pc.Iterate(0, 0, func(pt r3.Vector, d Data) bool {
		x += pt.X
		y += pt.Y
		z += pt.Z
		return true
	})
	return r3.Vector{X: x / n, Y: y / n, Z: z / n}
}

// CloudContains is a silly helper method.
func CloudContains(cloud PointCloud, x, y, z float64) bool {
	_, got := cloud.At(x, y, z)
	return got
}

// CloudMatrixCol is a type that represents the columns of a CloudMatrix.
type CloudMatrixCol int

const (
	// CloudMatrixColX is the x column in the cloud matrix.
	CloudMatrixColX CloudMatrixCol = 0
	// CloudMatrixColY is the y column in the cloud matrix.
	CloudMatrixColY CloudMatrixCol = 1
	// CloudMatrixColZ is the z column in the cloud matrix.
	CloudMatrixColZ CloudMatrixCol = 2
	// CloudMatrixColR is the r column in the cloud matrix.
	CloudMatrixColR CloudMatrixCol = 3
	// CloudMatrixColG is the g column in the cloud matrix.
	CloudMatrixColG CloudMatrixCol = 4
	// CloudMatrixColB is the b column in the cloud matrix.
	CloudMatrixColB CloudMatrixCol = 5
	// CloudMatrixColV is the value column in the cloud matrix.
	CloudMatrixColV CloudMatrixCol = 6
)

// CloudMatrix Returns a Matrix representation of a Cloud along with a Header
// list. The Header list is a list of CloudMatrixCols that correspond to the
// columns in the matrix. The columns are ordered XYZ, then RGB if the cloud
// has color, then V if the cloud has a value.
func CloudMatrix(pc PointCloud) (*mat.Dense, []CloudMatrixCol) {
	if pc.Size() == 0 {
		return nil, nil
	}
	header := []CloudMatrixCol{CloudMatrixColX, CloudMatrixColY, CloudMatrixColZ}
	pointSize := 3
	if pc.MetaData().HasColor {
		header = append(header, CloudMatrixColR, CloudMatrixColG, CloudMatrixColB)
		pointSize += 3
	}
	if pc.MetaData().HasValue {
		header = append(header, CloudMatrixColV)
		pointSize++
	}

	matData := make([]float64, 0, pc.Size()*pointSize)
	pc.Iterate(0, 0, func(pt r3.Vector, d Data) bool {
		matData = append(matData, pt.X, pt.Y, pt.Z)
		if pc.MetaData().HasColor {
			var r, g, b uint8
			if d != nil && d.HasColor() {
				r, g, b = d.RGB255()
			}
			matData = append(matData, float64(r), float64(g), float64(b))
		}
		if pc.MetaData().HasValue {
			v := 0
			if d != nil && d.HasValue() {
				v = d.Value()
			}
			matData = append(matData, float64(v))
		}
		return true
	})
	return mat.NewDense(pc.Size(), pointSize, matData), header
}

// PrunePointClouds removes point clouds from a slice if the point cloud has
// less than nMinPoints in it.
func PrunePointClouds(clouds []PointCloud, nMinPoints int) []PointCloud {
	pruned := make([]PointCloud, 0, len(clouds))
	for _, cloud := range clouds {
		if cloud.Size() >= nMinPoints {
			pruned = append(pruned, cloud)
		}
	}
	return pruned
}

// VectorsToPointCloud converts a list of r3.Vectors into a pointcloud with the
// given color.
func VectorsToPointCloud(vectors []r3.Vector, c color.NRGBA) (PointCloud, error) {
	cloud := NewBasicPointCloud(len(vectors))
	data := &basicData{hasColor: true, c: c}
	for _, v := range vectors {
		if err := cloud.Set(v, data); err != nil {
			return cloud, err
		}
	}
	return cloud, nil
}
