package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	// Points are stored as float64 but must survive a round trip through the
	// float32 fields of PCD and PLY files without losing integer precision.
	maxPreciseFloat64 = float64(1 << 24)
	minPreciseFloat64 = -float64(1 << 24)
)

func newOutOfRangeErr(dim string, val float64) error {
	return errors.Errorf("%s component (%v) is out of range [%v,%v]", dim, val, minPreciseFloat64, maxPreciseFloat64)
}

// basicPointCloud is the basic implementation of the PointCloud interface
// backed by an ordered matrixStorage.
type basicPointCloud struct {
	points storage
	meta   MetaData
}

// New returns an empty PointCloud backed by a basicPointCloud.
func New() PointCloud {
	return NewBasicPointCloud(0)
}

// NewBasicEmpty returns an empty PointCloud backed by a basicPointCloud.
func NewBasicEmpty() PointCloud {
	return NewBasicPointCloud(0)
}

// NewWithPrealloc returns an empty, preallocated PointCloud backed by a
// basicPointCloud.
func NewWithPrealloc(size int) PointCloud {
	return NewBasicPointCloud(size)
}

// NewBasicPointCloud returns a PointCloud with preallocated storage for the
// given number of points.
func NewBasicPointCloud(size int) PointCloud {
	return &basicPointCloud{
		points: &matrixStorage{points: make([]PointAndData, 0, size), indexMap: make(map[r3.Vector]uint, size)},
		meta:   NewMetaData(),
	}
}

func (cloud *basicPointCloud) Size() int {
	return cloud.points.Size()
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) At(x, y, z float64) (Data, bool) {
	return cloud.points.At(x, y, z)
}

// Set validates that the point can be precisely stored before setting it in
// the cloud.
func (cloud *basicPointCloud) Set(p r3.Vector, d Data) error {
	if p.X > maxPreciseFloat64 || p.X < minPreciseFloat64 {
		return newOutOfRangeErr("x", p.X)
	}
	if p.Y > maxPreciseFloat64 || p.Y < minPreciseFloat64 {
		return newOutOfRangeErr("y", p.Y)
	}
	if p.Z > maxPreciseFloat64 || p.Z < minPreciseFloat64 {
		return newOutOfRangeErr("z", p.Z)
	}
	_, pointExists := cloud.At(p.X, p.Y, p.Z)
	if err := cloud.points.Set(p, d); err != nil {
		return err
	}
	if !pointExists {
		cloud.meta.Merge(p, d)
	}
	return nil
}

func (cloud *basicPointCloud) Unset(x, y, z float64) {
	cloud.points.Unset(x, y, z)
}

func (cloud *basicPointCloud) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	cloud.points.Iterate(numBatches, myBatch, fn)
}
