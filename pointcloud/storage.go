package pointcloud

import (
	"github.com/golang/geo/r3"
)

// storage is the backing store of a point cloud. Implementations may or may
// not preserve insertion order during iteration.
type storage interface {
	Size() int
	Set(p r3.Vector, d Data) error
	Unset(x, y, z float64)
	At(x, y, z float64) (Data, bool)
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
	IsOrdered() bool
}

// mapStorage is a storage implementation backed by a bare map. Iteration
// order is random.
type mapStorage struct {
	points map[r3.Vector]Data
}

func (ms *mapStorage) Size() int {
	return len(ms.points)
}

func (ms *mapStorage) IsOrdered() bool {
	return false
}

func (ms *mapStorage) Set(p r3.Vector, d Data) error {
	ms.points[p] = d
	return nil
}

func (ms *mapStorage) Unset(x, y, z float64) {
	delete(ms.points, r3.Vector{X: x, Y: y, Z: z})
}

func (ms *mapStorage) At(x, y, z float64) (Data, bool) {
	d, found := ms.points[r3.Vector{X: x, Y: y, Z: z}]
	return d, found
}

func (ms *mapStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	// without order, batches are assigned by a running counter
	count := 0
	for p, d := range ms.points {
		if numBatches > 0 && count%numBatches != myBatch {
			count++
			continue
		}
		if cont := fn(p, d); !cont {
			return
		}
		count++
	}
}

// matrixStorage is an ordered storage implementation: a slice of points plus
// an index map for constant time lookup.
type matrixStorage struct {
	points   []PointAndData
	indexMap map[r3.Vector]uint
}

func (ms *matrixStorage) Size() int {
	return len(ms.points)
}

func (ms *matrixStorage) IsOrdered() bool {
	return true
}

func (ms *matrixStorage) Set(p r3.Vector, d Data) error {
	if i, found := ms.indexMap[p]; found {
		ms.points[i].D = d
		return nil
	}
	ms.points = append(ms.points, PointAndData{P: p, D: d})
	ms.indexMap[p] = uint(len(ms.points) - 1)
	return nil
}

// Unset swaps the removed point with the last point to keep removal constant
// time. Relative order of surviving points is not preserved.
func (ms *matrixStorage) Unset(x, y, z float64) {
	p := r3.Vector{X: x, Y: y, Z: z}
	i, found := ms.indexMap[p]
	if !found {
		return
	}
	last := len(ms.points) - 1
	if int(i) != last {
		ms.points[i] = ms.points[last]
		ms.indexMap[ms.points[i].P] = i
	}
	ms.points = ms.points[:last]
	delete(ms.indexMap, p)
}

func (ms *matrixStorage) At(x, y, z float64) (Data, bool) {
	i, found := ms.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	if !found {
		return nil, false
	}
	return ms.points[i].D, true
}

func (ms *matrixStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	if numBatches <= 0 {
		for _, pd := range ms.points {
			if cont := fn(pd.P, pd.D); !cont {
				return
			}
		}
		return
	}
	batchSize := (len(ms.points) + numBatches - 1) / numBatches
	start := myBatch * batchSize
	if start >= len(ms.points) {
		return
	}
	end := start + batchSize
	if end > len(ms.points) {
		end = len(ms.points)
	}
	for _, pd := range ms.points[start:end] {
		if cont := fn(pd.P, pd.D); !cont {
			return
		}
	}
}
