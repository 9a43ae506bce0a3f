package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

func sortByDistance(pds []*PointAndData, from r3.Vector) {
	sort.Slice(pds, func(i, j int) bool {
		return from.Sub(pds[i].P).Norm2() < from.Sub(pds[j].P).Norm2()
	})
}

// kdPoint wraps a point and its data for storage in a gonum kd tree.
type kdPoint struct {
	position r3.Vector
	data     Data
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	switch d {
	case 0:
		return p.position.X - q.position.X
	case 1:
		return p.position.Y - q.position.Y
	default:
		return p.position.Z - q.position.Z
	}
}

func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, per the gonum convention.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	return p.position.Sub(q.position).Norm2()
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p kdPoints) Len() int                      { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int {
	return kdPlane{Dim: d, kdPoints: p}.Pivot()
}

func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// kdPlane is a sorting helper over a single dimension.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].Compare(p.kdPoints[j], p.Dim) < 0
}
func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

// KDTree is a nearest neighbor index over the points of a point cloud.
type KDTree struct {
	tree *kdtree.Tree
	meta MetaData
	size int
}

// ToKDTree creates a KDTree from a point cloud.
func ToKDTree(pc PointCloud) *KDTree {
	points := make(kdPoints, 0, pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		points = append(points, kdPoint{position: p, data: d})
		return true
	})
	return &KDTree{
		tree: kdtree.New(points, false),
		meta: pc.MetaData(),
		size: len(points),
	}
}

// Size returns the number of points indexed by the tree.
func (kd *KDTree) Size() int {
	return kd.size
}

// MetaData returns the meta data of the cloud the tree was built from.
func (kd *KDTree) MetaData() MetaData {
	return kd.meta
}

// NearestNeighbor returns the nearest point and its data to the given point,
// the distance between them, and whether a neighbor was found at all.
func (kd *KDTree) NearestNeighbor(p r3.Vector) (r3.Vector, Data, float64, bool) {
	c, distSq := kd.tree.Nearest(kdPoint{position: p})
	if c == nil {
		return r3.Vector{}, nil, 0.0, false
	}
	p2, ok := c.(kdPoint)
	if !ok {
		panic("kd tree produced non-kdPoint neighbor")
	}
	return p2.position, p2.data, math.Sqrt(distSq), true
}

// KNearestNeighbors returns the k nearest points in ascending order of
// distance. If includeSelf is false, an exact match of p is excluded.
func (kd *KDTree) KNearestNeighbors(p r3.Vector, k int, includeSelf bool) []*PointAndData {
	keep := kdtree.NewNKeeper(k + 1)
	kd.tree.NearestSet(keep, kdPoint{position: p})

	found := make([]*PointAndData, 0, keep.Len())
	for _, cd := range keep.Heap {
		pp, ok := cd.Comparable.(kdPoint)
		if !ok {
			continue
		}
		if !includeSelf && p.Sub(pp.position).Norm2() == 0 {
			continue
		}
		found = append(found, &PointAndData{P: pp.position, D: pp.data})
	}
	// the keeper heap is not sorted; order by distance from the query point
	sortByDistance(found, p)
	if len(found) > k {
		found = found[:k]
	}
	return found
}

// RadiusNearestNeighbors returns all points within the given radius of p in
// ascending order of distance. If includeSelf is false, an exact match of p
// is excluded.
func (kd *KDTree) RadiusNearestNeighbors(p r3.Vector, r float64, includeSelf bool) []*PointAndData {
	keep := kdtree.NewDistKeeper(r * r)
	kd.tree.NearestSet(keep, kdPoint{position: p})

	found := make([]*PointAndData, 0, keep.Len())
	for _, cd := range keep.Heap {
		pp, ok := cd.Comparable.(kdPoint)
		if !ok {
			continue
		}
		if !includeSelf && p.Sub(pp.position).Norm2() == 0 {
			continue
		}
		found = append(found, &PointAndData{P: pp.position, D: pp.data})
	}
	sortByDistance(found, p)
	return found
}
