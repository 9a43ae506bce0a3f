// Package rimage provides depth images, filtering on them, and the pinhole
// camera model used to project them to point clouds.
package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// Depth is the depth of a pixel in millimeters.
type Depth uint16

// MaxDepth is the maximum depth a pixel can have.
const MaxDepth = Depth(0xFFFF)

// DepthMap fulfills the gray16 image interface and represents the depth
// at every pixel of a camera frame, in millimeters. A depth of 0 means
// no reading.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns an unset depth map of the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// NewDepthMapFromData returns a depth map wrapping the given row-major data.
func NewDepthMapFromData(width, height int, data []Depth) (*DepthMap, error) {
	if len(data) != width*height {
		return nil, errors.Errorf("have %d depth values, need %d for a %dx%d depth map",
			len(data), width*height, width, height)
	}
	return &DepthMap{width: width, height: height, data: data}, nil
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// HasData returns whether the depth map has been initialized with data.
func (dm *DepthMap) HasData() bool {
	return dm.width > 0 && dm.data != nil
}

// Width returns the width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle of the depth map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// Contains returns whether the coordinate is inside the depth map.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// Get returns the depth at the given point.
func (dm *DepthMap) Get(p image.Point) Depth {
	return dm.data[dm.kxy(p.X, p.Y)]
}

// GetDepth returns the depth at the given coordinates.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at the given coordinates.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// Clone returns a deep copy of the depth map.
func (dm *DepthMap) Clone() *DepthMap {
	out := NewEmptyDepthMap(dm.width, dm.height)
	copy(out.data, dm.data)
	return out
}

// MinMax returns the minimum nonzero depth and the maximum depth in the map.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	min := MaxDepth
	max := Depth(0)
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	if max == 0 {
		min = 0
	}
	return min, max
}
