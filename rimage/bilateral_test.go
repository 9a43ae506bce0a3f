package rimage

import (
	"testing"

	"go.viam.com/test"
)

func TestBilateralFilterUniform(t *testing.T) {
	dm := NewEmptyDepthMap(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			dm.Set(x, y, 1000)
		}
	}
	out := DepthBilateralFilter(dm, 5, 2.0, 20.0, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			test.That(t, out.GetDepth(x, y), test.ShouldEqual, Depth(1000))
		}
	}
}

func TestBilateralFilterPreservesEdges(t *testing.T) {
	dm := NewEmptyDepthMap(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				dm.Set(x, y, 1000)
			} else {
				dm.Set(x, y, 2000)
			}
		}
	}
	// the far side is way past 0.5% of the center depth, so the two
	// regions never mix
	out := DepthBilateralFilter(dm, 5, 2.0, 20.0, DefaultMaxDeltaDepthPercent)
	for y := 0; y < 8; y++ {
		test.That(t, out.GetDepth(3, y), test.ShouldEqual, Depth(1000))
		test.That(t, out.GetDepth(4, y), test.ShouldEqual, Depth(2000))
	}
}

func TestBilateralFilterSmoothsNoise(t *testing.T) {
	dm := NewEmptyDepthMap(9, 9)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			dm.Set(x, y, 1000)
		}
	}
	dm.Set(4, 4, 1004)
	out := DepthBilateralFilter(dm, 5, 2.0, 20.0, DefaultMaxDeltaDepthPercent)
	test.That(t, out.GetDepth(4, 4), test.ShouldBeLessThan, Depth(1004))
	test.That(t, out.GetDepth(4, 4), test.ShouldBeGreaterThanOrEqualTo, Depth(1000))
}

func TestBilateralFilterSkipsHoles(t *testing.T) {
	dm := NewEmptyDepthMap(5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			dm.Set(x, y, 1000)
		}
	}
	dm.Set(2, 2, 0)
	out := DepthBilateralFilter(dm, 5, 2.0, 20.0, DefaultMaxDeltaDepthPercent)
	// missing readings stay missing and do not drag neighbors down
	test.That(t, out.GetDepth(2, 2), test.ShouldEqual, Depth(0))
	test.That(t, out.GetDepth(2, 1), test.ShouldEqual, Depth(1000))
}
