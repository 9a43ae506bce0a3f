package pointcloud

import (
	"image/color"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

// makeClouds returns three small clouds, each with its own color, spaced
// 30mm apart along x.
func makeClouds(t *testing.T) []PointCloud {
	t.Helper()
	colors := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
	}
	clouds := make([]PointCloud, 0, len(colors))
	for i, c := range colors {
		cloud := NewBasicEmpty()
		x := float64(30 * i)
		test.That(t, cloud.Set(NewVector(x, 0, 0), NewColoredData(c)), test.ShouldBeNil)
		test.That(t, cloud.Set(NewVector(x, 0, 1), NewColoredData(c)), test.ShouldBeNil)
		test.That(t, cloud.Set(NewVector(x, 1, 0), NewColoredData(c)), test.ShouldBeNil)
		clouds = append(clouds, cloud)
	}
	return clouds
}

// newBigPC returns a dense cloud for benchmarks.
func newBigPC() PointCloud {
	r := rand.New(rand.NewSource(17))
	pc := NewBasicPointCloud(10000)
	for i := 0; i < 10000; i++ {
		p := NewVector(r.Float64()*1000, r.Float64()*1000, r.Float64()*1000)
		if err := pc.Set(p, NewValueData(i)); err != nil {
			panic(err)
		}
	}
	return pc
}
