package rimage

import "math"

// DefaultMaxDeltaDepthPercent is the default cutoff for the bilateral
// filter on the relative depth difference between a pixel and its
// neighbors, 5mm at 1 meter.
const DefaultMaxDeltaDepthPercent = 0.005

// DepthBilateralFilter smooths a depth map while preserving depth edges.
// Each pixel is replaced by a gaussian-weighted average over a window of
// diameter d, where neighbors are weighted both by spatial distance
// (sigmaSpace) and by depth difference (sigmaDepth, in mm). Neighbors whose
// depth differs from the center by more than maxDeltaDepthPercent of the
// center depth are excluded entirely, as are pixels with no reading.
func DepthBilateralFilter(dm *DepthMap, d int, sigmaSpace, sigmaDepth, maxDeltaDepthPercent float64) *DepthMap {
	if d < 1 {
		d = 1
	}
	radius := d / 2
	if maxDeltaDepthPercent <= 0 {
		maxDeltaDepthPercent = DefaultMaxDeltaDepthPercent
	}

	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	depthCoeff := -0.5 / (sigmaDepth * sigmaDepth)

	// spatial weights only depend on the window offset
	spaceWeights := make([]float64, 0, (2*radius+1)*(2*radius+1))
	offsets := make([][2]int, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if r2 > float64(radius*radius) {
				continue
			}
			offsets = append(offsets, [2]int{dx, dy})
			spaceWeights = append(spaceWeights, math.Exp(r2*spaceCoeff))
		}
	}

	out := NewEmptyDepthMap(dm.Width(), dm.Height())
	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			center := float64(dm.GetDepth(x, y))
			if center == 0 {
				continue
			}
			maxDelta := center * maxDeltaDepthPercent

			sum, wsum := 0.0, 0.0
			for k, off := range offsets {
				nx, ny := x+off[0], y+off[1]
				if !dm.Contains(nx, ny) {
					continue
				}
				z := float64(dm.GetDepth(nx, ny))
				if z == 0 {
					continue
				}
				delta := math.Abs(z - center)
				if delta > maxDelta {
					continue
				}
				w := spaceWeights[k] * math.Exp(delta*delta*depthCoeff)
				sum += z * w
				wsum += w
			}
			if wsum > 0 {
				out.Set(x, y, Depth(sum/wsum+0.5))
			}
		}
	}
	return out
}
