package registration

import (
	"image"

	"github.com/pkg/errors"

	"github.com/viam-labs/rgbd/rimage"
	"github.com/viam-labs/rgbd/spatialmath"
)

// RGBDFrame is a color image with its registered depth map. The color
// image may be nil for depth-only estimation.
type RGBDFrame struct {
	Color image.Image
	Depth *rimage.DepthMap
}

// EstimatePoseFromRGBD smooths the frame's depth map with a bilateral
// filter, projects it to a point cloud with the camera parameters, and
// aligns the cloud to the estimator's target.
func (e *ICPEstimator) EstimatePoseFromRGBD(
	frame RGBDFrame,
	params *rimage.PinholeCameraIntrinsics,
	guess spatialmath.Pose,
) (EstimateResult, error) {
	if err := params.CheckValid(); err != nil {
		return EstimateResult{}, err
	}
	if frame.Depth == nil {
		return EstimateResult{}, errors.New("frame has no depth channel")
	}

	filtered := rimage.DepthBilateralFilter(frame.Depth, 5, 2.0, 20.0, rimage.DefaultMaxDeltaDepthPercent)

	if frame.Color != nil {
		pc, err := params.RGBDToPointCloud(frame.Color, filtered)
		if err != nil {
			return EstimateResult{}, err
		}
		return e.EstimatePose(pc, guess)
	}
	pc, err := params.DepthMapToPointCloud(filtered)
	if err != nil {
		return EstimateResult{}, err
	}
	return e.EstimatePose(pc, guess)
}
