package pointcloud

import (
	"math"
	"runtime"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/viam-labs/rgbd/spatialmath"
)

// RegistrationInfo holds the results of the ICP registration optimization.
type RegistrationInfo struct {
	OptResult optimize.Result
	Transform spatialmath.Pose
	// MeanDistMM is the mean correspondence distance after alignment.
	MeanDistMM float64
}

// PoseToVector converts a pose into a 6dof optimization vector
// [x y z roll pitch yaw].
func PoseToVector(p spatialmath.Pose) []float64 {
	pt := p.Point()
	ea := p.Orientation().EulerAngles()
	return []float64{pt.X, pt.Y, pt.Z, ea.Roll, ea.Pitch, ea.Yaw}
}

// VectorToPose converts a 6dof optimization vector into a pose.
func VectorToPose(x []float64) spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: x[0], Y: x[1], Z: x[2]},
		&spatialmath.EulerAngles{Roll: x[3], Pitch: x[4], Yaw: x[5]},
	)
}

// RegisterPointCloudICP registers a point cloud to a reference point cloud,
// starting from an initial guess, using iterative closest point. The returned
// cloud is the source cloud transformed by the estimated pose.
func RegisterPointCloudICP(
	pcSrc PointCloud,
	target *KDTree,
	guess spatialmath.Pose,
	debug bool,
) (PointCloud, RegistrationInfo, error) {
	if pcSrc.Size() == 0 {
		return nil, RegistrationInfo{}, errors.New("cannot register an empty point cloud")
	}
	if target == nil || target.Size() == 0 {
		return nil, RegistrationInfo{}, errors.New("cannot register against an empty target")
	}
	if guess == nil {
		guess = spatialmath.NewZeroPose()
	}

	sourcePoints := make([]PointAndData, 0, pcSrc.Size())
	pcSrc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		sourcePoints = append(sourcePoints, PointAndData{P: p, D: d})
		return true
	})

	numThreads := runtime.GOMAXPROCS(0)
	if numThreads > len(sourcePoints) {
		numThreads = 1
	}

	optFunc := func(x []float64) float64 {
		pose := VectorToPose(x)
		distChan := make(chan float64, numThreads)
		for thread := 0; thread < numThreads; thread++ {
			threadCopy := thread
			utils.PanicCapturingGo(func() {
				total := 0.
				for i := threadCopy; i < len(sourcePoints); i += numThreads {
					pt := spatialmath.TransformPoint(pose, sourcePoints[i].P)
					_, _, dist, found := target.NearestNeighbor(pt)
					if found {
						total += dist
					}
				}
				distChan <- total
			})
		}
		totalDist := 0.
		for thread := 0; thread < numThreads; thread++ {
			totalDist += <-distChan
		}
		return totalDist / float64(len(sourcePoints))
	}

	gradFunc := func(grad, x []float64) {
		fd.Gradient(grad, optFunc, x, nil)
	}

	prob := optimize.Problem{Func: optFunc, Grad: gradFunc}
	x0 := PoseToVector(guess)

	settings := &optimize.Settings{
		GradientThreshold: 0,
		Converger: &optimize.FunctionConverge{
			Relative:   1e-10,
			Absolute:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(prob, x0, settings, &optimize.BFGS{})
	if err != nil && res == nil {
		return nil, RegistrationInfo{}, err
	}
	if debug {
		golog.Global().Debugf("ICP optimization status: %v, F: %f, evaluations: %d",
			res.Status, res.F, res.FuncEvaluations)
	}

	pose := VectorToPose(res.X)
	registeredPointCloud := NewWithPrealloc(pcSrc.Size())
	totalDist := 0.
	for _, pd := range sourcePoints {
		pt := spatialmath.TransformPoint(pose, pd.P)
		if setErr := registeredPointCloud.Set(pt, pd.D); setErr != nil {
			return nil, RegistrationInfo{}, setErr
		}
		_, _, dist, found := target.NearestNeighbor(pt)
		if found {
			totalDist += dist
		}
	}

	info := RegistrationInfo{
		OptResult:  *res,
		Transform:  pose,
		MeanDistMM: totalDist / float64(len(sourcePoints)),
	}
	if math.IsNaN(info.MeanDistMM) {
		return nil, RegistrationInfo{}, errors.New("ICP produced a non-finite alignment error")
	}
	return registeredPointCloud, info, nil
}
