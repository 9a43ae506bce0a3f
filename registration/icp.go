// Package registration estimates the relative pose between point clouds
// captured by an RGBD camera, by iterative closest point alignment with
// outlier rejection.
package registration

import (
	"math"
	"runtime"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/rgbd/pointcloud"
	"github.com/viam-labs/rgbd/spatialmath"
)

// ICPConfig tunes the iterative closest point alignment.
type ICPConfig struct {
	// MaxIterations caps the number of align-then-reject rounds.
	MaxIterations int `json:"max_iterations"`
	// DistanceThresholdMM is the maximum distance for a source point to
	// count as matched to the target.
	DistanceThresholdMM float64 `json:"distance_threshold_mm"`
	// OutlierRejectionRatio is the fraction of worst correspondences
	// dropped before each refinement round.
	OutlierRejectionRatio float64 `json:"outlier_rejection_ratio"`
	// NumThreads is the parallelism for residual computation. Zero means
	// one goroutine per logical CPU.
	NumThreads int `json:"num_threads"`
}

// DefaultICPConfig returns the configuration used when none is given.
func DefaultICPConfig() ICPConfig {
	return ICPConfig{
		MaxIterations:         20,
		DistanceThresholdMM:   50.,
		OutlierRejectionRatio: 0.05,
		NumThreads:            0,
	}
}

// CheckValid checks the config fields for valid inputs.
func (cfg *ICPConfig) CheckValid() error {
	if cfg.MaxIterations < 1 {
		return errors.Errorf("invalid max iterations %d", cfg.MaxIterations)
	}
	if cfg.DistanceThresholdMM <= 0 {
		return errors.Errorf("invalid distance threshold %f", cfg.DistanceThresholdMM)
	}
	if cfg.OutlierRejectionRatio < 0 || cfg.OutlierRejectionRatio >= 1 {
		return errors.Errorf("invalid outlier rejection ratio %f", cfg.OutlierRejectionRatio)
	}
	if cfg.NumThreads < 0 {
		return errors.Errorf("invalid thread count %d", cfg.NumThreads)
	}
	return nil
}

// EstimateResult is the outcome of a pose estimation.
type EstimateResult struct {
	// Pose maps source coordinates into the target frame.
	Pose spatialmath.Pose
	// Aligned is the source cloud transformed by Pose.
	Aligned pointcloud.PointCloud
	// RMSE is the root mean square distance of the inlier correspondences.
	RMSE float64
	// Inliers is the number of source points within the distance threshold
	// of the target.
	Inliers int
}

// ICPEstimator estimates the pose of source point clouds relative to a
// fixed target cloud.
type ICPEstimator struct {
	target *pointcloud.KDTree
	cfg    ICPConfig
	logger golog.Logger
}

// NewICPEstimator returns an estimator aligning against the given target
// cloud.
func NewICPEstimator(target pointcloud.PointCloud, cfg ICPConfig, logger golog.Logger) (*ICPEstimator, error) {
	if target == nil || target.Size() == 0 {
		return nil, errors.New("cannot estimate poses against an empty target")
	}
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &ICPEstimator{
		target: pointcloud.ToKDTree(target),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// EstimatePose aligns the source cloud to the target and returns the
// relative pose. The guess seeds the optimization and may be nil.
func (e *ICPEstimator) EstimatePose(source pointcloud.PointCloud, guess spatialmath.Pose) (EstimateResult, error) {
	if source == nil || source.Size() == 0 {
		return EstimateResult{}, errors.New("cannot estimate the pose of an empty point cloud")
	}
	if guess == nil {
		guess = spatialmath.NewZeroPose()
	}

	pose := guess
	working := source
	prevMeanDist := math.Inf(1)
	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		_, info, err := pointcloud.RegisterPointCloudICP(working, e.target, pose, false)
		if err != nil {
			return EstimateResult{}, err
		}
		pose = info.Transform
		if e.logger != nil {
			e.logger.Debugf("icp round %d: mean distance %.4fmm", iter, info.MeanDistMM)
		}

		if prevMeanDist-info.MeanDistMM < 1e-6 {
			break
		}
		prevMeanDist = info.MeanDistMM

		if e.cfg.OutlierRejectionRatio > 0 && iter+1 < e.cfg.MaxIterations {
			working, err = e.rejectOutliers(source, pose)
			if err != nil {
				return EstimateResult{}, err
			}
			if working.Size() == 0 {
				return EstimateResult{}, errors.New("outlier rejection removed every point")
			}
		}
	}

	return e.buildResult(source, pose)
}

// rejectOutliers drops the worst fraction of source points by residual
// distance under the given pose.
func (e *ICPEstimator) rejectOutliers(source pointcloud.PointCloud, pose spatialmath.Pose) (pointcloud.PointCloud, error) {
	points, residuals := e.residuals(source, pose)
	cutoff, err := stats.Percentile(residuals, 100.*(1.-e.cfg.OutlierRejectionRatio))
	if err != nil {
		return nil, errors.Wrap(err, "cannot compute the outlier cutoff")
	}

	inliers := pointcloud.NewWithPrealloc(len(points))
	for i, pd := range points {
		if residuals[i] > cutoff {
			continue
		}
		if err := inliers.Set(pd.P, pd.D); err != nil {
			return nil, err
		}
	}
	return inliers, nil
}

// buildResult transforms the source by the final pose and scores the
// alignment against the distance threshold.
func (e *ICPEstimator) buildResult(source pointcloud.PointCloud, pose spatialmath.Pose) (EstimateResult, error) {
	points, residuals := e.residuals(source, pose)

	aligned := pointcloud.NewWithPrealloc(len(points))
	sumSq := 0.
	inliers := 0
	for i, pd := range points {
		if err := aligned.Set(spatialmath.TransformPoint(pose, pd.P), pd.D); err != nil {
			return EstimateResult{}, err
		}
		if residuals[i] <= e.cfg.DistanceThresholdMM {
			sumSq += residuals[i] * residuals[i]
			inliers++
		}
	}
	if inliers == 0 {
		return EstimateResult{}, errors.Errorf("no source point within %fmm of the target", e.cfg.DistanceThresholdMM)
	}

	return EstimateResult{
		Pose:    pose,
		Aligned: aligned,
		RMSE:    math.Sqrt(sumSq / float64(inliers)),
		Inliers: inliers,
	}, nil
}

// residuals returns the source points and their nearest neighbor distance
// to the target under the given pose. Points with no neighbor get an
// infinite residual.
func (e *ICPEstimator) residuals(source pointcloud.PointCloud, pose spatialmath.Pose) ([]pointcloud.PointAndData, []float64) {
	points := make([]pointcloud.PointAndData, 0, source.Size())
	source.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		points = append(points, pointcloud.PointAndData{P: p, D: d})
		return true
	})

	numThreads := e.cfg.NumThreads
	if numThreads < 1 {
		numThreads = runtime.GOMAXPROCS(0)
	}
	if numThreads > len(points) {
		numThreads = 1
	}

	residuals := make([]float64, len(points))
	doneChan := make(chan struct{}, numThreads)
	for thread := 0; thread < numThreads; thread++ {
		threadCopy := thread
		utils.PanicCapturingGo(func() {
			for i := threadCopy; i < len(points); i += numThreads {
				pt := spatialmath.TransformPoint(pose, points[i].P)
				_, _, dist, found := e.target.NearestNeighbor(pt)
				if !found {
					dist = math.Inf(1)
				}
				residuals[i] = dist
			}
			doneChan <- struct{}{}
		})
	}
	for thread := 0; thread < numThreads; thread++ {
		<-doneChan
	}
	return points, residuals
}
