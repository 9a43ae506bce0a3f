package registration

import (
	"math/rand"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-labs/rgbd/pointcloud"
	"github.com/viam-labs/rgbd/spatialmath"
)

func gridCloud(t *testing.T, offset r3.Vector) pointcloud.PointCloud {
	t.Helper()
	pc := pointcloud.NewBasicEmpty()
	r := rand.New(rand.NewSource(42))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			p := r3.Vector{
				X: float64(x)*10 + offset.X,
				Y: float64(y)*10 + offset.Y,
				Z: r.Float64()*5 + offset.Z,
			}
			test.That(t, pc.Set(p, pointcloud.NewBasicData()), test.ShouldBeNil)
		}
	}
	return pc
}

func TestICPConfigCheckValid(t *testing.T) {
	cfg := DefaultICPConfig()
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)
	test.That(t, cfg.MaxIterations, test.ShouldEqual, 20)
	test.That(t, cfg.DistanceThresholdMM, test.ShouldEqual, 50.)
	test.That(t, cfg.OutlierRejectionRatio, test.ShouldEqual, 0.05)

	cfg = DefaultICPConfig()
	cfg.MaxIterations = 0
	err := cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid max iterations")

	cfg = DefaultICPConfig()
	cfg.DistanceThresholdMM = -1
	err = cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid distance threshold")

	cfg = DefaultICPConfig()
	cfg.OutlierRejectionRatio = 1
	err = cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid outlier rejection ratio")

	cfg = DefaultICPConfig()
	cfg.NumThreads = -2
	err = cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid thread count")
}

func TestNewICPEstimator(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := NewICPEstimator(nil, DefaultICPConfig(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "empty target")

	_, err = NewICPEstimator(pointcloud.NewBasicEmpty(), DefaultICPConfig(), logger)
	test.That(t, err, test.ShouldNotBeNil)

	cfg := DefaultICPConfig()
	cfg.MaxIterations = 0
	_, err = NewICPEstimator(gridCloud(t, r3.Vector{}), cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)

	est, err := NewICPEstimator(gridCloud(t, r3.Vector{}), DefaultICPConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est, test.ShouldNotBeNil)
}

func TestEstimatePose(t *testing.T) {
	logger := golog.NewTestLogger(t)
	target := gridCloud(t, r3.Vector{})
	source := gridCloud(t, r3.Vector{X: 3, Y: -2, Z: 1})

	est, err := NewICPEstimator(target, DefaultICPConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	res, err := est.EstimatePose(source, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Aligned.Size(), test.ShouldEqual, source.Size())
	test.That(t, res.Inliers, test.ShouldEqual, source.Size())
	test.That(t, res.RMSE, test.ShouldBeLessThan, 3.)
	test.That(t, res.RMSE, test.ShouldBeGreaterThanOrEqualTo, 0.)

	// the recovered translation undoes most of the offset
	pt := res.Pose.Point()
	test.That(t, pt.Norm(), test.ShouldBeGreaterThan, 1.)
}

func TestEstimatePoseWithGuess(t *testing.T) {
	logger := golog.NewTestLogger(t)
	target := gridCloud(t, r3.Vector{})
	source := gridCloud(t, r3.Vector{X: 3, Y: -2, Z: 1})

	est, err := NewICPEstimator(target, DefaultICPConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	// seeding with the exact inverse offset converges immediately
	guess := spatialmath.NewPoseFromPoint(r3.Vector{X: -3, Y: 2, Z: -1})
	res, err := est.EstimatePose(source, guess)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.RMSE, test.ShouldBeLessThan, 1.)
	test.That(t, res.Inliers, test.ShouldEqual, source.Size())
}

func TestEstimatePoseErrors(t *testing.T) {
	logger := golog.NewTestLogger(t)
	target := gridCloud(t, r3.Vector{})

	est, err := NewICPEstimator(target, DefaultICPConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	_, err = est.EstimatePose(nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "empty point cloud")

	_, err = est.EstimatePose(pointcloud.NewBasicEmpty(), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimatePoseNoInliers(t *testing.T) {
	logger := golog.NewTestLogger(t)
	target := gridCloud(t, r3.Vector{})

	cfg := DefaultICPConfig()
	cfg.MaxIterations = 1
	cfg.OutlierRejectionRatio = 0
	cfg.DistanceThresholdMM = 1e-6
	est, err := NewICPEstimator(target, cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	// two points half a grid cell apart can never both land on the target,
	// so nothing passes the tiny threshold
	source := pointcloud.NewBasicEmpty()
	test.That(t, source.Set(r3.Vector{X: 40, Y: 40, Z: 2}, pointcloud.NewBasicData()), test.ShouldBeNil)
	test.That(t, source.Set(r3.Vector{X: 45, Y: 40, Z: 2}, pointcloud.NewBasicData()), test.ShouldBeNil)

	_, err = est.EstimatePose(source, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no source point within")
}
