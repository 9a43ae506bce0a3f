package pointcloud

import (
	"context"
	"image/color"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/rgbd/spatialmath"
)

// CloudAndOffsetFunc is a function that returns a point cloud with a pose
// that represents an offset to be applied to every point.
type CloudAndOffsetFunc func(ctx context.Context) (PointCloud, spatialmath.Pose, error)

// ApplyOffset takes a point cloud and an offset pose and applies the offset
// to each of the points in the source point cloud, storing the result in dst.
func ApplyOffset(srcpc PointCloud, offset spatialmath.Pose, dstpc PointCloud) error {
	if offset == nil {
		offset = spatialmath.NewZeroPose()
	}
	var err error
	srcpc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		newPoint := spatialmath.TransformPoint(offset, p)
		if setErr := dstpc.Set(newPoint, d); setErr != nil {
			err = setErr
			return false
		}
		return true
	})
	return err
}

// MergePointClouds merges the points and data of each source point cloud, with
// its offset applied, into one destination point cloud.
func MergePointClouds(ctx context.Context, cloudFuncs []CloudAndOffsetFunc, dstpc PointCloud) error {
	if len(cloudFuncs) == 0 {
		return errors.New("no point clouds to merge")
	}
	finalPoints := make(chan []PointAndData, 50)

	var readErr error
	var readErrMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(len(cloudFuncs))
	for _, cloudFunc := range cloudFuncs {
		f := cloudFunc
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			pc, offset, err := f(ctx)
			if err != nil {
				readErrMu.Lock()
				readErr = err
				readErrMu.Unlock()
				return
			}
			var buf []PointAndData
			pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
				if offset != nil {
					p = spatialmath.TransformPoint(offset, p)
				}
				buf = append(buf, PointAndData{P: p, D: d})
				if len(buf) >= 100 {
					finalPoints <- buf
					buf = nil
				}
				return ctx.Err() == nil
			})
			if len(buf) > 0 {
				finalPoints <- buf
			}
		})
	}

	utils.PanicCapturingGo(func() {
		wg.Wait()
		close(finalPoints)
	})

	for pds := range finalPoints {
		for _, pd := range pds {
			if err := dstpc.Set(pd.P, pd.D); err != nil {
				return err
			}
		}
	}
	if readErr != nil {
		return readErr
	}
	return ctx.Err()
}

// MergePointCloudsWithColor creates a union of point clouds from the slice of
// point clouds, giving each element of the slice a unique color.
func MergePointCloudsWithColor(clusters []PointCloud, dstpc PointCloud) error {
	palette := colorful.FastWarmPalette(len(clusters))
	for i, cluster := range clusters {
		var err error
		col, ok := color.NRGBAModel.Convert(palette[i]).(color.NRGBA)
		if !ok {
			return errors.New("impossible color conversion")
		}
		cluster.Iterate(0, 0, func(v r3.Vector, d Data) bool {
			err = dstpc.Set(v, NewColoredData(col))
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
