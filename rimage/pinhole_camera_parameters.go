package rimage

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/rgbd/pointcloud"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, nil
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// PixelToPoint transforms a pixel with depth to a 3D point.
// The intrinsics parameters should be the ones of the sensor used to obtain the image that
// contains the pixel.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return 0, 0, 0
	}
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a 3D point to a pixel in an image plane.
// The intrinsics parameters should be the ones of the sensor we want to project to.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		xPx := math.Round((x/z)*params.Fx + params.Ppx)
		yPx := math.Round((y/z)*params.Fy + params.Ppy)
		return xPx, yPx
	}
	// if depth is zero at this pixel, return negative coordinates so that cropping to the image bounds filters it out
	return -1.0, -1.0
}

// ImagePointTo3DPoint takes in an image coordinate and a depth and returns the 3D point in the camera frame.
func (params *PinholeCameraIntrinsics) ImagePointTo3DPoint(point image.Point, d Depth) (r3.Vector, error) {
	if err := params.CheckValid(); err != nil {
		return r3.Vector{}, err
	}
	px, py, pz := params.PixelToPoint(float64(point.X), float64(point.Y), float64(d))
	return r3.Vector{X: px, Y: py, Z: pz}, nil
}

// DepthMapToPointCloud projects a depth map to a colorless point cloud.
// Pixels with no depth reading are skipped.
func (params *PinholeCameraIntrinsics) DepthMapToPointCloud(dm *DepthMap) (pointcloud.PointCloud, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if dm == nil {
		return nil, errors.New("no depth channel. Cannot project to pointcloud")
	}
	pc := pointcloud.NewWithPrealloc(dm.Width() * dm.Height())
	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			z := dm.GetDepth(x, y)
			if z == 0 {
				continue
			}
			px, py, pz := params.PixelToPoint(float64(x), float64(y), float64(z))
			if err := pc.Set(pointcloud.NewVector(px, py, pz), pointcloud.NewBasicData()); err != nil {
				return nil, err
			}
		}
	}
	return pc, nil
}

// RGBDToPointCloud takes a color image and a depth map and uses the camera parameters to project
// them to a colored point cloud. The color image is rescaled to the depth dimensions if they
// do not match. An optional crop rectangle restricts the projected region.
func (params *PinholeCameraIntrinsics) RGBDToPointCloud(
	img image.Image, dm *DepthMap,
	crop ...image.Rectangle,
) (pointcloud.PointCloud, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("no rgb channel. Cannot project to pointcloud")
	}
	if dm == nil {
		return nil, errors.New("no depth channel. Cannot project to pointcloud")
	}
	var rect *image.Rectangle
	if len(crop) > 1 {
		return nil, errors.Errorf("cannot have more than one cropping rectangle, got %v", crop)
	}
	if len(crop) == 1 {
		rect = &crop[0]
	}

	if img.Bounds() != dm.Bounds() {
		img = rescaleImage(img, dm.Width(), dm.Height())
	}

	startX, startY := 0, 0
	endX, endY := dm.Width(), dm.Height()
	if rect != nil {
		newBounds := rect.Intersect(dm.Bounds())
		startX, startY = newBounds.Min.X, newBounds.Min.Y
		endX, endY = newBounds.Max.X, newBounds.Max.Y
	}

	pc := pointcloud.NewWithPrealloc((endY - startY) * (endX - startX))
	for y := startY; y < endY; y++ {
		for x := startX; x < endX; x++ {
			z := dm.GetDepth(x, y)
			if z == 0 {
				continue
			}
			px, py, pz := params.PixelToPoint(float64(x), float64(y), float64(z))
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 255
			if err := pc.Set(pointcloud.NewVector(px, py, pz), pointcloud.NewColoredData(c)); err != nil {
				return nil, err
			}
		}
	}
	return pc, nil
}

// PointCloudToRGBD projects a colored point cloud back to a color image and a depth map
// from the perspective of the camera frame.
func (params *PinholeCameraIntrinsics) PointCloudToRGBD(cloud pointcloud.PointCloud) (*image.NRGBA, *DepthMap, error) {
	if err := params.CheckValid(); err != nil {
		return nil, nil, err
	}
	if !cloud.MetaData().HasColor {
		return nil, nil, errors.New("pointcloud has no color information, cannot create an image with depth")
	}
	width, height := params.Width, params.Height
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	depth := NewEmptyDepthMap(width, height)
	cloud.Iterate(0, 0, func(pt r3.Vector, d pointcloud.Data) bool {
		j, i := params.PointToPixel(pt.X, pt.Y, pt.Z)
		x, y := int(math.Round(j)), int(math.Round(i))
		if x >= 0 && x < width && y >= 0 && y < height && d != nil && d.HasColor() {
			r, g, b := d.RGB255()
			img.SetNRGBA(x, y, color.NRGBA{r, g, b, 255})
			depth.Set(x, y, Depth(pt.Z))
		}
		return true
	})
	return img, depth, nil
}

// rescaleImage resizes the image to the given dimensions with bilinear interpolation.
func rescaleImage(img image.Image, width, height int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
