package pointcloud

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

// filePC returns a cloud whose coordinates survive the float32 meter
// representation of PCD and PLY files exactly.
func filePC(t *testing.T) PointCloud {
	t.Helper()
	pc := NewBasicEmpty()
	test.That(t, pc.Set(NewVector(0, 0, 0), NewColoredData(color.NRGBA{255, 0, 0, 255})), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(125, 250, 500), NewColoredData(color.NRGBA{0, 255, 0, 255})), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(-500, 1000, 250), NewColoredData(color.NRGBA{0, 0, 255, 255})), test.ShouldBeNil)
	return pc
}

func testPCDRoundTrip(t *testing.T, outputType PCDType) {
	t.Helper()
	pc := filePC(t)

	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, outputType), test.ShouldBeNil)

	got, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, pc.Size())
	test.That(t, got.MetaData().HasColor, test.ShouldBeTrue)

	d, found := got.At(125, 250, 500)
	test.That(t, found, test.ShouldBeTrue)
	r, g, b := d.RGB255()
	test.That(t, color.NRGBA{r, g, b, 255}, test.ShouldResemble, color.NRGBA{0, 255, 0, 255})

	_, found = got.At(-500, 1000, 250)
	test.That(t, found, test.ShouldBeTrue)
}

func TestPCDRoundTripAscii(t *testing.T) {
	testPCDRoundTrip(t, PCDAscii)
}

func TestPCDRoundTripBinary(t *testing.T) {
	testPCDRoundTrip(t, PCDBinary)
}

func TestPCDNoColor(t *testing.T) {
	pc := NewBasicEmpty()
	test.That(t, pc.Set(NewVector(125, 0, -250), nil), test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "FIELDS x y z\n")

	got, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 1)
	test.That(t, got.MetaData().HasColor, test.ShouldBeFalse)
	test.That(t, CloudContains(got, 125, 0, -250), test.ShouldBeTrue)
}

func TestPCDBadHeader(t *testing.T) {
	bad := "VERSION .7\nFIELDS a b c\n"
	_, err := ReadPCD(bytes.NewReader([]byte(bad)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported pcd fields")
}

func TestPLYRoundTrip(t *testing.T) {
	pc := filePC(t)

	var buf bytes.Buffer
	test.That(t, ToPLY(pc, &buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "property uchar red")

	got, err := ReadPLY(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, pc.Size())
	test.That(t, got.MetaData().HasColor, test.ShouldBeTrue)

	d, found := got.At(125, 250, 500)
	test.That(t, found, test.ShouldBeTrue)
	r, g, b := d.RGB255()
	test.That(t, color.NRGBA{r, g, b, 255}, test.ShouldResemble, color.NRGBA{0, 255, 0, 255})
}

func TestNewFromFile(t *testing.T) {
	logger := golog.NewTestLogger(t)

	cloud, err := NewFromFile("testdata/simple.pcd", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	test.That(t, CloudContains(cloud, 1000, 0, 0), test.ShouldBeTrue)

	cloud, err = NewFromFile("testdata/simple.ply", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	test.That(t, CloudContains(cloud, 1000, 0, 0), test.ShouldBeTrue)

	_, err = NewFromFile("testdata/simple.xyz", logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read")
}
