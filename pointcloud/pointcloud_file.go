package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chenzhekl/goply"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-labs/rgbd/spatialmath"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// NewFromFile returns a pointcloud read in from the given file.
func NewFromFile(fn string, logger golog.Logger) (PointCloud, error) {
	var read func(io.Reader) (PointCloud, error)
	switch filepath.Ext(fn) {
	case ".pcd":
		read = ReadPCD
	case ".ply":
		read = ReadPLY
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}

	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	pc, err := read(f)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debugf("read %d points from %q", pc.Size(), fn)
	}
	return pc, nil
}

// ReadPLY reads the vertex element of a PLY file into a point cloud. Vertex
// colors are kept if present; faces and the other elements are ignored.
func ReadPLY(in io.Reader) (PointCloud, error) {
	ply := goply.New(in)
	vertices := ply.Elements("vertex")
	pc := NewWithPrealloc(len(vertices))
	for i, vertex := range vertices {
		x, xok := plyFloat(vertex["x"])
		y, yok := plyFloat(vertex["y"])
		z, zok := plyFloat(vertex["z"])
		if !xok || !yok || !zok {
			return nil, errors.Errorf("PLY vertex %d is missing a position component", i)
		}
		pos := r3.Vector{X: 1000. * x, Y: 1000. * y, Z: 1000. * z}

		var d Data
		if r, rok := plyUint8(vertex["red"]); rok {
			g, _ := plyUint8(vertex["green"])
			b, _ := plyUint8(vertex["blue"])
			d = NewColoredData(color.NRGBA{r, g, b, 255})
		}
		if err := pc.Set(pos, d); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

// plyFloat coerces a property value parsed by goply into a float64.
func plyFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// plyUint8 coerces a numeric property value into a uint8.
func plyUint8(v interface{}) (uint8, bool) {
	switch n := v.(type) {
	case uint8:
		return n, true
	case int8:
		return uint8(n), true
	case uint16:
		return uint8(n), true
	case int16:
		return uint8(n), true
	case uint32:
		return uint8(n), true
	case int32:
		return uint8(n), true
	case int:
		return uint8(n), true
	case float64:
		return uint8(n), true
	case float32:
		return uint8(n), true
	default:
		return 0, false
	}
}

// ToPLY writes the point cloud out as an ascii PLY file with vertex elements
// only. Use the mesh package for meshes with faces.
func ToPLY(cloud PointCloud, out io.Writer) error {
	hasColor := cloud.MetaData().HasColor
	var err error
	if _, err = fmt.Fprintf(out, "ply\nformat ascii 1.0\nelement vertex %d\n", cloud.Size()); err != nil {
		return err
	}
	if _, err = fmt.Fprintf(out, "property float x\nproperty float y\nproperty float z\n"); err != nil {
		return err
	}
	if hasColor {
		if _, err = fmt.Fprintf(out, "property uchar red\nproperty uchar green\nproperty uchar blue\n"); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(out, "end_header\n"); err != nil {
		return err
	}
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		if hasColor {
			r, g, b := uint8(255), uint8(255), uint8(255)
			if d != nil && d.HasColor() {
				r, g, b = d.RGB255()
			}
			_, err = fmt.Fprintf(out, "%f %f %f %d %d %d\n", pos.X/1000., pos.Y/1000., pos.Z/1000., r, g, b)
		} else {
			_, err = fmt.Fprintf(out, "%f %f %f\n", pos.X/1000., pos.Y/1000., pos.Z/1000.)
		}
		return err == nil
	})
	return err
}

func _colorToPCDInt(pt Data) int {
	if pt == nil || !pt.HasColor() {
		return 255 << 16
	}

	r, g, b := pt.RGB255()
	x := 0

	x |= (int(r) << 16)
	x |= (int(g) << 8)
	x |= (int(b) << 0)
	return x
}

func _pcdIntToColor(c int) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// ToPCD writes out a point cloud to a PCD file of the specified type.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n")
	if err != nil {
		return err
	}
	if cloud.MetaData().HasColor {
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F I\n"+
			"COUNT 1 1 1 1\n")
	} else {
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(),
		1,
		cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
		if err != nil {
			return err
		}
	case PCDAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
		if err != nil {
			return err
		}
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	}
	return writePCDData(cloud, out, outputType)
}

// WriteToPCDFile writes the point cloud out to a PCD file at the given path.
func WriteToPCDFile(cloud PointCloud, fn string, outputType PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err = ToPCD(cloud, w, outputType); err != nil {
		return err
	}
	return w.Flush()
}

func writePCDData(cloud PointCloud, out io.Writer, pcdtype PCDType) error {
	var err error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		x := pos.X / 1000.
		y := pos.Y / 1000.
		z := pos.Z / 1000.
		if cloud.MetaData().HasColor {
			c := _colorToPCDInt(d)
			switch pcdtype {
			case PCDBinary:
				buf := make([]byte, 16)
				binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
				binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(y)))
				binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(z)))
				binary.LittleEndian.PutUint32(buf[12:], uint32(c))
				_, err = out.Write(buf)
			case PCDAscii:
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", x, y, z, c)
			case PCDCompressed:
				err = errors.New("compressed PCD not yet implemented")
			}
		} else {
			switch pcdtype {
			case PCDBinary:
				buf := make([]byte, 12)
				binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
				binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(y)))
				binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(z)))
				_, err = out.Write(buf)
			case PCDAscii:
				_, err = fmt.Fprintf(out, "%f %f %f\n", x, y, z)
			case PCDCompressed:
				err = errors.New("compressed PCD not yet implemented")
			}
		}
		return err == nil
	})
	return err
}

func readFloat(n uint32) float64 {
	f := float64(math.Float32frombits(n))
	return math.Round(f*10000) / 10000
}

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdHeader struct {
	fields    pcdFieldType
	size      []uint64
	valTypes  []string
	count     []uint64
	width     uint64
	height    uint64
	viewpoint spatialmath.Pose
	points    uint64
	data      PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Split(value, " ")
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		header.valTypes = append([]string{}, tokens...)
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Errorf("invalid COUNT field %s: %v", token, err)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid WIDTH field %s: %v", value, err)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid HEIGHT field %s: %v", value, err)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		viewpoint := [7]float64{}
		for i, token := range tokens {
			viewpoint[i], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return errors.Errorf("invalid VIEWPOINT field %s: %v", token, err)
			}
		}
		header.viewpoint = spatialmath.NewPose(
			r3.Vector{X: viewpoint[0], Y: viewpoint[1], Z: viewpoint[2]},
			spatialmath.NewOrientationFromQuaternion(
				quat.Number{Real: viewpoint[3], Imag: viewpoint[4], Jmag: viewpoint[5], Kmag: viewpoint[6]}),
		)
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid POINTS field %s: %v", value, err)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads a PCD file into a pointcloud.
func ReadPCD(inRaw io.Reader) (PointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	var line string
	var err error
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err = in.ReadString('\n')
		if err != nil {
			return nil, errors.Errorf("error reading header line %d: %v", headerLineCount, err)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	case PCDCompressed:
		return nil, errors.New("compressed pcd not yet supported")
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) (PointCloud, error) {
	pc := NewWithPrealloc(int(header.points))
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		tokens := strings.Split(line, " ")
		if len(tokens) != int(header.fields) {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		point := make([]float64, len(tokens))
		for j, token := range tokens {
			point[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, errors.Errorf("invalid point %d field %s: %v", i, token, err)
			}
		}
		pcPoint, data, err := readSliceToPoint(point, header)
		if err != nil {
			return nil, err
		}
		if err := pc.Set(pcPoint, data); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) (PointCloud, error) {
	pc := NewWithPrealloc(int(header.points))
	for i := 0; i < int(header.points); i++ {
		pointBuf := make([]float64, int(header.fields))
		for j := 0; j < int(header.fields); j++ {
			buf := make([]byte, header.size[j])
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, err
			}
			bits := binary.LittleEndian.Uint32(buf)
			if header.valTypes[j] == "I" || header.valTypes[j] == "U" {
				// the packed rgb column is an integer, not a float
				pointBuf[j] = float64(bits)
			} else {
				pointBuf[j] = readFloat(bits)
			}
		}
		point, data, err := readSliceToPoint(pointBuf, header)
		if err != nil {
			return nil, err
		}
		if err := pc.Set(point, data); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func readSliceToPoint(slice []float64, header pcdHeader) (r3.Vector, Data, error) {
	pos := r3.Vector{X: 1000. * slice[0], Y: 1000. * slice[1], Z: 1000. * slice[2]}
	switch header.fields {
	case pcdPointOnly:
		return pos, NewBasicData(), nil
	case pcdPointColor:
		return pos, NewColoredData(_pcdIntToColor(int(slice[3]))), nil
	default:
		return r3.Vector{}, nil, errors.Errorf("unsupported pcd field type %d", header.fields)
	}
}
