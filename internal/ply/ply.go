// Package ply reads and writes vertex-only PLY point clouds through the
// plyfile library. Every property is exchanged with the library as a double,
// whatever its type on disk.
package ply

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	plyfile "github.com/cobaltgray/go-plyfile"
	"github.com/ecopia-map/georeferencer/internal/data"
	"github.com/pkg/errors"
)

const (
	vertexElement = "vertex"
	extension     = ".ply"
	// bytes per property in the rows exchanged with plyfile
	valueSize = 8
)

var (
	ErrNotPly             = errors.New("ply: missing magic number")
	ErrUnsupportedElement = errors.New("ply: only vertex elements are supported")
	ErrUnsupportedFormat  = errors.New("ply: unsupported format")
	ErrExtension          = errors.New("ply: path must end in " + extension)
)

var plyTypes = map[data.ScalarType]int{
	data.Char:   plyfile.PLY_CHAR,
	data.UChar:  plyfile.PLY_UCHAR,
	data.Short:  plyfile.PLY_SHORT,
	data.UShort: plyfile.PLY_USHORT,
	data.Int:    plyfile.PLY_INT,
	data.UInt:   plyfile.PLY_UINT,
	data.Float:  plyfile.PLY_FLOAT,
	data.Double: plyfile.PLY_DOUBLE,
}

type header struct {
	numPoints  int
	properties []data.Property
	comments   []string
}

// plyfile appends .ply to any other path, so both sides insist on it
func checkExtension(path string) error {
	if !strings.HasSuffix(path, extension) {
		return errors.Wrap(ErrExtension, path)
	}
	return nil
}

// readHeader validates the header of path. plyfile exits the process or
// dereferences NULL on headers it cannot parse, so nothing reaches it before
// this check passes. Comments are taken from here too: plyfile keeps them in
// a buffer that later header lines overwrite.
func readHeader(path string) (*header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	line, err := r.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "ply" {
		return nil, ErrNotPly
	}

	h := &header{numPoints: -1}
	var format string
	inVertex := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "ply: truncated header")
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, errors.Errorf("ply: bad format line %q", line)
			}
			switch fields[1] {
			case "ascii", "binary_little_endian":
				format = fields[1]
			default:
				return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", fields[1])
			}
		case "comment", "obj_info":
			h.comments = append(h.comments, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))
		case "element":
			if len(fields) != 3 {
				return nil, errors.Errorf("ply: bad element line %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, errors.Errorf("ply: bad element count %q", fields[2])
			}
			if fields[1] != vertexElement {
				if count == 0 {
					inVertex = false
					continue
				}
				return nil, ErrUnsupportedElement
			}
			inVertex = true
			h.numPoints = count
		case "property":
			if !inVertex {
				continue
			}
			if len(fields) != 3 {
				return nil, errors.Errorf("ply: unsupported property %q", strings.TrimSpace(line))
			}
			t, err := data.ParseScalarType(fields[1])
			if err != nil {
				return nil, err
			}
			// plyfile only knows the original type names
			if string(t) != fields[1] {
				return nil, errors.Errorf("ply: property type %q must be written as %q", fields[1], t)
			}
			h.properties = append(h.properties, data.Property{Name: fields[2], Type: t})
		case "end_header":
			if format == "" || h.numPoints < 0 {
				return nil, errors.New("ply: header without format or vertex element")
			}
			if len(h.properties) == 0 {
				return nil, errors.New("ply: vertex element without properties")
			}
			return h, nil
		}
	}
}

// ReadFile loads the vertex element of path, keeping every scalar property
func ReadFile(path string) (*data.PointCloud, error) {
	if err := checkExtension(path); err != nil {
		return nil, err
	}
	h, err := readHeader(path)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	f, _ := plyfile.PlyOpenForReading(path)
	defer plyfile.PlyClose(f)

	description, numPoints, _ := plyfile.PlyGetElementDescription(f, vertexElement)
	if numPoints != h.numPoints || len(description) != len(h.properties) {
		return nil, errors.Errorf("%s: vertex element has %d points and %d properties, header declares %d and %d",
			path, numPoints, len(description), h.numPoints, len(h.properties))
	}
	for j, prop := range description {
		prop.Internal_type = plyfile.PLY_DOUBLE
		prop.Offset = j * valueSize
		plyfile.PlyGetProperty(f, vertexElement, prop)
	}

	pc := data.NewPointCloud(h.properties, numPoints)
	pc.Comments = h.comments
	row := make([]float64, len(description))
	size := uintptr(len(row) * valueSize)
	for i := 0; i < numPoints; i++ {
		plyfile.PlyGetElement(f, row, size)
		for j, v := range row {
			pc.Columns[j][i] = v
		}
	}
	return pc, nil
}

// WriteFile writes pc as a binary little endian PLY file
func WriteFile(path string, pc *data.PointCloud) error {
	if err := checkExtension(path); err != nil {
		return err
	}
	if len(pc.Properties) == 0 {
		return errors.Errorf("cannot write %s: point cloud has no properties", path)
	}
	description := make([]plyfile.PlyProperty, len(pc.Properties))
	for j, p := range pc.Properties {
		external, ok := plyTypes[p.Type]
		if !ok {
			return errors.Errorf("cannot write %s: unsupported type %q for %s", path, p.Type, p.Name)
		}
		description[j] = plyfile.PlyProperty{
			Name:          p.Name,
			External_type: external,
			Internal_type: plyfile.PLY_DOUBLE,
			Offset:        j * valueSize,
		}
	}

	version := float32(1.0)
	f := plyfile.PlyOpenForWriting(path, 1, []string{vertexElement}, plyfile.PLY_BINARY_LE, &version)
	if f == nil {
		return errors.Errorf("cannot create %s", path)
	}
	defer plyfile.PlyClose(f)

	n := pc.NumPoints()
	plyfile.PlyElementCount(f, vertexElement, n)
	for _, prop := range description {
		plyfile.PlyDescribeProperty(f, vertexElement, prop)
	}
	for _, c := range pc.Comments {
		plyfile.PlyPutComment(f, c)
	}
	plyfile.PlyHeaderComplete(f)

	plyfile.PlyPutElementSetup(f, vertexElement)
	row := make([]float64, len(description))
	for i := 0; i < n; i++ {
		for j, p := range pc.Properties {
			v := pc.Columns[j][i]
			// plyfile truncates when narrowing to integer types
			if p.Type != data.Float && p.Type != data.Double {
				v = math.Round(v)
			}
			row[j] = v
		}
		plyfile.PlyPutElement(f, row)
	}
	return nil
}
