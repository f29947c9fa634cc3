package data

import "github.com/pkg/errors"

// ScalarType is a PLY scalar property type
type ScalarType string

const (
	Char   ScalarType = "char"
	UChar  ScalarType = "uchar"
	Short  ScalarType = "short"
	UShort ScalarType = "ushort"
	Int    ScalarType = "int"
	UInt   ScalarType = "uint"
	Float  ScalarType = "float"
	Double ScalarType = "double"
)

var typeAliases = map[string]ScalarType{
	"int8": Char, "uint8": UChar, "int16": Short, "uint16": UShort,
	"int32": Int, "uint32": UInt, "float32": Float, "float64": Double,
}

func ParseScalarType(name string) (ScalarType, error) {
	switch t := ScalarType(name); t {
	case Char, UChar, Short, UShort, Int, UInt, Float, Double:
		return t, nil
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	return "", errors.Errorf("unsupported ply scalar type %q", name)
}

type Property struct {
	Name string
	Type ScalarType
}

// PointCloud stores per-point attributes column by column. Coordinates are
// the x, y, z properties; normals, colors and the views count, when present,
// are kept and written back untouched.
type PointCloud struct {
	Properties []Property
	Columns    [][]float64
	Comments   []string
}

func NewPointCloud(properties []Property, numPoints int) *PointCloud {
	pc := &PointCloud{
		Properties: properties,
		Columns:    make([][]float64, len(properties)),
	}
	for i := range pc.Columns {
		pc.Columns[i] = make([]float64, numPoints)
	}
	return pc
}

func (pc *PointCloud) NumPoints() int {
	if len(pc.Columns) == 0 {
		return 0
	}
	return len(pc.Columns[0])
}

// Index of the named property, -1 if missing
func (pc *PointCloud) Index(name string) int {
	for i, p := range pc.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (pc *PointCloud) Column(name string) []float64 {
	i := pc.Index(name)
	if i < 0 {
		return nil
	}
	return pc.Columns[i]
}

// SetType changes the storage type of a property, used to widen projected
// coordinates that no longer fit a float
func (pc *PointCloud) SetType(name string, t ScalarType) {
	if i := pc.Index(name); i >= 0 {
		pc.Properties[i].Type = t
	}
}

// XYZ returns the coordinate columns, or an error if one is missing
func (pc *PointCloud) XYZ() (x, y, z []float64, err error) {
	x, y, z = pc.Column("x"), pc.Column("y"), pc.Column("z")
	if x == nil || y == nil || z == nil {
		return nil, nil, nil, errors.Errorf("point cloud has no x/y/z properties")
	}
	return x, y, z, nil
}
