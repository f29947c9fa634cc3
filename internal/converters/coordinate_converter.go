package converters

import "github.com/ecopia-map/georeferencer/internal/data"

type Coordinate struct {
	X float64
	Y float64
	Z float64
}

// Reference is the geodetic origin of the topocentric frame
type Reference struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
	Alt float64 `json:"altitude"`
}

// Reprojector converts coordinates between two coordinate systems given as
// proj4 definitions. Geographic coordinates are expressed in degrees.
type Reprojector interface {
	Transform(srcDef string, dstDef string, coords []Coordinate) ([]Coordinate, error)
	Cleanup()
}

// TopocentricConverter moves topocentric coordinates into a projected
// coordinate system, minus a planar east/north offset
type TopocentricConverter interface {
	ConvertPoint(c Coordinate, eastOffset float64, northOffset float64) (Coordinate, error)
	ConvertArray(pc *data.PointCloud, eastOffset float64, northOffset float64) error
	ConvertObj(objIn string, objOut string, eastOffset float64, northOffset float64) error
}
