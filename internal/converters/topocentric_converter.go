package converters

import (
	"math"

	"github.com/ecopia-map/georeferencer/internal/converters/offset"
	"github.com/ecopia-map/georeferencer/internal/data"
	"github.com/ecopia-map/georeferencer/internal/obj"
	"github.com/pkg/errors"
)

const (
	wgs84SemiMajorAxis = 6378137.0
	wgs84Flattening    = 1 / 298.257223563

	GeocentricProj4 = "+proj=geocent +datum=WGS84 +units=m +no_defs"
	WGS84Proj4      = "+proj=longlat +datum=WGS84 +no_defs"
)

type StandardTopocentricConverter struct {
	reference   Reference
	targetProj4 string
	reprojector Reprojector
	// ECEF origin and the rows of the ENU->ECEF rotation
	origin [3]float64
	rot    [3][3]float64
}

func NewTopocentricConverter(reference Reference, targetProj4 string, reprojector Reprojector) *StandardTopocentricConverter {
	c := &StandardTopocentricConverter{
		reference:   reference,
		targetProj4: targetProj4,
		reprojector: reprojector,
	}
	c.origin = GeodeticToEcef(reference.Lat, reference.Lon, reference.Alt)

	lat := reference.Lat * math.Pi / 180
	lon := reference.Lon * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)
	c.rot = [3][3]float64{
		{-sinLon, -sinLat * cosLon, cosLat * cosLon},
		{cosLon, -sinLat * sinLon, cosLat * sinLon},
		{0, cosLat, sinLat},
	}
	return c
}

// GeodeticToEcef converts WGS84 latitude/longitude in degrees and ellipsoidal
// height in meters to earth centered coordinates
func GeodeticToEcef(lat float64, lon float64, alt float64) [3]float64 {
	e2 := wgs84Flattening * (2 - wgs84Flattening)
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	sinLat := math.Sin(latRad)
	n := wgs84SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)
	return [3]float64{
		(n + alt) * math.Cos(latRad) * math.Cos(lonRad),
		(n + alt) * math.Cos(latRad) * math.Sin(lonRad),
		(n*(1-e2) + alt) * sinLat,
	}
}

// TopocentricToEcef applies the ENU rotation and the origin translation
func (c *StandardTopocentricConverter) TopocentricToEcef(e float64, n float64, u float64) Coordinate {
	return Coordinate{
		X: c.origin[0] + c.rot[0][0]*e + c.rot[0][1]*n + c.rot[0][2]*u,
		Y: c.origin[1] + c.rot[1][0]*e + c.rot[1][1]*n + c.rot[1][2]*u,
		Z: c.origin[2] + c.rot[2][0]*e + c.rot[2][1]*n + c.rot[2][2]*u,
	}
}

func (c *StandardTopocentricConverter) convert(coords []Coordinate, eastOffset float64, northOffset float64) ([]Coordinate, error) {
	ecef := make([]Coordinate, len(coords))
	for i, p := range coords {
		ecef[i] = c.TopocentricToEcef(p.X, p.Y, p.Z)
	}
	projected, err := c.reprojector.Transform(GeocentricProj4, c.targetProj4, ecef)
	if err != nil {
		return nil, errors.Wrap(err, "cannot reproject topocentric coordinates")
	}
	o := offset.NewPlanarOffset(eastOffset, northOffset)
	for i := range projected {
		projected[i].X, projected[i].Y = o.Remove(projected[i].X, projected[i].Y)
	}
	return projected, nil
}

func (c *StandardTopocentricConverter) ConvertPoint(p Coordinate, eastOffset float64, northOffset float64) (Coordinate, error) {
	out, err := c.convert([]Coordinate{p}, eastOffset, northOffset)
	if err != nil {
		return Coordinate{}, err
	}
	return out[0], nil
}

// ConvertArray rewrites the x, y, z columns in place. Coordinates are
// widened to double since projected values lose precision as floats.
func (c *StandardTopocentricConverter) ConvertArray(pc *data.PointCloud, eastOffset float64, northOffset float64) error {
	x, y, z, err := pc.XYZ()
	if err != nil {
		return err
	}
	coords := make([]Coordinate, len(x))
	for i := range x {
		coords[i] = Coordinate{x[i], y[i], z[i]}
	}
	out, err := c.convert(coords, eastOffset, northOffset)
	if err != nil {
		return err
	}
	for i, p := range out {
		x[i], y[i], z[i] = p.X, p.Y, p.Z
	}
	for _, name := range []string{"x", "y", "z"} {
		pc.SetType(name, data.Double)
	}
	return nil
}

func (c *StandardTopocentricConverter) ConvertObj(objIn string, objOut string, eastOffset float64, northOffset float64) error {
	return obj.TransformVertices(objIn, objOut, func(xs, ys, zs []float64) error {
		coords := make([]Coordinate, len(xs))
		for i := range xs {
			coords[i] = Coordinate{xs[i], ys[i], zs[i]}
		}
		out, err := c.convert(coords, eastOffset, northOffset)
		if err != nil {
			return err
		}
		for i, p := range out {
			xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
		}
		return nil
	})
}
