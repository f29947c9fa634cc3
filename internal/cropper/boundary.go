package cropper

import (
	"encoding/json"
	"os"

	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// LoadBoundary reads a WGS84 boundary from a GeoJSON FeatureCollection,
// Feature or bare geometry, keeping the largest polygon
func LoadBoundary(path string) (orb.Polygon, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(content, &head); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", path)
	}

	var geometries []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(content)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s", path)
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(content)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s", path)
		}
		geometries = append(geometries, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(content)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s", path)
		}
		geometries = append(geometries, g.Geometry())
	}

	var polygons orb.MultiPolygon
	for _, g := range geometries {
		switch v := g.(type) {
		case orb.Polygon:
			polygons = append(polygons, v)
		case orb.MultiPolygon:
			polygons = append(polygons, v...)
		}
	}
	if len(polygons) == 0 {
		return nil, errors.Wrapf(ErrNoBoundary, "%s", path)
	}
	return largest(polygons)
}

// ExportBoundsFiles reprojects a WGS84 boundary GeoJSON to the output
// coordinate system and writes the bounds files
func ExportBoundsFiles(boundary string, output BoundsOutput, reprojector converters.Reprojector, writer VectorWriter) error {
	polygon, err := LoadBoundary(boundary)
	if err != nil {
		return err
	}

	projected := make(orb.Polygon, len(polygon))
	for i, ring := range polygon {
		coords := make([]converters.Coordinate, len(ring))
		for j, p := range ring {
			coords[j] = converters.Coordinate{X: p[0], Y: p[1]}
		}
		out, err := reprojector.Transform(converters.WGS84Proj4, output.Proj4, coords)
		if err != nil {
			return errors.Wrap(err, "cannot reproject boundary")
		}
		projected[i] = make(orb.Ring, len(out))
		for j, c := range out {
			projected[i][j] = orb.Point{c.X, c.Y}
		}
	}
	return WriteBounds(projected, output, writer)
}
