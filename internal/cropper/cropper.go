// Package cropper derives the crop area of the georeferenced point cloud.
package cropper

import (
	"math"
	"os"

	"github.com/ecopia-map/georeferencer/internal/gpkg"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/pdal"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

const (
	FastDecimationStep = 4
	BaseDecimationStep = 40
	MaxDecimationStep  = 95

	BoundsLayer = "bounds"
)

var ErrNoBoundary = errors.New("no boundary polygon")

type Cropper interface {
	CreateBoundsPackage(pointCloud string, margin float64, decimationStep int) error
}

type VectorWriter interface {
	WriteLayer(path string, layer *gpkg.Layer) error
}

// DecimationStep keeps every 4th point in fast mode. Otherwise it starts at
// 40 and grows by 40 per thousand photos, up to 95.
func DecimationStep(photos int, fast bool) int {
	if fast {
		return FastDecimationStep
	}
	step := BaseDecimationStep * (photos/1000 + 1)
	if step > MaxDecimationStep {
		step = MaxDecimationStep
	}
	return step
}

// BoundsOutput names the files the crop area is written to
type BoundsOutput struct {
	GeoJSON string
	Gpkg    string
	Proj4   string
}

type PdalCropper struct {
	pdal   *pdal.Runner
	writer VectorWriter
	output BoundsOutput
}

func NewPdalCropper(runner *pdal.Runner, writer VectorWriter, output BoundsOutput) *PdalCropper {
	return &PdalCropper{pdal: runner, writer: writer, output: output}
}

// CreateBoundsPackage computes the footprint of a decimated copy of the
// point cloud, shrinks it by margin and writes it as GeoJSON and GeoPackage
func (c *PdalCropper) CreateBoundsPackage(pointCloud string, margin float64, decimationStep int) error {
	decimated := tools.RelatedFilePath(pointCloud, ".decimated")
	defer os.Remove(decimated)

	err := c.pdal.Execute(
		pdal.Reader(pointCloud),
		pdal.Stage{"type": "filters.decimation", "step": decimationStep},
		pdal.Stage{"type": "writers.las", "filename": decimated},
	)
	if err != nil {
		return errors.Wrap(err, "cannot decimate point cloud")
	}

	boundary, err := c.pdal.Boundary(decimated)
	if err != nil {
		return err
	}
	polygon, err := LargestPolygon(boundary)
	if err != nil {
		return err
	}
	cropArea := Inset(polygon, margin)
	glog.Infof("Crop area has %d vertices, %.1f m2", len(cropArea[0]), planar.Area(cropArea))
	return WriteBounds(cropArea, c.output, c.writer)
}

// LargestPolygon parses a WKT polygon or multipolygon and returns the polygon
// with the largest area
func LargestPolygon(boundary string) (orb.Polygon, error) {
	g, err := wkt.Unmarshal(boundary)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse boundary")
	}
	return largest(g)
}

func largest(g orb.Geometry) (orb.Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) < 4 {
			return nil, ErrNoBoundary
		}
		return v, nil
	case orb.MultiPolygon:
		var best orb.Polygon
		bestArea := -1.0
		for _, p := range v {
			if len(p) == 0 || len(p[0]) < 4 {
				continue
			}
			if area := planar.Area(p); area > bestArea {
				best, bestArea = p, area
			}
		}
		if best == nil {
			return nil, ErrNoBoundary
		}
		return best, nil
	}
	return nil, errors.Wrapf(ErrNoBoundary, "unexpected %s geometry", g.GeoJSONType())
}

// Inset moves every vertex of the outer ring toward the centroid by margin.
// Holes are dropped. Vertices closer than margin collapse onto the centroid.
func Inset(polygon orb.Polygon, margin float64) orb.Polygon {
	centroid, _ := planar.CentroidArea(polygon)
	ring := make(orb.Ring, len(polygon[0]))
	for i, p := range polygon[0] {
		dx, dy := p[0]-centroid[0], p[1]-centroid[1]
		dist := math.Hypot(dx, dy)
		if dist <= margin || dist == 0 {
			ring[i] = centroid
			continue
		}
		k := (dist - margin) / dist
		ring[i] = orb.Point{centroid[0] + dx*k, centroid[1] + dy*k}
	}
	return orb.Polygon{ring}
}

// WriteBounds writes polygon, in the output coordinate system, to both
// bounds files
func WriteBounds(polygon orb.Polygon, output BoundsOutput, writer VectorWriter) error {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(polygon))
	content, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "cannot encode bounds")
	}
	if err := io.WriteFileAtomic(output.GeoJSON, content, 0644); err != nil {
		return err
	}

	layer := &gpkg.Layer{
		Name:         BoundsLayer,
		GeometryType: "POLYGON",
		Srs:          gpkg.SrsFromProj4(output.Proj4),
		Features:     []gpkg.Feature{{Geometry: polygon}},
	}
	return io.WriteAtomic(output.Gpkg, func(tmp string) error {
		return writer.WriteLayer(tmp, layer)
	})
}
