// Package gcp exports ground control points as a GeoPackage, GML, GeoJSON
// and a zipped GeoJSON.
package gcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/ecopia-map/georeferencer/internal/gpkg"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/lzmazip"
	"github.com/ecopia-map/georeferencer/internal/outcome"
	"github.com/ecopia-map/georeferencer/internal/reconstruction"
	"github.com/golang/glog"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

const (
	Step      = "gcp-export"
	LayerName = "ground_control_points"
)

type Source interface {
	GroundControlPoints(proj4 string) ([]reconstruction.GroundControlPoint, error)
}

type VectorWriter interface {
	WriteLayer(path string, layer *gpkg.Layer) error
}

type FormatConverter interface {
	ToGML(in string, out string) error
}

type Paths struct {
	Gpkg    string
	Gml     string
	GeoJSON string
	Zip     string
}

type Exporter struct {
	source      Source
	writer      VectorWriter
	converter   FormatConverter
	reprojector converters.Reprojector
}

func NewExporter(source Source, writer VectorWriter, converter FormatConverter, reprojector converters.Reprojector) *Exporter {
	return &Exporter{
		source:      source,
		writer:      writer,
		converter:   converter,
		reprojector: reprojector,
	}
}

// Export writes the four GCP products. The GeoPackage and GML use the
// native coordinate system, the GeoJSON and its archive use WGS84.
func (e *Exporter) Export(proj4 string, paths Paths) outcome.Outcome {
	gcps, err := e.source.GroundControlPoints(proj4)
	if err != nil {
		return outcome.Fail(Step, errors.Wrap(err, "cannot load GCPs"))
	}
	if len(gcps) == 0 {
		return outcome.Degrade(Step, "GCPs could not be loaded for writing to %s", paths.Gpkg)
	}
	result := outcome.Ok(Step)

	layer := BuildLayer(gcps, proj4)
	err = io.WriteAtomic(paths.Gpkg, func(tmp string) error {
		return e.writer.WriteLayer(tmp, layer)
	})
	if err != nil {
		return outcome.Fail(Step, errors.Wrapf(err, "cannot write %s", paths.Gpkg))
	}
	glog.Infof("Wrote %d GCPs to %s", len(gcps), paths.Gpkg)

	// ogr2ogr writes an .xsd next to the GML, so it writes in place
	removeGML(paths.Gml)
	if err := e.converter.ToGML(paths.Gpkg, paths.Gml); err != nil {
		result.Warn("Cannot generate ground control points GML file: %v", err)
	}

	content, err := e.geoJSON(gcps, proj4)
	if err != nil {
		return outcome.Fail(Step, err)
	}
	if err := io.WriteFileAtomic(paths.GeoJSON, content, 0644); err != nil {
		return outcome.Fail(Step, errors.Wrapf(err, "cannot write %s", paths.GeoJSON))
	}

	entry := lzmazip.Entry{Name: filepath.Base(paths.GeoJSON), Content: content}
	err = io.WriteAtomic(paths.Zip, func(tmp string) error {
		return lzmazip.Write(tmp, entry)
	})
	if err != nil {
		return outcome.Fail(Step, errors.Wrapf(err, "cannot write %s", paths.Zip))
	}
	return result
}

func removeGML(path string) {
	for _, p := range []string{path, strings.TrimSuffix(path, filepath.Ext(path)) + ".xsd"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			glog.Warningf("Cannot remove %s: %v", p, err)
		}
	}
}

func shotIDs(gcp reconstruction.GroundControlPoint) string {
	ids := make([]string, len(gcp.Observations))
	for i, o := range gcp.Observations {
		ids[i] = o.ShotID
	}
	return strings.Join(ids, ",")
}

// BuildLayer returns the GeoPackage layer of the GCPs, as Point Z features
func BuildLayer(gcps []reconstruction.GroundControlPoint, proj4 string) *gpkg.Layer {
	layer := &gpkg.Layer{
		Name:         LayerName,
		GeometryType: "POINT",
		HasZ:         true,
		Srs:          gpkg.SrsFromProj4(proj4),
		Fields: []gpkg.Field{
			{Name: "id", Type: gpkg.Text},
			{Name: "observations_count", Type: gpkg.Integer},
			{Name: "observations_list", Type: gpkg.Text},
			{Name: "error_x", Type: gpkg.Real},
			{Name: "error_y", Type: gpkg.Real},
			{Name: "error_z", Type: gpkg.Real},
		},
	}
	for _, gcp := range gcps {
		p := gpkg.PointZ(gcp.Coordinates)
		layer.Features = append(layer.Features, gpkg.Feature{
			Point: &p,
			Properties: map[string]interface{}{
				"id":                 gcp.ID,
				"observations_count": len(gcp.Observations),
				"observations_list":  shotIDs(gcp),
				"error_x":            gcp.Error[0],
				"error_y":            gcp.Error[1],
				"error_z":            gcp.Error[2],
			},
		})
	}
	return layer
}

func (e *Exporter) geoJSON(gcps []reconstruction.GroundControlPoint, proj4 string) ([]byte, error) {
	coords := make([]converters.Coordinate, len(gcps))
	for i, gcp := range gcps {
		coords[i] = converters.Coordinate{X: gcp.Coordinates[0], Y: gcp.Coordinates[1], Z: gcp.Coordinates[2]}
	}
	geographic, err := e.reprojector.Transform(proj4, converters.WGS84Proj4, coords)
	if err != nil {
		return nil, errors.Wrap(err, "cannot reproject GCPs to WGS84")
	}

	fc := geojson.NewFeatureCollection()
	for i, gcp := range gcps {
		c := geographic[i]
		f := geojson.NewPointFeature([]float64{c.X, c.Y, c.Z})
		f.SetProperty("id", gcp.ID)
		f.SetProperty("observations", gcp.Observations)
		f.SetProperty("error", gcp.Error)
		fc.AddFeature(f)
	}
	content, err := json.MarshalIndent(fc, "", "    ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode GCP GeoJSON")
	}
	return content, nil
}
