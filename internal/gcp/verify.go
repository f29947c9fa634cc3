package gcp

import (
	"path/filepath"

	"github.com/ecopia-map/georeferencer/internal/gpkg"
	"github.com/ecopia-map/georeferencer/internal/lzmazip"
	"github.com/ecopia-map/georeferencer/tools"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

var ErrMismatch = errors.New("gcp products do not match")

type exportedGCP struct {
	ID    string
	Error [3]float64
}

// Verify checks that the GeoPackage, the GeoJSON and the archived GeoJSON
// hold the same GCPs, and returns how many
func Verify(paths Paths) (int, error) {
	layer, err := gpkg.ReadLayer(paths.Gpkg, LayerName)
	if err != nil {
		return 0, err
	}
	fromGpkg := make([]exportedGCP, len(layer.Features))
	for i, f := range layer.Features {
		id, _ := f.Properties["id"].(string)
		fromGpkg[i] = exportedGCP{ID: id}
		for j, name := range []string{"error_x", "error_y", "error_z"} {
			v, _ := f.Properties[name].(float64)
			fromGpkg[i].Error[j] = v
		}
	}

	content, err := readFile(paths.GeoJSON)
	if err != nil {
		return 0, err
	}
	fromGeoJSON, err := parseGeoJSON(content)
	if err != nil {
		return 0, errors.Wrap(err, paths.GeoJSON)
	}

	archived, err := lzmazip.ReadEntry(paths.Zip, filepath.Base(paths.GeoJSON))
	if err != nil {
		return 0, err
	}
	fromZip, err := parseGeoJSON(archived)
	if err != nil {
		return 0, errors.Wrap(err, paths.Zip)
	}

	if err := compare(fromGpkg, fromGeoJSON); err != nil {
		return 0, errors.Wrapf(err, "%s vs %s", paths.Gpkg, paths.GeoJSON)
	}
	if err := compare(fromGpkg, fromZip); err != nil {
		return 0, errors.Wrapf(err, "%s vs %s", paths.Gpkg, paths.Zip)
	}
	return len(fromGpkg), nil
}

func readFile(path string) ([]byte, error) {
	if !tools.FileExists(path) {
		return nil, errors.Errorf("%s not found", path)
	}
	return tools.ReadFile(path)
}

func parseGeoJSON(content []byte) ([]exportedGCP, error) {
	fc, err := geojson.UnmarshalFeatureCollection(content)
	if err != nil {
		return nil, err
	}
	out := make([]exportedGCP, len(fc.Features))
	for i, f := range fc.Features {
		id, err := f.PropertyString("id")
		if err != nil {
			return nil, err
		}
		out[i].ID = id
		values, _ := f.Properties["error"].([]interface{})
		if len(values) != 3 {
			return nil, errors.Errorf("feature %s has no error vector", id)
		}
		for j, v := range values {
			out[i].Error[j], _ = v.(float64)
		}
	}
	return out, nil
}

func compare(a []exportedGCP, b []exportedGCP) error {
	if len(a) != len(b) {
		return errors.Wrapf(ErrMismatch, "%d features vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return errors.Wrapf(ErrMismatch, "feature %d: %+v vs %+v", i, a[i], b[i])
		}
	}
	return nil
}

func (g exportedGCP) equal(other exportedGCP) bool {
	if g.ID != other.ID {
		return false
	}
	for i := range g.Error {
		if !tools.IsFloatEqual(g.Error[i], other.Error[i]) {
			return false
		}
	}
	return true
}
