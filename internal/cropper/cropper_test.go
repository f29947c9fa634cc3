package cropper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/ecopia-map/georeferencer/internal/gpkg"
	"github.com/ecopia-map/georeferencer/internal/pdal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm32 = "+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs"

func TestDecimationStep(t *testing.T) {
	assert.Equal(t, 4, DecimationStep(500, true))
	assert.Equal(t, 4, DecimationStep(50000, true))
	assert.Equal(t, 40, DecimationStep(0, false))
	assert.Equal(t, 40, DecimationStep(500, false))
	assert.Equal(t, 80, DecimationStep(1500, false))
	assert.Equal(t, 95, DecimationStep(2500, false))
	assert.Equal(t, 95, DecimationStep(50000, false))
}

func TestLargestPolygon(t *testing.T) {
	p, err := LargestPolygon("MULTIPOLYGON (((0 0, 1 0, 1 1, 0 1, 0 0)), ((10 10, 20 10, 20 20, 10 20, 10 10)))")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{10, 10}, p[0][0])

	p, err = LargestPolygon("POLYGON ((0 0, 4 0, 4 4, 0 0))")
	require.NoError(t, err)
	assert.Len(t, p[0], 4)

	_, err = LargestPolygon("LINESTRING (0 0, 1 1)")
	assert.ErrorIs(t, err, ErrNoBoundary)

	_, err = LargestPolygon("not wkt")
	assert.Error(t, err)
}

func TestInset(t *testing.T) {
	square := orb.Polygon{orb.Ring{{-10, -10}, {10, -10}, {10, 10}, {-10, 10}, {-10, -10}}}
	inset := Inset(square, 2)
	require.Len(t, inset, 1)
	for _, p := range inset[0] {
		assert.InDelta(t, 10*(1-2/14.142135623730951), abs(p[0]), 1e-9)
	}
	assert.Equal(t, inset[0][0], inset[0][4])

	collapsed := Inset(square, 100)
	assert.Equal(t, orb.Point{0, 0}, collapsed[0][2])
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

type boundaryRunner struct {
	runs   int
	output string
	err    error
}

func (r *boundaryRunner) Run(program string, args ...string) error {
	r.runs++
	return r.err
}

func (r *boundaryRunner) Output(program string, args ...string) ([]byte, error) {
	return []byte(r.output), nil
}

func boundsOutput(dir string) BoundsOutput {
	return BoundsOutput{
		GeoJSON: filepath.Join(dir, "odm_georeferenced_model.bounds.geojson"),
		Gpkg:    filepath.Join(dir, "odm_georeferenced_model.bounds.gpkg"),
		Proj4:   utm32,
	}
}

func TestPdalCropper(t *testing.T) {
	dir := t.TempDir()
	runner := &boundaryRunner{output: `{"boundary": {"boundary": "POLYGON ((500000 5000000, 500100 5000000, 500100 5000100, 500000 5000100, 500000 5000000))"}}`}
	out := boundsOutput(dir)
	c := NewPdalCropper(pdal.NewRunner(runner, ""), gpkg.NewFileWriter(), out)

	require.NoError(t, c.CreateBoundsPackage(filepath.Join(dir, "odm_georeferenced_model.laz"), 1, 40))
	assert.Equal(t, 1, runner.runs)

	content, err := os.ReadFile(out.GeoJSON)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(content)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	ring := fc.Features[0].Geometry.(orb.Polygon)[0]
	assert.Greater(t, ring[0][0], 500000.0)

	layer, err := gpkg.ReadLayer(out.Gpkg, BoundsLayer)
	require.NoError(t, err)
	assert.Equal(t, 32632, layer.Srs.ID)
	assert.Equal(t, fc.Features[0].Geometry, layer.Features[0].Geometry)
}

func TestPdalCropperFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &boundaryRunner{err: errors.New("pdal: not found")}
	out := boundsOutput(dir)
	c := NewPdalCropper(pdal.NewRunner(runner, ""), gpkg.NewFileWriter(), out)

	assert.Error(t, c.CreateBoundsPackage(filepath.Join(dir, "odm_georeferenced_model.laz"), 1, 40))
	assert.NoFileExists(t, out.GeoJSON)
	assert.NoFileExists(t, out.Gpkg)
}

type offsetReprojector struct{}

func (offsetReprojector) Transform(srcDef string, dstDef string, coords []converters.Coordinate) ([]converters.Coordinate, error) {
	out := make([]converters.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = converters.Coordinate{X: c.X * 1000, Y: c.Y * 1000}
	}
	return out, nil
}

func (offsetReprojector) Cleanup() {}

func TestExportBoundsFiles(t *testing.T) {
	dir := t.TempDir()
	boundary := filepath.Join(dir, "boundary.json")
	require.NoError(t, os.WriteFile(boundary, []byte(`{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[9, 45], [9.1, 45], [9.1, 45.1], [9, 45]]]}}`), 0644))

	out := boundsOutput(dir)
	require.NoError(t, ExportBoundsFiles(boundary, out, offsetReprojector{}, gpkg.NewFileWriter()))

	layer, err := gpkg.ReadLayer(out.Gpkg, BoundsLayer)
	require.NoError(t, err)
	ring := layer.Features[0].Geometry.(orb.Polygon)[0]
	assert.Equal(t, orb.Point{9000, 45000}, ring[0])
	assert.FileExists(t, out.GeoJSON)
}

func TestLoadBoundaryVariants(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boundary.geojson")

	require.NoError(t, os.WriteFile(path, []byte(`{"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}`), 0644))
	p, err := LoadBoundary(path)
	require.NoError(t, err)
	assert.Len(t, p[0], 4)

	require.NoError(t, os.WriteFile(path, []byte(`{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [0, 0]}}]}`), 0644))
	_, err = LoadBoundary(path)
	assert.ErrorIs(t, err, ErrNoBoundary)
}
