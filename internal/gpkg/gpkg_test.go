package gpkg

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSrsFromProj4(t *testing.T) {
	srs := SrsFromProj4("+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs")
	assert.Equal(t, 32632, srs.ID)
	assert.Equal(t, "EPSG", srs.Organization)

	srs = SrsFromProj4("+proj=utm +zone=7 +datum=WGS84 +units=m +no_defs +south")
	assert.Equal(t, 32707, srs.ID)

	assert.Equal(t, WGS84, SrsFromProj4("+proj=longlat +datum=WGS84 +no_defs"))

	srs = SrsFromProj4("+proj=tmerc +lat_0=0 +lon_0=9 +ellps=bessel")
	assert.Equal(t, CustomSrsID, srs.ID)
	assert.Equal(t, "+proj=tmerc +lat_0=0 +lon_0=9 +ellps=bessel", srs.Definition)
}

func TestPointLayerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ground_control_points.gpkg")
	layer := &Layer{
		Name:         "ground_control_points",
		GeometryType: "POINT",
		HasZ:         true,
		Srs:          SrsFromProj4("+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs"),
		Fields:       []Field{{"id", Text}, {"observations_count", Integer}, {"error_x", Real}},
		Features: []Feature{
			{Point: &PointZ{500000.5, 4000000.25, 312.5}, Properties: map[string]interface{}{"id": "gcp1", "observations_count": 2, "error_x": 0.01}},
			{Point: &PointZ{500010, 4000010, 300}, Properties: map[string]interface{}{"id": "gcp2", "observations_count": 0, "error_x": 0.0}},
		},
	}
	require.NoError(t, WriteLayer(path, layer))

	got, err := ReadLayer(path, "ground_control_points")
	require.NoError(t, err)
	assert.Equal(t, "POINT", got.GeometryType)
	assert.True(t, got.HasZ)
	assert.Equal(t, 32632, got.Srs.ID)
	assert.Equal(t, layer.Fields, got.Fields)
	require.Len(t, got.Features, 2)
	assert.Equal(t, PointZ{500000.5, 4000000.25, 312.5}, *got.Features[0].Point)
	assert.Equal(t, "gcp1", got.Features[0].Properties["id"])
	assert.EqualValues(t, 2, got.Features[0].Properties["observations_count"])
	assert.Equal(t, 0.01, got.Features[0].Properties["error_x"])

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var appID, version int
	require.NoError(t, db.QueryRow("PRAGMA application_id").Scan(&appID))
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, applicationID, appID)
	assert.Equal(t, userVersion, version)

	var minX, maxY float64
	require.NoError(t, db.QueryRow("SELECT min_x, max_y FROM gpkg_contents WHERE table_name = 'ground_control_points'").Scan(&minX, &maxY))
	assert.Equal(t, 500000.5, minX)
	assert.Equal(t, 4000010.0, maxY)
}

func TestPolygonLayerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounds.gpkg")
	polygon := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	require.NoError(t, WriteLayer(path, &Layer{
		Name:         "bounds",
		GeometryType: "POLYGON",
		Srs:          WGS84,
		Features:     []Feature{{Geometry: polygon}},
	}))
	// overwrite in place
	require.NoError(t, WriteLayer(path, &Layer{
		Name:         "bounds",
		GeometryType: "POLYGON",
		Srs:          WGS84,
		Features:     []Feature{{Geometry: polygon}},
	}))

	got, err := ReadLayer(path, "bounds")
	require.NoError(t, err)
	require.Len(t, got.Features, 1)
	assert.Equal(t, polygon, got.Features[0].Geometry)
	assert.Nil(t, got.Features[0].Point)

	_, err = ReadLayer(path, "missing")
	assert.ErrorIs(t, err, ErrLayerNotFound)
}

func TestDecodeGeometryErrors(t *testing.T) {
	_, _, err := DecodeGeometry([]byte("XX"))
	assert.Error(t, err)
	blob := EncodePointZ(PointZ{1, 2, 3}, 4326)
	_, _, err = DecodeGeometry(blob[:12])
	assert.Error(t, err)

	g, srs, err := DecodeGeometry(blob)
	require.NoError(t, err)
	assert.Equal(t, 4326, srs)
	assert.Equal(t, PointZ{1, 2, 3}, g)
}
