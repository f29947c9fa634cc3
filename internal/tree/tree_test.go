package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	tr := New("/data/project")
	assert.Equal(t, "/data/project/odm_georeferencing/odm_georeferenced_model.laz", tr.GeoreferencedModelLaz())
	assert.Equal(t, "/data/project/odm_25dtexturing", tr.TexturingDir(stage.Texturing25D))
	assert.Equal(t, "/data/project/odm_georeferencing/gcp_list.txt", tr.GCPList(""))
	assert.Equal(t, "/tmp/gcp.txt", tr.GCPList("/tmp/gcp.txt"))
	assert.Equal(t, "/data/project/odm_georeferencing/odm_georeferenced_model.copc.laz", tr.PointCloudExport(stage.PointCloudCOPC))

	geojson, gpkg := tr.BoundsFiles()
	assert.Equal(t, "/data/project/odm_georeferencing/odm_georeferenced_model.bounds.geojson", geojson)
	assert.Equal(t, "/data/project/odm_georeferencing/odm_georeferenced_model.bounds.gpkg", gpkg)
}

func TestAlignFileDetection(t *testing.T) {
	tr := New(t.TempDir())
	assert.Empty(t, tr.AlignFile(""))

	require.NoError(t, os.WriteFile(tr.Path("align.tif"), []byte("x"), 0644))
	assert.Equal(t, tr.Path("align.tif"), tr.AlignFile(""))

	require.NoError(t, os.WriteFile(tr.Path("align.las"), []byte("x"), 0644))
	assert.Equal(t, tr.Path("align.las"), tr.AlignFile(""))

	assert.Equal(t, filepath.Join("/ref", "model.laz"), tr.AlignFile("/ref/model.laz"))
}
