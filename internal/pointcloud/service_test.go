package pointcloud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/georeferencer/internal/data"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslationMatrix(t *testing.T) {
	assert.Equal(t, "1 0 0 322263 0 1 0 5157982.5 0 0 1 0 0 0 0 1", TranslationMatrix(322263, 5157982.5))
}

func TestLasPipelineGeoreferenced(t *testing.T) {
	stages := LasPipeline(LasDefinition{
		Input:         "point_cloud.ply",
		Output:        "model.laz",
		Georeferenced: true,
		Srs:           "+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs",
		OffsetX:       322263,
		OffsetY:       5157982,
		Scale:         0.001,
		Vlrs:          []Vlr{{Filename: "gcp.zip", UserID: "ODM", RecordID: 2, Description: "Ground Control Points (zip)"}},
	})
	require.Len(t, stages, 4)
	assert.Equal(t, "views => UserData", stages[1]["dimensions"])
	assert.Equal(t, "1 0 0 322263 0 1 0 5157982 0 0 1 0 0 0 0 1", stages[2]["matrix"])
	writer := stages[3]
	assert.Equal(t, 322263.0, writer["offset_x"])
	assert.Equal(t, 0.001, writer["scale_z"])
	assert.Len(t, writer["vlrs"], 1)
}

func TestLasPipelinePlain(t *testing.T) {
	stages := LasPipeline(LasDefinition{Input: "point_cloud.ply", Output: "model.laz", Scale: 0.01})
	require.Len(t, stages, 3)
	writer := stages[2]
	assert.Equal(t, "writers.las", writer["type"])
	assert.NotContains(t, writer, "a_srs")
	assert.NotContains(t, writer, "scale_x")
}

func TestExportPipeline(t *testing.T) {
	stages, err := ExportPipeline("model.laz", "model.csv", stage.PointCloudCSV)
	require.NoError(t, err)
	assert.Equal(t, "writers.text", stages[1]["type"])
	assert.Equal(t, "X,Y,Z", stages[1]["order"])

	stages, err = ExportPipeline("model.laz", "model.copc.laz", stage.PointCloudCOPC)
	require.NoError(t, err)
	assert.Equal(t, "writers.copc", stages[1]["type"])
	assert.Equal(t, "model.copc.laz", stages[1]["filename"])

	_, err = ExportPipeline("model.laz", "model.e57", stage.PointCloudFormat("E57"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadWriteWidensCoordinates(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "point_cloud_topo.ply")
	topo := "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\n" +
		"property uchar red\nproperty uchar views\nend_header\n1 2 3 10 4\n5 6 7 20 5\n"
	require.NoError(t, os.WriteFile(in, []byte(topo), 0644))

	service := NewStandardService(nil)
	pc, err := service.Read(in)
	require.NoError(t, err)
	x := pc.Column("x")
	x[0], x[1] = 512345.125, 512349.375
	pc.SetType("x", data.Double)

	out := filepath.Join(dir, "point_cloud.ply")
	require.NoError(t, io.WriteAtomic(out, func(tmp string) error {
		return service.Write(tmp, pc)
	}))

	got, err := service.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []float64{512345.125, 512349.375}, got.Column("x"))
	assert.Equal(t, data.Double, got.Properties[0].Type)
	assert.Equal(t, []float64{4, 5}, got.Column("views"))
	assert.Equal(t, []float64{10, 20}, got.Column("red"))
}
