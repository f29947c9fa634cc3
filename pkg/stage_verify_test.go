package pkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/georeferencer/internal/outcome"
	"github.com/ecopia-map/georeferencer/internal/reconstruction"
	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/ecopia-map/georeferencer/internal/tree"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifiedProject(t *testing.T) string {
	root := newProject(t, true)
	writeProjectFile(t, root, "odm_georeferencing/gcp_list.txt", "WGS84 UTM 32N\n500010 4000010 301 1200 800 a.jpg gcp1\n")
	writeProjectFile(t, root, "align.laz", "reference")
	manager := newFakeManager()
	manager.source.gcps = []reconstruction.GroundControlPoint{
		{ID: "gcp1", Coordinates: [3]float64{500010, 4000010, 301}, Error: [3]float64{0.1, 0.2, 0.3}},
		{ID: "gcp2", Coordinates: [3]float64{500020, 4000020, 302}, Error: [3]float64{-0.1, 0, 0.05}},
	}
	runStage(t, manager, &stage.StageOptions{ProjectPath: root})
	return root
}

func runVerify(root string) (*outcome.Report, error) {
	return NewStageVerify(tools.NewStandardModelFinder()).Run(&stage.StageOptions{ProjectPath: root})
}

func TestVerify(t *testing.T) {
	root := verifiedProject(t)
	report, err := runVerify(root)
	require.NoError(t, err)
	for _, step := range []string{StepVerifyGCP, StepVerifyMatrix, StepVerifyModels} {
		assert.Equal(t, outcome.Success, statusOf(t, report, step), step)
	}
}

func TestVerifyUnprocessedProject(t *testing.T) {
	report, err := runVerify(newProject(t, false))
	require.Error(t, err)
	assert.Equal(t, outcome.Skipped, statusOf(t, report, StepVerifyGCP))
	assert.Equal(t, outcome.Skipped, statusOf(t, report, StepVerifyMatrix))
	assert.Equal(t, outcome.Fatal, statusOf(t, report, StepVerifyModels))
}

func TestVerifyDetectsInvalidMatrix(t *testing.T) {
	root := verifiedProject(t)
	matrix := tree.New(root).AlignmentMatrix()
	require.NoError(t, os.WriteFile(matrix, []byte(`[[1, 0, 0, 0], [0, 1, 0, 0], [0, 0, 1, 0], [0, 0, 1, 1]]`), 0644))

	report, err := runVerify(root)
	require.Error(t, err)
	assert.Equal(t, outcome.Fatal, statusOf(t, report, StepVerifyMatrix))
	assert.Equal(t, outcome.Success, statusOf(t, report, StepVerifyGCP))
}

func TestVerifyDetectsGCPMismatch(t *testing.T) {
	root := verifiedProject(t)
	tr := tree.New(root)
	require.NoError(t, os.WriteFile(tr.GCPGeoJSON(), []byte(`{"type": "FeatureCollection", "features": []}`), 0644))

	report, err := runVerify(root)
	require.Error(t, err)
	assert.Equal(t, outcome.Fatal, statusOf(t, report, StepVerifyGCP))
}

func TestVerifyDetectsMissingModel(t *testing.T) {
	root := verifiedProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "odm_texturing", stage.TexturedModelObj)))
	// the backup left by the alignment does not count
	report, err := runVerify(root)
	require.Error(t, err)
	assert.Equal(t, outcome.Fatal, statusOf(t, report, StepVerifyModels))
}
