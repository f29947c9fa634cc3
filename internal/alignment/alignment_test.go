package alignment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/georeferencer/internal/converters/offset"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/outcome"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var translation = []float64{
	1, 0, 0, 10,
	0, 1, 0, 20,
	0, 0, 1, 30,
	0, 0, 0, 1,
}

func TestMatrix(t *testing.T) {
	m, err := NewMatrix(translation)
	require.NoError(t, err)
	x, y, z := m.Transform(1, 2, 3)
	assert.Equal(t, []float64{11, 22, 33}, []float64{x, y, z})
	assert.Equal(t, "1 0 0 10 0 1 0 20 0 0 1 30 0 0 0 1", m.String())

	_, err = NewMatrix(translation[:15])
	assert.ErrorIs(t, err, ErrInvalidMatrix)

	bad := append([]float64(nil), translation...)
	bad[15] = 2
	_, err = NewMatrix(bad)
	assert.ErrorIs(t, err, ErrInvalidMatrix)

	parsed, err := ParseMatrix("1 0 0 10\n0 1 0 20\n0 0 1 30\n0 0 0 1\n")
	require.NoError(t, err)
	assert.Equal(t, m.Rows(), parsed.Rows())

	_, err = ParseMatrix("1 0 0 x")
	assert.ErrorIs(t, err, ErrInvalidMatrix)
}

func TestMatrixPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alignment_matrix.json")
	m, err := NewMatrix(translation)
	require.NoError(t, err)
	require.NoError(t, SaveMatrix(path, m))

	loaded, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, m.Rows(), loaded.Rows())

	require.NoError(t, os.WriteFile(path, []byte(`[[1, 0, 0, 0], [0, 1, 0, 0], [0, 0, 1, 0]]`), 0644))
	_, err = LoadMatrix(path)
	assert.ErrorIs(t, err, ErrInvalidMatrix)
}

func TestTransformMesh(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.obj")
	out := filepath.Join(dir, "out.obj")
	require.NoError(t, os.WriteFile(in, []byte("v 1 2 3\nvt 0 0\n"), 0644))

	// rotate 90 degrees around Z, in absolute coordinates
	m, err := NewMatrix([]float64{0, -1, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	require.NoError(t, TransformMesh(in, m, offset.NewPlanarOffset(100, 0), out))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	// (101, 2) -> (-2, 101) -> minus offset
	assert.Equal(t, "v -102 101 3\nvt 0 0\n", string(content))
}

// fakeAligner copies files and can be told to fail
type fakeAligner struct {
	matrix      *Matrix
	computeErr  error
	applyErr    error
	computed    int
	pointClouds int
	meshes      int
}

func (a *fakeAligner) ComputeAlignmentMatrix(pointCloud string, reference string, statsDir string) (*Matrix, error) {
	a.computed++
	return a.matrix, a.computeErr
}

func (a *fakeAligner) transform(in string, out string) error {
	if a.applyErr != nil {
		_ = os.WriteFile(out, []byte("partial"), 0644)
		return a.applyErr
	}
	content, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append([]byte("aligned:"), content...), 0644)
}

func (a *fakeAligner) ApplyToPointCloud(in string, m *Matrix, out string) error {
	a.pointClouds++
	return a.transform(in, out)
}

func (a *fakeAligner) ApplyToMesh(in string, m *Matrix, o offset.PlanarOffset, out string) error {
	a.meshes++
	return a.transform(in, out)
}

type fixture struct {
	dir string
	req Request
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	f := &fixture{dir: dir}
	f.req = Request{
		AlignFile:  filepath.Join(dir, "align.laz"),
		MatrixPath: filepath.Join(dir, "alignment_matrix.json"),
		PointCloud: filepath.Join(dir, "odm_georeferenced_model.laz"),
		Meshes: []string{
			filepath.Join(dir, "odm_texturing", "odm_textured_model_geo.obj"),
			filepath.Join(dir, "odm_25dtexturing", "odm_textured_model_geo.obj"),
			filepath.Join(dir, "odm_texturing", "nir", "odm_textured_model_geo.obj"),
		},
	}
	f.write(t, f.req.PointCloud, "laz")
	f.write(t, f.req.Meshes[0], "mesh-full")
	f.write(t, f.req.Meshes[1], "mesh-25d")
	return f
}

func (f *fixture) write(t *testing.T, path string, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func identityAligner() *fakeAligner {
	return &fakeAligner{matrix: Identity()}
}

func TestWorkflowAppliesEverywhere(t *testing.T) {
	f := newFixture(t)
	aligner := identityAligner()

	result := NewWorkflow(aligner).Run(f.req)
	assert.Equal(t, outcome.Success, result.Status)
	assert.Equal(t, 1, aligner.pointClouds)
	assert.Equal(t, 2, aligner.meshes)

	assert.Equal(t, "aligned:laz", read(t, f.req.PointCloud))
	assert.Equal(t, "laz", read(t, io.BackupPath(f.req.PointCloud)))
	assert.Equal(t, "aligned:mesh-full", read(t, f.req.Meshes[0]))
	assert.Equal(t, "mesh-25d", read(t, io.BackupPath(f.req.Meshes[1])))
	assert.NoFileExists(t, f.req.Meshes[2])
	assert.FileExists(t, f.req.MatrixPath)
}

func TestWorkflowRollback(t *testing.T) {
	f := newFixture(t)
	aligner := &fakeAligner{matrix: Identity(), applyErr: errors.New("transform failed")}

	result := NewWorkflow(aligner).Run(f.req)
	assert.Equal(t, outcome.Degraded, result.Status)
	assert.Len(t, result.Warnings, 3)

	assert.Equal(t, "laz", read(t, f.req.PointCloud))
	assert.Equal(t, "mesh-full", read(t, f.req.Meshes[0]))
	assert.Equal(t, "mesh-25d", read(t, f.req.Meshes[1]))
	for _, p := range append([]string{f.req.PointCloud}, f.req.Meshes...) {
		assert.NoFileExists(t, io.BackupPath(p))
	}
	// the matrix is persisted regardless of per file failures
	assert.FileExists(t, f.req.MatrixPath)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"odm_georeferenced_model.laz", "alignment_matrix.json", "odm_texturing", "odm_25dtexturing"}, names)
}

func TestWorkflowSkipsWhenMatrixExists(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.req.MatrixPath, "[]")
	aligner := identityAligner()

	result := NewWorkflow(aligner).Run(f.req)
	assert.Equal(t, outcome.Skipped, result.Status)
	assert.Zero(t, aligner.computed)
	assert.Equal(t, "laz", read(t, f.req.PointCloud))
}

func TestWorkflowRerunReappliesFromBackup(t *testing.T) {
	f := newFixture(t)
	aligner := identityAligner()
	require.Equal(t, outcome.Success, NewWorkflow(aligner).Run(f.req).Status)

	f.req.Rerun = true
	require.Equal(t, outcome.Success, NewWorkflow(aligner).Run(f.req).Status)
	assert.Equal(t, 2, aligner.computed)
	assert.Equal(t, "aligned:laz", read(t, f.req.PointCloud))
	assert.Equal(t, "aligned:mesh-full", read(t, f.req.Meshes[0]))
}

func TestWorkflowComputeFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.req.MatrixPath, "[]")
	f.req.Rerun = true
	aligner := &fakeAligner{computeErr: errors.New("icp did not converge")}

	result := NewWorkflow(aligner).Run(f.req)
	assert.Equal(t, outcome.Degraded, result.Status)
	assert.Contains(t, result.Warnings[0], "icp did not converge")
	assert.NoFileExists(t, f.req.MatrixPath)
	assert.Equal(t, "laz", read(t, f.req.PointCloud))
	assert.Zero(t, aligner.pointClouds)
}

func TestWorkflowInvalidatesStaleMatrix(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.req.MatrixPath, "[]")
	f.req.AlignFile = ""

	result := NewWorkflow(identityAligner()).Run(f.req)
	assert.Equal(t, outcome.Skipped, result.Status)
	assert.NoFileExists(t, f.req.MatrixPath)
}

func TestWorkflowRecoversInterruptedAttempt(t *testing.T) {
	f := newFixture(t)
	// a crash left only the backup of the 2.5D mesh
	require.NoError(t, os.Rename(f.req.Meshes[1], io.BackupPath(f.req.Meshes[1])))

	result := NewWorkflow(identityAligner()).Run(f.req)
	assert.Equal(t, outcome.Success, result.Status)
	assert.Equal(t, "aligned:mesh-25d", read(t, f.req.Meshes[1]))
}
