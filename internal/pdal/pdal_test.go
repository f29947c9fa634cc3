package pdal

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner captures the pipeline file and can fake metadata output
type recordingRunner struct {
	program  string
	args     []string
	pipeline map[string][]Stage
	metadata string
	output   string
	err      error
}

func (r *recordingRunner) Run(program string, args ...string) error {
	r.program, r.args = program, args
	if r.err != nil {
		return r.err
	}
	content, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, &r.pipeline); err != nil {
		return err
	}
	if len(args) == 4 && r.metadata != "" {
		return os.WriteFile(args[3], []byte(r.metadata), 0644)
	}
	return nil
}

func (r *recordingRunner) Output(program string, args ...string) ([]byte, error) {
	r.program, r.args = program, args
	return []byte(r.output), r.err
}

func TestExecuteWritesPipeline(t *testing.T) {
	rec := &recordingRunner{}
	r := NewRunner(rec, "")
	err := r.Execute(Reader("in.ply"), Stage{"type": "writers.las", "filename": "out.laz"})
	require.NoError(t, err)

	assert.Equal(t, "pdal", rec.program)
	assert.Equal(t, "pipeline", rec.args[0])
	require.Len(t, rec.pipeline["pipeline"], 2)
	assert.Equal(t, "in.ply", rec.pipeline["pipeline"][0]["filename"])
	assert.Equal(t, "writers.las", rec.pipeline["pipeline"][1]["type"])
}

func TestExecuteWithMetadata(t *testing.T) {
	rec := &recordingRunner{metadata: `{"stages": {"filters.icp": {"converged": true}}}`}
	r := NewRunner(rec, "/opt/pdal/bin/pdal")
	m, err := r.ExecuteWithMetadata(Reader("a.laz"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/pdal/bin/pdal", rec.program)
	assert.Equal(t, "--metadata", rec.args[2])
	assert.JSONEq(t, `{"converged": true}`, string(m.Stages["filters.icp"]))

	rec = &recordingRunner{}
	_, err = NewRunner(rec, "").ExecuteWithMetadata(Reader("a.laz"))
	assert.Error(t, err)
}

func TestExecuteFailure(t *testing.T) {
	rec := &recordingRunner{err: errors.New("exit status 1")}
	err := NewRunner(rec, "").Execute(Reader("a.laz"))
	assert.EqualError(t, err, "exit status 1")
}

func TestBoundary(t *testing.T) {
	rec := &recordingRunner{output: `{"boundary": {"boundary": "POLYGON ((0 0, 1 0, 1 1, 0 0))", "area": 0.5}}`}
	wkt, err := NewRunner(rec, "").Boundary("a.las")
	require.NoError(t, err)
	assert.Equal(t, "POLYGON ((0 0, 1 0, 1 1, 0 0))", wkt)
	assert.Equal(t, []string{"info", "--boundary", "a.las"}, rec.args)

	rec.output = `{"boundary": {}}`
	_, err = NewRunner(rec, "").Boundary("a.las")
	assert.Error(t, err)
}
