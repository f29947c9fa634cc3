// Package pdal drives the PDAL command line with JSON pipelines.
package pdal

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Stage is one entry of a PDAL pipeline
type Stage map[string]interface{}

// Metadata is the document written by `pdal pipeline --metadata`
type Metadata struct {
	Stages map[string]json.RawMessage `json:"stages"`
}

type Runner struct {
	runner  io.CommandRunner
	program string
}

func NewRunner(runner io.CommandRunner, program string) *Runner {
	if program == "" {
		program = "pdal"
	}
	return &Runner{runner: runner, program: program}
}

func Reader(filename string) Stage {
	return Stage{"filename": filename}
}

// Execute runs the stages as a single pipeline
func (r *Runner) Execute(stages ...Stage) error {
	_, err := r.execute(false, stages)
	return err
}

// ExecuteWithMetadata runs the stages and returns the pipeline metadata
func (r *Runner) ExecuteWithMetadata(stages ...Stage) (*Metadata, error) {
	return r.execute(true, stages)
}

func (r *Runner) execute(withMetadata bool, stages []Stage) (*Metadata, error) {
	dir, err := os.MkdirTemp("", "pdal-pipeline-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	content, err := json.MarshalIndent(map[string]interface{}{"pipeline": stages}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode pipeline")
	}
	pipelineFile := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(pipelineFile, content, 0644); err != nil {
		return nil, err
	}
	glog.V(1).Infoln("pdal pipeline", string(content))

	args := []string{"pipeline", pipelineFile}
	metadataFile := filepath.Join(dir, "metadata.json")
	if withMetadata {
		args = append(args, "--metadata", metadataFile)
	}
	if err := r.runner.Run(r.program, args...); err != nil {
		return nil, err
	}
	if !withMetadata {
		return nil, nil
	}

	raw, err := os.ReadFile(metadataFile)
	if err != nil {
		return nil, errors.Wrap(err, "pdal did not write metadata")
	}
	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, errors.Wrap(err, "cannot parse pdal metadata")
	}
	return &metadata, nil
}

// Boundary returns the WKT boundary computed by `pdal info --boundary`
func (r *Runner) Boundary(path string) (string, error) {
	out, err := r.runner.Output(r.program, "info", "--boundary", path)
	if err != nil {
		return "", err
	}
	var info struct {
		Boundary struct {
			Boundary string `json:"boundary"`
		} `json:"boundary"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return "", errors.Wrap(err, "cannot parse pdal info output")
	}
	if info.Boundary.Boundary == "" {
		return "", errors.Errorf("pdal info returned no boundary for %s", path)
	}
	return info.Boundary.Boundary, nil
}
