// Package alignment registers the georeferenced outputs on an external
// reference model and applies the resulting transform to every output.
package alignment

import (
	"os"

	"github.com/ecopia-map/georeferencer/internal/converters/offset"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/outcome"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const Step = "alignment"

type Request struct {
	// Reference model, empty when alignment is not configured
	AlignFile  string
	MatrixPath string
	PointCloud string
	Meshes     []string
	Offset     offset.PlanarOffset
	StatsDir   string
	Rerun      bool
}

type Workflow struct {
	aligner Aligner
}

func NewWorkflow(aligner Aligner) *Workflow {
	return &Workflow{aligner: aligner}
}

func (w *Workflow) Run(req Request) outcome.Outcome {
	matrixExists := tools.FileExists(req.MatrixPath)

	if req.AlignFile == "" {
		if matrixExists {
			if err := os.Remove(req.MatrixPath); err != nil {
				return outcome.Fail(Step, errors.Wrap(err, "cannot remove stale alignment matrix"))
			}
			glog.Infof("Removed stale alignment matrix %s", req.MatrixPath)
		}
		return outcome.Skip(Step, "no reference model configured")
	}

	if matrixExists && !req.Rerun {
		return outcome.Skip(Step, "Already computed alignment")
	}
	if matrixExists {
		if err := os.Remove(req.MatrixPath); err != nil {
			return outcome.Fail(Step, errors.Wrap(err, "cannot remove stale alignment matrix"))
		}
	}

	m, err := w.aligner.ComputeAlignmentMatrix(req.PointCloud, req.AlignFile, req.StatsDir)
	if err == nil {
		err = m.Validate()
	}
	if err != nil {
		return outcome.Degrade(Step, "Cannot compute alignment matrix: %v. Alignment to %s will be skipped", err, req.AlignFile)
	}
	glog.Infof("Alignment matrix: %s", m)

	result := outcome.Ok(Step)
	err = io.ApplyWithBackup(req.PointCloud, func(src string, dst string) error {
		return w.aligner.ApplyToPointCloud(src, m, dst)
	})
	if err != nil {
		result.Warn("Cannot transform point cloud: %v", err)
	} else {
		glog.Infof("Transformed %s", req.PointCloud)
	}

	for _, mesh := range req.Meshes {
		if !tools.FileExists(mesh) && !tools.FileExists(io.BackupPath(mesh)) {
			continue
		}
		err := io.ApplyWithBackup(mesh, func(src string, dst string) error {
			return w.aligner.ApplyToMesh(src, m, req.Offset, dst)
		})
		if err != nil {
			result.Warn("Cannot transform textured model %s: %v", mesh, err)
			continue
		}
		glog.Infof("Transformed %s", mesh)
	}

	if err := SaveMatrix(req.MatrixPath, m); err != nil {
		return outcome.Fail(Step, errors.Wrapf(err, "cannot write %s", req.MatrixPath))
	}
	return result
}
