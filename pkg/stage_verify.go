package pkg

import (
	"strings"

	"github.com/ecopia-map/georeferencer/internal/alignment"
	"github.com/ecopia-map/georeferencer/internal/gcp"
	"github.com/ecopia-map/georeferencer/internal/outcome"
	"github.com/ecopia-map/georeferencer/internal/reconstruction"
	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/ecopia-map/georeferencer/internal/tree"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	StepVerifyGCP    = "verify-gcp"
	StepVerifyMatrix = "verify-alignment-matrix"
	StepVerifyModels = "verify-textured-models"
)

// StageVerify checks the consistency of the products of a previous run
type StageVerify struct {
	modelFinder tools.ModelFinder
}

func NewStageVerify(modelFinder tools.ModelFinder) IStage {
	return &StageVerify{modelFinder: modelFinder}
}

func (v *StageVerify) Run(opts *stage.StageOptions) (*outcome.Report, error) {
	t := tree.New(opts.ProjectPath)
	report := outcome.NewReport()
	report.Add(v.verifyGCP(t))
	report.Add(v.verifyMatrix(t))
	report.Add(v.verifyTexturedModels(t, opts))
	return report, report.Err()
}

func (v *StageVerify) verifyGCP(t *tree.Tree) outcome.Outcome {
	paths := gcp.Paths{Gpkg: t.GCPGpkg(), Gml: t.GCPGml(), GeoJSON: t.GCPGeoJSON(), Zip: t.GCPZip()}
	if !tools.FileExists(paths.Gpkg) {
		return outcome.Skip(StepVerifyGCP, "no ground control points exported")
	}
	count, err := gcp.Verify(paths)
	if err != nil {
		return outcome.Fail(StepVerifyGCP, err)
	}
	glog.Infof("%d ground control points match across GeoPackage, GeoJSON and archive", count)
	return outcome.Ok(StepVerifyGCP)
}

func (v *StageVerify) verifyMatrix(t *tree.Tree) outcome.Outcome {
	if !tools.FileExists(t.AlignmentMatrix()) {
		return outcome.Skip(StepVerifyMatrix, "no alignment matrix")
	}
	m, err := alignment.LoadMatrix(t.AlignmentMatrix())
	if err != nil {
		return outcome.Fail(StepVerifyMatrix, err)
	}
	glog.Infof("Alignment matrix: %s", m)
	return outcome.Ok(StepVerifyMatrix)
}

// verifyTexturedModels reports topocentric models that have no georeferenced
// counterpart
func (v *StageVerify) verifyTexturedModels(t *tree.Tree, opts *stage.StageOptions) outcome.Outcome {
	rec, err := reconstruction.Load(t, t.GCPList(opts.GcpFile))
	if err != nil {
		return outcome.Fail(StepVerifyModels, err)
	}
	primaryBand := reconstruction.PrimaryBandName(rec.MultiCamera, opts.PrimaryBand)
	var missing []string
	for _, m := range v.modelFinder.GetTexturedModels(opts.ProjectPath, rec.Bands(), primaryBand) {
		if tools.FileExists(m.TopoPath) && !tools.FileExists(m.GeoPath) {
			missing = append(missing, m.GeoPath)
		}
	}
	if len(missing) > 0 {
		return outcome.Fail(StepVerifyModels, errors.Errorf("missing georeferenced textured models: %s", strings.Join(missing, ", ")))
	}
	return outcome.Ok(StepVerifyModels)
}
