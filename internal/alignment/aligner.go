package alignment

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ecopia-map/georeferencer/internal/converters/offset"
	"github.com/ecopia-map/georeferencer/internal/obj"
	"github.com/ecopia-map/georeferencer/internal/pdal"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	DefaultDecimationStep = 10
	RegistrationFile      = "registration.json"
)

type Aligner interface {
	ComputeAlignmentMatrix(pointCloud string, reference string, statsDir string) (*Matrix, error)
	ApplyToPointCloud(in string, m *Matrix, out string) error
	ApplyToMesh(in string, m *Matrix, o offset.PlanarOffset, out string) error
}

// PdalAligner registers the point cloud on the reference with PDAL's ICP
type PdalAligner struct {
	pdal           *pdal.Runner
	decimationStep int
}

func NewPdalAligner(runner *pdal.Runner, decimationStep int) *PdalAligner {
	if decimationStep <= 0 {
		decimationStep = DefaultDecimationStep
	}
	return &PdalAligner{pdal: runner, decimationStep: decimationStep}
}

type registration struct {
	Converged bool    `json:"converged"`
	Fitness   float64 `json:"fitness"`
	Composed  string  `json:"composed"`
}

func (a *PdalAligner) ComputeAlignmentMatrix(pointCloud string, reference string, statsDir string) (*Matrix, error) {
	metadata, err := a.pdal.ExecuteWithMetadata(
		pdal.Stage{"filename": reference, "tag": "reference"},
		pdal.Stage{"type": "filters.decimation", "step": a.decimationStep, "inputs": []string{"reference"}, "tag": "fixed"},
		pdal.Stage{"filename": pointCloud, "tag": "reconstruction"},
		pdal.Stage{"type": "filters.decimation", "step": a.decimationStep, "inputs": []string{"reconstruction"}, "tag": "moving"},
		pdal.Stage{"type": "filters.icp", "inputs": []string{"fixed", "moving"}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "icp registration failed")
	}
	raw, ok := metadata.Stages["filters.icp"]
	if !ok {
		return nil, errors.New("icp registration produced no metadata")
	}
	var reg registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, errors.Wrap(err, "cannot parse icp metadata")
	}
	if !reg.Converged {
		return nil, errors.Errorf("icp registration did not converge (fitness %v)", reg.Fitness)
	}
	m, err := ParseMatrix(reg.Composed)
	if err != nil {
		return nil, err
	}

	if statsDir != "" {
		if err := writeRegistration(statsDir, reference, &reg, m); err != nil {
			glog.Warningf("Cannot write registration summary: %v", err)
		}
	}
	return m, nil
}

func writeRegistration(statsDir string, reference string, reg *registration, m *Matrix) error {
	if err := os.MkdirAll(statsDir, 0755); err != nil {
		return err
	}
	content, err := json.MarshalIndent(map[string]interface{}{
		"reference": reference,
		"converged": reg.Converged,
		"fitness":   reg.Fitness,
		"matrix":    m,
	}, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(statsDir, RegistrationFile), content, 0644)
}

func (a *PdalAligner) ApplyToPointCloud(in string, m *Matrix, out string) error {
	return a.pdal.Execute(
		pdal.Reader(in),
		pdal.Stage{"type": "filters.transformation", "matrix": m.String()},
		pdal.Stage{"type": "writers.las", "filename": out, "forward": "all"},
	)
}

func (a *PdalAligner) ApplyToMesh(in string, m *Matrix, o offset.PlanarOffset, out string) error {
	return TransformMesh(in, m, o, out)
}

// TransformMesh applies m to the absolute position of every vertex: the
// planar offset is added before the transform and removed after it
func TransformMesh(in string, m *Matrix, o offset.PlanarOffset, out string) error {
	return obj.TransformVertices(in, out, func(xs, ys, zs []float64) error {
		for i := range xs {
			x, y := o.Apply(xs[i], ys[i])
			x, y, zs[i] = m.Transform(x, y, zs[i])
			xs[i], ys[i] = o.Remove(x, y)
		}
		return nil
	})
}
