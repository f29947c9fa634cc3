package pointcloud

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ecopia-map/georeferencer/internal/data"
	"github.com/ecopia-map/georeferencer/internal/pdal"
	"github.com/ecopia-map/georeferencer/internal/ply"
	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/pkg/errors"
)

var ErrUnsupportedFormat = errors.New("unsupported point cloud format")

// Vlr is a file embedded as a LAS variable length record
type Vlr struct {
	Filename    string `json:"filename"`
	UserID      string `json:"user_id"`
	RecordID    int    `json:"record_id"`
	Description string `json:"description"`
}

// LasDefinition describes how a PLY point cloud becomes a compressed LAS
type LasDefinition struct {
	Input         string
	Output        string
	Georeferenced bool
	Srs           string
	OffsetX       float64
	OffsetY       float64
	Scale         float64
	Vlrs          []Vlr
}

type Service interface {
	Read(path string) (*data.PointCloud, error)
	Write(path string, pc *data.PointCloud) error
	WriteLas(def LasDefinition) error
	Export(in string, out string, format stage.PointCloudFormat) error
}

type StandardService struct {
	pdal *pdal.Runner
}

func NewStandardService(runner *pdal.Runner) *StandardService {
	return &StandardService{pdal: runner}
}

func (s *StandardService) Read(path string) (*data.PointCloud, error) {
	return ply.ReadFile(path)
}

// Write stores pc as a binary little endian PLY
func (s *StandardService) Write(path string, pc *data.PointCloud) error {
	return ply.WriteFile(path, pc)
}

func TranslationMatrix(x float64, y float64) string {
	return fmt.Sprintf("1 0 0 %s 0 1 0 %s 0 0 1 0 0 0 0 1", formatFloat(x), formatFloat(y))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LasPipeline returns the PDAL stages writing def
func LasPipeline(def LasDefinition) []pdal.Stage {
	stages := []pdal.Stage{
		{"type": "readers.ply", "filename": def.Input},
		{"type": "filters.ferry", "dimensions": "views => UserData"},
	}
	writer := pdal.Stage{"type": "writers.las", "filename": def.Output}
	if def.Georeferenced {
		stages = append(stages, pdal.Stage{
			"type":   "filters.transformation",
			"matrix": TranslationMatrix(def.OffsetX, def.OffsetY),
		})
		writer["a_srs"] = def.Srs
		writer["offset_x"] = def.OffsetX
		writer["offset_y"] = def.OffsetY
		writer["offset_z"] = 0
		writer["scale_x"] = def.Scale
		writer["scale_y"] = def.Scale
		writer["scale_z"] = def.Scale
		if len(def.Vlrs) > 0 {
			writer["vlrs"] = def.Vlrs
		}
	}
	return append(stages, writer)
}

func (s *StandardService) WriteLas(def LasDefinition) error {
	return errors.Wrapf(s.pdal.Execute(LasPipeline(def)...), "cannot write %s", def.Output)
}

// ExportPipeline returns the PDAL stages converting in to format
func ExportPipeline(in string, out string, format stage.PointCloudFormat) ([]pdal.Stage, error) {
	var writer pdal.Stage
	switch format {
	case stage.PointCloudCSV:
		writer = pdal.Stage{
			"type":             "writers.text",
			"format":           "csv",
			"order":            "X,Y,Z",
			"keep_unspecified": false,
		}
	case stage.PointCloudLAS:
		writer = pdal.Stage{"type": "writers.las", "forward": "all"}
	case stage.PointCloudCOPC:
		writer = pdal.Stage{"type": "writers.copc", "forward": "all"}
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", strings.ToLower(string(format)))
	}
	writer["filename"] = out
	return []pdal.Stage{pdal.Reader(in), writer}, nil
}

func (s *StandardService) Export(in string, out string, format stage.PointCloudFormat) error {
	stages, err := ExportPipeline(in, out, format)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.pdal.Execute(stages...), "cannot export %s", out)
}
