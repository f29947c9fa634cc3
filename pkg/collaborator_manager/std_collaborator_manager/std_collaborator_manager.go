package std_collaborator_manager

import (
	"github.com/ecopia-map/georeferencer/internal/alignment"
	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/ecopia-map/georeferencer/internal/converters/proj4_converter"
	"github.com/ecopia-map/georeferencer/internal/cropper"
	"github.com/ecopia-map/georeferencer/internal/gcp"
	"github.com/ecopia-map/georeferencer/internal/gpkg"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/pdal"
	"github.com/ecopia-map/georeferencer/internal/pointcloud"
	"github.com/ecopia-map/georeferencer/internal/reconstruction"
	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/ecopia-map/georeferencer/pkg/collaborator_manager"
)

const alignmentDecimationStep = 10

// StandardCollaboratorManager shares one reprojector and one PDAL runner
// between all the collaborators of a run
type StandardCollaboratorManager struct {
	options     *stage.StageOptions
	reprojector converters.Reprojector
	commands    io.CommandRunner
	pdal        *pdal.Runner
	writer      *gpkg.FileWriter
}

func NewCollaboratorManager(opts *stage.StageOptions) collaborator_manager.CollaboratorManager {
	commands := io.NewStandardCommandRunner()
	return &StandardCollaboratorManager{
		options:     opts.Copy(),
		reprojector: proj4_converter.NewProj4Reprojector(),
		commands:    commands,
		pdal:        pdal.NewRunner(commands, opts.PdalPath),
		writer:      gpkg.NewFileWriter(),
	}
}

func (m *StandardCollaboratorManager) GetReprojector() converters.Reprojector {
	return m.reprojector
}

func (m *StandardCollaboratorManager) GetTopocentricConverter(reference converters.Reference, targetProj4 string) converters.TopocentricConverter {
	return converters.NewTopocentricConverter(reference, targetProj4, m.reprojector)
}

func (m *StandardCollaboratorManager) GetPointCloudService() pointcloud.Service {
	return pointcloud.NewStandardService(m.pdal)
}

func (m *StandardCollaboratorManager) GetGCPSource(statsFile string, reference converters.Reference) gcp.Source {
	return reconstruction.NewStatsGCPSource(statsFile, reference, m.reprojector)
}

func (m *StandardCollaboratorManager) GetVectorWriter() gcp.VectorWriter {
	return m.writer
}

func (m *StandardCollaboratorManager) GetFormatConverter() gcp.FormatConverter {
	return gcp.NewOgr2OgrConverter(m.commands, m.options.Ogr2OgrPath)
}

func (m *StandardCollaboratorManager) GetAligner() alignment.Aligner {
	return alignment.NewPdalAligner(m.pdal, alignmentDecimationStep)
}

func (m *StandardCollaboratorManager) GetCropper(output cropper.BoundsOutput) cropper.Cropper {
	return cropper.NewPdalCropper(m.pdal, m.writer, output)
}
