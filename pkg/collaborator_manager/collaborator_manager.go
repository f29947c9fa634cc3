package collaborator_manager

import (
	"github.com/ecopia-map/georeferencer/internal/alignment"
	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/ecopia-map/georeferencer/internal/cropper"
	"github.com/ecopia-map/georeferencer/internal/gcp"
	"github.com/ecopia-map/georeferencer/internal/pointcloud"
)

type CollaboratorManager interface {
	GetReprojector() converters.Reprojector
	GetTopocentricConverter(reference converters.Reference, targetProj4 string) converters.TopocentricConverter
	GetPointCloudService() pointcloud.Service
	GetGCPSource(statsFile string, reference converters.Reference) gcp.Source
	GetVectorWriter() gcp.VectorWriter
	GetFormatConverter() gcp.FormatConverter
	GetAligner() alignment.Aligner
	GetCropper(output cropper.BoundsOutput) cropper.Cropper
}
