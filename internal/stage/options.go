package stage

type TexturingVariant string
type PointCloudFormat string

const (
	// Full resolution textured mesh
	TexturingFull TexturingVariant = "odm_texturing"
	// Decimated 2.5D textured mesh
	Texturing25D TexturingVariant = "odm_25dtexturing"
)

const (
	PointCloudCSV  PointCloudFormat = "CSV"
	PointCloudLAS  PointCloudFormat = "LAS"
	PointCloudCOPC PointCloudFormat = "COPC"
)

const AutoPrimaryBand = "auto"

const (
	TexturedModelObjTopo = "odm_textured_model.obj"
	TexturedModelObj     = "odm_textured_model_geo.obj"
)

// Every texturing variant, in processing order
var TexturingVariants = []TexturingVariant{TexturingFull, Texturing25D}

func (v TexturingVariant) String() string {
	return string(v)
}

// Contains the options needed by the georeferencing stage
type StageOptions struct {
	ProjectPath       string             // Root folder of the reconstruction project
	Rerun             bool               // Forces every artifact of the stage to be regenerated
	Crop              float64            // Crop margin in meters, 0 disables cropping
	FastOrthophoto    bool               // Fast orthophoto mode (no full 3D reconstruction)
	PrimaryBand       string             // Primary band name for multispectral datasets, "auto" to pick it
	AlignFile         string             // Reference model to align to, empty to auto-detect
	BoundaryFile      string             // GeoJSON boundary polygon (WGS84) used when cropping is off
	GcpFile           string             // GCP list, empty for odm_georeferencing/gcp_list.txt
	OptimizeDiskSpace bool               // Removes intermediate artifacts once final products exist
	PointCloudExports []PointCloudFormat // Additional point cloud formats to export
	PdalPath          string             // Path of the pdal executable
	Ogr2OgrPath       string             // Path of the ogr2ogr executable
}

func (opt *StageOptions) Copy() *StageOptions {
	newOpt := *opt
	if opt.PointCloudExports != nil {
		newOpt.PointCloudExports = make([]PointCloudFormat, len(opt.PointCloudExports))
		copy(newOpt.PointCloudExports, opt.PointCloudExports)
	}
	return &newOpt
}
