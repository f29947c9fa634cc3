// Package tree names the files of a reconstruction project that the
// georeferencing stage reads and writes.
package tree

import (
	"path/filepath"

	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/ecopia-map/georeferencer/tools"
)

const (
	georeferencingDir = "odm_georeferencing"
	filterPointsDir   = "odm_filterpoints"
	openSfmDir        = "opensfm"
	modelBaseName     = "odm_georeferenced_model"
)

var alignFileNames = []string{"align.laz", "align.las", "align.tif"}

type Tree struct {
	Root string
}

func New(root string) *Tree {
	return &Tree{Root: root}
}

func (t *Tree) Path(elem ...string) string {
	return filepath.Join(append([]string{t.Root}, elem...)...)
}

func (t *Tree) OdmGeoreferencing() string {
	return t.Path(georeferencingDir)
}

func (t *Tree) FilteredPointCloudTopo() string {
	return t.Path(filterPointsDir, "point_cloud_topo.ply")
}

func (t *Tree) FilteredPointCloud() string {
	return t.Path(filterPointsDir, "point_cloud.ply")
}

func (t *Tree) FilteredPointCloudStats() string {
	return t.Path(filterPointsDir, "point_cloud_stats.json")
}

func (t *Tree) GeoreferencedModelLaz() string {
	return t.Path(georeferencingDir, modelBaseName+".laz")
}

func (t *Tree) AlignmentMatrix() string {
	return t.Path(georeferencingDir, "alignment_matrix.json")
}

func (t *Tree) Coords() string {
	return t.Path(georeferencingDir, "coords.txt")
}

func (t *Tree) GCPGpkg() string {
	return t.Path(georeferencingDir, "ground_control_points.gpkg")
}

func (t *Tree) GCPGml() string {
	return t.Path(georeferencingDir, "ground_control_points.gml")
}

func (t *Tree) GCPGeoJSON() string {
	return t.Path(georeferencingDir, "ground_control_points.geojson")
}

func (t *Tree) GCPZip() string {
	return t.Path(georeferencingDir, "ground_control_points.zip")
}

// GCPList returns the configured GCP list or the stage's default location
func (t *Tree) GCPList(configured string) string {
	if configured != "" {
		return configured
	}
	return t.Path(georeferencingDir, "gcp_list.txt")
}

func (t *Tree) ReferenceLLA() string {
	return t.Path(openSfmDir, "reference_lla.json")
}

func (t *Tree) GCPStats() string {
	return t.Path(openSfmDir, "stats", "ground_control_points.json")
}

func (t *Tree) AlignmentStatsDir() string {
	return t.Path(openSfmDir, "stats", "codem")
}

func (t *Tree) ImagesJSON() string {
	return t.Path("images.json")
}

func (t *Tree) TexturingDir(variant stage.TexturingVariant) string {
	return t.Path(string(variant))
}

// AlignFile returns the reference model to align to: the configured one, or
// the first align.{laz,las,tif} found in the project root. Empty when none.
func (t *Tree) AlignFile(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range alignFileNames {
		if p := t.Path(name); tools.FileExists(p) {
			return p
		}
	}
	return ""
}

// BoundsFiles returns the GeoJSON and GeoPackage boundary paths next to the
// georeferenced model
func (t *Tree) BoundsFiles() (string, string) {
	base := t.Path(georeferencingDir, modelBaseName)
	return base + ".bounds.geojson", base + ".bounds.gpkg"
}

func (t *Tree) PointCloudExport(format stage.PointCloudFormat) string {
	switch format {
	case stage.PointCloudCSV:
		return t.Path(georeferencingDir, modelBaseName+".csv")
	case stage.PointCloudLAS:
		return t.Path(georeferencingDir, modelBaseName+".las")
	case stage.PointCloudCOPC:
		return t.Path(georeferencingDir, modelBaseName+".copc.laz")
	}
	return ""
}
