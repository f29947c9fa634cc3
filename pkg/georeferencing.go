package pkg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/georeferencer/internal/alignment"
	"github.com/ecopia-map/georeferencer/internal/artifact"
	"github.com/ecopia-map/georeferencer/internal/converters/offset"
	"github.com/ecopia-map/georeferencer/internal/cropper"
	"github.com/ecopia-map/georeferencer/internal/gcp"
	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/internal/laswriter"
	"github.com/ecopia-map/georeferencer/internal/outcome"
	"github.com/ecopia-map/georeferencer/internal/pointcloud"
	"github.com/ecopia-map/georeferencer/internal/reconstruction"
	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/ecopia-map/georeferencer/internal/tree"
	"github.com/ecopia-map/georeferencer/pkg/collaborator_manager"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	StepPointCloud     = "point-cloud"
	StepTexturedModels = "textured-models"
	StepLas            = "las"
	StepCrop           = "crop"
	StepBounds         = "bounds"
	StepExports        = "point-cloud-exports"
	StepDiskSpace      = "disk-space"
)

const (
	artifactGCP        = "gcp"
	artifactPointCloud = "point_cloud"
	artifactLaz        = "laz"
)

type IStage interface {
	Run(opts *stage.StageOptions) (*outcome.Report, error)
}

type Georeferencing struct {
	modelFinder         tools.ModelFinder
	collaboratorManager collaborator_manager.CollaboratorManager
}

func NewGeoreferencing(modelFinder tools.ModelFinder, collaboratorManager collaborator_manager.CollaboratorManager) IStage {
	return &Georeferencing{
		modelFinder:         modelFinder,
		collaboratorManager: collaboratorManager,
	}
}

// run is the state of one execution of the stage
type run struct {
	opts   *stage.StageOptions
	tree   *tree.Tree
	rec    *reconstruction.Reconstruction
	models []tools.TexturedModel
	plan   *artifact.Plan
	report *outcome.Report
	// crop margin in effect, reset when the crop area cannot be computed
	crop float64
}

func modelArtifact(m tools.TexturedModel) string {
	return fmt.Sprintf("textured_model:%s:%s", m.Variant, m.Band)
}

func exportArtifact(format stage.PointCloudFormat) string {
	return "export:" + strings.ToLower(string(format))
}

func buildGraph(t *tree.Tree, models []tools.TexturedModel, opts *stage.StageOptions) (*artifact.Graph, error) {
	graph := artifact.NewGraph()
	if err := graph.Add(artifactGCP, t.GCPGpkg()); err != nil {
		return nil, err
	}
	if err := graph.Add(artifactPointCloud, t.FilteredPointCloud()); err != nil {
		return nil, err
	}
	for _, m := range models {
		if err := graph.Add(modelArtifact(m), m.GeoPath); err != nil {
			return nil, err
		}
	}
	if err := graph.Add(artifactLaz, t.GeoreferencedModelLaz(), artifactPointCloud, artifactGCP); err != nil {
		return nil, err
	}
	for _, format := range opts.PointCloudExports {
		if err := graph.Add(exportArtifact(format), t.PointCloudExport(format), artifactLaz); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// Run georeferences the outputs of the reconstruction found in
// opts.ProjectPath. The returned report holds one outcome per step; the error
// is the first fatal one.
func (g *Georeferencing) Run(opts *stage.StageOptions) (*outcome.Report, error) {
	defer g.collaboratorManager.GetReprojector().Cleanup()

	glog.Infoln("Loading reconstruction from", opts.ProjectPath)
	t := tree.New(opts.ProjectPath)
	rec, err := reconstruction.Load(t, t.GCPList(opts.GcpFile))
	if err != nil {
		return nil, errors.Wrap(err, "cannot load reconstruction")
	}
	if rec.IsGeoreferenced() {
		glog.Infof("Reconstruction is georeferenced in %s", rec.Georef.Proj4)
	} else {
		glog.Infoln("Reconstruction is not georeferenced")
	}

	primaryBand := reconstruction.PrimaryBandName(rec.MultiCamera, opts.PrimaryBand)
	models := g.modelFinder.GetTexturedModels(opts.ProjectPath, rec.Bands(), primaryBand)

	graph, err := buildGraph(t, models, opts)
	if err != nil {
		return nil, err
	}
	r := &run{
		opts:   opts,
		tree:   t,
		rec:    rec,
		models: models,
		plan:   graph.Evaluate(opts.Rerun),
		report: outcome.NewReport(),
		crop:   opts.Crop,
	}
	glog.Infoln("Artifacts to produce:", r.plan.Stale())

	steps := []func(*run) outcome.Outcome{
		g.exportGCPs,
		g.georeferencePointCloud,
		g.georeferenceTexturedModels,
	}
	if r.plan.ShouldRun(artifactLaz) {
		steps = append(steps,
			g.writeLas,
			g.createCropArea,
			g.exportBounds,
			g.align,
			g.exportPointCloud,
		)
	} else {
		r.report.Add(outcome.Skip(StepLas, "Found a valid georeferenced model in: "+t.GeoreferencedModelLaz()))
	}
	steps = append(steps, g.reclaimDiskSpace)

	for _, step := range steps {
		if !r.report.Add(step(r)) {
			break
		}
	}
	return r.report, r.report.Err()
}

func (g *Georeferencing) exportGCPs(r *run) outcome.Outcome {
	if !r.rec.HasGCP() {
		return outcome.Skip(gcp.Step, "no ground control points")
	}
	claimed, err := r.plan.Claim(artifactGCP)
	if err != nil {
		return outcome.Fail(gcp.Step, err)
	}
	if !claimed {
		return outcome.Skip(gcp.Step, "Found existing "+r.tree.GCPGpkg())
	}

	glog.Infoln("Exporting ground control points")
	m := g.collaboratorManager
	exporter := gcp.NewExporter(
		m.GetGCPSource(r.tree.GCPStats(), r.rec.Reference),
		m.GetVectorWriter(),
		m.GetFormatConverter(),
		m.GetReprojector(),
	)
	return exporter.Export(r.rec.Georef.Proj4, gcp.Paths{
		Gpkg:    r.tree.GCPGpkg(),
		Gml:     r.tree.GCPGml(),
		GeoJSON: r.tree.GCPGeoJSON(),
		Zip:     r.tree.GCPZip(),
	})
}

func (g *Georeferencing) georeferencePointCloud(r *run) outcome.Outcome {
	claimed, err := r.plan.Claim(artifactPointCloud)
	if err != nil {
		return outcome.Fail(StepPointCloud, err)
	}
	if !claimed {
		return outcome.Skip(StepPointCloud, "Found existing "+r.tree.FilteredPointCloud())
	}

	in, out := r.tree.FilteredPointCloudTopo(), r.tree.FilteredPointCloud()
	if !r.rec.IsGeoreferenced() {
		glog.Infof("Copying %s", filepath.Base(in))
		if err := io.CopyFileAtomic(in, out); err != nil {
			return outcome.Fail(StepPointCloud, err)
		}
		return outcome.Ok(StepPointCloud)
	}

	glog.Infoln("Georeferencing point cloud")
	service := g.collaboratorManager.GetPointCloudService()
	pc, err := service.Read(in)
	if err != nil {
		return outcome.Fail(StepPointCloud, errors.Wrapf(err, "cannot read %s", in))
	}
	east, north := r.rec.Offset()
	converter := g.collaboratorManager.GetTopocentricConverter(r.rec.Reference, r.rec.Georef.Proj4)
	if err := converter.ConvertArray(pc, east, north); err != nil {
		return outcome.Fail(StepPointCloud, errors.Wrap(err, "cannot convert point cloud"))
	}
	err = io.WriteAtomic(out, func(tmp string) error {
		return service.Write(tmp, pc)
	})
	if err != nil {
		return outcome.Fail(StepPointCloud, errors.Wrapf(err, "cannot write %s", out))
	}
	glog.Infof("Wrote %d points to %s", pc.NumPoints(), out)
	return outcome.Ok(StepPointCloud)
}

func (g *Georeferencing) georeferenceTexturedModels(r *run) outcome.Outcome {
	var converted int
	for _, m := range r.models {
		if !tools.FileExists(m.TopoPath) {
			glog.Infof("Skipping %s: file does not exist", m.TopoPath)
			continue
		}
		claimed, err := r.plan.Claim(modelArtifact(m))
		if err != nil {
			return outcome.Fail(StepTexturedModels, err)
		}
		if !claimed {
			continue
		}

		if r.rec.IsGeoreferenced() {
			glog.Infof("Georeferencing textured model %s", m.TopoPath)
			east, north := r.rec.Offset()
			converter := g.collaboratorManager.GetTopocentricConverter(r.rec.Reference, r.rec.Georef.Proj4)
			err = io.WriteAtomic(m.GeoPath, func(tmp string) error {
				return converter.ConvertObj(m.TopoPath, tmp, east, north)
			})
		} else {
			err = io.CopyFileAtomic(m.TopoPath, m.GeoPath)
		}
		if err != nil {
			return outcome.Fail(StepTexturedModels, errors.Wrapf(err, "cannot write %s", m.GeoPath))
		}
		converted++
	}
	if converted == 0 {
		return outcome.Skip(StepTexturedModels, "no textured model to georeference")
	}
	return outcome.Ok(StepTexturedModels)
}

func (g *Georeferencing) writeLas(r *run) outcome.Outcome {
	if _, err := r.plan.Claim(artifactLaz); err != nil {
		return outcome.Fail(StepLas, err)
	}
	result := outcome.Ok(StepLas)

	scale := laswriter.DefaultScale
	var vlrs []pointcloud.Vlr
	if r.rec.IsGeoreferenced() {
		glog.Infoln("Writing georeferenced LAZ")
		var err error
		scale, err = laswriter.ScaleFromStats(r.tree.FilteredPointCloudStats())
		if err != nil {
			result.Warn("Cannot read point cloud statistics, using default las scale %v: %v", scale, err)
		}

		if zip := r.tree.GCPZip(); r.rec.HasGCP() && tools.FileExists(zip) {
			vlr, err := laswriter.GCPVlr(zip)
			if err != nil {
				result.Warn("Cannot embed GCP info in point cloud: %v", err)
			} else {
				glog.Infoln("Embedding GCP info in point cloud")
				vlrs = append(vlrs, vlr)
			}
		}
	} else {
		glog.Infoln("Converting point cloud (non-georeferenced)")
	}

	laz := r.tree.GeoreferencedModelLaz()
	def := laswriter.NewDefinition(r.tree.FilteredPointCloud(), laz, r.rec.Georef, scale, vlrs)
	service := g.collaboratorManager.GetPointCloudService()
	err := io.WriteAtomic(laz, func(tmp string) error {
		def.Output = tmp
		return service.WriteLas(def)
	})
	if err != nil {
		return outcome.Fail(StepLas, errors.Wrapf(err, "cannot write %s", laz))
	}

	if statsDir := r.tree.AlignmentStatsDir(); r.plan.Rerun() && tools.DirExists(statsDir) {
		if err := os.RemoveAll(statsDir); err != nil {
			return outcome.Fail(StepLas, errors.Wrapf(err, "cannot remove %s", statsDir))
		}
	}
	return result
}

func (g *Georeferencing) boundsOutput(r *run) cropper.BoundsOutput {
	geoJSON, gpkg := r.tree.BoundsFiles()
	return cropper.BoundsOutput{GeoJSON: geoJSON, Gpkg: gpkg, Proj4: r.rec.Georef.Proj4}
}

func (g *Georeferencing) createCropArea(r *run) outcome.Outcome {
	if !r.rec.IsGeoreferenced() || r.crop <= 0 {
		return outcome.Skip(StepCrop, "cropping disabled")
	}
	glog.Infoln("Calculating cropping area and generating bounds files from point cloud")
	step := cropper.DecimationStep(r.rec.PhotoCount, r.opts.FastOrthophoto)
	c := g.collaboratorManager.GetCropper(g.boundsOutput(r))
	if err := c.CreateBoundsPackage(r.tree.GeoreferencedModelLaz(), r.crop, step); err != nil {
		r.crop = 0
		return outcome.Degrade(StepCrop, "Cannot calculate crop bounds, cropping will be skipped: %v", err)
	}
	return outcome.Ok(StepCrop)
}

func (g *Georeferencing) exportBounds(r *run) outcome.Outcome {
	if !r.rec.IsGeoreferenced() || r.crop != 0 || r.opts.BoundaryFile == "" {
		return outcome.Skip(StepBounds, "no boundary to export")
	}
	glog.Infoln("Using boundary JSON as cropping area")
	m := g.collaboratorManager
	err := cropper.ExportBoundsFiles(r.opts.BoundaryFile, g.boundsOutput(r), m.GetReprojector(), m.GetVectorWriter())
	if err != nil {
		return outcome.Fail(StepBounds, err)
	}
	return outcome.Ok(StepBounds)
}

func (g *Georeferencing) align(r *run) outcome.Outcome {
	east, north := r.rec.Offset()
	workflow := alignment.NewWorkflow(g.collaboratorManager.GetAligner())
	return workflow.Run(alignment.Request{
		AlignFile:  r.tree.AlignFile(r.opts.AlignFile),
		MatrixPath: r.tree.AlignmentMatrix(),
		PointCloud: r.tree.GeoreferencedModelLaz(),
		Meshes:     tools.GeoPaths(r.models),
		Offset:     offset.NewPlanarOffset(east, north),
		StatsDir:   r.tree.AlignmentStatsDir(),
		Rerun:      r.plan.Rerun(),
	})
}

func (g *Georeferencing) exportPointCloud(r *run) outcome.Outcome {
	if len(r.opts.PointCloudExports) == 0 {
		return outcome.Skip(StepExports, "no additional point cloud format requested")
	}
	result := outcome.Ok(StepExports)
	service := g.collaboratorManager.GetPointCloudService()
	laz := r.tree.GeoreferencedModelLaz()
	for _, format := range r.opts.PointCloudExports {
		name := exportArtifact(format)
		claimed, err := r.plan.Claim(name)
		if err != nil {
			return outcome.Fail(StepExports, err)
		}
		if !claimed {
			continue
		}
		out := r.plan.Path(name)
		glog.Infof("Exporting point cloud as %s", format)
		err = io.WriteAtomic(out, func(tmp string) error {
			return service.Export(laz, tmp, format)
		})
		if err != nil {
			result.Warn("Cannot export point cloud to %s: %v", out, err)
		}
	}
	return result
}

func (g *Georeferencing) reclaimDiskSpace(r *run) outcome.Outcome {
	laz, ply := r.tree.GeoreferencedModelLaz(), r.tree.FilteredPointCloud()
	if !r.opts.OptimizeDiskSpace || !tools.FileExists(laz) || !tools.FileExists(ply) {
		return outcome.Skip(StepDiskSpace, "nothing to reclaim")
	}
	if err := os.Remove(ply); err != nil {
		return outcome.Fail(StepDiskSpace, errors.Wrapf(err, "cannot remove %s", ply))
	}
	glog.Infof("Removed %s", ply)
	return outcome.Ok(StepDiskSpace)
}
