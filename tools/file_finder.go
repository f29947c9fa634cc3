package tools

import (
	"path/filepath"
	"strings"

	"github.com/ecopia-map/georeferencer/internal/stage"
)

// TexturedModel is one (texturing variant, band) mesh of the project
type TexturedModel struct {
	Variant  stage.TexturingVariant
	Band     string
	TopoPath string
	GeoPath  string
}

type ModelFinder interface {
	GetTexturedModels(projectPath string, bands []string, primaryBand string) []TexturedModel
}

type StandardModelFinder struct{}

func NewStandardModelFinder() ModelFinder {
	return &StandardModelFinder{}
}

// GetTexturedModels lists the textured models of every texturing variant and
// band. The primary band, and the single unnamed band of single camera
// datasets, live in the variant folder; other bands in a lowercase subfolder.
func (f *StandardModelFinder) GetTexturedModels(projectPath string, bands []string, primaryBand string) []TexturedModel {
	if len(bands) == 0 {
		bands = []string{""}
	}
	var models = make([]TexturedModel, 0, len(stage.TexturingVariants)*len(bands))
	for _, variant := range stage.TexturingVariants {
		for _, band := range bands {
			dir := filepath.Join(projectPath, string(variant))
			if band != "" && band != primaryBand {
				dir = filepath.Join(dir, strings.ToLower(band))
			}
			models = append(models, TexturedModel{
				Variant:  variant,
				Band:     band,
				TopoPath: filepath.Join(dir, stage.TexturedModelObjTopo),
				GeoPath:  filepath.Join(dir, stage.TexturedModelObj),
			})
		}
	}
	return models
}

// GeoPaths returns the georeferenced mesh of every model
func GeoPaths(models []TexturedModel) []string {
	paths := make([]string, len(models))
	for i, m := range models {
		paths[i] = m.GeoPath
	}
	return paths
}
