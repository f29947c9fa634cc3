// Package laswriter decides the parameters of the georeferenced LAS output.
package laswriter

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/ecopia-map/georeferencer/internal/pointcloud"
	"github.com/ecopia-map/georeferencer/internal/reconstruction"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultScale = 0.001
	// largest payload a LAS variable length record can hold
	MaxVlrSize = 65535

	GCPVlrUserID      = "ODM"
	GCPVlrRecordID    = 2
	GCPVlrDescription = "Ground Control Points (zip)"
)

var (
	defaultScale = decimal.NewFromFloat(DefaultScale)

	ErrInvalidStats = errors.New("invalid point cloud statistics")
	ErrVlrTooLarge  = errors.New("file too large for a LAS variable length record")
)

// ScaleFromSpacing rounds the point spacing to the nearest power of ten
// (ties to even) and returns a tenth of it, never coarser than 0.001
func ScaleFromSpacing(spacing float64) float64 {
	exp := int32(math.RoundToEven(math.Log10(spacing)))
	scale := decimal.New(1, exp-1)
	if scale.GreaterThan(defaultScale) {
		scale = defaultScale
	}
	f, _ := scale.Float64()
	return f
}

// ScaleFromStats reads the estimated spacing of the filtered point cloud. A
// missing file or a non-positive spacing yields the default scale; an
// unreadable file also returns the reason.
func ScaleFromStats(statsFile string) (float64, error) {
	content, err := os.ReadFile(statsFile)
	if os.IsNotExist(err) {
		glog.Infof("No %s found. Using default las scale: %v", filepath.Base(statsFile), DefaultScale)
		return DefaultScale, nil
	}
	if err != nil {
		return DefaultScale, errors.Wrapf(err, "cannot read %s", statsFile)
	}

	var stats struct {
		Spacing *float64 `json:"spacing"`
	}
	if err := json.Unmarshal(content, &stats); err != nil {
		return DefaultScale, errors.Wrapf(ErrInvalidStats, "%s: %v", statsFile, err)
	}
	if stats.Spacing == nil {
		return DefaultScale, errors.Wrapf(ErrInvalidStats, "%s has no spacing", statsFile)
	}
	if *stats.Spacing <= 0 || math.IsNaN(*stats.Spacing) || math.IsInf(*stats.Spacing, 0) {
		glog.Infof("Point spacing %v is not usable. Using default las scale: %v", *stats.Spacing, DefaultScale)
		return DefaultScale, nil
	}

	scale := ScaleFromSpacing(*stats.Spacing)
	glog.Infof("las scale calculated as the minimum of 1/10 estimated spacing or %v, which ever is less: %v", DefaultScale, scale)
	return scale, nil
}

// GCPVlr returns the record embedding the zipped GCP GeoJSON, or
// ErrVlrTooLarge when the archive does not fit one record
func GCPVlr(archive string) (pointcloud.Vlr, error) {
	info, err := os.Stat(archive)
	if err != nil {
		return pointcloud.Vlr{}, err
	}
	if info.Size() > MaxVlrSize {
		return pointcloud.Vlr{}, errors.Wrapf(ErrVlrTooLarge, "%s is %d bytes", archive, info.Size())
	}
	return pointcloud.Vlr{
		Filename:    filepath.ToSlash(archive),
		UserID:      GCPVlrUserID,
		RecordID:    GCPVlrRecordID,
		Description: GCPVlrDescription,
	}, nil
}

// NewDefinition describes the LAS output of the filtered point cloud. Without
// a georeference the point cloud is written as is.
func NewDefinition(input string, output string, georef *reconstruction.Georeference, scale float64, vlrs []pointcloud.Vlr) pointcloud.LasDefinition {
	def := pointcloud.LasDefinition{Input: input, Output: output}
	if georef == nil {
		return def
	}
	def.Georeferenced = true
	def.Srs = georef.Proj4
	def.OffsetX, def.OffsetY = georef.Offset()
	def.Scale = scale
	def.Vlrs = vlrs
	return def
}
