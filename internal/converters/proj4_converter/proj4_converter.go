package proj4_converter

import (
	"math"
	"strings"
	"sync"

	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	proj4 "github.com/xeonx/proj4"
)

// proj4 works in radians on geographic systems
const degToRad = math.Pi / 180

type proj4Reprojector struct {
	sync.Mutex
	projections map[string]*proj4.Proj
}

func NewProj4Reprojector() converters.Reprojector {
	return &proj4Reprojector{
		projections: make(map[string]*proj4.Proj),
	}
}

func (r *proj4Reprojector) Transform(srcDef string, dstDef string, coords []converters.Coordinate) ([]converters.Coordinate, error) {
	if len(coords) == 0 {
		return []converters.Coordinate{}, nil
	}
	src, err := r.projection(srcDef)
	if err != nil {
		return nil, err
	}
	dst, err := r.projection(dstDef)
	if err != nil {
		return nil, err
	}

	srcLatLong := IsLatLong(srcDef)
	xs := make([]float64, len(coords))
	ys := make([]float64, len(coords))
	zs := make([]float64, len(coords))
	for i, c := range coords {
		xs[i], ys[i], zs[i] = c.X, c.Y, c.Z
		if srcLatLong {
			xs[i], ys[i] = c.X*degToRad, c.Y*degToRad
		}
	}

	if err := proj4.TransformRaw(src, dst, xs, ys, zs); err != nil {
		return nil, errors.Wrapf(err, "cannot transform from [%s] to [%s]", srcDef, dstDef)
	}

	dstLatLong := IsLatLong(dstDef)
	out := make([]converters.Coordinate, len(coords))
	for i := range out {
		out[i] = converters.Coordinate{X: xs[i], Y: ys[i], Z: zs[i]}
		if dstLatLong {
			out[i].X, out[i].Y = xs[i]/degToRad, ys[i]/degToRad
		}
	}
	return out, nil
}

// Releases all projection objects from memory
func (r *proj4Reprojector) Cleanup() {
	r.Lock()
	defer r.Unlock()
	for def, p := range r.projections {
		p.Close()
		delete(r.projections, def)
	}
	glog.V(1).Infoln("proj4 projections released")
}

func (r *proj4Reprojector) projection(def string) (*proj4.Proj, error) {
	r.Lock()
	defer r.Unlock()
	if p, ok := r.projections[def]; ok {
		return p, nil
	}
	p, err := proj4.InitPlus(def)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid proj4 definition [%s]", def)
	}
	r.projections[def] = p
	return p, nil
}

// IsLatLong reports whether a proj4 definition is geographic
func IsLatLong(def string) bool {
	for _, token := range strings.Fields(def) {
		switch token {
		case "+proj=longlat", "+proj=latlong", "+proj=lonlat", "+proj=latlon":
			return true
		}
	}
	return false
}
