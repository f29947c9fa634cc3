package reconstruction

import (
	"strings"

	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/golang/glog"
)

type Band struct {
	Name string
}

var primaryBandPreference = [][]string{
	{"rgb", "redgreenblue"},
	{"green", "g"},
	{"blue", "b"},
}

// PrimaryBandName picks the band whose textured models go straight into the
// texturing directory. With "auto" RGB wins over green over blue, then the
// first band. A requested band that does not exist falls back to the first.
func PrimaryBandName(bands []Band, requested string) string {
	if len(bands) == 0 {
		return ""
	}
	if requested == "" || requested == stage.AutoPrimaryBand {
		for _, aliases := range primaryBandPreference {
			for _, b := range bands {
				for _, alias := range aliases {
					if strings.ToLower(b.Name) == alias {
						return b.Name
					}
				}
			}
		}
		return bands[0].Name
	}
	for _, b := range bands {
		if strings.EqualFold(b.Name, requested) {
			return b.Name
		}
	}
	glog.Warningf("Cannot find band name %q, will use %q instead", requested, bands[0].Name)
	return bands[0].Name
}
