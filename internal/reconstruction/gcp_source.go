package reconstruction

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Observation of a GCP in one shot. Raw keeps the original JSON value.
type Observation struct {
	ShotID string
	Raw    json.RawMessage
}

func (o *Observation) UnmarshalJSON(b []byte) error {
	o.Raw = append(json.RawMessage(nil), b...)
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		return json.Unmarshal(b, &o.ShotID)
	}
	var obs struct {
		ShotID string `json:"shot_id"`
	}
	if err := json.Unmarshal(b, &obs); err != nil {
		return err
	}
	o.ShotID = obs.ShotID
	return nil
}

func (o Observation) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	return json.Marshal(o.ShotID)
}

type GroundControlPoint struct {
	ID           string        `json:"id"`
	Coordinates  [3]float64    `json:"coordinates"`
	Observations []Observation `json:"observations"`
	Error        [3]float64    `json:"error"`
}

// StatsGCPSource loads the GCPs reported by the reconstruction statistics,
// whose coordinates are topocentric
type StatsGCPSource struct {
	statsFile   string
	reference   converters.Reference
	reprojector converters.Reprojector
}

func NewStatsGCPSource(statsFile string, reference converters.Reference, reprojector converters.Reprojector) *StatsGCPSource {
	return &StatsGCPSource{
		statsFile:   statsFile,
		reference:   reference,
		reprojector: reprojector,
	}
}

// GroundControlPoints returns the GCPs with coordinates in the given
// coordinate system. A missing or unreadable statistics file yields no GCPs.
func (s *StatsGCPSource) GroundControlPoints(proj4 string) ([]GroundControlPoint, error) {
	content, err := os.ReadFile(s.statsFile)
	if err != nil {
		glog.Infof("No GCP statistics in %s: %v", s.statsFile, err)
		return nil, nil
	}
	var gcps []GroundControlPoint
	if err := json.Unmarshal(content, &gcps); err != nil {
		glog.Warningf("Cannot parse %s: %v", s.statsFile, err)
		return nil, nil
	}
	if len(gcps) == 0 {
		return nil, nil
	}

	converter := converters.NewTopocentricConverter(s.reference, proj4, s.reprojector)
	for i := range gcps {
		c := gcps[i].Coordinates
		p, err := converter.ConvertPoint(converters.Coordinate{X: c[0], Y: c[1], Z: c[2]}, 0, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot convert GCP %s", gcps[i].ID)
		}
		gcps[i].Coordinates = [3]float64{p.X, p.Y, p.Z}
	}
	return gcps, nil
}
