package reconstruction

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/ecopia-map/georeferencer/internal/converters"
	"github.com/ecopia-map/georeferencer/internal/tree"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Reconstruction is the read-only view of the upstream reconstruction the
// stage needs
type Reconstruction struct {
	Georef      *Georeference
	GCPFile     string
	MultiCamera []Band
	PhotoCount  int
	Reference   converters.Reference
}

func (r *Reconstruction) IsGeoreferenced() bool {
	return r.Georef != nil
}

func (r *Reconstruction) HasGCP() bool {
	return r.IsGeoreferenced() && r.GCPFile != ""
}

// Offset returns the planar offset, zero when not georeferenced
func (r *Reconstruction) Offset() (float64, float64) {
	if r.Georef == nil {
		return 0, 0
	}
	return r.Georef.Offset()
}

// Bands lists the spectral bands, a single unnamed band for single camera
// datasets
func (r *Reconstruction) Bands() []string {
	if len(r.MultiCamera) == 0 {
		return []string{""}
	}
	names := make([]string, len(r.MultiCamera))
	for i, b := range r.MultiCamera {
		names[i] = b.Name
	}
	return names
}

type photo struct {
	Filename string `json:"filename"`
	BandName string `json:"band_name"`
}

// Load reads the reconstruction metadata of a project. A project without a
// coords file is not georeferenced.
func Load(t *tree.Tree, gcpList string) (*Reconstruction, error) {
	r := &Reconstruction{}

	if tools.FileExists(t.Coords()) {
		georef, err := LoadGeoreference(t.Coords())
		if err != nil {
			return nil, err
		}
		r.Georef = georef

		ref, err := LoadReference(t.ReferenceLLA())
		if err != nil {
			return nil, err
		}
		r.Reference = ref
	}

	photos, err := loadPhotos(t.ImagesJSON())
	if err != nil {
		return nil, err
	}
	r.PhotoCount = len(photos)
	if bands := bandsOf(photos); len(bands) > 1 {
		r.MultiCamera = bands
	}

	if r.IsGeoreferenced() {
		count, err := GCPEntriesCount(gcpList)
		if err != nil {
			glog.Warningf("Cannot read GCP list %s: %v", gcpList, err)
		}
		if count > 0 {
			r.GCPFile = gcpList
		}
	}
	return r, nil
}

func LoadReference(path string) (converters.Reference, error) {
	var ref converters.Reference
	content, err := os.ReadFile(path)
	if err != nil {
		return ref, errors.Wrap(err, "cannot read topocentric reference")
	}
	if err := json.Unmarshal(content, &ref); err != nil {
		return ref, errors.Wrapf(err, "cannot parse %s", path)
	}
	return ref, nil
}

func loadPhotos(path string) ([]photo, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		glog.Warningf("%s not found, assuming an empty photo set", path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var photos []photo
	if err := json.Unmarshal(content, &photos); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", path)
	}
	return photos, nil
}

// bandsOf returns the distinct band names in order of first appearance
func bandsOf(photos []photo) []Band {
	seen := make(map[string]bool)
	var bands []Band
	for _, p := range photos {
		if p.BandName == "" || seen[p.BandName] {
			continue
		}
		seen[p.BandName] = true
		bands = append(bands, Band{Name: p.BandName})
	}
	return bands
}

// GCPEntriesCount counts the observations of a GCP list, whose first line is
// the coordinate system header
func GCPEntriesCount(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	header := true
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if header {
			header = false
			continue
		}
		count++
	}
	return count, scanner.Err()
}
