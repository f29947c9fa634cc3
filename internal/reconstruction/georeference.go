package reconstruction

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var utmZonePattern = regexp.MustCompile(`(?i)^WGS84\s+UTM\s+(\d{1,2})\s*([NS])$`)

// Georeference describes the projected coordinate system of the outputs and
// the planar offset subtracted from every projected coordinate
type Georeference struct {
	Proj4       string
	EastOffset  float64
	NorthOffset float64
}

func (g *Georeference) Offset() (float64, float64) {
	return g.EastOffset, g.NorthOffset
}

// UTMProj4 returns the proj4 definition of a WGS84 UTM zone
func UTMProj4(zone int, south bool) string {
	def := "+proj=utm +zone=" + strconv.Itoa(zone) + " +datum=WGS84 +units=m +no_defs"
	if south {
		def += " +south"
	}
	return def
}

// ParseCRS accepts either "WGS84 UTM <zone><N|S>" or a proj4 string
func ParseCRS(line string) (string, error) {
	line = strings.TrimSpace(line)
	if m := utmZonePattern.FindStringSubmatch(line); m != nil {
		zone, _ := strconv.Atoi(m[1])
		if zone < 1 || zone > 60 {
			return "", errors.Errorf("invalid UTM zone %d", zone)
		}
		return UTMProj4(zone, strings.EqualFold(m[2], "S")), nil
	}
	if strings.HasPrefix(line, "+proj=") {
		return line, nil
	}
	return "", errors.Errorf("unsupported coordinate system %q", line)
}

// LoadGeoreference reads a coords file: the coordinate system on the first
// line and the east/north offset on the second one
func LoadGeoreference(path string) (*Georeference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < 2 {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	if len(lines) < 2 {
		return nil, errors.Errorf("%s: expected coordinate system and offset lines", path)
	}

	proj4, err := ParseCRS(lines[0])
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 2 {
		return nil, errors.Errorf("%s: invalid offset line %q", path, lines[1])
	}
	east, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: east offset", path)
	}
	north, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: north offset", path)
	}
	return &Georeference{Proj4: proj4, EastOffset: east, NorthOffset: north}, nil
}
