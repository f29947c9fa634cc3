package gpkg

import (
	"regexp"
	"strconv"
	"strings"
)

const CustomSrsID = 100000

const wgs84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AXIS["Latitude",NORTH],AXIS["Longitude",EAST],AUTHORITY["EPSG","4326"]]`

// Srs is a row of gpkg_spatial_ref_sys
type Srs struct {
	ID           int
	Name         string
	Organization string
	OrgID        int
	Definition   string
}

var WGS84 = Srs{ID: 4326, Name: "WGS 84 geodetic", Organization: "EPSG", OrgID: 4326, Definition: wgs84WKT}

var utmZone = regexp.MustCompile(`\+zone=(\d{1,2})\b`)

// SrsFromProj4 maps a proj4 definition to an EPSG entry when it names a
// WGS84 UTM zone or WGS84 geographic coordinates, and to a custom entry
// carrying the proj4 definition otherwise
func SrsFromProj4(def string) Srs {
	tokens := map[string]bool{}
	for _, t := range strings.Fields(def) {
		tokens[t] = true
	}
	wgs84 := tokens["+datum=WGS84"] || tokens["+ellps=WGS84"]

	if wgs84 && (tokens["+proj=longlat"] || tokens["+proj=latlong"]) {
		return WGS84
	}
	if wgs84 && tokens["+proj=utm"] {
		if m := utmZone.FindStringSubmatch(def); m != nil {
			zone, _ := strconv.Atoi(m[1])
			code := 32600 + zone
			hemisphere := "N"
			if tokens["+south"] {
				code = 32700 + zone
				hemisphere = "S"
			}
			return Srs{
				ID:           code,
				Name:         "WGS 84 / UTM zone " + m[1] + hemisphere,
				Organization: "EPSG",
				OrgID:        code,
				Definition:   def,
			}
		}
	}
	return Srs{ID: CustomSrsID, Name: "custom", Organization: "NONE", OrgID: CustomSrsID, Definition: def}
}
