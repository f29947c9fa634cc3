// Package gpkg writes and reads single layer GeoPackage vector files.
package gpkg

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type FieldType string

const (
	Text    FieldType = "TEXT"
	Integer FieldType = "INTEGER"
	Real    FieldType = "REAL"
)

const (
	applicationID = 0x47504B47
	userVersion   = 10300

	GeometryColumn = "geom"
)

var ErrLayerNotFound = errors.New("gpkg: layer not found")

type Field struct {
	Name string
	Type FieldType
}

// Feature holds either a PointZ or a 2D orb geometry
type Feature struct {
	Point      *PointZ
	Geometry   orb.Geometry
	Properties map[string]interface{}
}

type Layer struct {
	Name         string
	GeometryType string
	HasZ         bool
	Srs          Srs
	Fields       []Field
	Features     []Feature
}

const schema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
);
CREATE TABLE gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
	srs_id INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);
CREATE TABLE gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL,
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys (srs_id)
);
INSERT INTO gpkg_spatial_ref_sys VALUES ('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', 'undefined cartesian coordinate reference system');
INSERT INTO gpkg_spatial_ref_sys VALUES ('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', 'undefined geographic coordinate reference system');
`

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// WriteLayer creates a new GeoPackage at path holding layer. An existing
// file at path is replaced.
func WriteLayer(path string, layer *Layer) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", path)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := writeLayer(tx, layer); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "cannot write layer %s to %s", layer.Name, path)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return db.Close()
}

func writeLayer(tx *sql.Tx, layer *Layer) error {
	statements := []string{
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
		fmt.Sprintf("PRAGMA user_version = %d", userVersion),
		schema,
	}
	for _, s := range statements {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	srs := layer.Srs
	if srs.ID != WGS84.ID {
		if _, err := tx.Exec(`INSERT INTO gpkg_spatial_ref_sys VALUES (?, ?, ?, ?, ?, NULL)`,
			WGS84.Name, WGS84.ID, WGS84.Organization, WGS84.OrgID, WGS84.Definition); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO gpkg_spatial_ref_sys VALUES (?, ?, ?, ?, ?, NULL)`,
		srs.Name, srs.ID, srs.Organization, srs.OrgID, srs.Definition); err != nil {
		return err
	}

	columns := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL", GeometryColumn + " " + layer.GeometryType}
	for _, f := range layer.Fields {
		columns = append(columns, quote(f.Name)+" "+string(f.Type))
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quote(layer.Name), strings.Join(columns, ", "))); err != nil {
		return err
	}

	minX, minY, maxX, maxY := layer.bounds()
	if _, err := tx.Exec(`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		layer.Name, layer.Name, minX, minY, maxX, maxY, srs.ID); err != nil {
		return err
	}
	z := 0
	if layer.HasZ {
		z = 1
	}
	if _, err := tx.Exec(`INSERT INTO gpkg_geometry_columns VALUES (?, ?, ?, ?, ?, 0)`,
		layer.Name, GeometryColumn, layer.GeometryType, srs.ID, z); err != nil {
		return err
	}

	names := []string{GeometryColumn}
	placeholders := []string{"?"}
	for _, f := range layer.Fields {
		names = append(names, quote(f.Name))
		placeholders = append(placeholders, "?")
	}
	insert, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(layer.Name), strings.Join(names, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return err
	}
	defer insert.Close()

	for i, feature := range layer.Features {
		blob, err := feature.encode(srs.ID)
		if err != nil {
			return errors.Wrapf(err, "feature %d", i)
		}
		values := []interface{}{blob}
		for _, f := range layer.Fields {
			values = append(values, feature.Properties[f.Name])
		}
		if _, err := insert.Exec(values...); err != nil {
			return errors.Wrapf(err, "feature %d", i)
		}
	}
	return nil
}

func (f *Feature) encode(srsID int) ([]byte, error) {
	if f.Point != nil {
		return EncodePointZ(*f.Point, srsID), nil
	}
	if f.Geometry == nil {
		return nil, errors.New("feature has no geometry")
	}
	return EncodeGeometry(f.Geometry, srsID)
}

func (l *Layer) bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	extend := func(b orb.Bound) {
		minX, minY = math.Min(minX, b.Min[0]), math.Min(minY, b.Min[1])
		maxX, maxY = math.Max(maxX, b.Max[0]), math.Max(maxY, b.Max[1])
	}
	for _, f := range l.Features {
		if f.Point != nil {
			p := orb.Point{f.Point[0], f.Point[1]}
			extend(p.Bound())
		} else if f.Geometry != nil {
			extend(f.Geometry.Bound())
		}
	}
	if len(l.Features) == 0 {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

// ReadLayer reads back a layer written by WriteLayer, or any GeoPackage
// feature table with a single geometry column
func ReadLayer(path string, name string) (*Layer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", path)
	}
	defer db.Close()

	layer := &Layer{Name: name}
	var z int
	err = db.QueryRow(`SELECT g.column_name, g.geometry_type_name, g.z, s.srs_id, s.srs_name, s.organization, s.organization_coordsys_id, s.definition
		FROM gpkg_geometry_columns g JOIN gpkg_spatial_ref_sys s ON g.srs_id = s.srs_id WHERE g.table_name = ?`, name).
		Scan(new(string), &layer.GeometryType, &z, &layer.Srs.ID, &layer.Srs.Name, &layer.Srs.Organization, &layer.Srs.OrgID, &layer.Srs.Definition)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrLayerNotFound, "%s in %s", name, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read metadata of %s", path)
	}
	layer.HasZ = z == 1

	rows, err := db.Query(fmt.Sprintf("SELECT name, type FROM pragma_table_info(%s) ORDER BY cid", "'"+strings.ReplaceAll(name, "'", "''")+"'"))
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.Name, &f.Type); err != nil {
			rows.Close()
			return nil, err
		}
		if f.Name != "fid" && f.Name != GeometryColumn {
			layer.Fields = append(layer.Fields, f)
		}
	}
	rows.Close()

	names := []string{GeometryColumn}
	for _, f := range layer.Fields {
		names = append(names, quote(f.Name))
	}
	rows, err = db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY fid", strings.Join(names, ", "), quote(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		values := make([]interface{}, len(layer.Fields))
		dest := []interface{}{&blob}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		g, _, err := DecodeGeometry(blob)
		if err != nil {
			return nil, err
		}
		feature := Feature{Properties: make(map[string]interface{}, len(layer.Fields))}
		switch v := g.(type) {
		case PointZ:
			feature.Point = &v
		case orb.Geometry:
			feature.Geometry = v
		}
		for i, f := range layer.Fields {
			feature.Properties[f.Name] = values[i]
		}
		layer.Features = append(layer.Features, feature)
	}
	return layer, rows.Err()
}

// FileWriter writes each layer to its own GeoPackage file
type FileWriter struct{}

func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

func (w *FileWriter) WriteLayer(path string, layer *Layer) error {
	return WriteLayer(path, layer)
}
