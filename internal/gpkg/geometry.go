package gpkg

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"
)

const (
	wkbPointZ   = 1001
	gpkgVersion = 0
	// little endian, no envelope
	gpkgFlags = 0x01
)

// PointZ is a 3D point, which orb cannot represent
type PointZ [3]float64

func encodeHeader(buf *bytes.Buffer, srsID int) {
	buf.WriteString("GP")
	buf.WriteByte(gpkgVersion)
	buf.WriteByte(gpkgFlags)
	_ = binary.Write(buf, binary.LittleEndian, int32(srsID))
}

// EncodePointZ returns a GeoPackage geometry blob for a Point Z
func EncodePointZ(p PointZ, srsID int) []byte {
	var buf bytes.Buffer
	encodeHeader(&buf, srsID)
	buf.WriteByte(1)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(wkbPointZ))
	for _, v := range p {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
	}
	return buf.Bytes()
}

// EncodeGeometry returns a GeoPackage geometry blob for a 2D geometry
func EncodeGeometry(g orb.Geometry, srsID int) ([]byte, error) {
	body, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode geometry")
	}
	var buf bytes.Buffer
	encodeHeader(&buf, srsID)
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeGeometry parses a GeoPackage blob. Point Z geometries are returned
// as PointZ, anything else as an orb.Geometry.
func DecodeGeometry(blob []byte) (interface{}, int, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, errors.New("gpkg: not a geometry blob")
	}
	flags := blob[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&0x01 == 1 {
		order = binary.LittleEndian
	}
	srsID := int(int32(order.Uint32(blob[4:8])))

	envelope := 0
	switch (flags >> 1) & 0x07 {
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	}
	body := blob[8:]
	if len(body) < envelope+5 {
		return nil, 0, errors.New("gpkg: truncated geometry blob")
	}
	body = body[envelope:]

	var wkbOrder binary.ByteOrder = binary.BigEndian
	if body[0] == 1 {
		wkbOrder = binary.LittleEndian
	}
	if wkbOrder.Uint32(body[1:5]) == wkbPointZ {
		if len(body) < 29 {
			return nil, 0, errors.New("gpkg: truncated point")
		}
		var p PointZ
		for i := range p {
			p[i] = math.Float64frombits(wkbOrder.Uint64(body[5+8*i:]))
		}
		return p, srsID, nil
	}

	g, err := wkb.Unmarshal(body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "gpkg: cannot decode geometry")
	}
	return g, srsID, nil
}
