package lzmazip

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ground_control_points.zip")
	content := []byte(strings.Repeat(`{"type": "FeatureCollection", "features": []}`, 50))

	require.NoError(t, Write(path, Entry{Name: "ground_control_points.geojson", Content: content}))

	names, err := Names(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ground_control_points.geojson"}, names)

	got, err := ReadEntry(path, "ground_control_points.geojson")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = ReadEntry(path, "missing.geojson")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEntryHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, Write(path, Entry{Name: "a.txt", Content: []byte("hello hello hello")}))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	f := zr.File[0]
	assert.Equal(t, MethodLZMA, f.Method)
	assert.NotZero(t, f.Flags&flagEOSMarker)

	raw, err := f.OpenRaw()
	require.NoError(t, err)
	hdr := make([]byte, 9)
	_, err = io.ReadFull(raw, hdr)
	require.NoError(t, err)
	assert.Equal(t, []byte{lzmaSDKMajor, lzmaSDKMinor, propsSize, 0}, hdr[:4])
	assert.Equal(t, byte(0x5d), hdr[4])
}

func TestStripHeaderSplitWrites(t *testing.T) {
	var buf bytes.Buffer
	s := &stripHeader{w: &buf}
	classic := []byte{1, 2, 3, 4, 5, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 42, 43}
	for _, chunk := range [][]byte{classic[:3], classic[3:7], classic[7:14], classic[14:]} {
		n, err := s.Write(chunk)
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	assert.Equal(t, []byte{9, 4, 5, 0, 1, 2, 3, 4, 5, 42, 43}, buf.Bytes())
}
