// Package lzmazip writes and reads zip archives whose entries are LZMA
// compressed (method 14), the way Python's zipfile does with ZIP_LZMA.
package lzmazip

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
)

const (
	MethodLZMA uint16 = 14
	// the compressed stream ends with an end of stream marker
	flagEOSMarker uint16 = 0x2

	propsSize       = 5
	classicHdrSize  = 13
	lzmaSDKMajor    = 9
	lzmaSDKMinor    = 4
	zipLzmaHdrBytes = 4
)

var ErrEntryNotFound = errors.New("lzmazip: entry not found")

// stripHeader rewrites the classic 13 byte LZMA header into the 9 byte zip
// LZMA header: SDK version, properties size, properties
type stripHeader struct {
	w       io.Writer
	written int
}

func (s *stripHeader) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 && s.written < classicHdrSize {
		if s.written == 0 {
			if _, err := s.w.Write([]byte{lzmaSDKMajor, lzmaSDKMinor, propsSize, 0}); err != nil {
				return 0, err
			}
		}
		if s.written < propsSize {
			if _, err := s.w.Write(p[:1]); err != nil {
				return 0, err
			}
		}
		s.written++
		p = p[1:]
	}
	if len(p) > 0 {
		if _, err := s.w.Write(p); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func compressor(w io.Writer) (io.WriteCloser, error) {
	cfg := lzma.WriterConfig{EOSMarker: true}
	lw, err := cfg.NewWriter(&stripHeader{w: w})
	if err != nil {
		return nil, errors.Wrap(err, "cannot create lzma writer")
	}
	return lw, nil
}

type lzmaReadCloser struct {
	r   io.Reader
	err error
}

func (l *lzmaReadCloser) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	return l.r.Read(p)
}

func (l *lzmaReadCloser) Close() error {
	return nil
}

func decompressor(r io.Reader) io.ReadCloser {
	var hdr [zipLzmaHdrBytes + propsSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return &lzmaReadCloser{err: errors.Wrap(err, "lzmazip: short header")}
	}
	if hdr[2] != propsSize || hdr[3] != 0 {
		return &lzmaReadCloser{err: errors.New("lzmazip: unexpected properties size")}
	}
	classic := make([]byte, 0, classicHdrSize)
	classic = append(classic, hdr[zipLzmaHdrBytes:]...)
	// unknown uncompressed size, the stream carries an end marker
	classic = append(classic, bytes.Repeat([]byte{0xff}, 8)...)

	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(classic), r))
	if err != nil {
		return &lzmaReadCloser{err: errors.Wrap(err, "cannot create lzma reader")}
	}
	return &lzmaReadCloser{r: lr}
}

type Entry struct {
	Name    string
	Content []byte
}

// Write writes entries into a new archive at path
func Write(path string, entries ...Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, entries); err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot write %s", path)
	}
	return f.Close()
}

func write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(MethodLZMA, compressor)
	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.Name,
			Method:   MethodLZMA,
			Flags:    flagEOSMarker,
			Modified: time.Now(),
		}
		ew, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if _, err := ew.Write(e.Content); err != nil {
			return err
		}
	}
	return zw.Close()
}

// ReadEntry returns the uncompressed content of the named entry
func ReadEntry(path string, name string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	zr.RegisterDecompressor(MethodLZMA, decompressor)

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read %s from %s", name, path)
		}
		return content, nil
	}
	return nil, errors.Wrapf(ErrEntryNotFound, "%s in %s", name, path)
}

// Names lists the entries of an archive
func Names(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names, nil
}
