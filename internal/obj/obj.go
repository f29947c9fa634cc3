// Package obj rewrites vertex positions of Wavefront OBJ meshes, leaving
// every other statement untouched.
package obj

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VertexTransform updates vertex coordinates in place
type VertexTransform func(xs []float64, ys []float64, zs []float64) error

const maxLineSize = 16 * 1024 * 1024

// TransformVertices reads every `v` statement of objIn, hands all the
// positions to transform in a single batch and writes objOut with the new
// positions. Trailing vertex values, such as colors, are kept.
func TransformVertices(objIn string, objOut string, transform VertexTransform) error {
	xs, ys, zs, err := readVertices(objIn)
	if err != nil {
		return err
	}
	if err := transform(xs, ys, zs); err != nil {
		return err
	}
	return writeVertices(objIn, objOut, xs, ys, zs)
}

func isVertex(line string) bool {
	return strings.HasPrefix(line, "v ") || strings.HasPrefix(line, "v\t")
}

func readVertices(path string) (xs, ys, zs []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !isVertex(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, nil, nil, errors.Errorf("%s:%d: vertex needs 3 coordinates", path, lineNo)
		}
		var v [3]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
				return nil, nil, nil, errors.Wrapf(err, "%s:%d", path, lineNo)
			}
		}
		xs = append(xs, v[0])
		ys = append(ys, v[1])
		zs = append(zs, v[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "cannot read %s", path)
	}
	return xs, ys, zs, nil
}

func writeVertices(objIn string, objOut string, xs, ys, zs []float64) error {
	in, err := os.Open(objIn)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(objOut)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	i := 0
	for scanner.Scan() {
		line := scanner.Text()
		if isVertex(line) {
			fields := strings.Fields(line)
			fields[1] = formatFloat(xs[i])
			fields[2] = formatFloat(ys[i])
			fields[3] = formatFloat(zs[i])
			line = strings.Join(fields, " ")
			i++
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			out.Close()
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		out.Close()
		return errors.Wrapf(err, "cannot read %s", objIn)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
