package obj

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mesh = `# textured mesh
mtllib odm_textured_model.mtl
v 1 2 3
v 4.5 -5 6 0.5 0.5 0.5
vt 0.1 0.2
vn 0 0 1
usemtl material0000
f 1/1/1 2/1/1 1/1/1
`

func TestTransformVertices(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.obj")
	out := filepath.Join(dir, "out.obj")
	require.NoError(t, os.WriteFile(in, []byte(mesh), 0644))

	err := TransformVertices(in, out, func(xs, ys, zs []float64) error {
		require.Len(t, xs, 2)
		for i := range xs {
			xs[i] += 10
			ys[i] *= 2
			zs[i] = -zs[i]
		}
		return nil
	})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	want := `# textured mesh
mtllib odm_textured_model.mtl
v 11 4 -3
v 14.5 -10 -6 0.5 0.5 0.5
vt 0.1 0.2
vn 0 0 1
usemtl material0000
f 1/1/1 2/1/1 1/1/1
`
	assert.Equal(t, want, string(got))
}

func TestTransformVerticesErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.obj")
	out := filepath.Join(dir, "out.obj")

	err := TransformVertices(in, out, func(xs, ys, zs []float64) error { return nil })
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(in, []byte("v 1 2\n"), 0644))
	err = TransformVertices(in, out, func(xs, ys, zs []float64) error { return nil })
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(in, []byte(mesh), 0644))
	err = TransformVertices(in, out, func(xs, ys, zs []float64) error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.NoFileExists(t, out)
}
