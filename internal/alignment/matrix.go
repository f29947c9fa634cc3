package alignment

import (
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var ErrInvalidMatrix = errors.New("invalid alignment matrix")

// Matrix is a 4x4 transform applied to homogeneous column vectors
type Matrix struct {
	dense *mat.Dense
}

func NewMatrix(values []float64) (*Matrix, error) {
	if len(values) != 16 {
		return nil, errors.Wrapf(ErrInvalidMatrix, "%d values", len(values))
	}
	m := &Matrix{dense: mat.NewDense(4, 4, append([]float64(nil), values...))}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func Identity() *Matrix {
	m, _ := NewMatrix([]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})
	return m
}

// ParseMatrix reads 16 whitespace separated values in row major order
func ParseMatrix(s string) (*Matrix, error) {
	fields := strings.Fields(s)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMatrix, "value %q", f)
		}
		values[i] = v
	}
	return NewMatrix(values)
}

// Validate checks that every value is finite and the last row is 0 0 0 1
func (m *Matrix) Validate() error {
	r, c := m.dense.Dims()
	if r != 4 || c != 4 {
		return errors.Wrapf(ErrInvalidMatrix, "%dx%d", r, c)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if v := m.dense.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidMatrix, "non finite value at %d,%d", i, j)
			}
		}
	}
	if !mat.Equal(m.dense.RowView(3), mat.NewVecDense(4, []float64{0, 0, 0, 1})) {
		return errors.Wrap(ErrInvalidMatrix, "last row must be 0 0 0 1")
	}
	return nil
}

// Transform applies the matrix to a point
func (m *Matrix) Transform(x float64, y float64, z float64) (float64, float64, float64) {
	var out mat.VecDense
	out.MulVec(m.dense, mat.NewVecDense(4, []float64{x, y, z, 1}))
	return out.AtVec(0), out.AtVec(1), out.AtVec(2)
}

// String returns the row major values, the format of PDAL's
// filters.transformation
func (m *Matrix) String() string {
	values := make([]string, 0, 16)
	for _, row := range m.Rows() {
		for _, v := range row {
			values = append(values, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return strings.Join(values, " ")
}

func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, 4)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m.dense)
	}
	return rows
}

func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Rows())
}

func (m *Matrix) UnmarshalJSON(b []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return errors.Wrap(ErrInvalidMatrix, err.Error())
	}
	if len(rows) != 4 {
		return errors.Wrapf(ErrInvalidMatrix, "%d rows", len(rows))
	}
	var values []float64
	for _, row := range rows {
		if len(row) != 4 {
			return errors.Wrapf(ErrInvalidMatrix, "row of %d values", len(row))
		}
		values = append(values, row...)
	}
	parsed, err := NewMatrix(values)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

func LoadMatrix(path string) (*Matrix, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := &Matrix{}
	if err := json.Unmarshal(content, m); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

func SaveMatrix(path string, m *Matrix) error {
	content, err := json.MarshalIndent(m.Rows(), "", "    ")
	if err != nil {
		return err
	}
	return io.WriteFileAtomic(path, content, 0644)
}
