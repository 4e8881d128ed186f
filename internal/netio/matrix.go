// Package netio holds the network output consumed by the decoders: a
// timestep x class matrix of probabilities.
package netio

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/recode/internal/mempool"
)

// MinCertainty is the floor for log-probability certainties.
const MinCertainty = -20.0

var (
	// ErrEmptyMatrix is returned for a matrix without timesteps or classes.
	ErrEmptyMatrix = errors.New("empty output matrix")
	// ErrRaggedMatrix is returned when rows differ in length.
	ErrRaggedMatrix = errors.New("matrix rows differ in length")
	// ErrNonFinite is returned for NaN or infinite matrix values.
	ErrNonFinite = errors.New("non-finite matrix value")
)

// Matrix is a width x classes matrix of per-timestep class probabilities,
// stored row-major in a pooled buffer.
type Matrix struct {
	width   int
	classes int
	data    []float32
}

// NewMatrix returns a matrix with unspecified contents. Call Release when
// done with it.
func NewMatrix(width, classes int) *Matrix {
	return &Matrix{
		width:   width,
		classes: classes,
		data:    mempool.GetFloat32(width * classes),
	}
}

// FromRows copies rows into a new matrix.
func FromRows(rows [][]float32) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMatrix
	}
	classes := len(rows[0])
	m := NewMatrix(len(rows), classes)
	for t, row := range rows {
		if len(row) != classes {
			m.Release()
			return nil, fmt.Errorf("%w: row %d has %d classes, want %d", ErrRaggedMatrix, t, len(row), classes)
		}
		copy(m.F(t), row)
	}
	return m, nil
}

// Width returns the number of timesteps.
func (m *Matrix) Width() int { return m.width }

// NumFeatures returns the number of classes per timestep.
func (m *Matrix) NumFeatures() int { return m.classes }

// F returns the class vector at timestep t. The slice aliases the matrix.
func (m *Matrix) F(t int) []float32 {
	return m.data[t*m.classes : (t+1)*m.classes]
}

// At returns the probability of class c at timestep t.
func (m *Matrix) At(t, c int) float32 { return m.data[t*m.classes+c] }

// Set stores v at (t, c).
func (m *Matrix) Set(t, c int, v float32) { m.data[t*m.classes+c] = v }

// Rows copies the matrix into freshly allocated rows.
func (m *Matrix) Rows() [][]float32 {
	rows := make([][]float32, m.width)
	for t := range rows {
		rows[t] = append([]float32(nil), m.F(t)...)
	}
	return rows
}

// Release returns the buffer to the pool. The matrix must not be used after.
func (m *Matrix) Release() {
	if m == nil || m.data == nil {
		return
	}
	mempool.PutFloat32(m.data)
	m.data = nil
}

// Normalize converts every row that does not already look like a
// probability distribution with a numerically stable softmax. It returns
// the number of rows converted.
func (m *Matrix) Normalize() int {
	converted := 0
	for t := 0; t < m.width; t++ {
		row := m.F(t)
		if isProbabilities(row) {
			continue
		}
		softmax(row)
		converted++
	}
	return converted
}

func isProbabilities(v []float32) bool {
	var sum float64
	for _, x := range v {
		if x < 0 || x > 1 {
			return false
		}
		sum += float64(x)
	}
	return sum > 0.99 && sum < 1.01
}

func softmax(v []float32) {
	maxV := v[0]
	for _, x := range v[1:] {
		maxV = max(maxV, x)
	}
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - maxV))
	}
	for i, x := range v {
		v[i] = float32(math.Exp(float64(x-maxV)) / denom)
	}
}

// ProbToCertainty converts a probability to a log-probability certainty,
// floored at MinCertainty.
func ProbToCertainty(p float32) float32 {
	if float64(p) > math.Exp(MinCertainty) {
		return float32(math.Log(float64(p)))
	}
	return MinCertainty
}

// Argmax returns the index and value of the largest element of v, or -1.
func Argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}
