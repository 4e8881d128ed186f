package netio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float32{{0.1, 0.9}, {0.8, 0.2}})
	require.NoError(t, err)
	defer m.Release()
	assert.Equal(t, 2, m.Width())
	assert.Equal(t, 2, m.NumFeatures())
	assert.InDelta(t, 0.9, m.At(0, 1), 1e-6)
	m.Set(1, 1, 0.5)
	assert.Equal(t, []float32{0.8, 0.5}, m.F(1))

	_, err = FromRows(nil)
	require.ErrorIs(t, err, ErrEmptyMatrix)
	_, err = FromRows([][]float32{{1, 0}, {1}})
	require.ErrorIs(t, err, ErrRaggedMatrix)
}

func TestNormalize(t *testing.T) {
	m, err := FromRows([][]float32{{0.25, 0.75}, {2, 2}, {-1, 3}})
	require.NoError(t, err)
	defer m.Release()

	assert.Equal(t, 2, m.Normalize())
	assert.Equal(t, []float32{0.25, 0.75}, m.F(0))
	assert.InDelta(t, 0.5, m.At(1, 0), 1e-6)
	assert.InDelta(t, 1/(1+math.Exp(4)), m.At(2, 0), 1e-6)
	assert.InDelta(t, 1.0, m.At(2, 0)+m.At(2, 1), 1e-6)
}

func TestProbToCertainty(t *testing.T) {
	assert.InDelta(t, 0, ProbToCertainty(1), 1e-6)
	assert.InDelta(t, math.Log(0.5), ProbToCertainty(0.5), 1e-6)
	assert.InDelta(t, MinCertainty, ProbToCertainty(0), 1e-6)
	assert.InDelta(t, MinCertainty, ProbToCertainty(1e-12), 1e-6)
}

func TestArgmax(t *testing.T) {
	idx, v := Argmax([]float32{0.1, 0.7, 0.2})
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.7, v, 1e-6)
	idx, _ = Argmax(nil)
	assert.Equal(t, -1, idx)
}

func TestReadJSON(t *testing.T) {
	m, err := ReadJSON(strings.NewReader(`{"classes":3,"outputs":[[0.1,0.2,0.7],[1,2,3]]}`))
	require.NoError(t, err)
	defer m.Release()
	assert.Equal(t, 2, m.Width())
	assert.InDelta(t, 1.0, m.At(1, 0)+m.At(1, 1)+m.At(1, 2), 1e-5)

	_, err = ReadJSON(strings.NewReader(`{"classes":4,"outputs":[[0.1,0.2,0.7]]}`))
	require.ErrorIs(t, err, ErrRaggedMatrix)
	_, err = ReadJSON(strings.NewReader(`{"outputs":`))
	require.Error(t, err)
}

func TestReadText(t *testing.T) {
	m, err := ReadText(strings.NewReader("# t x c\n0.5 0.5\n\n0.9\t0.1\n"))
	require.NoError(t, err)
	defer m.Release()
	assert.Equal(t, 2, m.Width())
	assert.InDelta(t, 0.9, m.At(1, 0), 1e-6)

	_, err = ReadText(strings.NewReader("0.5 abc\n"))
	require.Error(t, err)
	_, err = ReadText(strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmptyMatrix)
}

func TestReadText_RejectsNonFinite(t *testing.T) {
	for _, v := range []string{"NaN", "nan", "Inf", "+Inf", "-inf", "infinity"} {
		_, err := ReadText(strings.NewReader("0.5 0.5\n0.1 " + v + "\n"))
		require.ErrorIs(t, err, ErrNonFinite, v)
		assert.Contains(t, err.Error(), "line 2", v)
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	m, err := Synthesize(3, []Peak{{Class: 0, Prob: 0.9}}, []Peak{{Class: 2, Prob: 0.8}})
	require.NoError(t, err)
	defer m.Release()

	path := filepath.Join(dir, "line.json")
	require.NoError(t, SaveFile(path, m))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	defer loaded.Release()
	assert.Equal(t, m.Rows(), loaded.Rows())

	txt := filepath.Join(dir, "line.txt")
	require.NoError(t, os.WriteFile(txt, []byte("0.2 0.8\n"), 0o644))
	fromText, err := LoadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, 1, fromText.Width())
	fromText.Release()

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestSynthesize(t *testing.T) {
	m, err := Synthesize(4, []Peak{{Class: 1, Prob: 0.7}}, []Peak{{Class: 0, Prob: 0.5}, {Class: 3, Prob: 0.5}})
	require.NoError(t, err)
	defer m.Release()
	assert.InDelta(t, 0.7, m.At(0, 1), 1e-6)
	assert.InDelta(t, 0.1, m.At(0, 2), 1e-6)
	assert.InDelta(t, 0, m.At(1, 1), 1e-6)

	_, err = Synthesize(2, []Peak{{Class: 5, Prob: 0.5}})
	require.Error(t, err)
	_, err = Synthesize(2, []Peak{{Class: 0, Prob: 0.8}, {Class: 1, Prob: 0.8}})
	require.Error(t, err)
	_, err = Synthesize(2)
	require.ErrorIs(t, err, ErrEmptyMatrix)
}

func TestPeakedFrames(t *testing.T) {
	frames := PeakedFrames([]int{2, 2, 3}, 0, 2, 0.9)
	classes := make([]int, len(frames))
	for i, f := range frames {
		classes[i] = f[0].Class
	}
	assert.Equal(t, []int{2, 2, 0, 2, 2, 3, 3}, classes)
}

func TestWriteJSON(t *testing.T) {
	m, err := FromRows([][]float32{{1, 0}})
	require.NoError(t, err)
	defer m.Release()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, m))
	assert.JSONEq(t, `{"classes":2,"outputs":[[1,0]]}`, buf.String())
}
