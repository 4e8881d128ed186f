package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/testutil"
)

// widthDecoder reports the matrix width as text.
type widthDecoder struct {
	calls atomic.Int32
	fail  int // width that makes decoding fail
}

func (d *widthDecoder) RecognizeLine(_ context.Context, m *netio.Matrix) (*recognizer.LineResult, error) {
	d.calls.Add(1)
	res := &recognizer.LineResult{Text: strconv.Itoa(m.Width()), Width: m.Width(), Confidence: 1}
	if m.Width() == d.fail {
		res.Error = "class count mismatch"
	}
	return res, nil
}

func writeWidthFiles(t *testing.T, dir string, widths ...int) []string {
	t.Helper()
	var paths []string
	for i, w := range widths {
		rows := make([][]float32, w)
		for r := range rows {
			rows[r] = []float32{0.25, 0.75}
		}
		m, err := netio.FromRows(rows)
		require.NoError(t, err)
		paths = append(paths, testutil.WriteMatrixFile(t, dir, "line"+strconv.Itoa(i)+".json", m))
		m.Release()
	}
	return paths
}

func TestProcessBatch_PreservesOrder(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	writeWidthFiles(t, dir, 3, 1, 4, 1, 5, 9, 2, 6)

	dec := &widthDecoder{}
	config := DefaultConfig()
	config.Workers = 3
	result, err := ProcessBatch(context.Background(), dec, []string{dir}, config)
	require.NoError(t, err)

	require.Len(t, result.Files, 8)
	for i, f := range result.Files {
		assert.Equal(t, filepath.Join(dir, "line"+strconv.Itoa(i)+".json"), f.File)
		assert.False(t, f.Failed())
	}
	assert.Equal(t, "3", result.Files[0].Line.Text)
	assert.Equal(t, "6", result.Files[7].Line.Text)
	assert.Equal(t, int32(8), dec.calls.Load())
	assert.Equal(t, 3, result.WorkerCount)

	stats := result.Stats()
	assert.Equal(t, 8, stats.Total)
	assert.Equal(t, 8, stats.Decoded)
	assert.Equal(t, 0, stats.Failed)
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	writeWidthFiles(t, dir, 2, 7, 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "line3.json"), []byte("{not json"), 0o600))

	config := DefaultConfig()
	config.Workers = 2
	config.ContinueOnError = true
	result, err := ProcessBatch(context.Background(), &widthDecoder{fail: 7}, []string{dir}, config)
	require.NoError(t, err)

	stats := result.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Decoded)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, "class count mismatch", result.Files[1].ErrorText())
	assert.Contains(t, result.Files[3].Error, "failed to decode matrix JSON")
	require.Error(t, result.FirstError())
}

func TestProcessBatch_StopsOnError(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	writeWidthFiles(t, dir, 7, 2, 3)

	config := DefaultConfig()
	config.Workers = 1
	result, err := ProcessBatch(context.Background(), &widthDecoder{fail: 7}, []string{dir}, config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line0.json")
	require.NotNil(t, result)
	assert.True(t, result.Files[0].Failed())
}

func TestProcessBatch_NoFiles(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	_, err := ProcessBatch(context.Background(), &widthDecoder{}, []string{dir}, DefaultConfig())
	require.ErrorIs(t, err, ErrNoMatrixFiles)
}

func TestProcessBatch_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Format = "pdf"
	_, err := ProcessBatch(context.Background(), &widthDecoder{}, []string{"."}, config)
	require.Error(t, err)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	writeWidthFiles(t, dir, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProcessBatch(ctx, &widthDecoder{}, []string{dir}, DefaultConfig())
	require.True(t, errors.Is(err, context.Canceled))
}

func TestProcessBatch_OutputDir(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	writeWidthFiles(t, dir, 4)
	outDir := filepath.Join(testutil.CreateTempDir(t), "out")

	config := DefaultConfig()
	config.OutputDir = outDir
	config.Format = FormatJSON
	_, err := ProcessBatch(context.Background(), &widthDecoder{}, []string{dir}, config)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "line0.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text": "4"`)
}

func TestProcessBatch_RealRecognizer(t *testing.T) {
	modelDir := testutil.WriteBundle(t, []string{"c", "a", "t", "o", "g", "d"}, nil)
	model := testutil.LoadModel(t, modelDir, recognizer.ModelOptions{})
	rec, err := recognizer.NewRecognizer(model, recognizer.DefaultConfig())
	require.NoError(t, err)

	dir := testutil.CreateTempDir(t)
	testutil.WriteMatrixFile(t, dir, "1.json", testutil.SpelledMatrix(t, model, "cat", 0.9))
	testutil.WriteMatrixFile(t, dir, "2.json", testutil.SpelledMatrix(t, model, "dog", 0.9))

	config := DefaultConfig()
	config.Workers = 2
	result, err := ProcessBatch(context.Background(), rec, []string{dir}, config)
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	assert.Equal(t, "cat", result.Files[0].Line.Text)
	assert.Equal(t, "dog", result.Files[1].Line.Text)
}

func TestResult_SaveAndPrint(t *testing.T) {
	result := &Result{
		Files: []FileResult{
			{File: "a.json", Line: &recognizer.LineResult{Text: "alpha"}},
			{File: "b.json", Error: "broken"},
		},
		Duration:    2 * time.Second,
		WorkerCount: 2,
	}

	var stdout bytes.Buffer
	require.NoError(t, result.SaveResults(&stdout, FormatText, "", 2, false))
	assert.Contains(t, stdout.String(), "alpha")

	outFile := filepath.Join(testutil.CreateTempDir(t), "results.csv")
	stdout.Reset()
	require.NoError(t, result.SaveResults(&stdout, FormatCSV, outFile, 2, false))
	assert.Contains(t, stdout.String(), "Results written to")
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "b.json,,,0,0,false,,broken")

	stdout.Reset()
	result.PrintStats(&stdout)
	assert.Contains(t, stdout.String(), "Total files: 2")
	assert.Contains(t, stdout.String(), "Failed: 1")
	assert.Contains(t, stdout.String(), "Throughput: 1.0 files/sec")
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgressCallback(&buf, "Decoding: ").WithUpdateInterval(0)
	p.OnStart(4)
	p.OnProgress(2, 4)
	p.OnError(3, errors.New("bad"))
	p.OnProgress(4, 4)
	p.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "Decoding: [")
	assert.Contains(t, out, "4/4")
	assert.Contains(t, out, "(1 failed)")
}
