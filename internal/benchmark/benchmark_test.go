package benchmark

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/testutil"
)

func TestSuite_Add(t *testing.T) {
	suite := NewSuite()
	assert.Equal(t, 0, suite.Len())

	suite.Add("test_benchmark", func() error { return nil })
	assert.Equal(t, 1, suite.Len())
}

func TestSuite_Run(t *testing.T) {
	suite := NewSuite()
	suite.Add("success_test", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	calls := 0
	suite.Add("error_test", func() error {
		calls++
		return errors.New("test error")
	})

	result := suite.Run("success_test", 5)
	assert.Equal(t, "success_test", result.Name)
	assert.Equal(t, 5, result.Iterations)
	require.NoError(t, result.Error)
	assert.Positive(t, result.Duration)

	result = suite.Run("error_test", 3)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "test error")
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 1, calls)

	result = suite.Run("non_existent", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")
}

func TestSuite_RunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast_test", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.Add("slow_test", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := suite.RunAll(3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())
	assert.Equal(t, "fast_test", results[0].Name)
	assert.Equal(t, "slow_test", results[1].Name)
	assert.Greater(t, results[1].Duration, results[0].Duration)

	var out bytes.Buffer
	suite.PrintResults(&out)
	assert.Contains(t, out.String(), "Benchmark Results:")
	assert.Contains(t, out.String(), "slow_test: 3 iterations")
}

func testModel(t *testing.T) *recognizer.Model {
	t.Helper()
	dir := testutil.WriteBundle(t, []string{"c", "a", "t", "o", "g", "d"}, nil)
	return testutil.LoadModel(t, dir, recognizer.ModelOptions{})
}

func TestDecoderComparison(t *testing.T) {
	cmp := NewDecoderComparison(testModel(t))
	cmp.AddCase(Case{Name: "cat", Text: "cat", Peak: 0.9})
	cmp.AddCase(Case{Name: "dog", Text: "dog", Peak: 0.9, Steps: 3})

	results, err := cmp.RunBenchmark(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2*len(DefaultVariants()))
	for _, r := range results {
		require.NoError(t, r.Result.Error, r.String())
		assert.True(t, r.Correct, r.String())
		assert.Equal(t, 2, r.Result.Iterations)
	}

	summary := cmp.Summarize()
	require.Len(t, summary, 4)
	assert.Equal(t, "greedy", summary[0].Variant)
	for _, s := range summary {
		assert.Equal(t, 2, s.Total)
		assert.InDelta(t, 1.0, s.Accuracy(), 1e-9)
	}

	var out bytes.Buffer
	cmp.PrintDetailedResults(&out)
	assert.Contains(t, out.String(), "Decoder Comparison Results")
	assert.Contains(t, out.String(), "beam-narrow")
	assert.Contains(t, out.String(), "accuracy 2/2")
}

func TestDecoderComparison_Errors(t *testing.T) {
	cmp := NewDecoderComparison(testModel(t))
	_, err := cmp.RunBenchmark(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoCases)

	var out bytes.Buffer
	cmp.PrintDetailedResults(&out)
	assert.Contains(t, out.String(), "No benchmark results")

	cmp.AddCase(Case{Name: "unknown", Text: "xyz", Peak: 0.9})
	_, err = cmp.RunBenchmark(context.Background(), 1)
	require.ErrorIs(t, err, recognizer.ErrUnknownSymbol)

	bad := recognizer.DefaultConfig()
	bad.Mode = "nope"
	cmp.SetVariants([]Variant{{Name: "bad", Config: bad}})
	_, err = cmp.RunBenchmark(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variant bad")
}

func benchmarkVariant(b *testing.B, cfg recognizer.Config, text string) {
	b.Helper()
	dir := b.TempDir()
	body := []byte("c\na\nt\no\ng\nd\ns\ne\nr\nn\n")
	require.NoError(b, os.WriteFile(filepath.Join(dir, models.UnicharsetFile), body, 0o600))
	model, err := recognizer.LoadModel(models.ResolveBundle(dir, ""), recognizer.ModelOptions{})
	require.NoError(b, err)
	rec, err := recognizer.NewRecognizer(model, cfg)
	require.NoError(b, err)
	m, err := model.SpellMatrix(text, 3, 0.8)
	require.NoError(b, err)
	defer m.Release()

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := rec.RecognizeLine(ctx, m); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode_Beam(b *testing.B) {
	benchmarkVariant(b, recognizer.DefaultConfig(), "cats and dogs are second")
}

func BenchmarkDecode_Greedy(b *testing.B) {
	cfg := recognizer.DefaultConfig()
	cfg.Mode = recognizer.ModeGreedy
	benchmarkVariant(b, cfg, "cats and dogs are second")
}
