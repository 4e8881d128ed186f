package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

// WriteBundle writes a models directory holding a unicharset with symbols
// and, when words is non-empty, a word list. It returns the directory.
func WriteBundle(t *testing.T, symbols, words []string) string {
	t.Helper()

	dir := CreateTempDir(t)
	writeLines(t, filepath.Join(dir, models.UnicharsetFile), symbols)
	if len(words) > 0 {
		writeLines(t, filepath.Join(dir, models.WordListFile), words)
	}
	return dir
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	body := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// LoadModel loads the bundle in dir.
func LoadModel(t *testing.T, dir string, opts recognizer.ModelOptions) *recognizer.Model {
	t.Helper()
	m, err := recognizer.LoadModel(models.ResolveBundle(dir, ""), opts)
	require.NoError(t, err)
	return m
}

// Labels returns the code sequence that spells text with model.
func Labels(t *testing.T, model *recognizer.Model, text string) []int {
	t.Helper()
	_, codes, err := model.EncodeText(text)
	require.NoError(t, err)
	return codes
}

// SpelledMatrix returns a matrix in which the network is confident, at
// probability peak, of every code of text for two timesteps each.
func SpelledMatrix(t *testing.T, model *recognizer.Model, text string, peak float32) *netio.Matrix {
	t.Helper()
	m, err := model.SpellMatrix(text, 2, peak)
	require.NoError(t, err)
	t.Cleanup(m.Release)
	return m
}

// WriteMatrixFile saves m as JSON under dir and returns the path.
func WriteMatrixFile(t *testing.T, dir, name string, m *netio.Matrix) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, netio.SaveFile(path, m))
	return path
}
