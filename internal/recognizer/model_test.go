package recognizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

func writeBundle(t *testing.T, files map[string]string) models.Bundle {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return models.ResolveBundle(dir, "")
}

func TestLoadModel_ComputedEncoding(t *testing.T) {
	b := writeBundle(t, map[string]string{
		models.UnicharsetFile:     "c\na\nt\n",
		models.WordListFile:       "cat\n",
		models.NumberPatternsFile: "###\n",
	})
	m, err := LoadModel(b, ModelOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, m.Charset.Size())
	require.NotNil(t, m.Dict)
	assert.NotNil(t, m.LanguageModel())
	assert.Equal(t, m.Recoder.CodeRange()-1, m.NullCode)

	info := m.Info()
	assert.Equal(t, "default", info.Name)
	assert.Equal(t, 2, info.Dawgs)
	assert.Equal(t, 2, info.DictionaryWords)
	assert.False(t, info.PassThrough)
}

func TestLoadModel_PassThroughWithoutDictionary(t *testing.T) {
	b := writeBundle(t, map[string]string{
		models.UnicharsetFile: "c\na\nt\n",
		models.WordListFile:   "cat\n",
	})
	m, err := LoadModel(b, ModelOptions{PassThrough: true, NoDictionary: true, Blacklist: "t"})
	require.NoError(t, err)

	assert.Equal(t, unichar.NullID, m.NullCode)
	assert.True(t, m.Info().PassThrough)
	assert.Nil(t, m.Dict)
	assert.Nil(t, m.LanguageModel())
	assert.False(t, m.Charset.Enabled(m.Charset.UnicharToID("t")))
}

func TestLoadModel_UnusableDictionaryIsSkipped(t *testing.T) {
	b := writeBundle(t, map[string]string{
		models.UnicharsetFile: "c\na\nt\n",
		models.WordListFile:   "xyz\n",
	})
	m, err := LoadModel(b, ModelOptions{})
	require.NoError(t, err)
	assert.Nil(t, m.Dict)
}

func TestLoadModel_SavedRecoder(t *testing.T) {
	set := unichar.NewSet("c", "a", "t")
	c := compress.New()
	require.NoError(t, c.ComputeEncoding(set, unichar.NullID, nil))

	b := writeBundle(t, map[string]string{models.UnicharsetFile: "c\na\nt\n"})
	require.NoError(t, c.Save(filepath.Join(b.Dir, models.RecoderFile)))
	b = models.ResolveBundle(b.Dir, "")
	require.NotEmpty(t, b.Recoder)

	m, err := LoadModel(b, ModelOptions{})
	require.NoError(t, err)
	assert.Equal(t, c.CodeRange(), m.Recoder.CodeRange())
}

func TestLoadModel_RecoderSizeMismatch(t *testing.T) {
	c := compress.New()
	c.SetupPassThrough(unichar.NewSet("c"))

	b := writeBundle(t, map[string]string{models.UnicharsetFile: "c\na\nt\n"})
	require.NoError(t, c.Save(filepath.Join(b.Dir, models.RecoderFile)))
	_, err := LoadModel(models.ResolveBundle(b.Dir, ""), ModelOptions{})
	require.Error(t, err)
}

func TestLoadModel_MissingUnicharset(t *testing.T) {
	_, err := LoadModel(models.ResolveBundle(t.TempDir(), ""), ModelOptions{})
	require.ErrorIs(t, err, models.ErrNoUnicharset)
}

func TestNewModel_Errors(t *testing.T) {
	_, err := NewModel("x", nil, compress.New(), nil)
	require.Error(t, err)

	_, err = NewModel("x", unichar.NewSet("a"), compress.New(), nil)
	require.ErrorIs(t, err, ErrNoNullCode)
}

func TestModel_EncodeText(t *testing.T) {
	b := writeBundle(t, map[string]string{models.UnicharsetFile: "c\nh\nch\na\n"})
	m, err := LoadModel(b, ModelOptions{PassThrough: true, NoDictionary: true})
	require.NoError(t, err)

	ch := m.Charset.UnicharToID("ch")
	a := m.Charset.UnicharToID("a")
	c := m.Charset.UnicharToID("c")

	ids, codes, err := m.EncodeText("cha")
	require.NoError(t, err)
	assert.Equal(t, []int{ch, a}, ids)
	assert.Equal(t, ids, codes)

	ids, _, err = m.EncodeText("a c")
	require.NoError(t, err)
	assert.Equal(t, []int{a, unichar.SpaceID, c}, ids)

	_, _, err = m.EncodeText("cx")
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestModel_SpellMatrix(t *testing.T) {
	b := writeBundle(t, map[string]string{models.UnicharsetFile: "c\na\nt\n"})
	m, err := LoadModel(b, ModelOptions{PassThrough: true, NoDictionary: true})
	require.NoError(t, err)

	mat, err := m.SpellMatrix("caat", 3, 0.9)
	require.NoError(t, err)
	defer mat.Release()

	// a null frame separates the repeated "a"
	assert.Equal(t, 13, mat.Width())
	assert.Equal(t, m.Recoder.CodeRange(), mat.NumFeatures())
	assert.InDelta(t, 0.9, mat.At(0, m.Charset.UnicharToID("c")), 1e-6)

	_, err = m.SpellMatrix("", 3, 0.9)
	require.Error(t, err)
}
