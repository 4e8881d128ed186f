package unichar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet_ReservedIDs(t *testing.T) {
	s := NewSet("a", "b", "a")
	require.Equal(t, 4, s.Size())
	assert.Equal(t, " ", s.IDToUnichar(SpaceID))
	assert.Equal(t, SpaceID, s.UnicharToID(" "))
	assert.Equal(t, NullID, s.UnicharToID("<nul>"))
	assert.Equal(t, 2, s.UnicharToID("a"))
	assert.Equal(t, 3, s.UnicharToID("b"))
	assert.Equal(t, InvalidID, s.UnicharToID("z"))
	assert.Equal(t, "", s.IDToUnichar(99))
	assert.Equal(t, "", s.IDToUnichar(InvalidID))
	assert.Equal(t, SpaceID, s.Add(SpaceAlias))
}

func TestLoadSet_EmptyPath(t *testing.T) {
	s, err := LoadSet("")
	require.Error(t, err)
	require.Nil(t, s)
}

func TestLoadSet_FileNotFound(t *testing.T) {
	s, err := LoadSet("no/such/file.txt")
	require.Error(t, err)
	require.Nil(t, s)
}

func TestLoadSet_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unicharset.txt")
	content := "\xEF\xBB\xBFa\nß\n你\n<space>\n  b  \n\n" //nolint:gosmopolitan // BOM and Unicode
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadSet(path)
	require.NoError(t, err)
	require.Equal(t, 6, s.Size())
	assert.Equal(t, 2, s.UnicharToID("a"))
	assert.Equal(t, 3, s.UnicharToID("ß"))
	assert.Equal(t, 4, s.UnicharToID("你")) //nolint:gosmopolitan
	assert.Equal(t, 5, s.UnicharToID("b"))
}

func TestLoadSet_OnlyBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n\n  \n"), 0o644))
	_, err := LoadSet(path)
	require.Error(t, err)
}

func TestLoadSets_Merge(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.txt")
	p2 := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(p1, []byte("a\nb\n"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte("b\nc\n"), 0o644))

	s, err := LoadSets([]string{p1, "", p2})
	require.NoError(t, err)
	assert.Equal(t, []string{" ", "<nul>", "a", "b", "c"}, s.Symbols())

	_, err = LoadSets(nil)
	require.Error(t, err)
}

func TestProperties(t *testing.T) {
	s := NewSet("a", "7", ",", "你", "한", "ก") //nolint:gosmopolitan // script coverage
	tests := []struct {
		sym       string
		delimited bool
		punct     bool
		digit     bool
		alpha     bool
		script    string
	}{
		{"a", true, false, false, true, "Latin"},
		{"7", true, false, true, false, "Common"},
		{",", true, true, false, false, "Common"},
		{"你", false, false, false, true, "Han"},     //nolint:gosmopolitan
		{"한", false, false, false, true, "Hangul"},  //nolint:gosmopolitan
		{"ก", false, false, false, true, "Thai"},    //nolint:gosmopolitan
	}
	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			id := s.UnicharToID(tt.sym)
			require.NotEqual(t, InvalidID, id)
			assert.Equal(t, tt.delimited, s.IsSpaceDelimited(id))
			assert.Equal(t, tt.punct, s.IsPunctuation(id))
			assert.Equal(t, tt.digit, s.IsDigit(id))
			assert.Equal(t, tt.alpha, s.IsAlpha(id))
			assert.Equal(t, tt.script, s.Script(id))
		})
	}
	assert.True(t, s.IsSpaceDelimited(InvalidID))
}

func TestIsSpaceDelimitedLanguage(t *testing.T) {
	assert.True(t, NewSet("a", "b", "你").IsSpaceDelimitedLanguage())         //nolint:gosmopolitan
	assert.False(t, NewSet("a", "你", "好", "吗").IsSpaceDelimitedLanguage()) //nolint:gosmopolitan
}

func TestWhitelistBlacklist(t *testing.T) {
	s := NewSet("a", "b", "c", "ab")
	assert.True(t, s.Enabled(s.UnicharToID("c")))

	s.SetWhitelist("ab")
	assert.True(t, s.Enabled(s.UnicharToID("a")))
	assert.True(t, s.Enabled(s.UnicharToID("ab")))
	assert.False(t, s.Enabled(s.UnicharToID("c")))
	assert.True(t, s.Enabled(SpaceID))
	assert.True(t, s.Enabled(NullID))

	s.SetWhitelist("")
	s.SetBlacklist("b")
	assert.True(t, s.Enabled(s.UnicharToID("a")))
	assert.False(t, s.Enabled(s.UnicharToID("b")))
	assert.False(t, s.Enabled(s.UnicharToID("ab")))
	assert.False(t, s.Enabled(InvalidID))

	// Symbols added after a blacklist stay enabled.
	id := s.Add("d")
	assert.True(t, s.Enabled(id))
}

func TestNormalize(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"
	assert.Equal(t, composed, Normalize(decomposed))

	s := NewSet(composed, decomposed)
	assert.True(t, s.IsSelfNormalized(s.UnicharToID(composed)))
	assert.False(t, s.IsSelfNormalized(s.UnicharToID(decomposed)))
}

func TestText(t *testing.T) {
	s := NewSet("h", "i")
	h, i := s.UnicharToID("h"), s.UnicharToID("i")
	assert.Equal(t, "hi hi", s.Text([]int{h, NullID, i, SpaceID, h, InvalidID, i}))
}
