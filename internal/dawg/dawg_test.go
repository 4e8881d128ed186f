package dawg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/unichar"
)

func seqs(words ...string) [][]int {
	out := make([][]int, len(words))
	for i, w := range words {
		for _, r := range w {
			out[i] = append(out[i], int(r))
		}
	}
	return out
}

func TestBuilder_Minimises(t *testing.T) {
	d := Build(WordType, SystemDawgPerm, seqs("tops", "tap", "taps", "top", "tap"))
	assert.Equal(t, 5, d.NumNodes())
	assert.Equal(t, 4, d.NumWords())
	for _, w := range seqs("tap", "taps", "top", "tops") {
		assert.True(t, d.Contains(w))
	}
	for _, w := range seqs("ta", "tapss", "x", "") {
		assert.False(t, d.Contains(w))
	}
	assert.Equal(t, SystemDawgPerm, d.Permuter())
	assert.Equal(t, "word", d.Type().String())
}

func TestBuilder_RejectsUnsorted(t *testing.T) {
	b := NewBuilder(WordType, UserDawgPerm)
	require.NoError(t, b.Add([]int{1, 2}))
	require.NoError(t, b.Add([]int{1, 2}))
	require.NoError(t, b.Add(nil))
	require.ErrorIs(t, b.Add([]int{1, 1}), ErrUnsorted)
	d := b.Finish()
	assert.True(t, d.Contains([]int{1, 2}))
	assert.Equal(t, 1, d.NumWords())
}

func TestDawg_NextAndFinal(t *testing.T) {
	d := Build(WordType, SystemDawgPerm, [][]int{{3, 4}, {3}})
	n, ok := d.Next(d.Root(), 3)
	require.True(t, ok)
	assert.True(t, d.IsFinal(n))
	_, ok = d.Next(n, 5)
	assert.False(t, ok)
	_, ok = d.Next(-1, 3)
	assert.False(t, ok)
	assert.False(t, d.IsFinal(d.Root()))

	empty := NewBuilder(WordType, SystemDawgPerm).Finish()
	assert.Equal(t, 1, empty.NumNodes())
	assert.False(t, empty.Contains([]int{1}))
}

func TestPositions(t *testing.T) {
	p := NewPositions()
	p.Add(Position{Dawg: 0, Node: 1})
	p.Add(Position{Dawg: 0, Node: 1})
	p.Add(Position{Dawg: 1, Node: 1})
	assert.Equal(t, 2, p.Len())

	q := NewPositions()
	q.CopyFrom(p)
	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, Position{Dawg: 1, Node: 1}, q.At(1))

	var nilSet *Positions
	assert.Equal(t, 0, nilSet.Len())
}

func TestPermuterString(t *testing.T) {
	assert.Equal(t, "system_dict", SystemDawgPerm.String())
	assert.Equal(t, "top_choice", TopChoicePerm.String())
	assert.Equal(t, "unknown", Permuter(99).String())
	assert.True(t, CompoundPerm.IsDictionary())
	assert.False(t, TopChoicePerm.IsDictionary())
}

func TestLoadWordList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFcat\n# comment\n\n car \n"), 0o644))
	words, err := LoadWordList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "car"}, words)

	_, err = LoadWordList(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestDawgFromUnicharSet(t *testing.T) {
	set := unichar.NewSet("c", "a", "t")
	d := NewDict(set)
	ids, ok := d.Tokenize("cat")
	require.True(t, ok)
	dw := Build(WordType, SystemDawgPerm, [][]int{ids})
	assert.True(t, dw.Contains(ids))
}
