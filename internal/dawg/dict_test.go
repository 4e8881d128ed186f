package dawg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/unichar"
)

func newTestDict(t *testing.T) (*Dict, *unichar.Set) {
	t.Helper()
	set := unichar.NewSet("c", "a", "t", "r", "w", "e", "l", "k", "n", "o", "-", ".", "(", ")", "0", "1", "2", "3", "/", "ch")
	d := NewDict(set)
	n, err := d.AddWords([]string{"cat", "car", "well", "known", "char", "zzz"}, SystemDawgPerm)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = d.AddNumberPatterns([]string{"##", "#/#", "1x"})
	require.NoError(t, err)
	require.Equal(t, 2, d.NumDawgs())
	return d, set
}

func ids(t *testing.T, d *Dict, word string) []int {
	t.Helper()
	out, ok := d.Tokenize(word)
	require.True(t, ok, word)
	return out
}

func TestDict_ValidWord(t *testing.T) {
	d, _ := newTestDict(t)
	tests := []struct {
		word string
		want Permuter
	}{
		{"cat", SystemDawgPerm},
		{"car", SystemDawgPerm},
		{"ca", NoPerm},
		{"cart", NoPerm},
		{"(cat).", SystemDawgPerm},
		{"cat)", SystemDawgPerm},
		{"well-known", CompoundPerm},
		{"well-", SystemDawgPerm},
		{"12", NumberPerm},
		{"3/0", NumberPerm},
		{"123", NoPerm},
		{"(", PuncPerm},
		{"char", SystemDawgPerm},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ValidWord(ids(t, d, tt.word)))
		})
	}
	assert.Equal(t, NoPerm, d.ValidWord(nil))
}

func TestDict_TokenizeLongestMatch(t *testing.T) {
	d, set := newTestDict(t)
	got := ids(t, d, "char")
	assert.Equal(t, []int{set.UnicharToID("ch"), set.UnicharToID("a"), set.UnicharToID("r")}, got)
	_, ok := d.Tokenize("dog")
	assert.False(t, ok)
}

func TestDict_LetterIsOkayDoesNotMutateActive(t *testing.T) {
	d, set := newTestDict(t)
	active := NewPositions()
	d.DefaultDawgs(active)
	before := NewPositions()
	before.CopyFrom(active)

	args := &Args{Active: active, Updated: NewPositions()}
	perm := d.LetterIsOkay(args, set.UnicharToID("c"))
	assert.Equal(t, SystemDawgPerm, perm)
	assert.False(t, args.ValidEnd)
	assert.Equal(t, before, active)
	assert.Positive(t, args.Updated.Len())

	perm = d.LetterIsOkay(args, set.UnicharToID("o"))
	assert.Equal(t, NoPerm, perm)
	assert.Equal(t, 0, args.Updated.Len())

	perm = d.LetterIsOkay(args, unichar.InvalidID)
	assert.Equal(t, NoPerm, perm)
}

func TestDict_Empty(t *testing.T) {
	set := unichar.NewSet("a")
	d := NewDict(set, WithSpaceDelimitedLanguage(false), WithCompounds(false))
	assert.False(t, d.IsSpaceDelimitedLanguage())
	assert.True(t, d.IsSpaceDelimited(set.UnicharToID("a")))

	out := NewPositions()
	d.DefaultDawgs(out)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, NoPerm, d.ValidWord([]int{set.UnicharToID("a")}))

	_, err := d.AddWords([]string{"xyz"}, SystemDawgPerm)
	require.ErrorIs(t, err, ErrNoWords)
	_, err = d.AddNumberPatterns(nil)
	require.ErrorIs(t, err, ErrNoWords)
}

func TestDict_CompoundsDisabled(t *testing.T) {
	set := unichar.NewSet("a", "b", "-")
	d := NewDict(set, WithCompounds(false))
	_, err := d.AddWords([]string{"a", "b"}, SystemDawgPerm)
	require.NoError(t, err)
	assert.Equal(t, NoPerm, d.ValidWord(ids(t, d, "a-b")))
	assert.Equal(t, SystemDawgPerm, d.ValidWord(ids(t, d, "a-")))
}
