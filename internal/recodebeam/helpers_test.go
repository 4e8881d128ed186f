package recodebeam

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/dawg"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// passThrough returns a set over symbols and a compressor giving each symbol
// its id as its only code, so classes equal symbol ids.
func passThrough(symbols ...string) (*unichar.Set, *compress.Compressor) {
	set := unichar.NewSet(symbols...)
	c := compress.New()
	c.SetupPassThrough(set)
	return set, c
}

func newSearch(t *testing.T, c *compress.Compressor, dict LanguageModel, cfg Config) *Search {
	t.Helper()
	s, err := New(c, unichar.NullID, false, dict, cfg)
	require.NoError(t, err)
	return s
}

// peaked builds a matrix with one frame per class, each class at prob.
func peaked(t *testing.T, set *unichar.Set, prob float32, classes ...int) *netio.Matrix {
	t.Helper()
	frames := make([][]netio.Peak, len(classes))
	for i, c := range classes {
		frames[i] = []netio.Peak{{Class: c, Prob: prob}}
	}
	m, err := netio.Synthesize(set.Size(), frames...)
	require.NoError(t, err)
	t.Cleanup(m.Release)
	return m
}

func idsOf(t *testing.T, set *unichar.Set, syms ...string) []int {
	t.Helper()
	out := make([]int, len(syms))
	for i, s := range syms {
		out[i] = set.UnicharToID(s)
		require.NotEqual(t, unichar.InvalidID, out[i], s)
	}
	return out
}

// ownedSnapshots counts the position sets held by nodes of every beam.
func ownedSnapshots(s *Search) int {
	n := 0
	for _, b := range s.beams {
		for _, h := range b.heaps {
			for i := 0; i < h.Len(); i++ {
				if h.At(i).HasDawgs() {
					n++
				}
			}
		}
		for c := range b.bestInitialDawgs {
			if b.bestInitialDawgs[c].HasDawgs() {
				n++
			}
		}
	}
	return n
}

func catCarDict(t *testing.T, set *unichar.Set) *dawg.Dict {
	t.Helper()
	d := dawg.NewDict(set)
	n, err := d.AddWords([]string{"cat", "car"}, dawg.SystemDawgPerm)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return d
}
