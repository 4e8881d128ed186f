package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

func TestCTCCollapse(t *testing.T) {
	// 1,1,0,2,2,2,3,0,3 with blank 0 -> 1,2,3,3
	idx := []int{1, 1, 0, 2, 2, 2, 3, 0, 3}
	pr := []float64{.8, .7, .1, .9, .85, .8, .6, .1, .5}
	outIdx, outPr, outPos := CTCCollapse(idx, pr, 0)
	assert.Equal(t, []int{1, 2, 3, 3}, outIdx)
	assert.Equal(t, []float64{.8, .9, .6, .5}, outPr)
	assert.Equal(t, []int{0, 3, 6, 8}, outPos)
}

func TestDecodeGreedy(t *testing.T) {
	m, err := netio.FromRows([][]float32{
		{0.1, 0.9, 0.0, 0.0},
		{0.2, 0.8, 0.0, 0.0},
		{0.9, 0.05, 0.03, 0.02},
		{0.1, 0.2, 0.7, 0.0},
	})
	require.NoError(t, err)
	defer m.Release()

	d := DecodeGreedy(m, 0)
	assert.Equal(t, []int{1, 1, 0, 2}, d.Indices)
	assert.InDelta(t, 0.9, d.Probs[0], 1e-6)
	assert.InDelta(t, 0.8, d.Probs[1], 1e-6)
	assert.InDelta(t, 0.9, d.Probs[2], 1e-6)
	assert.InDelta(t, 0.7, d.Probs[3], 1e-6)
	assert.Equal(t, []int{1, 2}, d.Collapsed)
	assert.Equal(t, []int{0, 3}, d.CollapsedPos)
	assert.InDelta(t, (0.9+0.7)/2, SequenceConfidence(d.CollapsedProb), 1e-6)
}

func TestGreedySymbols_MultiCode(t *testing.T) {
	set := unichar.NewSet("한", "글")
	c := compress.New()
	require.NoError(t, c.ComputeEncoding(set, unichar.NullID, nil))

	var collapsed []int
	var pos []int
	for _, sym := range []string{"한", "글"} {
		code, ok := c.EncodeUnichar(set.UnicharToID(sym))
		require.True(t, ok)
		for _, v := range code.Codes() {
			pos = append(pos, len(collapsed))
			collapsed = append(collapsed, v)
		}
	}
	probs := make([]float64, len(collapsed))
	for i := range probs {
		probs[i] = 0.9
	}
	probs[1] = 0.6

	ids, symProbs, xcoords := GreedySymbols(c, DecodedSequence{
		Collapsed:     collapsed,
		CollapsedProb: probs,
		CollapsedPos:  pos,
	})
	assert.Equal(t, "한글", set.Text(ids))
	assert.Equal(t, []float64{0.6, 0.9}, symProbs)
	assert.Equal(t, []int{0, 3}, xcoords)
}

func TestGreedySymbols_DropsUnfinished(t *testing.T) {
	set := unichar.NewSet("한")
	c := compress.New()
	require.NoError(t, c.ComputeEncoding(set, unichar.NullID, nil))
	code, ok := c.EncodeUnichar(set.UnicharToID("한"))
	require.True(t, ok)
	space, ok := c.EncodeUnichar(unichar.SpaceID)
	require.True(t, ok)

	// The first jamo alone, then a space: the partial syllable is dropped
	// once the space makes the group unfinishable.
	ids, _, _ := GreedySymbols(c, DecodedSequence{
		Collapsed:     []int{code.At(0), space.At(0)},
		CollapsedProb: []float64{0.9, 0.9},
		CollapsedPos:  []int{0, 1},
	})
	assert.Empty(t, ids)
}

func TestSequenceConfidence(t *testing.T) {
	assert.Zero(t, SequenceConfidence(nil))
	assert.InDelta(t, 0.5, SequenceConfidence([]float64{0.25, 0.75}), 1e-9)
}
