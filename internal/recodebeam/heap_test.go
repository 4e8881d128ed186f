package recodebeam

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b *int) bool { return *a < *b }

func TestHeap_PushPop(t *testing.T) {
	h := NewHeap(4, intLess)
	for _, v := range []int{5, 3, 8, 1, 9, 2} {
		h.Push(v)
		require.True(t, h.Valid())
	}
	assert.Equal(t, 6, h.Len())
	assert.Equal(t, 1, *h.PeekTop())

	var got []int
	for !h.Empty() {
		got = append(got, h.Pop())
		require.True(t, h.Valid())
	}
	assert.Equal(t, []int{1, 2, 3, 5, 8, 9}, got)
}

func TestHeap_PopWorst(t *testing.T) {
	h := NewHeap(8, intLess)
	for _, v := range []int{4, 7, 1, 9, 3, 6} {
		h.Push(v)
	}
	assert.Equal(t, 9, h.PopWorst())
	assert.True(t, h.Valid())
	assert.Equal(t, 7, h.PopWorst())
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, 1, *h.PeekTop())

	single := NewHeap(1, intLess)
	single.Push(3)
	assert.Equal(t, 3, single.PopWorst())
	assert.True(t, single.Empty())
}

func TestHeap_Reshuffle(t *testing.T) {
	h := NewHeap(8, intLess)
	for _, v := range []int{10, 20, 30, 40, 50} {
		h.Push(v)
	}
	for i := 0; i < h.Len(); i++ {
		if *h.At(i) == 40 {
			*h.At(i) = 5
			h.Reshuffle(i)
			break
		}
	}
	require.True(t, h.Valid())
	assert.Equal(t, 5, *h.PeekTop())

	*h.At(0) = 100
	h.Reshuffle(0)
	require.True(t, h.Valid())
	assert.Equal(t, 10, *h.PeekTop())
}

func TestHeap_EmptyPanics(t *testing.T) {
	h := NewHeap(1, intLess)
	assert.Panics(t, func() { h.Pop() })
	assert.Panics(t, func() { h.PeekTop() })
	assert.Panics(t, func() { h.PopWorst() })
}

func TestHeap_Clear(t *testing.T) {
	h := NewHeap(2, intLess)
	h.Push(1)
	h.Push(2)
	h.Clear()
	assert.True(t, h.Empty())
	h.Push(7)
	assert.Equal(t, 7, *h.PeekTop())
}

func TestHeap_BoundedKeepsBest(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("bounded push keeps the k largest values", prop.ForAll(
		func(values []int, k int) bool {
			h := NewHeap(k+1, intLess)
			for _, v := range values {
				if h.Len() < k || v > *h.PeekTop() {
					h.Push(v)
					if h.Len() > k {
						h.Pop()
					}
				}
				if h.Len() > k || !h.Valid() {
					return false
				}
			}
			want := slices.Clone(values)
			slices.Sort(want)
			if len(want) > k {
				want = want[len(want)-k:]
			}
			var got []int
			for !h.Empty() {
				got = append(got, h.Pop())
			}
			return slices.Equal(want, got)
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t)
}

func TestHeap_RandomReshuffle(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	h := NewHeap(32, intLess)
	for range 32 {
		h.Push(r.Intn(100))
	}
	for range 200 {
		i := r.Intn(h.Len())
		*h.At(i) = r.Intn(100)
		h.Reshuffle(i)
		require.True(t, h.Valid())
	}
}
