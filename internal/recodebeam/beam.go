package recodebeam

import (
	"fmt"

	"github.com/MeKo-Tech/recode/internal/dawg"
)

func nodeLess(a, b *Node) bool { return a.Score < b.Score }

// Beam is the set of hypotheses kept at one timestep.
type Beam struct {
	heaps [NumBeams]*Heap[Node]
	// bestInitialDawgs holds, per continuation, the best node that could
	// start a new dictionary word at this timestep. Code < 0 marks unset.
	bestInitialDawgs [numContinuations]Node
}

func newBeam(cfg *Config) *Beam {
	b := &Beam{}
	for i := range b.heaps {
		b.heaps[i] = NewHeap(cfg.BeamWidths[LengthFromBeamIndex(i)]+1, nodeLess)
	}
	for c := range b.bestInitialDawgs {
		b.bestInitialDawgs[c] = Node{Code: -1}
	}
	return b
}

// Heap returns the heap at a BeamIndex.
func (b *Beam) Heap(index int) *Heap[Node] { return b.heaps[index] }

// clear empties every heap, returning owned positions to pool.
func (b *Beam) clear(pool *positionPool) {
	for _, h := range b.heaps {
		for i := 0; i < h.Len(); i++ {
			pool.put(h.At(i).takeDawgs())
		}
		h.Clear()
	}
	for c := range b.bestInitialDawgs {
		pool.put(b.bestInitialDawgs[c].takeDawgs())
		b.bestInitialDawgs[c] = Node{Code: -1}
	}
}

// Size returns the number of nodes across all heaps.
func (b *Beam) Size() int {
	n := 0
	for _, h := range b.heaps {
		n += h.Len()
	}
	return n
}

// positionPool hands out dawg position sets and tracks which are checked
// out. Each set has exactly one owner; releasing one that is not checked out
// is a programming error.
type positionPool struct {
	free []*dawg.Positions
	live map[*dawg.Positions]struct{}
}

func newPositionPool() *positionPool {
	return &positionPool{live: make(map[*dawg.Positions]struct{})}
}

func (p *positionPool) get() *dawg.Positions {
	var d *dawg.Positions
	if n := len(p.free); n > 0 {
		d = p.free[n-1]
		p.free = p.free[:n-1]
		d.Clear()
	} else {
		d = dawg.NewPositions()
	}
	p.live[d] = struct{}{}
	return d
}

// put returns d to the pool. A nil d is ignored.
func (p *positionPool) put(d *dawg.Positions) {
	if d == nil {
		return
	}
	if _, ok := p.live[d]; !ok {
		panic(fmt.Sprintf("recodebeam: dawg positions %p released twice", d))
	}
	delete(p.live, d)
	p.free = append(p.free, d)
}

func (p *positionPool) liveCount() int { return len(p.live) }
