package recodebeam

import "github.com/MeKo-Tech/recode/internal/mempool"

type topPair struct {
	prob float32
	code int
}

func topPairLess(a, b *topPair) bool { return a.prob < b.prob }

// ComputeTopN flags each class of outputs with its TopNState: the best two
// are Top2, the next topN-2 TopN, the rest AlsoRan. The null class is always
// Top2. Ties are settled by heap order.
func (s *Search) ComputeTopN(outputs []float32, topN int) {
	if s.topNFlags != nil {
		mempool.PutInt8(s.topNFlags)
	}
	// GetInt8 returns zeroed flags, which is Top2; reset to AlsoRan.
	s.topNFlags = mempool.GetInt8(len(outputs))
	for i := range s.topNFlags {
		s.topNFlags[i] = int8(AlsoRan)
	}
	s.topCode, s.secondCode = -1, -1
	s.topHeap.Clear()
	for i, p := range outputs {
		if s.topHeap.Len() < topN || p > s.topHeap.PeekTop().prob {
			s.topHeap.Push(topPair{prob: p, code: i})
			if s.topHeap.Len() > topN {
				s.topHeap.Pop()
			}
		}
	}
	for !s.topHeap.Empty() {
		entry := s.topHeap.Pop()
		if s.topHeap.Len() > 1 {
			s.topNFlags[entry.code] = int8(TopN)
			continue
		}
		s.topNFlags[entry.code] = int8(Top2)
		if s.topHeap.Empty() {
			s.topCode = entry.code
		} else {
			s.secondCode = entry.code
		}
	}
	if s.nullChar >= 0 && s.nullChar < len(s.topNFlags) {
		s.topNFlags[s.nullChar] = int8(Top2)
	}
}

// TopNFlag returns the tier of code at the current timestep.
func (s *Search) TopNFlag(code int) TopNState {
	if code < 0 || code >= len(s.topNFlags) {
		return AlsoRan
	}
	return TopNState(s.topNFlags[code])
}

// TopCodes returns the best and second best codes of the current timestep.
func (s *Search) TopCodes() (top, second int) { return s.topCode, s.secondCode }
