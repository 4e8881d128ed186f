package recodebeam

import (
	"slices"

	"github.com/MeKo-Tech/recode/internal/dawg"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// ExtractBestPaths returns the best path through the last decode and a
// runner-up, each as one node per timestep. Dictionary nodes count only if
// they end a word or a space. The runner-up is the best node of the other
// kind (dictionary or top choice) when there is one, so that the top-choice
// reading survives next to a dictionary reading; otherwise it is the second
// best overall. Either path is nil when no candidate exists.
func (s *Search) ExtractBestPaths() (best, second []*Node) {
	if s.beamSize == 0 {
		return nil, nil
	}
	last := s.beams[s.beamSize-1]
	var bestNode, flatSecond *Node
	bestIsDawg := false
	var bestByKind [2]*Node
	for c := range numContinuations {
		if c == ContOnlyDup {
			continue
		}
		for kind, isDawg := range []bool{false, true} {
			h := last.heaps[BeamIndex(isDawg, c, 0)]
			for i := 0; i < h.Len(); i++ {
				node := h.At(i)
				if isDawg && !validDawgEnd(node) {
					continue
				}
				if bestByKind[kind] == nil || node.Score > bestByKind[kind].Score {
					bestByKind[kind] = node
				}
				if bestNode == nil || node.Score > bestNode.Score {
					flatSecond = bestNode
					bestNode = node
					bestIsDawg = isDawg
				} else if flatSecond == nil || node.Score > flatSecond.Score {
					flatSecond = node
				}
			}
		}
	}
	secondNode := flatSecond
	other := 1
	if bestIsDawg {
		other = 0
	}
	if bestByKind[other] != nil {
		secondNode = bestByKind[other]
	}
	return ExtractPath(bestNode), ExtractPath(secondNode)
}

// validDawgEnd reports whether a dictionary node closes at a word end or a
// space.
func validDawgEnd(n *Node) bool {
	sym := lastSymbol(n)
	return sym != nil && (sym.EndOfWord || sym.UnicharID == unichar.SpaceID)
}

// ExtractPath follows Prev links back from n and returns the path in
// timestep order.
func ExtractPath(n *Node) []*Node {
	var path []*Node
	for ; n != nil; n = n.Prev {
		path = append(path, n)
	}
	slices.Reverse(path)
	return path
}

// ExtractBestPathAsLabels collapses the best path CTC style: nulls are
// dropped and runs of the same code become one label, except in simple
// text mode. xcoords holds the start timestep of each label followed by
// the path width.
func (s *Search) ExtractBestPathAsLabels() (labels, xcoords []int) {
	best, _ := s.ExtractBestPaths()
	width := len(best)
	for t := 0; t < width; {
		label := best[t].Code
		if label != s.nullChar {
			labels = append(labels, label)
			xcoords = append(xcoords, t)
		}
		t++
		for t < width && !s.simpleText && best[t].Code == label {
			t++
		}
	}
	xcoords = append(xcoords, width)
	return labels, xcoords
}

// SymbolPath is a path reduced to whole symbols.
type SymbolPath struct {
	UnicharIDs  []int
	Certainties []float32
	Ratings     []float32
	// XCoords holds the timestep at which each symbol is completed,
	// followed by the path width.
	XCoords []int
	// Boundaries splits the timesteps between symbols: 0, the midpoints of
	// the gaps between consecutive symbols, and the path width.
	Boundaries []int
}

// Len returns the number of symbols.
func (p SymbolPath) Len() int { return len(p.UnicharIDs) }

// ExtractBestPathAsUnicharIds reduces the best path to symbols.
func (s *Search) ExtractBestPathAsUnicharIds() SymbolPath {
	best, _ := s.ExtractBestPaths()
	return ExtractPathAsUnicharIds(best)
}

// ExtractSecondBestPathAsUnicharIds reduces the runner-up path to symbols.
func (s *Search) ExtractSecondBestPathAsUnicharIds() SymbolPath {
	_, second := s.ExtractBestPaths()
	return ExtractPathAsUnicharIds(second)
}

// ExtractPathAsUnicharIds reduces a node path to symbols. The certainty of
// a symbol is the minimum over the nulls and partial codes leading up to it,
// the node completing it and its duplicates; the rating is the negated sum.
// Leading nulls before a dictionary space are charged to the previous
// symbol instead of the space, and trailing nulls to the last symbol.
func ExtractPathAsUnicharIds(path []*Node) SymbolPath {
	var out SymbolPath
	var starts, ends []int
	width := len(path)
	t := 0
	for t < width {
		var certainty, rating float32
		for t < width && path[t].UnicharID == unichar.InvalidID {
			cert := path[t].Certainty
			t++
			certainty = min(certainty, cert)
			rating -= cert
		}
		starts = append(starts, t)
		if t >= width {
			if n := len(out.Certainties); n > 0 {
				out.Certainties[n-1] = min(out.Certainties[n-1], certainty)
				out.Ratings[n-1] += rating
			}
			break
		}
		id := path[t].UnicharID
		if id == unichar.SpaceID && len(out.Certainties) > 0 && path[t].Permuter != dawg.NoPerm {
			n := len(out.Certainties)
			out.Certainties[n-1] = min(out.Certainties[n-1], certainty)
			out.Ratings[n-1] += rating
			certainty, rating = 0, 0
		}
		out.UnicharIDs = append(out.UnicharIDs, id)
		out.XCoords = append(out.XCoords, t)
		for {
			n := path[t]
			t++
			// A top-choice space forgets the nulls before it; they were
			// already scaled by the dictionary ratio.
			if n.Certainty < certainty || (id == unichar.SpaceID && n.Permuter == dawg.NoPerm) {
				certainty = n.Certainty
			}
			rating -= n.Certainty
			if t >= width || !path[t].Duplicate {
				break
			}
		}
		ends = append(ends, t)
		out.Certainties = append(out.Certainties, certainty)
		out.Ratings = append(out.Ratings, rating)
	}
	out.XCoords = append(out.XCoords, width)
	if len(ends) > 0 {
		out.Boundaries = append(out.Boundaries, 0)
		for i := 0; i+1 < len(ends); i++ {
			out.Boundaries = append(out.Boundaries, ends[i]+(starts[i+1]-ends[i])/2)
		}
		out.Boundaries = append(out.Boundaries, width)
	}
	return out
}
