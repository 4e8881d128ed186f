package recognizer

import (
	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recodebeam"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// DecodedSequence holds CTC-decoded indices and per-timestep probabilities.
type DecodedSequence struct {
	Indices       []int
	Probs         []float64
	Collapsed     []int
	CollapsedProb []float64
	// CollapsedPos is the timestep each collapsed index starts at.
	CollapsedPos []int
}

// CTCCollapse removes repeated consecutive indices and blanks, returning the
// collapsed sequence, its probabilities and the timestep each entry starts at.
func CTCCollapse(indices []int, probs []float64, blank int) ([]int, []float64, []int) {
	outIdx := make([]int, 0, len(indices))
	outProb := make([]float64, 0, len(indices))
	outPos := make([]int, 0, len(indices))
	prev := -1
	for i, idx := range indices {
		if idx == blank {
			prev = idx
			continue
		}
		if idx == prev {
			continue
		}
		outIdx = append(outIdx, idx)
		if i < len(probs) {
			outProb = append(outProb, probs[i])
		} else {
			outProb = append(outProb, 0)
		}
		outPos = append(outPos, i)
		prev = idx
	}
	return outIdx, outProb, outPos
}

// DecodeGreedy takes the most likely class at every timestep of m and
// collapses the result. m must hold probabilities.
func DecodeGreedy(m *netio.Matrix, blank int) DecodedSequence {
	width := m.Width()
	indices := make([]int, width)
	probs := make([]float64, width)
	for t := range width {
		idx, p := netio.Argmax(m.F(t))
		indices[t] = idx
		probs[t] = float64(p)
	}
	collIdx, collProb, collPos := CTCCollapse(indices, probs, blank)
	return DecodedSequence{
		Indices:       indices,
		Probs:         probs,
		Collapsed:     collIdx,
		CollapsedProb: collProb,
		CollapsedPos:  collPos,
	}
}

// GreedySymbols groups the collapsed codes of seq into symbols with rec.
// A group ends as soon as it decodes to a symbol; a group no symbol can
// complete is dropped. Each symbol carries the lowest probability of its
// codes and the timestep of its first code.
func GreedySymbols(rec recodebeam.Recoder, seq DecodedSequence) (ids []int, probs []float64, xcoords []int) {
	var code compress.RecodedCharID
	var groupProb float64
	groupStart := 0
	for i, c := range seq.Collapsed {
		if code.Empty() {
			groupProb = seq.CollapsedProb[i]
			groupStart = seq.CollapsedPos[i]
		} else {
			groupProb = min(groupProb, seq.CollapsedProb[i])
		}
		code.Set(code.Len(), c)
		if id := rec.DecodeUnichar(code); id != unichar.InvalidID {
			ids = append(ids, id)
			probs = append(probs, groupProb)
			xcoords = append(xcoords, groupStart)
			code = compress.RecodedCharID{}
			continue
		}
		if code.Len() == compress.MaxCodeLen ||
			(len(rec.GetNextCodes(code)) == 0 && len(rec.GetFinalCodes(code)) == 0) {
			code = compress.RecodedCharID{}
		}
	}
	return ids, probs, xcoords
}

// SequenceConfidence returns the average of per-character probabilities; 0 if empty.
func SequenceConfidence(charProbs []float64) float64 {
	if len(charProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range charProbs {
		s += p
	}
	return s / float64(len(charProbs))
}
