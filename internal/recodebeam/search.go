// Package recodebeam decodes network outputs over a compressed code space
// with a beam search that optionally follows a dictionary. Each timestep
// keeps bounded heaps of hypotheses split by dictionary use, CTC
// continuation and partial code length, linked backwards into a lattice
// from which the best paths are extracted.
package recodebeam

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/recode/internal/common"
	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/dawg"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

var (
	// ErrClassMismatch is returned when the matrix width in classes does not
	// match the recoder's code range.
	ErrClassMismatch = errors.New("output classes do not match code range")
	// ErrBadNullChar is returned for a null code outside the code range.
	ErrBadNullChar = errors.New("null code out of range")
)

// Recoder maps code sequences to symbols. *compress.Compressor implements it.
type Recoder interface {
	DecodeUnichar(code compress.RecodedCharID) int
	GetNextCodes(prefix compress.RecodedCharID) []int
	GetFinalCodes(prefix compress.RecodedCharID) []int
	CodeRange() int
}

// LanguageModel is the dictionary followed by dictionary paths. LetterIsOkay
// must not modify args.Active. *dawg.Dict implements it.
type LanguageModel interface {
	DefaultDawgs(out *dawg.Positions)
	LetterIsOkay(args *dawg.Args, unicharID int) dawg.Permuter
	IsSpaceDelimitedLanguage() bool
	IsSpaceDelimited(id int) bool
}

// Charset supplies symbol properties at decode time. *unichar.Set
// implements it.
type Charset interface {
	IDToUnichar(id int) string
	IsSpaceDelimited(id int) bool
	Enabled(id int) bool
}

// Search is a reusable beam search. It is not safe for concurrent use; the
// beams of the last decode stay valid until the next Decode or Reset.
type Search struct {
	cfg            Config
	recoder        Recoder
	nullChar       int
	simpleText     bool
	dict           LanguageModel
	spaceDelimited bool

	beams    []*Beam
	beamSize int

	topNFlags  []int8
	topCode    int
	secondCode int
	topHeap    *Heap[topPair]

	pool    *positionPool
	choices [][]Choice
	stats   decodeStats
}

// New creates a search over recoder's codes. dict may be nil, in which case
// only top-choice paths are followed. simpleText overrides cfg.SimpleText.
func New(recoder Recoder, nullChar int, simpleText bool, dict LanguageModel, cfg Config) (*Search, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	if nullChar < 0 || nullChar >= recoder.CodeRange() {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrBadNullChar, nullChar, recoder.CodeRange())
	}
	cfg.SimpleText = simpleText
	s := &Search{
		cfg:            cfg,
		recoder:        recoder,
		nullChar:       nullChar,
		simpleText:     simpleText,
		dict:           dict,
		spaceDelimited: dict == nil || dict.IsSpaceDelimitedLanguage(),
		topCode:        -1,
		secondCode:     -1,
		topHeap:        NewHeap(cfg.BeamWidths[0]+1, topPairLess),
		pool:           newPositionPool(),
	}
	return s, nil
}

// Config returns the search's configuration.
func (s *Search) Config() Config { return s.cfg }

// NullChar returns the null code.
func (s *Search) NullChar() int { return s.nullChar }

// Decode runs the search over every timestep of m. charset may be nil to
// skip the enabled-symbol filter.
func (s *Search) Decode(m *netio.Matrix, charset Charset) error {
	if m.NumFeatures() != s.recoder.CodeRange() {
		return fmt.Errorf("%w: matrix has %d, recoder has %d", ErrClassMismatch, m.NumFeatures(), s.recoder.CodeRange())
	}
	timer := common.NewTimer()
	s.beamSize = 0
	s.stats = decodeStats{}
	s.choices = s.choices[:0]
	width := m.Width()
	for t := 0; t < width; t++ {
		outputs := m.F(t)
		s.ComputeTopN(outputs, s.cfg.BeamWidths[0])
		s.DecodeStep(outputs, t, charset)
		if s.cfg.TrackChoices {
			s.saveMostCertainChoices(outputs, charset)
		}
	}
	s.stats.timesteps = width
	s.stats.record(timer.Stop())
	return nil
}

// DecodeStep extends the beam of timestep t-1 into timestep t using
// outputs, the class probabilities at t. ComputeTopN must have run on the
// same outputs.
func (s *Search) DecodeStep(outputs []float32, t int, charset Charset) {
	for len(s.beams) <= t {
		s.beams = append(s.beams, newBeam(&s.cfg))
	}
	step := s.beams[t]
	s.beamSize = t + 1
	step.clear(s.pool)
	if t == 0 {
		// The first step can only start symbols.
		s.ContinueContext(nil, BeamIndex(false, ContAnything, 0), outputs, Top2, charset, step)
		if s.dict != nil {
			s.ContinueContext(nil, BeamIndex(true, ContAnything, 0), outputs, Top2, charset, step)
		}
	} else {
		prev := s.beams[t-1]
		total := 0
		// Try the top tier first. Its codes may not intersect the legal
		// continuations at all, so widen the tier while nothing survives.
		for tier := Top2; tier < numTopNStates && total == 0; tier++ {
			if tier != Top2 {
				s.stats.fallbacks++
			}
			for index := range NumBeams {
				h := prev.heaps[index]
				for i := h.Len() - 1; i >= 0; i-- {
					s.ContinueContext(h.At(i), index, outputs, tier, charset, step)
				}
			}
			for index := range NumBeams {
				if ContinuationFromBeamIndex(index) == ContAnything {
					total += step.heaps[index].Len()
				}
			}
		}
		// Only one initial dawg per continuation, so it cannot swamp the beam.
		for c := range numContinuations {
			if step.bestInitialDawgs[c].Code >= 0 {
				s.pushNodeIfBetter(s.cfg.BeamWidths[0], &step.bestInitialDawgs[c], step.heaps[BeamIndex(true, c, 0)])
			}
		}
	}
	if s.cfg.Debug {
		s.DebugBeams(t, charset)
	}
}

// ContinueContext extends prev, taken from heap index of the previous step,
// with every code of the given tier: a duplicate of prev's code, a null
// inside a multi-code symbol, a code completing a symbol or a code
// continuing one. prev is nil at the first timestep.
func (s *Search) ContinueContext(prev *Node, index int, outputs []float32, tier TopNState, charset Charset, step *Beam) {
	var prefix, fullCode compress.RecodedCharID
	length := LengthFromBeamIndex(index)
	useDawgs := IsDawgFromBeamIndex(index)
	prevCont := ContinuationFromBeamIndex(index)
	previous := prev
	for p := length - 1; p >= 0 && previous != nil; p-- {
		for previous != nil && (previous.Duplicate || previous.Code == s.nullChar) {
			previous = previous.Prev
		}
		if previous == nil {
			break
		}
		prefix.Set(p, previous.Code)
		fullCode.Set(p, previous.Code)
		previous = previous.Prev
	}
	if prev != nil && !s.simpleText {
		if s.TopNFlag(prev.Code) == tier {
			if prevCont != ContNoDup {
				cert := netio.ProbToCertainty(outputs[prev.Code]) + s.cfg.CertOffset
				s.PushDupOrNoDawgIfBetter(length, true, prev.Code, prev.UnicharID, cert, useDawgs, ContAnything, prev, step)
			}
			if prevCont == ContAnything && tier == Top2 && prev.Code != s.nullChar {
				cert := netio.ProbToCertainty(outputs[prev.Code]+outputs[s.nullChar]) + s.cfg.CertOffset
				s.PushDupOrNoDawgIfBetter(length, true, prev.Code, prev.UnicharID, cert, useDawgs, ContNoDup, prev, step)
			}
		}
		if prevCont == ContOnlyDup {
			return
		}
		// Nulls may sit inside multi-code symbols without being part of the
		// code sequence.
		if prev.Code != s.nullChar && length > 0 && s.TopNFlag(s.nullChar) == tier {
			cert := netio.ProbToCertainty(outputs[s.nullChar]) + s.cfg.CertOffset
			s.PushDupOrNoDawgIfBetter(length, false, s.nullChar, unichar.InvalidID, cert, useDawgs, ContAnything, prev, step)
		}
	}
	for _, code := range s.recoder.GetFinalCodes(prefix) {
		if !s.codeAllowed(code, tier, prev) {
			continue
		}
		cert := netio.ProbToCertainty(outputs[code]) + s.cfg.CertOffset
		if cert < s.cfg.MinCertainty && code != s.nullChar {
			continue
		}
		fullCode.Set(length, code)
		unicharID := s.recoder.DecodeUnichar(fullCode)
		if length == 0 && code == s.nullChar {
			unicharID = unichar.InvalidID
		}
		if unicharID != unichar.InvalidID && charset != nil && !charset.Enabled(unicharID) {
			continue
		}
		s.ContinueUnichar(code, unicharID, cert, useDawgs, ContAnything, prev, step)
		if tier == Top2 && code != s.nullChar {
			cert = netio.ProbToCertainty(s.onlyDupProb(outputs, code, prev, prevCont)) + s.cfg.CertOffset
			s.ContinueUnichar(code, unicharID, cert, useDawgs, ContOnlyDup, prev, step)
		}
	}
	for _, code := range s.recoder.GetNextCodes(prefix) {
		if !s.codeAllowed(code, tier, prev) {
			continue
		}
		cert := netio.ProbToCertainty(outputs[code]) + s.cfg.CertOffset
		s.PushDupOrNoDawgIfBetter(length+1, false, code, unichar.InvalidID, cert, useDawgs, ContAnything, prev, step)
		if tier == Top2 && code != s.nullChar {
			cert = netio.ProbToCertainty(s.onlyDupProb(outputs, code, prev, prevCont)) + s.cfg.CertOffset
			s.PushDupOrNoDawgIfBetter(length+1, false, code, unichar.InvalidID, cert, useDawgs, ContOnlyDup, prev, step)
		}
	}
}

// codeAllowed filters codes outside the tier and, unless in simple text
// mode, repeats of prev's code, which are handled as duplicates.
func (s *Search) codeAllowed(code int, tier TopNState, prev *Node) bool {
	if s.TopNFlag(code) != tier {
		return false
	}
	return prev == nil || prev.Code != code || s.simpleText
}

// onlyDupProb is the probability of code at this step when the next step
// must repeat it. When prev and code are the two best classes, prev's
// probability is counted too.
func (s *Search) onlyDupProb(outputs []float32, code int, prev *Node, prevCont NodeContinuation) float32 {
	prob := outputs[code] + outputs[s.nullChar]
	if prev != nil && prevCont == ContAnything && prev.Code != s.nullChar &&
		((prev.Code == s.topCode && code == s.secondCode) || (code == s.topCode && prev.Code == s.secondCode)) {
		prob += outputs[prev.Code]
	}
	return prob
}

// ContinueUnichar pushes a node completing unicharID (or a null) onto the
// dictionary or top-choice heaps.
func (s *Search) ContinueUnichar(code, unicharID int, cert float32, useDawgs bool, cont NodeContinuation, prev *Node, step *Beam) {
	if useDawgs {
		if cert > s.cfg.WorstDictCert {
			s.ContinueDawg(code, unicharID, cert, cont, prev, step)
		}
		return
	}
	nodawgHeap := step.heaps[BeamIndex(false, cont, 0)]
	s.PushHeapIfBetter(s.cfg.BeamWidths[0], code, unicharID, dawg.TopChoicePerm, false, false, false, false,
		cert*s.cfg.DictRatio, prev, nil, nodawgHeap)
	if s.dict == nil {
		return
	}
	// A space or a character of a language without spaces can start a new
	// dictionary word.
	if (unicharID == unichar.SpaceID && cert > s.cfg.WorstDictCert) || !s.dict.IsSpaceDelimited(unicharID) {
		dawgCert := cert
		perm := dawg.TopChoicePerm
		if unicharID == unichar.SpaceID {
			// NoPerm tells path extraction to keep the space's certainty
			// apart from the nulls before it, which were already scaled.
			perm = dawg.NoPerm
		} else {
			dawgCert *= s.cfg.DictRatio
		}
		s.PushInitialDawgIfBetter(code, unicharID, perm, false, false, dawgCert, cont, prev, step)
	}
}

// ContinueDawg extends a dictionary path with unicharID, probing the
// language model.
func (s *Search) ContinueDawg(code, unicharID int, cert float32, cont NodeContinuation, prev *Node, step *Beam) {
	dawgHeap := step.heaps[BeamIndex(true, cont, 0)]
	nodawgHeap := step.heaps[BeamIndex(false, cont, 0)]
	width := s.cfg.BeamWidths[0]
	if unicharID == unichar.InvalidID {
		s.PushHeapIfBetter(width, code, unicharID, dawg.NoPerm, false, false, false, false, cert, prev, nil, dawgHeap)
		return
	}
	score := cert
	if prev != nil {
		score += prev.Score
	}
	if dawgHeap.Len() >= width && score <= dawgHeap.PeekTop().Score &&
		nodawgHeap.Len() >= width && score <= nodawgHeap.PeekTop().Score {
		return
	}
	uniPrev := lastSymbol(prev)
	if unicharID == unichar.SpaceID {
		if uniPrev != nil && uniPrev.EndOfWord {
			// A space after a complete word: start a new word and keep
			// the space on the top-choice side too.
			s.PushInitialDawgIfBetter(code, unicharID, uniPrev.Permuter, false, false, cert, cont, prev, step)
			s.PushHeapIfBetter(width, code, unicharID, uniPrev.Permuter, false, false, false, false, cert, prev, nil, nodawgHeap)
		}
		return
	}
	if uniPrev != nil && uniPrev.StartOfDawg && uniPrev.UnicharID != unichar.SpaceID &&
		s.dict.IsSpaceDelimited(uniPrev.UnicharID) && s.dict.IsSpaceDelimited(unicharID) {
		// No word break between two space delimited characters.
		return
	}
	args := dawg.Args{Permuter: dawg.NoPerm}
	wordStart := false
	switch {
	case uniPrev == nil:
		initial := s.pool.get()
		defer s.pool.put(initial)
		s.dict.DefaultDawgs(initial)
		args.Active = initial
		wordStart = true
	case uniPrev.dawgs != nil:
		args.Active = uniPrev.dawgs
		wordStart = uniPrev.StartOfDawg
	default:
		return
	}
	args.Updated = s.pool.get()
	s.stats.probes++
	perm := s.dict.LetterIsOkay(&args, unicharID)
	if perm == dawg.NoPerm {
		s.pool.put(args.Updated)
		return
	}
	s.PushHeapIfBetter(width, code, unicharID, perm, false, wordStart, args.ValidEnd, false, cert, prev, args.Updated, dawgHeap)
	if args.ValidEnd && !s.spaceDelimited {
		// Without spaces a new word may start right after this one, and so
		// may a non-dictionary word.
		s.PushInitialDawgIfBetter(code, unicharID, perm, wordStart, true, cert, cont, prev, step)
		s.PushHeapIfBetter(width, code, unicharID, perm, false, wordStart, true, false, cert, prev, nil, nodawgHeap)
	}
}

// lastSymbol walks back from n over partial codes, nulls and duplicates to
// the node that completed the most recent symbol.
func lastSymbol(n *Node) *Node {
	for n != nil && (n.UnicharID == unichar.InvalidID || n.Duplicate) {
		n = n.Prev
	}
	return n
}

// PushInitialDawgIfBetter records a node that starts a new dictionary word
// if it beats the step's current best for cont.
func (s *Search) PushInitialDawgIfBetter(code, unicharID int, perm dawg.Permuter, start, end bool, cert float32, cont NodeContinuation, prev *Node, step *Beam) {
	best := &step.bestInitialDawgs[cont]
	score := cert
	if prev != nil {
		score += prev.Score
	}
	if best.Code >= 0 && score <= best.Score {
		return
	}
	initial := s.pool.get()
	s.dict.DefaultDawgs(initial)
	s.pool.put(best.takeDawgs())
	*best = Node{
		Code:        code,
		UnicharID:   unicharID,
		Permuter:    perm,
		StartOfDawg: true,
		StartOfWord: start,
		EndOfWord:   end,
		Certainty:   cert,
		Score:       score,
		Prev:        prev,
		CodeHash:    s.ComputeCodeHash(code, false, prev),
		dawgs:       initial,
	}
}

// PushDupOrNoDawgIfBetter pushes a duplicate, null or partial-code node
// onto the heap for length. Dictionary paths pass it through if it is above
// the worst dictionary certainty; top-choice certainties are scaled by the
// dictionary ratio.
func (s *Search) PushDupOrNoDawgIfBetter(length int, dup bool, code, unicharID int, cert float32, useDawgs bool, cont NodeContinuation, prev *Node, step *Beam) {
	heap := step.heaps[BeamIndex(useDawgs, cont, length)]
	width := s.cfg.BeamWidths[length]
	if useDawgs {
		if cert > s.cfg.WorstDictCert {
			perm := dawg.NoPerm
			if prev != nil {
				perm = prev.Permuter
			}
			s.PushHeapIfBetter(width, code, unicharID, perm, false, false, false, dup, cert, prev, nil, heap)
		}
		return
	}
	cert *= s.cfg.DictRatio
	if cert >= s.cfg.MinCertainty || code == s.nullChar {
		perm := dawg.TopChoicePerm
		if prev != nil {
			perm = prev.Permuter
		}
		s.PushHeapIfBetter(width, code, unicharID, perm, false, false, false, dup, cert, prev, nil, heap)
	}
}

// PushHeapIfBetter pushes a node built from the arguments onto heap if the
// heap has room or the node beats the worst kept. Ownership of dawgs passes
// to the search.
func (s *Search) PushHeapIfBetter(maxSize, code, unicharID int, perm dawg.Permuter, dawgStart, wordStart, end, dup bool, cert float32, prev *Node, dawgs *dawg.Positions, heap *Heap[Node]) {
	score := cert
	if prev != nil {
		score += prev.Score
	}
	if heap.Len() >= maxSize && score <= heap.PeekTop().Score {
		s.pool.put(dawgs)
		return
	}
	node := Node{
		Code:        code,
		UnicharID:   unicharID,
		Permuter:    perm,
		StartOfDawg: dawgStart,
		StartOfWord: wordStart,
		EndOfWord:   end,
		Duplicate:   dup,
		Certainty:   cert,
		Score:       score,
		Prev:        prev,
		CodeHash:    s.ComputeCodeHash(code, dup, prev),
		dawgs:       dawgs,
	}
	s.insert(maxSize, node, heap)
}

// pushNodeIfBetter is PushHeapIfBetter for a prebuilt node. The node's
// positions move out of src whether or not it is kept.
func (s *Search) pushNodeIfBetter(maxSize int, src *Node, heap *Heap[Node]) {
	node := *src
	node.dawgs = src.takeDawgs()
	if heap.Len() >= maxSize && node.Score <= heap.PeekTop().Score {
		s.pool.put(node.dawgs)
		return
	}
	s.insert(maxSize, node, heap)
}

func (s *Search) insert(maxSize int, node Node, heap *Heap[Node]) {
	if s.UpdateHeapIfMatched(&node, heap) {
		return
	}
	heap.Push(node)
	s.stats.pushed++
	if heap.Len() > maxSize {
		evicted := heap.Pop()
		s.pool.put(evicted.dawgs)
	}
}

// UpdateHeapIfMatched looks for a node in heap describing the same partial
// decode as n: same code, code hash, permuter and dictionary start. If there
// is one it is replaced by n when n scores better, and true is returned.
// Whichever of the two loses has its positions released.
func (s *Search) UpdateHeapIfMatched(n *Node, heap *Heap[Node]) bool {
	for i := 0; i < heap.Len(); i++ {
		node := heap.At(i)
		if node.Code != n.Code || node.CodeHash != n.CodeHash ||
			node.Permuter != n.Permuter || node.StartOfDawg != n.StartOfDawg {
			continue
		}
		if n.Score > node.Score {
			s.pool.put(node.takeDawgs())
			*node = *n
			n.dawgs = nil
			heap.Reshuffle(i)
		} else {
			s.pool.put(n.takeDawgs())
		}
		return true
	}
	return false
}

// ComputeCodeHash folds code into prev's hash. Duplicates and nulls leave
// the hash unchanged, so paths that differ only in their CTC timing share a
// hash.
func (s *Search) ComputeCodeHash(code int, dup bool, prev *Node) uint64 {
	var hash uint64
	if prev != nil {
		hash = prev.CodeHash
	}
	if !dup && code != s.nullChar {
		numClasses := uint64(s.recoder.CodeRange())
		carry := ((hash >> 32) * numClasses) >> 32
		hash *= numClasses
		hash += carry
		hash += uint64(code)
	}
	return hash
}

// Beam returns the beam of timestep t from the last decode.
func (s *Search) Beam(t int) *Beam {
	if t < 0 || t >= s.beamSize {
		return nil
	}
	return s.beams[t]
}

// NumSteps returns the number of timesteps decoded last.
func (s *Search) NumSteps() int { return s.beamSize }

// LiveDawgSnapshots returns the number of dawg position sets currently
// owned by nodes.
func (s *Search) LiveDawgSnapshots() int { return s.pool.liveCount() }

// Reset clears every beam, releasing all owned positions, while keeping the
// allocated storage for the next decode.
func (s *Search) Reset() {
	for _, b := range s.beams {
		b.clear(s.pool)
	}
	s.beamSize = 0
	s.choices = s.choices[:0]
	if live := s.pool.liveCount(); live != 0 {
		slog.Warn("dawg positions still owned after reset", "live", live)
	}
}
