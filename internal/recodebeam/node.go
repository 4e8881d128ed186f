package recodebeam

import (
	"fmt"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/dawg"
)

// NodeContinuation restricts what may follow a node.
type NodeContinuation int

const (
	// ContAnything allows any continuation.
	ContAnything NodeContinuation = iota
	// ContOnlyDup requires the next node to duplicate this code. The
	// probability of the following timestep was already counted here.
	ContOnlyDup
	// ContNoDup forbids a duplicate of this code next.
	ContNoDup
	numContinuations
)

func (c NodeContinuation) String() string {
	switch c {
	case ContAnything:
		return "anything"
	case ContOnlyDup:
		return "only_dup"
	case ContNoDup:
		return "no_dup"
	case numContinuations:
	}
	return "invalid"
}

// TopNState is a class's rank tier at one timestep.
type TopNState int8

const (
	// Top2 marks the best two classes, and always the null class.
	Top2 TopNState = iota
	// TopN marks the remaining classes of the top n.
	TopN
	// AlsoRan marks everything else.
	AlsoRan
	numTopNStates
)

func (s TopNState) String() string {
	switch s {
	case Top2:
		return "top2"
	case TopN:
		return "topn"
	case AlsoRan:
		return "also_ran"
	case numTopNStates:
	}
	return "invalid"
}

// NumBeams is the number of heaps in a Beam: dictionary or not, by
// continuation, by partial code length.
const NumBeams = 2 * int(numContinuations) * (compress.MaxCodeLen + 1)

// BeamIndex returns the heap index for the given category.
func BeamIndex(isDawg bool, cont NodeContinuation, length int) int {
	d := 0
	if isDawg {
		d = 1
	}
	return (d*int(numContinuations)+int(cont))*(compress.MaxCodeLen+1) + length
}

// LengthFromBeamIndex returns the partial code length of a heap index.
func LengthFromBeamIndex(index int) int { return index % (compress.MaxCodeLen + 1) }

// ContinuationFromBeamIndex returns the continuation of a heap index.
func ContinuationFromBeamIndex(index int) NodeContinuation {
	return NodeContinuation((index / (compress.MaxCodeLen + 1)) % int(numContinuations))
}

// IsDawgFromBeamIndex reports whether a heap index holds dictionary paths.
func IsDawgFromBeamIndex(index int) bool {
	return index/(compress.MaxCodeLen+1)/int(numContinuations) > 0
}

// Node is one hypothesis at one timestep. Nodes live in Beam heaps and are
// linked backwards through Prev into the beams of earlier timesteps, which
// stay untouched until the next decode.
type Node struct {
	// Code is the network class emitted at this timestep.
	Code int
	// UnicharID is the symbol completed by this node, or unichar.InvalidID.
	UnicharID   int
	Permuter    dawg.Permuter
	StartOfDawg bool
	StartOfWord bool
	EndOfWord   bool
	// Duplicate marks a CTC repeat of the previous node's code.
	Duplicate bool
	Certainty float32
	// Score is Certainty plus Prev.Score.
	Score float32
	Prev  *Node
	// CodeHash hashes the codes back to the last symbol boundary.
	CodeHash uint64
	// dawgs is owned by the node and handed back to the position pool when
	// the node is evicted or replaced.
	dawgs *dawg.Positions
}

// HasDawgs reports whether the node owns dictionary positions.
func (n *Node) HasDawgs() bool { return n.dawgs != nil }

// takeDawgs moves the owned positions out of n.
func (n *Node) takeDawgs() *dawg.Positions {
	d := n.dawgs
	n.dawgs = nil
	return d
}

func (n *Node) String() string {
	return fmt.Sprintf("code=%d uid=%d perm=%s dawg_start=%t word_start=%t end=%t dup=%t cert=%.3f score=%.3f hash=%x",
		n.Code, n.UnicharID, n.Permuter, n.StartOfDawg, n.StartOfWord, n.EndOfWord, n.Duplicate,
		n.Certainty, n.Score, n.CodeHash)
}
