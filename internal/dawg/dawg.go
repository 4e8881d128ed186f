// Package dawg implements the dictionary language model consulted by the
// beam search: minimal word graphs over unichar ids plus the rules for
// punctuation, numbers and hyphenated compounds.
package dawg

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Type distinguishes what a Dawg holds.
type Type int

const (
	WordType Type = iota
	NumberType
	PatternType
)

func (t Type) String() string {
	switch t {
	case WordType:
		return "word"
	case NumberType:
		return "number"
	case PatternType:
		return "pattern"
	}
	return "unknown"
}

// DigitLabel is the label number patterns use for any decimal digit.
const DigitLabel = -2

// ErrUnsorted is returned when a Builder receives sequences out of order.
var ErrUnsorted = errors.New("sequences must be added in sorted order")

// Dawg is an immutable minimal directed acyclic word graph over integer
// labels. Nodes are identified by int; Root is always 0.
type Dawg struct {
	typ      Type
	permuter Permuter
	nodes    []frozenNode
	words    int
}

type frozenNode struct {
	final bool
	// edges are sorted by label.
	edges []frozenEdge
}

type frozenEdge struct {
	label int
	next  int
}

// Root returns the start node.
func (d *Dawg) Root() int { return 0 }

// Type returns what kind of sequences the dawg holds.
func (d *Dawg) Type() Type { return d.typ }

// Permuter returns the permuter credited for words found in d.
func (d *Dawg) Permuter() Permuter { return d.permuter }

// NumNodes returns the number of states after minimisation.
func (d *Dawg) NumNodes() int { return len(d.nodes) }

// NumWords returns the number of distinct sequences added.
func (d *Dawg) NumWords() int { return d.words }

// Next follows the edge labelled label out of node.
func (d *Dawg) Next(node, label int) (int, bool) {
	if node < 0 || node >= len(d.nodes) {
		return 0, false
	}
	edges := d.nodes[node].edges
	i, found := slices.BinarySearchFunc(edges, label, func(e frozenEdge, l int) int {
		return e.label - l
	})
	if !found {
		return 0, false
	}
	return edges[i].next, true
}

// IsFinal reports whether a sequence may end at node.
func (d *Dawg) IsFinal(node int) bool {
	return node >= 0 && node < len(d.nodes) && d.nodes[node].final
}

// Contains reports whether seq was added to the dawg.
func (d *Dawg) Contains(seq []int) bool {
	node := d.Root()
	for _, label := range seq {
		next, ok := d.Next(node, label)
		if !ok {
			return false
		}
		node = next
	}
	return d.IsFinal(node)
}

// Builder assembles a Dawg incrementally from sorted sequences, merging
// equivalent suffix states as it goes.
type Builder struct {
	typ      Type
	permuter Permuter
	root     *buildNode
	last     []int
	register map[string]*buildNode
	words    int
}

type buildNode struct {
	final      bool
	registered bool
	edges      []buildEdge
	id         int
}

type buildEdge struct {
	label int
	dest  *buildNode
}

// NewBuilder returns an empty Builder.
func NewBuilder(typ Type, permuter Permuter) *Builder {
	return &Builder{
		typ:      typ,
		permuter: permuter,
		root:     &buildNode{id: -1},
		register: make(map[string]*buildNode),
	}
}

// Add inserts seq. Sequences must arrive in slices.Compare order; repeating
// the previous sequence is a no-op.
func (b *Builder) Add(seq []int) error {
	if len(seq) == 0 {
		return nil
	}
	if b.words > 0 {
		switch c := slices.Compare(seq, b.last); {
		case c == 0:
			return nil
		case c < 0:
			return fmt.Errorf("%w: %v after %v", ErrUnsorted, seq, b.last)
		}
	}
	prefix := commonPrefixLen(seq, b.last)
	state := b.root
	for range prefix {
		state = state.edges[len(state.edges)-1].dest
	}
	if len(state.edges) > 0 {
		b.replaceOrRegister(state)
	}
	for _, label := range seq[prefix:] {
		next := &buildNode{id: -1}
		state.edges = append(state.edges, buildEdge{label: label, dest: next})
		state = next
	}
	state.final = true
	b.last = slices.Clone(seq)
	b.words++
	return nil
}

func commonPrefixLen(a, b []int) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func (b *Builder) replaceOrRegister(n *buildNode) {
	last := &n.edges[len(n.edges)-1]
	child := last.dest
	if child.registered {
		return
	}
	if len(child.edges) > 0 {
		b.replaceOrRegister(child)
	}
	key := stateKey(child)
	if q, ok := b.register[key]; ok {
		last.dest = q
		return
	}
	child.registered = true
	child.id = len(b.register) + 1
	b.register[key] = child
}

// stateKey identifies a state by finality and outgoing edges. Children are
// registered first, so their ids are stable.
func stateKey(n *buildNode) string {
	var sb strings.Builder
	if n.final {
		sb.WriteByte('!')
	}
	for _, e := range n.edges {
		sb.WriteString(strconv.Itoa(e.label))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(e.dest.id))
		sb.WriteByte(';')
	}
	return sb.String()
}

// Finish minimises the remaining states and freezes the graph.
func (b *Builder) Finish() *Dawg {
	if len(b.root.edges) > 0 {
		b.replaceOrRegister(b.root)
	}
	d := &Dawg{typ: b.typ, permuter: b.permuter, words: b.words}
	index := make(map[*buildNode]int)
	var freeze func(n *buildNode) int
	freeze = func(n *buildNode) int {
		if i, ok := index[n]; ok {
			return i
		}
		i := len(d.nodes)
		index[n] = i
		d.nodes = append(d.nodes, frozenNode{final: n.final})
		edges := make([]frozenEdge, len(n.edges))
		for j, e := range n.edges {
			edges[j] = frozenEdge{label: e.label, next: freeze(e.dest)}
		}
		d.nodes[i].edges = edges
		return i
	}
	freeze(b.root)
	return d
}

// Build sorts and deduplicates seqs and returns the resulting Dawg.
func Build(typ Type, permuter Permuter, seqs [][]int) *Dawg {
	sorted := slices.Clone(seqs)
	slices.SortFunc(sorted, slices.Compare[[]int])
	b := NewBuilder(typ, permuter)
	for _, s := range sorted {
		// Sorted input cannot fail.
		_ = b.Add(s)
	}
	return b.Finish()
}
