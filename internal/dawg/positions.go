package dawg

// Phase tracks where in a word a position is.
type Phase int

const (
	// LeadingPunct positions sit at a dawg root and may still absorb
	// opening punctuation.
	LeadingPunct Phase = iota
	InWord
	// TrailingPunct positions completed a word and only accept closing
	// punctuation.
	TrailingPunct
)

// Position is one active state in one of the dictionary's dawgs.
type Position struct {
	Dawg     int
	Node     int
	Phase    Phase
	Compound bool
}

// Positions is a small set of active dawg positions.
type Positions struct {
	list []Position
}

// NewPositions returns an empty set.
func NewPositions() *Positions { return &Positions{} }

// Clear empties the set, keeping its storage.
func (p *Positions) Clear() { p.list = p.list[:0] }

// Add inserts pos unless it is already present.
func (p *Positions) Add(pos Position) {
	for _, q := range p.list {
		if q == pos {
			return
		}
	}
	p.list = append(p.list, pos)
}

// Len returns the number of positions.
func (p *Positions) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}

// At returns the i'th position.
func (p *Positions) At(i int) Position { return p.list[i] }

// CopyFrom replaces the contents of p with those of o.
func (p *Positions) CopyFrom(o *Positions) {
	p.list = append(p.list[:0], o.list...)
}

// Args carries one LetterIsOkay query. Active is read only; Updated is
// overwritten with the positions reached after the letter.
type Args struct {
	Active   *Positions
	Updated  *Positions
	Permuter Permuter
	ValidEnd bool
}
