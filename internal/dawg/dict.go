package dawg

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/recode/internal/unichar"
)

// ErrNoWords is returned when none of the given words can be spelled with
// the dictionary's symbol set.
var ErrNoWords = errors.New("no usable words")

// Dict is the dictionary language model. It is read-only once built and safe
// for concurrent LetterIsOkay calls.
type Dict struct {
	set            *unichar.Set
	dawgs          []*Dawg
	spaceDelimited bool
	compounds      bool
	hyphenID       int
	maxSymbolRunes int
}

// Option configures a Dict.
type Option func(*Dict)

// WithSpaceDelimitedLanguage overrides the language's word separation mode,
// which otherwise follows the majority script of the symbol set.
func WithSpaceDelimitedLanguage(v bool) Option {
	return func(d *Dict) { d.spaceDelimited = v }
}

// WithCompounds enables hyphen-joined dictionary words.
func WithCompounds(v bool) Option {
	return func(d *Dict) { d.compounds = v }
}

// NewDict creates an empty dictionary over set.
func NewDict(set *unichar.Set, opts ...Option) *Dict {
	d := &Dict{
		set:            set,
		spaceDelimited: set.IsSpaceDelimitedLanguage(),
		compounds:      true,
		hyphenID:       set.UnicharToID("-"),
		maxSymbolRunes: 1,
	}
	for _, sym := range set.Symbols() {
		d.maxSymbolRunes = max(d.maxSymbolRunes, utf8.RuneCountInString(sym))
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Set returns the symbol set the dictionary spells words with.
func (d *Dict) Set() *unichar.Set { return d.set }

// NumDawgs returns the number of loaded dawgs.
func (d *Dict) NumDawgs() int { return len(d.dawgs) }

// Dawg returns the i'th dawg.
func (d *Dict) Dawg(i int) *Dawg { return d.dawgs[i] }

// AddDawg appends a prebuilt dawg.
func (d *Dict) AddDawg(dw *Dawg) { d.dawgs = append(d.dawgs, dw) }

// AddWords builds a word dawg credited to perm. Words that cannot be
// spelled with the symbol set are skipped. It returns the number of words
// added.
func (d *Dict) AddWords(words []string, perm Permuter) (int, error) {
	seqs := make([][]int, 0, len(words))
	skipped := 0
	for _, w := range words {
		ids, ok := d.Tokenize(w)
		if !ok || len(ids) == 0 {
			skipped++
			continue
		}
		seqs = append(seqs, ids)
	}
	if skipped > 0 {
		slog.Debug("Skipped words not spellable with the symbol set", "skipped", skipped, "permuter", perm)
	}
	if len(seqs) == 0 {
		return 0, fmt.Errorf("%w: %d words given", ErrNoWords, len(words))
	}
	dw := Build(WordType, perm, seqs)
	d.AddDawg(dw)
	return dw.NumWords(), nil
}

// AddNumberPatterns builds a number dawg. In a pattern '#' and every decimal
// digit match any digit; other characters match themselves.
func (d *Dict) AddNumberPatterns(patterns []string) (int, error) {
	seqs := make([][]int, 0, len(patterns))
	for _, p := range patterns {
		var seq []int
		ok := true
		for _, r := range p {
			if r == '#' || (r >= '0' && r <= '9') {
				seq = append(seq, DigitLabel)
				continue
			}
			id := d.set.UnicharToID(string(r))
			if id == unichar.InvalidID {
				ok = false
				break
			}
			seq = append(seq, id)
		}
		if ok && len(seq) > 0 {
			seqs = append(seqs, seq)
		}
	}
	if len(seqs) == 0 {
		return 0, fmt.Errorf("%w: %d number patterns given", ErrNoWords, len(patterns))
	}
	dw := Build(NumberType, NumberPerm, seqs)
	d.AddDawg(dw)
	return dw.NumWords(), nil
}

// Tokenize splits word into symbol ids, longest match first.
func (d *Dict) Tokenize(word string) ([]int, bool) {
	runes := []rune(unichar.Normalize(word))
	ids := make([]int, 0, len(runes))
	for i := 0; i < len(runes); {
		matched := false
		for n := min(d.maxSymbolRunes, len(runes)-i); n > 0; n-- {
			if id := d.set.UnicharToID(string(runes[i : i+n])); id != unichar.InvalidID {
				ids = append(ids, id)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}
	return ids, true
}

// DefaultDawgs fills out with the positions for starting a new word.
func (d *Dict) DefaultDawgs(out *Positions) {
	out.Clear()
	for i, dw := range d.dawgs {
		out.Add(Position{Dawg: i, Node: dw.Root(), Phase: LeadingPunct})
	}
}

// LetterIsOkay reports whether unicharID may follow args.Active. It fills
// args.Updated, args.Permuter and args.ValidEnd, and returns the permuter,
// NoPerm meaning the letter is rejected. args.Active is not modified.
func (d *Dict) LetterIsOkay(args *Args, unicharID int) Permuter {
	args.Updated.Clear()
	args.Permuter = NoPerm
	args.ValidEnd = false
	if args.Active == nil || unicharID < 0 {
		return NoPerm
	}
	var best, bestEnd Permuter
	accept := func(pos Position, perm Permuter, end bool) {
		args.Updated.Add(pos)
		if perm.rank() > best.rank() || best == NoPerm {
			best = perm
		}
		if end && (perm.rank() > bestEnd.rank() || bestEnd == NoPerm) {
			bestEnd = perm
			args.ValidEnd = true
		}
	}
	punct := d.set.IsPunctuation(unicharID)
	for _, pos := range args.Active.list {
		dw := d.dawgs[pos.Dawg]
		label := unicharID
		if dw.typ == NumberType && d.set.IsDigit(unicharID) {
			label = DigitLabel
		}
		if pos.Phase != TrailingPunct {
			if next, ok := dw.Next(pos.Node, label); ok {
				np := Position{Dawg: pos.Dawg, Node: next, Phase: InWord, Compound: pos.Compound}
				accept(np, d.permuterFor(dw, np), dw.IsFinal(next))
			}
		}
		if !punct {
			continue
		}
		switch pos.Phase {
		case LeadingPunct:
			accept(pos, PuncPerm, true)
		case InWord:
			if !dw.IsFinal(pos.Node) {
				continue
			}
			if d.compounds && unicharID == d.hyphenID && dw.typ == WordType {
				for i, other := range d.dawgs {
					if other.typ == WordType {
						accept(Position{Dawg: i, Node: other.Root(), Phase: InWord, Compound: true}, CompoundPerm, false)
					}
				}
			}
			tp := Position{Dawg: pos.Dawg, Node: pos.Node, Phase: TrailingPunct, Compound: pos.Compound}
			accept(tp, d.permuterFor(dw, tp), true)
		case TrailingPunct:
			accept(pos, d.permuterFor(dw, pos), true)
		}
	}
	if args.ValidEnd {
		args.Permuter = bestEnd
	} else {
		args.Permuter = best
	}
	return args.Permuter
}

func (d *Dict) permuterFor(dw *Dawg, pos Position) Permuter {
	if pos.Compound {
		return CompoundPerm
	}
	return dw.permuter
}

// ValidWord runs ids through the dictionary from the default positions and
// returns the permuter if the whole sequence is a valid word, NoPerm if not.
func (d *Dict) ValidWord(ids []int) Permuter {
	active, updated := NewPositions(), NewPositions()
	d.DefaultDawgs(active)
	args := &Args{Active: active, Updated: updated}
	for _, id := range ids {
		if d.LetterIsOkay(args, id) == NoPerm {
			return NoPerm
		}
		active, updated = updated, active
		args.Active, args.Updated = active, updated
	}
	if len(ids) == 0 || !args.ValidEnd {
		return NoPerm
	}
	return args.Permuter
}

// IsSpaceDelimitedLanguage reports whether words are separated by spaces.
func (d *Dict) IsSpaceDelimitedLanguage() bool { return d.spaceDelimited }

// IsSpaceDelimited reports whether id belongs to a space delimited script.
func (d *Dict) IsSpaceDelimited(id int) bool { return d.set.IsSpaceDelimited(id) }

// LoadWordList reads one word per line, skipping blank lines and '#'
// comments.
func LoadWordList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: word list path is user supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var words []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading word list: %w", err)
	}
	return words, nil
}
