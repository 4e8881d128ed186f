// Package unichar holds the symbol alphabet shared by the code compressor,
// the dictionary and the beam search.
package unichar

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Reserved ids. Every Set starts with these two entries.
const (
	SpaceID = 0
	NullID  = 1
	// InvalidID marks a missing or partial symbol.
	InvalidID = -1
)

const (
	spaceToken = " "
	nullToken  = "<nul>"
	// SpaceAlias is accepted in charset files in place of a literal space.
	SpaceAlias = "<space>"
)

// Set is an ordered alphabet of symbols. A symbol is any UTF-8 string:
// a single character, a ligature or a grapheme cluster.
type Set struct {
	symbols []string
	ids     map[string]int
	props   []properties
	// disabled ids are skipped by the decoder; nil means all enabled.
	disabled []bool
}

type properties struct {
	script         *unicode.RangeTable
	spaceDelimited bool
	punct          bool
	digit          bool
	alpha          bool
	selfNormalized bool
}

// NewSet creates a Set holding the reserved space and null symbols followed
// by the given symbols. Duplicates keep their first id.
func NewSet(symbols ...string) *Set {
	s := &Set{ids: make(map[string]int, len(symbols)+2)}
	s.Add(spaceToken)
	s.Add(nullToken)
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

// Add appends a symbol and returns its id. An existing symbol keeps its id.
func (s *Set) Add(sym string) int {
	if sym == SpaceAlias {
		sym = spaceToken
	}
	if id, ok := s.ids[sym]; ok {
		return id
	}
	id := len(s.symbols)
	s.symbols = append(s.symbols, sym)
	s.ids[sym] = id
	s.props = append(s.props, computeProperties(sym))
	if s.disabled != nil {
		s.disabled = append(s.disabled, false)
	}
	return id
}

// Size returns the number of symbols including the reserved ones.
func (s *Set) Size() int { return len(s.symbols) }

// IDToUnichar returns the symbol for id, or "" if id is out of range.
func (s *Set) IDToUnichar(id int) string {
	if s == nil || id < 0 || id >= len(s.symbols) {
		return ""
	}
	return s.symbols[id]
}

// UnicharToID returns the id of sym, or InvalidID.
func (s *Set) UnicharToID(sym string) int {
	if s == nil {
		return InvalidID
	}
	if id, ok := s.ids[sym]; ok {
		return id
	}
	return InvalidID
}

// Contains reports whether sym is in the set.
func (s *Set) Contains(sym string) bool { return s.UnicharToID(sym) != InvalidID }

func (s *Set) valid(id int) bool { return s != nil && id >= 0 && id < len(s.symbols) }

// IsSpaceDelimited reports whether words containing id are separated by
// spaces. Han, kana, Hangul and Thai are not. InvalidID counts as delimited.
func (s *Set) IsSpaceDelimited(id int) bool {
	if !s.valid(id) {
		return true
	}
	return s.props[id].spaceDelimited
}

// IsPunctuation reports whether id is a punctuation or symbol character.
func (s *Set) IsPunctuation(id int) bool { return s.valid(id) && s.props[id].punct }

// IsDigit reports whether id is a decimal digit.
func (s *Set) IsDigit(id int) bool { return s.valid(id) && s.props[id].digit }

// IsAlpha reports whether id is a letter.
func (s *Set) IsAlpha(id int) bool { return s.valid(id) && s.props[id].alpha }

// IsSelfNormalized reports whether the symbol is already in NFC form.
func (s *Set) IsSelfNormalized(id int) bool { return s.valid(id) && s.props[id].selfNormalized }

// Enabled reports whether the decoder may emit id.
func (s *Set) Enabled(id int) bool {
	if !s.valid(id) {
		return false
	}
	return s.disabled == nil || !s.disabled[id]
}

// SetWhitelist enables only the symbols made of characters in chars.
// Space and null stay enabled. An empty whitelist enables everything.
func (s *Set) SetWhitelist(chars string) {
	if chars == "" {
		s.disabled = nil
		return
	}
	s.disabled = make([]bool, len(s.symbols))
	for id, sym := range s.symbols {
		if id == SpaceID || id == NullID {
			continue
		}
		s.disabled[id] = !allIn(sym, chars)
	}
}

// SetBlacklist disables every symbol containing a character of chars.
func (s *Set) SetBlacklist(chars string) {
	if chars == "" {
		return
	}
	if s.disabled == nil {
		s.disabled = make([]bool, len(s.symbols))
	}
	for id, sym := range s.symbols {
		if id == SpaceID || id == NullID {
			continue
		}
		if strings.ContainsAny(sym, chars) {
			s.disabled[id] = true
		}
	}
}

func allIn(sym, chars string) bool {
	for _, r := range sym {
		if !strings.ContainsRune(chars, r) {
			return false
		}
	}
	return true
}

// IsSpaceDelimitedLanguage reports whether most letters of the set belong to
// space delimited scripts.
func (s *Set) IsSpaceDelimitedLanguage() bool {
	var delimited, other int
	for id := NullID + 1; id < len(s.symbols); id++ {
		p := s.props[id]
		if !p.alpha {
			continue
		}
		if p.spaceDelimited {
			delimited++
		} else {
			other++
		}
	}
	return delimited >= other
}

// Normalize returns the canonical (NFC) form of a symbol.
func Normalize(sym string) string { return norm.NFC.String(sym) }

// Script returns the name of the script of id's first rune, or "Common".
func (s *Set) Script(id int) string {
	if !s.valid(id) || s.props[id].script == nil {
		return "Common"
	}
	for name, table := range unicode.Scripts {
		if table == s.props[id].script {
			return name
		}
	}
	return "Common"
}

var nonDelimitedScripts = []*unicode.RangeTable{
	unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul, unicode.Thai,
}

var namedScripts = []*unicode.RangeTable{
	unicode.Latin, unicode.Cyrillic, unicode.Greek, unicode.Arabic, unicode.Hebrew,
	unicode.Devanagari, unicode.Han, unicode.Hiragana, unicode.Katakana,
	unicode.Hangul, unicode.Thai,
}

func computeProperties(sym string) properties {
	p := properties{spaceDelimited: true, selfNormalized: norm.NFC.IsNormalString(sym)}
	r, _ := utf8.DecodeRuneInString(sym)
	if r == utf8.RuneError {
		return p
	}
	for _, table := range namedScripts {
		if unicode.Is(table, r) {
			p.script = table
			break
		}
	}
	for _, table := range nonDelimitedScripts {
		if unicode.Is(table, r) {
			p.spaceDelimited = false
			break
		}
	}
	p.punct = unicode.IsPunct(r) || unicode.IsSymbol(r)
	p.digit = unicode.IsDigit(r)
	p.alpha = unicode.IsLetter(r)
	return p
}

// processLine trims a charset line and strips a leading BOM.
func processLine(line string, lineNum int) string {
	if lineNum == 1 {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

// LoadSet loads a charset file where each non-empty line is a symbol.
func LoadSet(path string) (*Set, error) {
	if path == "" {
		return nil, errors.New("charset path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: charset path is user supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open charset: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing charset file: %v\n", err)
		}
	}()

	s := NewSet()
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := processLine(scanner.Text(), lineNum)
		if line == "" {
			continue
		}
		s.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading charset: %w", err)
	}
	if s.Size() <= NullID+1 {
		return nil, fmt.Errorf("charset is empty: %s", path)
	}
	return s, nil
}

// LoadSets merges several charset files in order; the first occurrence of a
// symbol wins.
func LoadSets(paths []string) (*Set, error) {
	if len(paths) == 0 {
		return nil, errors.New("no charset paths provided")
	}
	merged := NewSet()
	for _, p := range paths {
		if p == "" {
			continue
		}
		s, err := LoadSet(p)
		if err != nil {
			return nil, err
		}
		for id := NullID + 1; id < s.Size(); id++ {
			merged.Add(s.IDToUnichar(id))
		}
	}
	if merged.Size() <= NullID+1 {
		return nil, errors.New("merged charset is empty")
	}
	return merged, nil
}

// Symbols returns a copy of all symbols in id order.
func (s *Set) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Text joins the symbols of ids, skipping the null symbol and invalid ids.
func (s *Set) Text(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		if id == NullID || !s.valid(id) {
			continue
		}
		b.WriteString(s.symbols[id])
	}
	return b.String()
}
