// Package compress maps a large symbol alphabet onto short sequences of
// small integer codes, and back. The network emits one class per code; the
// beam search uses the prefix tables here to know which codes may follow.
package compress

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/MeKo-Tech/recode/internal/unichar"
)

var (
	// ErrCodeTooLong is returned when a symbol needs more than MaxCodeLen codes.
	ErrCodeTooLong = errors.New("symbol too long to encode")
	// ErrCodeSpaceOverflow is returned when the direct code space outgrows the alphabet.
	ErrCodeSpaceOverflow = errors.New("code space expanded beyond the alphabet")
	// ErrBadRadicalLine is returned for a malformed radical-stroke row.
	ErrBadRadicalLine = errors.New("malformed radical-stroke line")
	// ErrBadEncoding is returned when a serialized encoder cannot be read.
	ErrBadEncoding = errors.New("invalid serialized encoding")
)

// Hangul syllable decomposition constants.
const (
	firstHangul = 0xac00
	numHangul   = 11172
	lCount      = 19
	vCount      = 21
	tCount      = 28
	totalJamos  = lCount + vCount + tCount
)

// Compressor is the bidirectional symbol <-> code sequence mapping. It is
// built once and read-only afterwards, so it may be shared by concurrent
// searches.
type Compressor struct {
	encoder      []RecodedCharID
	decoder      map[Key]int
	isValidStart []bool
	nextCodes    map[Key][]int
	finalCodes   map[Key][]int
	codeRange    int
}

// New returns an empty Compressor. Call one of the Setup or ComputeEncoding
// methods before use.
func New() *Compressor {
	return &Compressor{}
}

// ComputeEncoding builds the encoding for set. Space always gets code 0 and
// nullID (if >= 0) a direct code that ends up as the highest code. Hangul
// syllables are split into lead/vowel/tail jamo codes, Han characters listed
// in radicals get [radical, strokes, index] codes and everything else a
// sequence of direct codes, one per rune. radicals may be nil.
func (c *Compressor) ComputeEncoding(set *unichar.Set, nullID int, radicals io.Reader) error {
	var radicalMap RadicalTable
	if radicals != nil {
		var err error
		radicalMap, err = ParseRadicalTable(radicals)
		if err != nil {
			return err
		}
	}

	direct := newDirectSet()
	direct.add(" ")
	nullCode := -1
	if nullID >= 0 {
		nullCode = direct.add(string(rune(0)))
	}

	hangulOffset := set.Size()
	hanOffset := hangulOffset + totalJamos
	radicalCounts := make(map[int]int)

	encoder := make([]RecodedCharID, 0, set.Size())
	for id := 0; id < set.Size(); id++ {
		var code RecodedCharID
		runes := []rune(unichar.Normalize(set.IDToUnichar(id)))
		if len(runes) == 1 {
			r := runes[0]
			if rs, ok := radicalMap[r]; ok {
				for i, v := range rs {
					code.Set(i, hanOffset+v)
				}
				n := radicalCounts[radicalPreHash(rs)]
				radicalCounts[radicalPreHash(rs)]++
				if n > 0 {
					code.Set(len(rs), hanOffset+n+radicalRadix)
				}
			} else if l, v, t, ok := decomposeHangul(r); ok {
				code.Set3(l+hangulOffset, v+lCount+hangulOffset, t+lCount+vCount+hangulOffset)
			}
		}
		if code.Empty() {
			switch {
			case id == unichar.SpaceID:
				code.Set(0, 0)
			case id == nullID:
				code.Set(0, nullCode)
			default:
				for _, r := range runes {
					pos := code.Len()
					if pos >= MaxCodeLen {
						return fmt.Errorf("%w: %d=%q", ErrCodeTooLong, id, set.IDToUnichar(id))
					}
					code.Set(pos, direct.add(string(r)))
					if direct.size() > set.Size() {
						return fmt.Errorf("%w: %d direct codes for %d symbols", ErrCodeSpaceOverflow, direct.size(), set.Size())
					}
				}
			}
		}
		code.SetSelfNormalized(set.IsSelfNormalized(id) || id == nullID)
		encoder = append(encoder, code)
	}

	// Shift the Han codes at each position so that radicals, stroke counts
	// and disambiguation indices occupy disjoint ranges.
	codeOffset := 0
	for i := 0; i < MaxCodeLen; i++ {
		maxOffset := -1
		for u := range encoder {
			code := &encoder[u]
			if code.Len() <= i || code.At(i) < hanOffset {
				continue
			}
			maxOffset = max(maxOffset, code.At(i)-hanOffset)
			code.Set(i, code.At(i)+codeOffset)
		}
		if maxOffset < 0 {
			break
		}
		codeOffset += maxOffset + 1
	}

	c.install(encoder)
	if nullCode >= 0 && nullID < len(encoder) {
		c.defragment(encoder[nullID].At(0))
	} else {
		c.defragment(-1)
	}
	c.setupDecoder()
	slog.Debug("Computed code encoding",
		"symbols", set.Size(),
		"code_range", c.codeRange,
		"direct_codes", direct.size(),
		"han_symbols", len(radicalMap))
	return nil
}

// SetupPassThrough makes every symbol its own single code.
func (c *Compressor) SetupPassThrough(set *unichar.Set) {
	encoder := make([]RecodedCharID, set.Size())
	for id := range encoder {
		encoder[id].Set(0, id)
		encoder[id].SetSelfNormalized(true)
	}
	c.SetupDirect(encoder)
}

// SetupDirect installs a precomputed encoder, one row per symbol id.
func (c *Compressor) SetupDirect(codes []RecodedCharID) {
	c.install(slices.Clone(codes))
	c.setupDecoder()
}

func (c *Compressor) install(encoder []RecodedCharID) {
	c.encoder = encoder
	c.computeCodeRange()
}

func (c *Compressor) computeCodeRange() {
	c.codeRange = -1
	for _, code := range c.encoder {
		for i := 0; i < code.Len(); i++ {
			c.codeRange = max(c.codeRange, code.At(i))
		}
	}
	c.codeRange++
}

// defragment removes unused code values and moves encodedNull to the end.
func (c *Compressor) defragment(encodedNull int) {
	used := make([]bool, c.codeRange)
	for _, code := range c.encoder {
		for i := 0; i < code.Len(); i++ {
			used[code.At(i)] = true
		}
	}
	remap := make([]int, c.codeRange)
	next := 0
	for v := range used {
		if !used[v] || v == encodedNull {
			continue
		}
		remap[v] = next
		next++
	}
	if encodedNull >= 0 && encodedNull < len(remap) {
		remap[encodedNull] = next
	}
	for u := range c.encoder {
		code := &c.encoder[u]
		for i := 0; i < code.Len(); i++ {
			code.Set(i, remap[code.At(i)])
		}
	}
	c.computeCodeRange()
}

// setupDecoder derives the decoder and prefix tables from the encoder.
func (c *Compressor) setupDecoder() {
	c.decoder = make(map[Key]int, len(c.encoder))
	c.nextCodes = make(map[Key][]int)
	c.finalCodes = make(map[Key][]int)
	c.isValidStart = make([]bool, c.codeRange)
	for id, code := range c.encoder {
		if code.Empty() {
			continue
		}
		key := code.Key()
		if _, ok := c.decoder[key]; !ok || code.SelfNormalized() {
			c.decoder[key] = id
		}
		c.isValidStart[code.At(0)] = true

		n := code.Len() - 1
		prefix := code
		prefix.Truncate(n)
		pkey := prefix.Key()
		if finals, ok := c.finalCodes[pkey]; ok {
			if !slices.Contains(finals, code.At(n)) {
				c.finalCodes[pkey] = append(finals, code.At(n))
			}
			continue
		}
		c.finalCodes[pkey] = []int{code.At(n)}
		for n--; n >= 0; n-- {
			prefix.Truncate(n)
			pkey = prefix.Key()
			nexts, ok := c.nextCodes[pkey]
			if !ok {
				c.nextCodes[pkey] = []int{code.At(n)}
				continue
			}
			if !slices.Contains(nexts, code.At(n)) {
				c.nextCodes[pkey] = append(nexts, code.At(n))
			}
			// Shorter prefixes were recorded when this one was created.
			break
		}
	}
}

// EncodeUnichar returns the code sequence for id.
func (c *Compressor) EncodeUnichar(id int) (RecodedCharID, bool) {
	if id < 0 || id >= len(c.encoder) {
		return RecodedCharID{}, false
	}
	return c.encoder[id], true
}

// DecodeUnichar returns the symbol id for a complete code sequence, or
// unichar.InvalidID.
func (c *Compressor) DecodeUnichar(code RecodedCharID) int {
	if code.Empty() {
		return unichar.InvalidID
	}
	if id, ok := c.decoder[code.Key()]; ok {
		return id
	}
	return unichar.InvalidID
}

// IsValidFirstCode reports whether code may start a symbol.
func (c *Compressor) IsValidFirstCode(code int) bool {
	return code >= 0 && code < len(c.isValidStart) && c.isValidStart[code]
}

// GetNextCodes returns the codes that extend prefix without completing a
// symbol, or nil if prefix is not in the trie. The slice must not be modified.
func (c *Compressor) GetNextCodes(prefix RecodedCharID) []int {
	return c.nextCodes[prefix.Key()]
}

// GetFinalCodes returns the codes that complete a symbol after prefix, or
// nil if prefix is not in the trie. The slice must not be modified.
func (c *Compressor) GetFinalCodes(prefix RecodedCharID) []int {
	return c.finalCodes[prefix.Key()]
}

// CodeRange is one past the largest code in use.
func (c *Compressor) CodeRange() int { return c.codeRange }

// NumSymbols is the number of encoder rows.
func (c *Compressor) NumSymbols() int { return len(c.encoder) }

// IsPassThrough reports whether every symbol is encoded as its own id.
func (c *Compressor) IsPassThrough() bool {
	for id, code := range c.encoder {
		if code.Len() != 1 || code.At(0) != id {
			return false
		}
	}
	return len(c.encoder) > 0
}

// EncodingString dumps the encoder, one "codes<TAB>symbol" row per id.
func (c *Compressor) EncodingString(set *unichar.Set) string {
	var b strings.Builder
	for id, code := range c.encoder {
		sym := set.IDToUnichar(id)
		switch id {
		case unichar.SpaceID:
			sym = unichar.SpaceAlias
		case unichar.NullID:
			sym = "<null>"
		}
		fmt.Fprintf(&b, "%s\t%s", code, sym)
		if !code.SelfNormalized() {
			b.WriteString("\t(alias)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// directSet numbers distinct runes in order of first use.
type directSet struct {
	ids map[string]int
}

func newDirectSet() *directSet {
	return &directSet{ids: make(map[string]int)}
}

func (d *directSet) add(s string) int {
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := len(d.ids)
	d.ids[s] = id
	return id
}

func (d *directSet) size() int { return len(d.ids) }

func decomposeHangul(r rune) (lead, vowel, trail int, ok bool) {
	offset := int(r) - firstHangul
	if offset < 0 || offset >= numHangul {
		return 0, 0, 0, false
	}
	const ncount = vCount * tCount
	lead = offset / ncount
	vowel = (offset % ncount) / tCount
	trail = offset % tCount
	return lead, vowel, trail, true
}
