package compress

import (
	"fmt"
	"strings"
)

// MaxCodeLen is the longest code sequence any symbol may have.
const MaxCodeLen = 9

// RecodedCharID is the compressed encoding of one symbol: a short sequence
// of small integer codes.
type RecodedCharID struct {
	selfNormalized bool
	length         int
	code           [MaxCodeLen]int
}

// Set sets the code at index, extending the sequence to index+1 if it was
// shorter. Panics if index is out of range.
func (r *RecodedCharID) Set(index, value int) {
	if index < 0 || index >= MaxCodeLen {
		panic(fmt.Sprintf("compress: code index %d out of range", index))
	}
	r.code[index] = value
	if r.length <= index {
		r.length = index + 1
	}
}

// Set3 sets a three part code, as used by Hangul.
func (r *RecodedCharID) Set3(a, b, c int) {
	r.code[0], r.code[1], r.code[2] = a, b, c
	r.length = 3
}

// Truncate shortens the sequence to n codes.
func (r *RecodedCharID) Truncate(n int) {
	if n < r.length {
		r.length = n
	}
}

// Len returns the number of codes.
func (r RecodedCharID) Len() int { return r.length }

// Empty reports whether no code has been set.
func (r RecodedCharID) Empty() bool { return r.length == 0 }

// At returns the code at index i.
func (r RecodedCharID) At(i int) int { return r.code[i] }

// SelfNormalized reports whether this is the canonical encoding among
// symbols that share the same code sequence.
func (r RecodedCharID) SelfNormalized() bool { return r.selfNormalized }

// SetSelfNormalized sets the canonical flag.
func (r *RecodedCharID) SetSelfNormalized(v bool) { r.selfNormalized = v }

// Codes returns a copy of the code sequence.
func (r RecodedCharID) Codes() []int {
	out := make([]int, r.length)
	copy(out, r.code[:r.length])
	return out
}

// FromCodes builds a RecodedCharID from a slice of at most MaxCodeLen codes.
func FromCodes(codes ...int) RecodedCharID {
	var r RecodedCharID
	for i, c := range codes {
		r.Set(i, c)
	}
	return r
}

// Key is a comparable value over (length, codes). Equal keys mean equal
// code sequences regardless of the self-normalised flag.
type Key struct {
	length int
	code   [MaxCodeLen]int
}

// Key returns the map key for r.
func (r RecodedCharID) Key() Key {
	k := Key{length: r.length}
	copy(k.code[:r.length], r.code[:r.length])
	return k
}

// Equal compares code sequences.
func (r RecodedCharID) Equal(o RecodedCharID) bool { return r.Key() == o.Key() }

// String renders the codes as "c0,c1,...".
func (r RecodedCharID) String() string {
	parts := make([]string, r.length)
	for i := 0; i < r.length; i++ {
		parts[i] = fmt.Sprint(r.code[i])
	}
	return strings.Join(parts, ",")
}
