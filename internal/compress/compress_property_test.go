package compress

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/recode/internal/unichar"
)

const propLetters = "abcdeé한丁"

// genAlphabet builds a set holding every single letter of propLetters plus
// multi-letter symbols drawn from the generated numbers.
func genAlphabet(nums []int) *unichar.Set {
	letters := []rune(propLetters)
	set := unichar.NewSet()
	for _, r := range letters {
		set.Add(string(r))
	}
	for _, n := range nums {
		var b strings.Builder
		for n > 0 && b.Len() < 3*4 {
			b.WriteRune(letters[n%len(letters)])
			n /= len(letters)
		}
		if b.Len() > 0 {
			set.Add(b.String())
		}
	}
	return set
}

const propRadicals = "4E01 3 2\n"

func TestComputeEncoding_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	alphabet := gen.SliceOfN(12, gen.IntRange(0, 2000))

	properties.Property("decode(encode(id)) is the normalized id", prop.ForAll(
		func(nums []int) bool {
			set := genAlphabet(nums)
			c := New()
			if err := c.ComputeEncoding(set, unichar.NullID, strings.NewReader(propRadicals)); err != nil {
				return false
			}
			for id := 0; id < set.Size(); id++ {
				code, ok := c.EncodeUnichar(id)
				if !ok {
					return false
				}
				want := set.UnicharToID(unichar.Normalize(set.IDToUnichar(id)))
				if want == unichar.InvalidID {
					want = id
				}
				if c.DecodeUnichar(code) != want {
					return false
				}
			}
			return true
		},
		alphabet,
	))

	properties.Property("codes have no gaps and null is the highest code", prop.ForAll(
		func(nums []int) bool {
			set := genAlphabet(nums)
			c := New()
			if err := c.ComputeEncoding(set, unichar.NullID, strings.NewReader(propRadicals)); err != nil {
				return false
			}
			used := make([]bool, c.CodeRange())
			for id := 0; id < set.Size(); id++ {
				code, _ := c.EncodeUnichar(id)
				for i := 0; i < code.Len(); i++ {
					if code.At(i) < 0 || code.At(i) >= c.CodeRange() {
						return false
					}
					used[code.At(i)] = true
				}
			}
			for _, u := range used {
				if !u {
					return false
				}
			}
			null, _ := c.EncodeUnichar(unichar.NullID)
			return null.Len() == 1 && null.At(0) == c.CodeRange()-1
		},
		alphabet,
	))

	properties.Property("every code sequence is reachable through the trie", prop.ForAll(
		func(nums []int) bool {
			set := genAlphabet(nums)
			c := New()
			if err := c.ComputeEncoding(set, unichar.NullID, strings.NewReader(propRadicals)); err != nil {
				return false
			}
			for id := 0; id < set.Size(); id++ {
				code, _ := c.EncodeUnichar(id)
				if !c.IsValidFirstCode(code.At(0)) {
					return false
				}
				var prefix RecodedCharID
				for i := 0; i < code.Len(); i++ {
					var allowed []int
					if i+1 < code.Len() {
						allowed = c.GetNextCodes(prefix)
					} else {
						allowed = c.GetFinalCodes(prefix)
					}
					if !contains(allowed, code.At(i)) {
						return false
					}
					prefix.Set(i, code.At(i))
				}
			}
			return true
		},
		alphabet,
	))

	properties.TestingRun(t)
}

func TestSetupPassThrough_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("pass-through encode/decode is the identity", prop.ForAll(
		func(n int) bool {
			set := unichar.NewSet()
			for i := 0; i < n; i++ {
				set.Add(string(rune('A' + i)))
			}
			c := New()
			c.SetupPassThrough(set)
			if c.CodeRange() != set.Size() {
				return false
			}
			for id := 0; id < set.Size(); id++ {
				code, ok := c.EncodeUnichar(id)
				if !ok || c.DecodeUnichar(code) != id {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
