package recodebeam

import (
	"strings"

	"github.com/MeKo-Tech/recode/internal/dawg"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// Symbol is one decoded symbol of a word.
type Symbol struct {
	UnicharID int     `json:"unichar_id"`
	Text      string  `json:"text"`
	Certainty float32 `json:"certainty"`
	Rating    float32 `json:"rating"`
	// Left and Right are the symbol's extent in scaled timestep units.
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Word is a run of symbols between word breaks.
type Word struct {
	Text         string        `json:"text"`
	Symbols      []Symbol      `json:"symbols"`
	LeadingSpace bool          `json:"leading_space"`
	Permuter     dawg.Permuter `json:"-"`
	PermuterName string        `json:"permuter"`
	// SpaceCertainty is the weaker of the certainties of the spaces on
	// either side of the word.
	SpaceCertainty float32 `json:"space_certainty"`
	Certainty      float32 `json:"certainty"`
	Rating         float32 `json:"rating"`
	Left           int     `json:"left"`
	Right          int     `json:"right"`
}

// ExtractBestPathAsWords splits the best path into words. A word ends at a
// space, at a node starting a dictionary word, or between two symbols on a
// top-choice path when either belongs to a script written without spaces.
// x extents are timesteps multiplied by scale.
func (s *Search) ExtractBestPathAsWords(charset Charset, scale float32) []Word {
	best, _ := s.ExtractBestPaths()
	sp := ExtractPathAsUnicharIds(best)
	ids := sp.UnicharIDs
	numIDs := len(ids)
	scaled := func(t int) int { return int(float32(t) * scale) }
	spaceDelimited := func(id int) bool {
		if charset == nil {
			return true
		}
		return charset.IsSpaceDelimited(id)
	}

	var words []Word
	var prevSpaceCert float32
	wordEnd := 0
	for wordStart := 0; wordStart < numIDs; wordStart = wordEnd {
		for wordEnd = wordStart + 1; wordEnd < numIDs; wordEnd++ {
			if ids[wordEnd] == unichar.SpaceID {
				break
			}
			node := best[sp.XCoords[wordEnd]]
			if node.StartOfWord {
				break
			}
			if node.Permuter == dawg.TopChoicePerm &&
				(!spaceDelimited(ids[wordEnd]) || !spaceDelimited(ids[wordEnd-1])) {
				break
			}
		}
		var spaceCert float32
		if wordEnd < numIDs && ids[wordEnd] == unichar.SpaceID {
			spaceCert = sp.Certainties[wordEnd]
		}
		leadingSpace := wordStart > 0 && ids[wordStart-1] == unichar.SpaceID

		if !allSpaces(ids[wordStart:wordEnd]) {
			w := Word{
				LeadingSpace:   leadingSpace,
				SpaceCertainty: min(spaceCert, prevSpaceCert),
				Permuter:       best[sp.XCoords[wordEnd-1]].Permuter,
				Left:           scaled(sp.XCoords[wordStart]),
				Right:          scaled(sp.XCoords[wordEnd]),
			}
			w.PermuterName = w.Permuter.String()
			var text strings.Builder
			for i := wordStart; i < wordEnd; i++ {
				sym := Symbol{
					UnicharID: ids[i],
					Certainty: sp.Certainties[i],
					Rating:    sp.Ratings[i],
					Left:      scaled(sp.XCoords[i]),
					Right:     scaled(sp.XCoords[i+1]),
				}
				if charset != nil {
					sym.Text = charset.IDToUnichar(ids[i])
				}
				text.WriteString(sym.Text)
				if i == wordStart || sym.Certainty < w.Certainty {
					w.Certainty = sym.Certainty
				}
				w.Rating += sym.Rating
				w.Symbols = append(w.Symbols, sym)
			}
			w.Text = text.String()
			words = append(words, w)
		}
		prevSpaceCert = spaceCert
		if wordEnd < numIDs && ids[wordEnd] == unichar.SpaceID {
			wordEnd++
		}
	}
	return words
}

func allSpaces(ids []int) bool {
	for _, id := range ids {
		if id != unichar.SpaceID {
			return false
		}
	}
	return true
}
