package recodebeam

import (
	"slices"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// Choice is one likely class at a timestep.
type Choice struct {
	Code int `json:"code"`
	// Unichar is the symbol the code spells on its own, empty for the null
	// code and for codes that only occur inside multi-code symbols.
	Unichar string  `json:"unichar"`
	Prob    float32 `json:"prob"`
}

// saveMostCertainChoices records the classes at or above the choice
// threshold, most likely first.
func (s *Search) saveMostCertainChoices(outputs []float32, charset Charset) {
	var choices []Choice
	for code, p := range outputs {
		if p < s.cfg.ChoiceThreshold {
			continue
		}
		c := Choice{Code: code, Prob: p}
		if code != s.nullChar && charset != nil {
			if id := s.recoder.DecodeUnichar(compress.FromCodes(code)); id != unichar.InvalidID {
				c.Unichar = charset.IDToUnichar(id)
			}
		}
		choices = append(choices, c)
	}
	slices.SortStableFunc(choices, func(a, b Choice) int {
		switch {
		case a.Prob > b.Prob:
			return -1
		case a.Prob < b.Prob:
			return 1
		}
		return 0
	})
	s.choices = append(s.choices, choices)
}

// TimestepChoices returns the per-timestep alternatives of the last decode.
// It is empty unless Config.TrackChoices is set.
func (s *Search) TimestepChoices() [][]Choice { return s.choices }
