package recodebeam

import (
	"fmt"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/netio"
)

// Config holds the search tuning. It is copied into each Search.
type Config struct {
	// BeamWidths is the heap size for each partial code length.
	BeamWidths [compress.MaxCodeLen + 1]int
	// MinCertainty prunes non-null codes below this certainty.
	MinCertainty float32
	// DictRatio scales non-dictionary certainties to penalize them.
	DictRatio float32
	// CertOffset is added to every log-probability.
	CertOffset float32
	// WorstDictCert is the lowest certainty a dictionary path may take.
	WorstDictCert float32
	// SimpleText disables CTC duplicates: every timestep is a new code.
	SimpleText bool
	// TrackChoices records per-timestep alternatives above ChoiceThreshold.
	TrackChoices    bool
	ChoiceThreshold float32
	Debug           bool
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		BeamWidths:      [compress.MaxCodeLen + 1]int{5, 10, 16, 16, 16, 16, 16, 16, 16, 16},
		MinCertainty:    netio.MinCertainty,
		DictRatio:       2.25,
		CertOffset:      -0.085,
		WorstDictCert:   -25.0 / 7.0,
		ChoiceThreshold: 0.01,
	}
}

// Validate checks the config for values the search cannot work with.
func (c Config) Validate() error {
	for i, w := range c.BeamWidths {
		if w < 1 {
			return fmt.Errorf("beam width for code length %d must be positive, got %d", i, w)
		}
	}
	if c.DictRatio <= 0 {
		return fmt.Errorf("dict ratio must be positive, got %f", c.DictRatio)
	}
	if c.MinCertainty > 0 {
		return fmt.Errorf("min certainty must not be positive, got %f", c.MinCertainty)
	}
	if c.ChoiceThreshold < 0 || c.ChoiceThreshold > 1 {
		return fmt.Errorf("choice threshold must be in [0,1], got %f", c.ChoiceThreshold)
	}
	return nil
}
