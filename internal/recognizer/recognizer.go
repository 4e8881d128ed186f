// Package recognizer turns the output matrix of a line recognition network
// into text. It wraps the re-encoded beam search with a model bundle,
// text clean-up and a greedy fallback decoder.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/MeKo-Tech/recode/internal/common"
	"github.com/MeKo-Tech/recode/internal/dawg"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recodebeam"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// Mode selects the decoder.
type Mode string

const (
	// ModeBeam runs the re-encoded beam search.
	ModeBeam Mode = "beam"
	// ModeGreedy takes the best class per timestep and collapses it.
	ModeGreedy Mode = "greedy"
)

// ErrNilMatrix is returned when RecognizeLine is called without input.
var ErrNilMatrix = errors.New("nil output matrix")

// Config holds the recognizer configuration.
type Config struct {
	Mode    Mode
	Decoder recodebeam.Config
	Clean   CleanOptions
	// MinConfidence rejects lines whose confidence is lower. 0 keeps all.
	MinConfidence float64
	// ChoiceMode records the likely classes of every timestep.
	ChoiceMode bool
	// ScaleFactor converts timesteps into x coordinates of the line image.
	ScaleFactor float32
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeBeam,
		Decoder:     recodebeam.DefaultConfig(),
		Clean:       DefaultCleanOptions(),
		ScaleFactor: 1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeBeam, ModeGreedy:
	default:
		return fmt.Errorf("unknown decode mode %q", c.Mode)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %f", c.MinConfidence)
	}
	if c.ScaleFactor <= 0 {
		return fmt.Errorf("scale factor must be positive, got %f", c.ScaleFactor)
	}
	return c.Decoder.Validate()
}

// LineResult is the decoded text of one line.
type LineResult struct {
	Text    string `json:"text"`
	RawText string `json:"raw_text"`
	// Confidence is the mean symbol probability in [0,1].
	Confidence  float64               `json:"confidence"`
	Words       []recodebeam.Word     `json:"words,omitempty"`
	Labels      []int                 `json:"labels,omitempty"`
	XCoords     []int                 `json:"xcoords,omitempty"`
	Alternative string                `json:"alternative,omitempty"`
	Choices     [][]recodebeam.Choice `json:"choices,omitempty"`
	Width       int                   `json:"width"`
	Mode        Mode                  `json:"mode"`
	Rejected    bool                  `json:"rejected,omitempty"`
	Error       string                `json:"error,omitempty"`
	DecodeMs    float64               `json:"decode_ms"`
	Stats       *recodebeam.Stats     `json:"stats,omitempty"`
}

// Recognizer decodes line matrices with one Model. It is safe for concurrent
// use: every call borrows its own search from a pool.
type Recognizer struct {
	model    *Model
	config   Config
	searches sync.Pool
}

// NewRecognizer creates a recognizer over model.
func NewRecognizer(model *Model, config Config) (*Recognizer, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recognizer config: %w", err)
	}
	config.Decoder.TrackChoices = config.ChoiceMode
	if model.Dict == nil {
		// Without a dictionary nothing competes with top-choice paths, so
		// keep their certainties as plain log probabilities.
		config.Decoder.DictRatio = 1
	}

	first, err := recodebeam.New(model.Recoder, model.NullCode, config.Decoder.SimpleText, model.LanguageModel(), config.Decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to create search: %w", err)
	}
	r := &Recognizer{model: model, config: config}
	r.searches.New = func() any {
		s, err := recodebeam.New(model.Recoder, model.NullCode, config.Decoder.SimpleText, model.LanguageModel(), config.Decoder)
		if err != nil {
			panic(fmt.Sprintf("recognizer: search config changed after validation: %v", err))
		}
		return s
	}
	r.searches.Put(first)
	slog.Debug("Recognizer created", "mode", config.Mode, "model", model.Name, "dictionary", model.Dict != nil)
	return r, nil
}

// Model returns the recognizer's model.
func (r *Recognizer) Model() *Model { return r.model }

// GetConfig returns the effective configuration.
func (r *Recognizer) GetConfig() Config { return r.config }

// RecognizeLine decodes one line. A matrix the model cannot decode yields an
// empty result carrying the error text; only a cancelled context or a nil
// matrix return an error.
func (r *Recognizer) RecognizeLine(ctx context.Context, m *netio.Matrix) (*LineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNilMatrix
	}
	res := &LineResult{Width: m.Width(), Mode: r.config.Mode}
	if m.NumFeatures() != r.model.Recoder.CodeRange() {
		err := fmt.Errorf("%w: matrix has %d, recoder has %d",
			recodebeam.ErrClassMismatch, m.NumFeatures(), r.model.Recoder.CodeRange())
		slog.Warn("Skipping undecodable line", "width", m.Width(), "error", err)
		res.Error = err.Error()
		return res, nil
	}
	if m.Width() == 0 {
		return res, nil
	}

	timer := common.NewNamedTimer(string(r.config.Mode))
	var err error
	switch r.config.Mode {
	case ModeGreedy:
		r.decodeGreedy(m, res)
	default:
		err = r.decodeBeam(m, res)
	}
	timer.Stop()
	res.DecodeMs = timer.Millis()
	if err != nil {
		slog.Warn("Line decode failed", "width", m.Width(), "decode", timer, "error", err)
		return &LineResult{Width: m.Width(), Mode: r.config.Mode, Error: err.Error()}, nil
	}

	res.Text = PostProcessText(res.RawText, r.config.Clean)
	res.Alternative = PostProcessText(res.Alternative, r.config.Clean)
	if r.config.MinConfidence > 0 && res.Confidence < r.config.MinConfidence {
		slog.Debug("Rejecting low confidence line", "confidence", res.Confidence, "min", r.config.MinConfidence)
		res.Rejected = true
		res.Text = ""
		res.Words = nil
	}
	return res, nil
}

func (r *Recognizer) decodeBeam(m *netio.Matrix, res *LineResult) error {
	s, _ := r.searches.Get().(*recodebeam.Search)
	defer func() {
		s.Reset()
		r.searches.Put(s)
	}()

	charset := r.model.Charset
	if err := s.Decode(m, charset); err != nil {
		return err
	}
	best := s.ExtractBestPathAsUnicharIds()
	res.RawText = charset.Text(best.UnicharIDs)
	res.Confidence = certaintyConfidence(best.Certainties)
	res.Labels, res.XCoords = s.ExtractBestPathAsLabels()
	res.Words = s.ExtractBestPathAsWords(charset, r.config.ScaleFactor)
	if second := s.ExtractSecondBestPathAsUnicharIds(); second.Len() > 0 {
		if alt := charset.Text(second.UnicharIDs); alt != res.RawText {
			res.Alternative = alt
		}
	}
	if r.config.ChoiceMode {
		res.Choices = cloneChoices(s.TimestepChoices())
	}
	stats := s.Stats()
	res.Stats = &stats
	return nil
}

func (r *Recognizer) decodeGreedy(m *netio.Matrix, res *LineResult) {
	seq := DecodeGreedy(m, r.model.NullCode)
	ids, probs, xcoords := GreedySymbols(r.model.Recoder, seq)
	charset := r.model.Charset

	keep := 0
	for i, id := range ids {
		if !charset.Enabled(id) {
			continue
		}
		ids[keep], probs[keep], xcoords[keep] = id, probs[i], xcoords[i]
		keep++
	}
	ids, probs, xcoords = ids[:keep], probs[:keep], xcoords[:keep]

	res.RawText = charset.Text(ids)
	res.Confidence = SequenceConfidence(probs)
	res.Labels = slices.Clone(seq.Collapsed)
	res.XCoords = append(slices.Clone(seq.CollapsedPos), m.Width())
	res.Words = greedyWords(charset, ids, probs, xcoords, m.Width(), r.config.ScaleFactor)
	if r.config.ChoiceMode {
		res.Choices = make([][]recodebeam.Choice, m.Width())
		for t := range m.Width() {
			res.Choices[t] = []recodebeam.Choice{{Code: seq.Indices[t], Prob: float32(seq.Probs[t])}}
		}
	}
}

// greedyWords splits greedy symbols into space separated words.
func greedyWords(charset *unichar.Set, ids []int, probs []float64, xcoords []int, width int, scale float32) []recodebeam.Word {
	scaled := func(t int) int { return int(float32(t) * scale) }
	right := func(i int) int {
		if i+1 < len(xcoords) {
			return xcoords[i+1]
		}
		return width
	}
	var words []recodebeam.Word
	var cur *recodebeam.Word
	for i, id := range ids {
		if id == unichar.SpaceID {
			cur = nil
			continue
		}
		cert := netio.ProbToCertainty(float32(probs[i]))
		if cur == nil {
			words = append(words, recodebeam.Word{
				LeadingSpace: i > 0,
				Permuter:     dawg.TopChoicePerm,
				PermuterName: dawg.TopChoicePerm.String(),
				Certainty:    cert,
				Left:         scaled(xcoords[i]),
			})
			cur = &words[len(words)-1]
		}
		sym := recodebeam.Symbol{
			UnicharID: id,
			Text:      charset.IDToUnichar(id),
			Certainty: cert,
			Rating:    -cert,
			Left:      scaled(xcoords[i]),
			Right:     scaled(right(i)),
		}
		cur.Symbols = append(cur.Symbols, sym)
		cur.Text += sym.Text
		cur.Certainty = min(cur.Certainty, cert)
		cur.Rating += sym.Rating
		cur.Right = sym.Right
	}
	return words
}

// certaintyConfidence maps log-probability certainties to a mean probability.
func certaintyConfidence(certs []float32) float64 {
	if len(certs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range certs {
		sum += min(1, math.Exp(float64(c)))
	}
	return sum / float64(len(certs))
}

func cloneChoices(in [][]recodebeam.Choice) [][]recodebeam.Choice {
	out := make([][]recodebeam.Choice, len(in))
	for i, c := range in {
		out[i] = slices.Clone(c)
	}
	return out
}
