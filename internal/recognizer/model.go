package recognizer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/dawg"
	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recodebeam"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

var (
	// ErrNoNullCode is returned when the recoder has no code for the null symbol.
	ErrNoNullCode = errors.New("recoder does not encode the null symbol")
	// ErrUnknownSymbol is returned when text holds a symbol outside the charset.
	ErrUnknownSymbol = errors.New("symbol not in charset")
)

// maxSymbolRunes bounds the longest multi-rune symbol EncodeText matches.
const maxSymbolRunes = 4

// ModelOptions controls how a bundle is turned into a Model.
type ModelOptions struct {
	// Whitelist and Blacklist restrict the symbols the decoder may emit.
	Whitelist string
	Blacklist string
	// PassThrough gives every symbol its own single code and ignores any
	// recoder or radical table in the bundle.
	PassThrough bool
	// NoDictionary skips the word list and number patterns.
	NoDictionary bool
	// Compounds lets dictionary words chain without a space.
	Compounds bool
}

// Model is everything needed to decode the output of one network: its
// alphabet, the code compressor and an optional dictionary. A Model is
// read-only once built and may be shared between recognizers.
type Model struct {
	Name     string
	Charset  *unichar.Set
	Recoder  *compress.Compressor
	Dict     *dawg.Dict
	NullCode int
}

// ModelInfo summarizes a Model.
type ModelInfo struct {
	Name            string `json:"name"`
	Symbols         int    `json:"symbols"`
	CodeRange       int    `json:"code_range"`
	NullCode        int    `json:"null_code"`
	PassThrough     bool   `json:"pass_through"`
	Dawgs           int    `json:"dawgs"`
	SpaceDelimited  bool   `json:"space_delimited"`
	DictionaryWords int    `json:"dictionary_words"`
}

// NewModel assembles a Model from parts. dict may be nil.
func NewModel(name string, charset *unichar.Set, recoder *compress.Compressor, dict *dawg.Dict) (*Model, error) {
	if charset == nil || recoder == nil {
		return nil, errors.New("charset and recoder are required")
	}
	code, ok := recoder.EncodeUnichar(unichar.NullID)
	if !ok || code.Empty() {
		return nil, ErrNoNullCode
	}
	return &Model{
		Name:     name,
		Charset:  charset,
		Recoder:  recoder,
		Dict:     dict,
		NullCode: code.At(0),
	}, nil
}

// LoadModel reads the assets of b. A recoder file wins over computing the
// encoding; the radical table is only used when computing. A dictionary that
// fails to load is logged and left out.
func LoadModel(b models.Bundle, opts ModelOptions) (*Model, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	charset, err := unichar.LoadSet(b.Unicharset)
	if err != nil {
		return nil, fmt.Errorf("failed to load unicharset: %w", err)
	}
	if opts.Whitelist != "" {
		charset.SetWhitelist(opts.Whitelist)
	}
	if opts.Blacklist != "" {
		charset.SetBlacklist(opts.Blacklist)
	}

	recoder, err := loadRecoder(b, charset, opts.PassThrough)
	if err != nil {
		return nil, err
	}

	var dict *dawg.Dict
	if !opts.NoDictionary && b.HasDictionary() {
		dict, err = loadDict(b, charset, opts.Compounds)
		if err != nil {
			slog.Warn("Continuing without dictionary", "dir", b.Dir, "error", err)
			dict = nil
		}
	}

	name := b.Language
	if name == "" {
		name = "default"
	}
	m, err := NewModel(name, charset, recoder, dict)
	if err != nil {
		return nil, err
	}
	info := m.Info()
	slog.Info("Loaded model",
		"name", info.Name,
		"symbols", info.Symbols,
		"code_range", info.CodeRange,
		"pass_through", info.PassThrough,
		"dawgs", info.Dawgs)
	return m, nil
}

func loadRecoder(b models.Bundle, charset *unichar.Set, passThrough bool) (*compress.Compressor, error) {
	c := compress.New()
	switch {
	case passThrough:
		c.SetupPassThrough(charset)
	case b.Recoder != "":
		loaded, err := compress.Load(b.Recoder)
		if err != nil {
			return nil, fmt.Errorf("failed to load recoder: %w", err)
		}
		if loaded.NumSymbols() != charset.Size() {
			return nil, fmt.Errorf("recoder has %d symbols, unicharset has %d", loaded.NumSymbols(), charset.Size())
		}
		c = loaded
	case b.RadicalTable != "":
		f, err := os.Open(b.RadicalTable) //nolint:gosec // G304: bundle path is user supplied
		if err != nil {
			return nil, fmt.Errorf("failed to open radical table: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := c.ComputeEncoding(charset, unichar.NullID, f); err != nil {
			return nil, fmt.Errorf("failed to compute encoding: %w", err)
		}
	default:
		if err := c.ComputeEncoding(charset, unichar.NullID, nil); err != nil {
			return nil, fmt.Errorf("failed to compute encoding: %w", err)
		}
	}
	return c, nil
}

func loadDict(b models.Bundle, charset *unichar.Set, compounds bool) (*dawg.Dict, error) {
	dict := dawg.NewDict(charset, dawg.WithCompounds(compounds))
	if b.Words != "" {
		words, err := dawg.LoadWordList(b.Words)
		if err != nil {
			return nil, err
		}
		n, err := dict.AddWords(words, dawg.SystemDawgPerm)
		if err != nil {
			return nil, fmt.Errorf("word list %s: %w", b.Words, err)
		}
		slog.Debug("Loaded word list", "path", b.Words, "words", n, "lines", len(words))
	}
	if b.Numbers != "" {
		patterns, err := dawg.LoadWordList(b.Numbers)
		if err != nil {
			return nil, err
		}
		n, err := dict.AddNumberPatterns(patterns)
		if err != nil {
			return nil, fmt.Errorf("number patterns %s: %w", b.Numbers, err)
		}
		slog.Debug("Loaded number patterns", "path", b.Numbers, "patterns", n)
	}
	return dict, nil
}

// LanguageModel returns the dictionary as the search sees it, or a nil
// interface when the model has none.
func (m *Model) LanguageModel() recodebeam.LanguageModel {
	if m.Dict == nil {
		return nil
	}
	return m.Dict
}

// Info returns a summary of the model.
func (m *Model) Info() ModelInfo {
	info := ModelInfo{
		Name:           m.Name,
		Symbols:        m.Charset.Size(),
		CodeRange:      m.Recoder.CodeRange(),
		NullCode:       m.NullCode,
		PassThrough:    m.Recoder.IsPassThrough(),
		SpaceDelimited: m.Charset.IsSpaceDelimitedLanguage(),
	}
	if m.Dict != nil {
		info.Dawgs = m.Dict.NumDawgs()
		for i := range info.Dawgs {
			info.DictionaryWords += m.Dict.Dawg(i).NumWords()
		}
	}
	return info
}

// EncodeText splits text into charset symbols, longest match first, and
// returns their unichar ids and the concatenated code sequence.
func (m *Model) EncodeText(text string) (ids, codes []int, err error) {
	for rest := text; rest != ""; {
		id, size := m.matchSymbol(rest)
		if id == unichar.InvalidID {
			r, _ := utf8.DecodeRuneInString(rest)
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, string(r))
		}
		code, ok := m.Recoder.EncodeUnichar(id)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q has no code", ErrUnknownSymbol, rest[:size])
		}
		ids = append(ids, id)
		codes = append(codes, code.Codes()...)
		rest = rest[size:]
	}
	return ids, codes, nil
}

func (m *Model) matchSymbol(s string) (id, size int) {
	ends := make([]int, 0, maxSymbolRunes)
	for i := range s {
		if i > 0 {
			ends = append(ends, i)
		}
		if len(ends) == maxSymbolRunes {
			break
		}
	}
	if len(ends) < maxSymbolRunes {
		ends = append(ends, len(s))
	}
	for i := len(ends) - 1; i >= 0; i-- {
		if id := m.Charset.UnicharToID(s[:ends[i]]); id != unichar.InvalidID {
			return id, ends[i]
		}
	}
	return unichar.InvalidID, 0
}

// SpellMatrix builds a synthetic output matrix in which the network is
// sure, at probability peak, of each code of text for steps timesteps.
// The caller owns the matrix.
func (m *Model) SpellMatrix(text string, steps int, peak float32) (*netio.Matrix, error) {
	_, codes, err := m.EncodeText(text)
	if err != nil {
		return nil, err
	}
	frames := netio.PeakedFrames(codes, m.NullCode, max(steps, 1), peak)
	return netio.Synthesize(m.Recoder.CodeRange(), frames...)
}
