package recognizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls how decoded text is tidied before it is returned.
type CleanOptions struct {
	NormalizeForm      string // NFC (also when empty), NFKC, NFD, NFKD or NONE
	CollapseWhitespace bool
	Trim               bool
	RemoveControlChars bool // tab, CR and LF survive
	RemoveZeroWidth    bool
	// Language selects typographic replacements: a BCP 47 tag, LanguageAuto
	// to guess per line, or empty for none.
	Language string
}

// LanguageAuto guesses the replacement language per line with DetectLanguage.
const LanguageAuto = "auto"

// DefaultCleanOptions normalizes to NFC and strips invisible characters
// and surplus whitespace.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFC",
		CollapseWhitespace: true,
		Trim:               true,
		RemoveControlChars: true,
		RemoveZeroWidth:    true,
	}
}

// Quotes, dashes and spaces every language folds to ASCII.
var typographic = []string{
	"\u2018", "'", "\u2019", "'",
	"\u201C", "\"", "\u201D", "\"",
	"\u2013", "-", "\u2014", "-",
	"\u00A0", " ", "\u2009", " ",
}

var languageQuotes = map[string][]string{
	"de": {"\u201E", "\""},
	"fr": {"\u00AB", "\"", "\u00BB", "\""},
}

// replacers holds one strings.Replacer per base language. The empty key
// holds the common replacements.
var replacers = map[string]*strings.Replacer{}

func init() {
	replacers[""] = strings.NewReplacer(typographic...)
	for lang, extra := range languageQuotes {
		replacers[lang] = strings.NewReplacer(append(extra, typographic...)...)
	}
}

// replacerFor returns the replacements for a language tag, or nil when
// lang is empty.
func replacerFor(lang string) *strings.Replacer {
	if lang == "" {
		return nil
	}
	base := strings.ToLower(lang)
	if tag, err := language.Parse(lang); err == nil {
		b, _ := tag.Base()
		base = b.String()
	}
	if r, ok := replacers[base]; ok {
		return r
	}
	return replacers[""]
}

var zeroWidth = runes.Predicate(func(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF':
		return true
	}
	return false
})

var strayControl = runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t'
})

// transformer chains the rune level steps of opts. Transformers carry
// state, so every call builds a fresh chain.
func (opts CleanOptions) transformer() transform.Transformer {
	var steps []transform.Transformer
	switch strings.ToUpper(opts.NormalizeForm) {
	case "NFC", "":
		steps = append(steps, norm.NFC)
	case "NFKC":
		steps = append(steps, norm.NFKC)
	case "NFD":
		steps = append(steps, norm.NFD)
	case "NFKD":
		steps = append(steps, norm.NFKD)
	}
	if opts.RemoveZeroWidth {
		steps = append(steps, runes.Remove(zeroWidth))
	}
	if opts.RemoveControlChars {
		steps = append(steps, runes.Remove(strayControl))
	}
	if len(steps) == 0 {
		return transform.Nop
	}
	return transform.Chain(steps...)
}

// PostProcessText applies opts to decoded text.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}
	if out, _, err := transform.String(opts.transformer(), s); err == nil {
		s = out
	}

	lang := opts.Language
	if strings.EqualFold(lang, LanguageAuto) {
		if lang = DetectLanguage(s); lang == "" {
			lang = "en"
		}
	}
	if r := replacerFor(lang); r != nil {
		s = r.Replace(s)
	}

	if opts.CollapseWhitespace {
		s = collapseWhitespace(s)
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}

// collapseWhitespace turns every run of white space into one ASCII space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
