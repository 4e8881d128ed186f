package recognizer

import (
	"strings"
	"unicode"
)

// Letters that mark a language among the Latin scripts the typographic
// replacements know about.
var markerLetters = []struct {
	lang    string
	letters string
}{
	{"de", "äöüÄÖÜß"},
	{"fr", "èêàùçÈÀÇ"},
	{"es", "áíóúñÁÍÓÚÑ"},
}

// DetectLanguage guesses a base language ("en", "de", "fr" or "es") from
// the letters of s. It returns "" when no language has a clear lead.
func DetectLanguage(s string) string {
	var letters, ascii int
	votes := make([]int, len(markerLetters))
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r <= unicode.MaxASCII {
			ascii++
			continue
		}
		for i, m := range markerLetters {
			if strings.ContainsRune(m.letters, r) {
				votes[i]++
			}
		}
	}
	if letters == 0 {
		return ""
	}

	best, leaders := 0, 0
	for i, v := range votes {
		switch {
		case v > votes[best]:
			best, leaders = i, 1
		case v > 0 && v == votes[best]:
			leaders++
		}
	}
	if leaders == 1 {
		return markerLetters[best].lang
	}
	return fallbackLanguage(ascii, letters)
}

// fallbackLanguage reports English for mostly ASCII text.
func fallbackLanguage(ascii, letters int) string {
	if ascii*5 > letters*4 {
		return "en"
	}
	return ""
}
