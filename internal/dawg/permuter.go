package dawg

// Permuter identifies the mechanism that endorsed a decoded word or symbol.
type Permuter int

const (
	NoPerm Permuter = iota
	PuncPerm
	TopChoicePerm
	LowerCasePerm
	UpperCasePerm
	NgramPerm
	NumberPerm
	UserPatternPerm
	SystemDawgPerm
	DocDawgPerm
	UserDawgPerm
	FreqDawgPerm
	CompoundPerm
)

var permuterNames = [...]string{
	NoPerm:          "none",
	PuncPerm:        "punctuation",
	TopChoicePerm:   "top_choice",
	LowerCasePerm:   "lower_case",
	UpperCasePerm:   "upper_case",
	NgramPerm:       "ngram",
	NumberPerm:      "number",
	UserPatternPerm: "user_pattern",
	SystemDawgPerm:  "system_dict",
	DocDawgPerm:     "doc_dict",
	UserDawgPerm:    "user_dict",
	FreqDawgPerm:    "freq_dict",
	CompoundPerm:    "compound",
}

func (p Permuter) String() string {
	if p < 0 || int(p) >= len(permuterNames) {
		return "unknown"
	}
	return permuterNames[p]
}

// IsDictionary reports whether p means the word was found in a dictionary.
func (p Permuter) IsDictionary() bool {
	switch p {
	case SystemDawgPerm, DocDawgPerm, UserDawgPerm, FreqDawgPerm, CompoundPerm, NumberPerm:
		return true
	case NoPerm, PuncPerm, TopChoicePerm, LowerCasePerm, UpperCasePerm, NgramPerm, UserPatternPerm:
		return false
	}
	return false
}

// rank orders permuters when several positions accept the same letter.
func (p Permuter) rank() int {
	switch p {
	case SystemDawgPerm, UserDawgPerm, FreqDawgPerm, DocDawgPerm:
		return 4
	case CompoundPerm:
		return 3
	case NumberPerm, UserPatternPerm:
		return 2
	case PuncPerm:
		return 1
	case NoPerm, TopChoicePerm, LowerCasePerm, UpperCasePerm, NgramPerm:
		return 0
	}
	return 0
}
