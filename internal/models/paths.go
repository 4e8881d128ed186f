package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Asset file names inside a model bundle directory.
const (
	UnicharsetFile     = "unicharset.txt"
	RecoderFile        = "recoder.bin"
	RadicalTableFile   = "radical-stroke.txt"
	WordListFile       = "words.txt"
	NumberPatternsFile = "numbers.txt"
)

// Asset kinds.
const (
	KindCharset    = "charset"
	KindRecoder    = "recoder"
	KindRadicals   = "radicals"
	KindDictionary = "dictionary"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "RECODE_MODELS_DIR"

// ErrNoUnicharset is returned when a bundle has no unicharset file.
var ErrNoUnicharset = errors.New("bundle has no " + UnicharsetFile)

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// AssetInfo describes one file of a model bundle.
type AssetInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Filename    string `json:"filename"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Path        string `json:"path,omitempty"`
	Present     bool   `json:"present"`
}

// GetModelsDir returns the models directory path from various sources
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveAssetPath resolves an asset filename inside the models directory.
// A language sub directory is preferred over the flat layout when the file
// exists there.
func ResolveAssetPath(modelsDir, language, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	if language != "" {
		p := filepath.Join(baseDir, language, filename)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return filepath.Join(baseDir, filename)
}

// Bundle holds the resolved paths of a model's assets. Optional assets
// that do not exist are left empty.
type Bundle struct {
	Dir          string `json:"dir"`
	Language     string `json:"language,omitempty"`
	Unicharset   string `json:"unicharset"`
	Recoder      string `json:"recoder,omitempty"`
	RadicalTable string `json:"radical_table,omitempty"`
	Words        string `json:"words,omitempty"`
	Numbers      string `json:"numbers,omitempty"`
}

// ResolveBundle locates the assets of a model bundle.
func ResolveBundle(modelsDir, language string) Bundle {
	b := Bundle{Dir: GetModelsDir(modelsDir), Language: language}
	optional := func(name string) string {
		p := ResolveAssetPath(b.Dir, language, name)
		if _, err := os.Stat(p); err != nil {
			return ""
		}
		return p
	}
	b.Unicharset = ResolveAssetPath(b.Dir, language, UnicharsetFile)
	b.Recoder = optional(RecoderFile)
	b.RadicalTable = optional(RadicalTableFile)
	b.Words = optional(WordListFile)
	b.Numbers = optional(NumberPatternsFile)
	return b
}

// Validate checks that the required assets exist.
func (b Bundle) Validate() error {
	if b.Unicharset == "" {
		return ErrNoUnicharset
	}
	if err := ValidateModelExists(b.Unicharset); err != nil {
		return fmt.Errorf("%w: %w", ErrNoUnicharset, err)
	}
	return nil
}

// HasDictionary reports whether the bundle carries a word list or number
// patterns.
func (b Bundle) HasDictionary() bool { return b.Words != "" || b.Numbers != "" }

// Assets lists every known asset together with its resolved state.
func (b Bundle) Assets() []AssetInfo {
	out := ListAssets()
	for i := range out {
		var p string
		switch out[i].Filename {
		case UnicharsetFile:
			p = b.Unicharset
		case RecoderFile:
			p = b.Recoder
		case RadicalTableFile:
			p = b.RadicalTable
		case WordListFile:
			p = b.Words
		case NumberPatternsFile:
			p = b.Numbers
		}
		out[i].Path = p
		if p != "" {
			_, err := os.Stat(p)
			out[i].Present = err == nil
		}
	}
	return out
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAssets returns information about the assets a bundle may hold.
func ListAssets() []AssetInfo {
	return []AssetInfo{
		{
			Name:        "unicharset",
			Kind:        KindCharset,
			Filename:    UnicharsetFile,
			Required:    true,
			Description: "One symbol per line, in network output order",
		},
		{
			Name:        "recoder",
			Kind:        KindRecoder,
			Filename:    RecoderFile,
			Description: "Serialized symbol to code compressor",
		},
		{
			Name:        "radical-stroke",
			Kind:        KindRadicals,
			Filename:    RadicalTableFile,
			Description: "Han radical and stroke table used to build a recoder",
		},
		{
			Name:        "words",
			Kind:        KindDictionary,
			Filename:    WordListFile,
			Description: "System word list",
		},
		{
			Name:        "numbers",
			Kind:        KindDictionary,
			Filename:    NumberPatternsFile,
			Description: "Number patterns, '#' matches any digit",
		},
	}
}
