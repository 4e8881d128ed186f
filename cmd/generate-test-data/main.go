package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/testutil"
)

// sampleSymbols is the character set of the generated bundle.
var sampleSymbols = strings.Split("abcdefghijklmnopqrstuvwxyz0123456789.,-", "")

var sampleWords = []string{
	"hello", "world", "decode", "beam", "search", "sample", "the", "quick", "brown", "fox",
}

var sampleNumbers = []string{"#", "##", "###", "#.#", "##.##"}

// fixture records the text a generated matrix should decode to.
type fixture struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	InputFile    string  `json:"input_file"`
	ExpectedText string  `json:"expected_text"`
	Peak         float32 `json:"peak"`
	Noise        float32 `json:"noise"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		generateModels   = flag.Bool("models", true, "Generate the sample model bundle")
		generateMatrices = flag.Bool("matrices", true, "Generate synthetic output matrices and fixtures")
		seed             = flag.Uint64("seed", 1, "Seed for the noisy matrices")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate test data for recode testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -matrices=false    # Only write the model bundle\n", os.Args[0])
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Project root", "path", root)
	}
	if err := os.Chdir(root); err != nil {
		slog.Error("Failed to change to project root", "error", err)
		os.Exit(1)
	}

	modelsDir := filepath.Join("testdata", "models")
	if *generateModels {
		if err := writeBundle(modelsDir); err != nil {
			slog.Error("Failed to write model bundle", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated model bundle", "dir", modelsDir)
	}

	if *generateMatrices {
		n, err := writeMatrices(modelsDir, "testdata", rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))
		if err != nil {
			slog.Error("Failed to generate matrices", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated matrices and fixtures", "count", n)
	}

	slog.Info("Test data generation completed successfully!")
}

func writeBundle(dir string) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	files := map[string][]string{
		models.UnicharsetFile:     sampleSymbols,
		models.WordListFile:       sampleWords,
		models.NumberPatternsFile: sampleNumbers,
	}
	for name, lines := range files {
		body := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// writeMatrices spells every sample line cleanly and with noise, and
// records a fixture for each matrix.
func writeMatrices(modelsDir, outDir string, rng *rand.Rand) (int, error) {
	model, err := recognizer.LoadModel(models.ResolveBundle(modelsDir, ""), recognizer.ModelOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to load generated bundle: %w", err)
	}

	lines := append([]string{"hello world", "the quick brown fox", "beam search 12.5"}, sampleWords[:4]...)
	variants := []struct {
		dir   string
		peak  float32
		noise float32
	}{
		{"clean", 0.95, 0},
		{"noisy", 0.6, 0.3},
	}

	matrixDir := filepath.Join(outDir, "matrices")
	fixturesDir := filepath.Join(outDir, "fixtures")
	if err := testutil.EnsureDir(fixturesDir); err != nil {
		return 0, fmt.Errorf("failed to create fixtures directory: %w", err)
	}

	count := 0
	for _, v := range variants {
		dir := filepath.Join(matrixDir, v.dir)
		if err := testutil.EnsureDir(dir); err != nil {
			return count, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		for _, line := range lines {
			name := strings.ReplaceAll(line, " ", "_")
			m, err := spell(model, line, v.peak, v.noise, rng)
			if err != nil {
				return count, fmt.Errorf("failed to spell %q: %w", line, err)
			}
			path := filepath.Join(dir, name+".json")
			err = netio.SaveFile(path, m)
			m.Release()
			if err != nil {
				return count, err
			}

			f := fixture{
				Name:         v.dir + "_" + name,
				Description:  fmt.Sprintf("%s spelling of %q", v.dir, line),
				InputFile:    filepath.ToSlash(filepath.Join("matrices", v.dir, name+".json")),
				ExpectedText: line,
				Peak:         v.peak,
				Noise:        v.noise,
			}
			if err := saveFixture(f, fixturesDir); err != nil {
				return count, fmt.Errorf("failed to save fixture '%s': %w", f.Name, err)
			}
			count++
		}
	}
	return count, nil
}

// spell builds the matrix for line. With noise > 0 every frame also puts
// that much probability on a random competing code.
func spell(model *recognizer.Model, line string, peak, noise float32, rng *rand.Rand) (*netio.Matrix, error) {
	if noise == 0 {
		return model.SpellMatrix(line, 2, peak)
	}
	_, codes, err := model.EncodeText(line)
	if err != nil {
		return nil, err
	}
	classes := model.Recoder.CodeRange()
	frames := netio.PeakedFrames(codes, model.NullCode, 2, peak)
	for i, frame := range frames {
		rival := rng.IntN(classes)
		if rival == frame[0].Class {
			continue
		}
		frames[i] = append(frame, netio.Peak{Class: rival, Prob: noise})
	}
	return netio.Synthesize(classes, frames...)
}

func saveFixture(f fixture, dir string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, f.Name+".json"), data, 0o600)
}
