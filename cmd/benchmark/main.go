package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/MeKo-Tech/recode/internal/benchmark"
	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

func main() {
	var (
		modelsDir  = flag.String("models", models.DefaultModelsDir, "Directory containing the model bundle")
		language   = flag.String("language", "", "Language subdirectory of the models directory")
		iterations = flag.Int("iterations", 20, "Number of decodes per case and variant")
		texts      = flag.String("texts", "", "Comma-separated lines to decode (default: the first dictionary words)")
		peaks      = flag.String("peaks", "0.95,0.6", "Comma-separated peak probabilities to spell each line with")
		outputFile = flag.String("output", "", "Output file for CSV results (optional)")
		noDict     = flag.Bool("no-dict", false, "Ignore the word list and number patterns")
	)
	flag.Parse()

	fmt.Println("recode Decoder Comparison Benchmark")
	fmt.Println("===================================")

	bundle := models.ResolveBundle(*modelsDir, *language)
	if err := bundle.Validate(); err != nil {
		log.Fatalf("Model bundle not usable: %v", err)
	}
	model, err := recognizer.LoadModel(bundle, recognizer.ModelOptions{NoDictionary: *noDict})
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}

	lines := splitList(*texts)
	if len(lines) == 0 {
		lines = defaultLines(bundle)
	}
	if len(lines) == 0 {
		log.Fatal("No lines to decode: pass -texts or provide a word list")
	}

	cmp := benchmark.NewDecoderComparison(model)
	for _, p := range splitList(*peaks) {
		var peak float32
		if _, err := fmt.Sscanf(p, "%g", &peak); err != nil || peak <= 0 || peak > 1 {
			log.Fatalf("Invalid peak %q", p)
		}
		for _, line := range lines {
			cmp.AddCase(benchmark.Case{Name: fmt.Sprintf("%s@%.2f", line, peak), Text: line, Peak: peak})
		}
	}

	fmt.Printf("Running %d iterations per case...\n", *iterations)
	results, err := cmp.RunBenchmark(context.Background(), *iterations)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}
	cmp.PrintDetailedResults(os.Stdout)

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultLines takes the first few entries of the bundle's word list.
func defaultLines(bundle models.Bundle) []string {
	if bundle.Words == "" {
		return nil
	}
	data, err := os.ReadFile(bundle.Words)
	if err != nil {
		return nil
	}
	var out []string
	for _, w := range strings.Fields(string(data)) {
		out = append(out, w)
		if len(out) == 8 {
			break
		}
	}
	return out
}

func saveResultsToFile(filename string, results []benchmark.ComparisonResult) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, _ = fmt.Fprintln(file, "Case,Variant,Expected,Got,Correct,Confidence,Avg_us,Allocs_per_op,Error")
	for _, r := range results {
		errText := ""
		if r.Result.Error != nil {
			errText = r.Result.Error.Error()
		}
		_, _ = fmt.Fprintf(file, "%q,%s,%q,%q,%t,%.4f,%.1f,%.0f,%q\n",
			r.Case, r.Variant, r.Expected, r.Got, r.Correct, r.Confidence,
			float64(r.Result.AvgPerOp().Nanoseconds())/1e3, r.Result.AllocsPerOp(), errText)
	}
	return nil
}
