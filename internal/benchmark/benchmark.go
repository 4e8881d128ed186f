// Package benchmark measures decoder throughput and compares decoder
// configurations on synthetic lines.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/recode/internal/common"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

// Benchmark represents a benchmark function.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []common.BenchmarkResult
	mu         sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Len returns the number of registered benchmarks.
func (s *Suite) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.benchmarks)
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) common.BenchmarkResult {
	s.mu.Lock()
	var (
		bench Benchmark
		found bool
	)
	for _, b := range s.benchmarks {
		if b.Name == name {
			bench, found = b, true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return common.BenchmarkResult{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
	}
	return runBenchmark(bench, iterations)
}

// RunAll runs every benchmark in registration order.
func (s *Suite) RunAll(iterations int) []common.BenchmarkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]common.BenchmarkResult, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, runBenchmark(b, iterations))
	}
	return s.results
}

func runBenchmark(b Benchmark, iterations int) common.BenchmarkResult {
	runtime.GC()
	memBefore := common.GetMemoryStats()

	timer := common.NewNamedTimer(b.Name)
	var (
		err error
		ran int
	)
	for range iterations {
		ran++
		if err = b.Func(); err != nil {
			break
		}
	}

	return common.BenchmarkResult{
		Name:         b.Name,
		Duration:     timer.Stop(),
		MemoryBefore: memBefore,
		MemoryAfter:  common.GetMemoryStats(),
		Iterations:   ran,
		Error:        err,
	}
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []common.BenchmarkResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// PrintResults writes the last results to w.
func (s *Suite) PrintResults(w io.Writer) {
	fmt.Fprintln(w, "\nBenchmark Results:")
	fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		fmt.Fprintln(w, r.String())
	}
	fmt.Fprintln(w)
}

// Variant is one decoder configuration under comparison.
type Variant struct {
	Name   string
	Config recognizer.Config
}

// Case is one synthetic line: Text spelled with the network certain of
// each code at probability Peak for Steps timesteps.
type Case struct {
	Name  string
	Text  string
	Peak  float32
	Steps int
}

// ComparisonResult is the outcome of one variant on one case.
type ComparisonResult struct {
	Case       string
	Variant    string
	Expected   string
	Got        string
	Correct    bool
	Confidence float64
	Result     common.BenchmarkResult
}

// String returns a one-line summary.
func (r ComparisonResult) String() string {
	if r.Result.Error != nil {
		return fmt.Sprintf("%s / %s: ERROR - %v", r.Case, r.Variant, r.Result.Error)
	}
	mark := "ok"
	if !r.Correct {
		mark = fmt.Sprintf("got %q", r.Got)
	}
	return fmt.Sprintf("%s / %s: avg %v, confidence %.3f, %s",
		r.Case, r.Variant, r.Result.AvgPerOp(), r.Confidence, mark)
}

// DecoderComparison decodes a set of cases with several decoder variants.
type DecoderComparison struct {
	model    *recognizer.Model
	variants []Variant
	cases    []Case
	results  []ComparisonResult
}

// ErrNoCases is returned by RunBenchmark when nothing was added.
var ErrNoCases = errors.New("no benchmark cases")

// NewDecoderComparison creates a comparison over model with DefaultVariants.
func NewDecoderComparison(model *recognizer.Model) *DecoderComparison {
	return &DecoderComparison{model: model, variants: DefaultVariants()}
}

// DefaultVariants compares the greedy decoder with beam searches of
// different widths.
func DefaultVariants() []Variant {
	greedy := recognizer.DefaultConfig()
	greedy.Mode = recognizer.ModeGreedy

	narrow := recognizer.DefaultConfig()
	for i := range narrow.Decoder.BeamWidths {
		narrow.Decoder.BeamWidths[i] = 1
	}

	choices := recognizer.DefaultConfig()
	choices.ChoiceMode = true

	return []Variant{
		{Name: "greedy", Config: greedy},
		{Name: "beam", Config: recognizer.DefaultConfig()},
		{Name: "beam-narrow", Config: narrow},
		{Name: "beam-choices", Config: choices},
	}
}

// SetVariants replaces the variants under comparison.
func (d *DecoderComparison) SetVariants(v []Variant) { d.variants = v }

// AddCase adds a line to decode.
func (d *DecoderComparison) AddCase(c Case) {
	if c.Steps <= 0 {
		c.Steps = 2
	}
	d.cases = append(d.cases, c)
}

// RunBenchmark decodes every case iterations times with every variant.
func (d *DecoderComparison) RunBenchmark(ctx context.Context, iterations int) ([]ComparisonResult, error) {
	if len(d.cases) == 0 {
		return nil, ErrNoCases
	}
	iterations = max(iterations, 1)

	recs := make([]*recognizer.Recognizer, len(d.variants))
	for i, v := range d.variants {
		rec, err := recognizer.NewRecognizer(d.model, v.Config)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		recs[i] = rec
	}

	d.results = make([]ComparisonResult, 0, len(d.cases)*len(d.variants))
	for _, c := range d.cases {
		m, err := d.model.SpellMatrix(c.Text, c.Steps, c.Peak)
		if err != nil {
			return d.results, fmt.Errorf("case %s: %w", c.Name, err)
		}
		for i, v := range d.variants {
			var last *recognizer.LineResult
			res := runBenchmark(Benchmark{Name: c.Name + "/" + v.Name, Func: func() error {
				line, err := recs[i].RecognizeLine(ctx, m)
				if err != nil {
					return err
				}
				if line.Error != "" {
					return errors.New(line.Error)
				}
				last = line
				return nil
			}}, iterations)

			cr := ComparisonResult{Case: c.Name, Variant: v.Name, Expected: c.Text, Result: res}
			if last != nil {
				cr.Got = last.Text
				cr.Correct = last.Text == c.Text
				cr.Confidence = last.Confidence
			}
			d.results = append(d.results, cr)
		}
		m.Release()
		if err := ctx.Err(); err != nil {
			return d.results, err
		}
	}
	return d.results, nil
}

// GetResults returns the results of the last run.
func (d *DecoderComparison) GetResults() []ComparisonResult { return d.results }

// VariantSummary aggregates one variant over all cases.
type VariantSummary struct {
	Variant  string
	Correct  int
	Total    int
	Duration time.Duration
	Ops      int
}

// Accuracy returns the fraction of cases decoded exactly.
func (v VariantSummary) Accuracy() float64 {
	if v.Total == 0 {
		return 0
	}
	return float64(v.Correct) / float64(v.Total)
}

// Summarize aggregates results per variant in variant order.
func (d *DecoderComparison) Summarize() []VariantSummary {
	out := make([]VariantSummary, len(d.variants))
	index := make(map[string]int, len(d.variants))
	for i, v := range d.variants {
		out[i].Variant = v.Name
		index[v.Name] = i
	}
	for _, r := range d.results {
		i, ok := index[r.Variant]
		if !ok {
			continue
		}
		out[i].Total++
		if r.Correct {
			out[i].Correct++
		}
		out[i].Duration += r.Result.Duration
		out[i].Ops += r.Result.Iterations
	}
	return out
}

// PrintDetailedResults writes per-case results and per-variant totals to w.
func (d *DecoderComparison) PrintDetailedResults(w io.Writer) {
	if len(d.results) == 0 {
		fmt.Fprintln(w, "No benchmark results available")
		return
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 72))
	fmt.Fprintln(w, "Decoder Comparison Results")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Model: %s (%d symbols, %d codes)\n",
		d.model.Name, d.model.Charset.Size(), d.model.Recoder.CodeRange())
	fmt.Fprintf(w, "GOOS/GOARCH: %s/%s, NumCPU: %d, Go: %s\n\n",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())

	fmt.Fprintln(w, "Cases:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, r := range d.results {
		fmt.Fprintf(w, "  %s\n", r)
	}

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, s := range d.Summarize() {
		avg := time.Duration(0)
		if s.Ops > 0 {
			avg = s.Duration / time.Duration(s.Ops)
		}
		fmt.Fprintf(w, "  %-14s accuracy %d/%d (%.1f%%), avg %v\n",
			s.Variant, s.Correct, s.Total, s.Accuracy()*100, avg)
	}
	fmt.Fprintln(w)
}
