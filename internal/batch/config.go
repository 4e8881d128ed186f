package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultIncludePatterns match the matrix file formats netio reads.
var DefaultIncludePatterns = []string{"*.json", "*.txt", "*.tsv"}

// Config holds all configuration for batch decoding.
type Config struct {
	// Parallel processing
	Workers         int
	ContinueOnError bool

	// File discovery
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output
	Format              string
	OutputFile          string
	OutputDir           string
	ConfidencePrecision int

	// Progress
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// DefaultConfig returns the batch defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:             4,
		IncludePatterns:     DefaultIncludePatterns,
		Format:              FormatText,
		ConfidencePrecision: 2,
		ProgressInterval:    100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if !IsValidFormat(c.Format) {
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	if c.ConfidencePrecision < 0 || c.ConfidencePrecision > 6 {
		return fmt.Errorf("confidence precision must be between 0 and 6, got %d", c.ConfidencePrecision)
	}
	return nil
}

// Result holds the result of batch decoding.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a Result.
type Stats struct {
	Total      int
	Decoded    int
	Failed     int
	Rejected   int
	Workers    int
	Duration   time.Duration
	AvgPerFile time.Duration
	Throughput float64 // files per second
}

// Stats computes summary statistics.
func (r *Result) Stats() Stats {
	s := Stats{Total: len(r.Files), Workers: r.WorkerCount, Duration: r.Duration}
	for _, f := range r.Files {
		switch {
		case f.Failed():
			s.Failed++
		case f.Line.Rejected:
			s.Rejected++
			s.Decoded++
		default:
			s.Decoded++
		}
	}
	if s.Total > 0 {
		s.AvgPerFile = r.Duration / time.Duration(s.Total)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.Throughput = float64(s.Total) / secs
	}
	return s
}

// FirstError returns the first per-file failure, or nil.
func (r *Result) FirstError() error {
	for _, f := range r.Files {
		if f.Failed() {
			return fmt.Errorf("%s: %s", f.File, f.ErrorText())
		}
	}
	return nil
}

// FormatResults formats the batch results in the specified format.
func (r *Result) FormatResults(format string, precision int) (string, error) {
	return formatBatchResults(r.Files, format, precision)
}

// SaveResults writes the formatted results to outputFile, or to stdout when
// outputFile is empty.
func (r *Result) SaveResults(stdout io.Writer, format, outputFile string, precision int, quiet bool) error {
	output, err := r.FormatResults(format, precision)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err := fmt.Fprint(stdout, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(stdout, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Decoded: %d\n", s.Decoded)
	_, _ = fmt.Fprintf(w, "  Rejected: %d\n", s.Rejected)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", s.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per file: %v\n", s.AvgPerFile.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", s.Throughput)
}

// ErrNoMatrixFiles is returned when discovery finds nothing to decode.
var ErrNoMatrixFiles = errors.New("no matrix files found")
