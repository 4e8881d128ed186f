package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/recode/internal/common"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

// LineDecoder decodes one output matrix. *recognizer.Recognizer satisfies it.
type LineDecoder interface {
	RecognizeLine(ctx context.Context, m *netio.Matrix) (*recognizer.LineResult, error)
}

// FileResult is the outcome for one matrix file.
type FileResult struct {
	File       string                 `json:"file"`
	Line       *recognizer.LineResult `json:"line,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs float64                `json:"duration_ms"`
}

// Failed reports whether the file could not be read or decoded.
func (f FileResult) Failed() bool {
	return f.Error != "" || f.Line == nil || f.Line.Error != ""
}

// ErrorText returns the file or decode error.
func (f FileResult) ErrorText() string {
	if f.Error != "" {
		return f.Error
	}
	if f.Line != nil {
		return f.Line.Error
	}
	return "no result"
}

// decodeFile loads and decodes one matrix file.
func decodeFile(ctx context.Context, dec LineDecoder, path string) (res FileResult) {
	timer := common.NewTimer()
	res.File = path
	defer func() {
		timer.Stop()
		res.DurationMs = timer.Millis()
	}()

	m, err := netio.LoadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer m.Release()

	line, err := dec.RecognizeLine(ctx, m)
	if err != nil {
		res.Error = fmt.Sprintf("decode failed: %v", err)
		return res
	}
	res.Line = line
	return res
}

type fileJob struct {
	index int
	path  string
}

// processFilesParallel decodes files on a pool of workers and returns the
// results in input order. Unless continueOnError is set the first failure
// stops the remaining work; files never reached are reported as skipped.
func processFilesParallel(ctx context.Context, dec LineDecoder, files []string, workers int,
	continueOnError bool, progress ProgressCallback) []FileResult {
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, len(files))
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress.OnStart(len(files))
	defer progress.OnComplete()

	jobs := make(chan fileJob)
	results := make([]FileResult, len(files))
	done := make([]bool, len(files))

	var (
		mu        sync.Mutex
		completed int
		wg        sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				r := decodeFile(ctx, dec, job.path)
				mu.Lock()
				results[job.index] = r
				done[job.index] = true
				completed++
				n := completed
				mu.Unlock()

				if r.Failed() {
					slog.Warn("Failed to decode matrix file", "file", job.path, "error", r.ErrorText())
					progress.OnError(n, fmt.Errorf("%s: %s", job.path, r.ErrorText()))
					if !continueOnError {
						cancel()
					}
				}
				progress.OnProgress(n, len(files))
			}
		}()
	}

feed:
	for i, path := range files {
		select {
		case jobs <- fileJob{index: i, path: path}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := range results {
		if !done[i] {
			results[i] = FileResult{File: files[i], Error: "skipped"}
		}
	}
	return results
}

// writeOutputs stores one formatted result per input file in dir, named
// after the input with the format's extension.
func writeOutputs(dir string, files []FileResult, format string, precision int) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	ext := "." + format
	if format == FormatText || format == "" {
		ext = ".txt"
	}
	for _, f := range files {
		if f.Line == nil {
			continue
		}
		out, err := FormatLine(f.Line, format, precision)
		if err != nil {
			return err
		}
		base := filepath.Base(f.File)
		name := strings.TrimSuffix(base, filepath.Ext(base)) + ext
		if err := os.WriteFile(filepath.Join(dir, name), []byte(out), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
