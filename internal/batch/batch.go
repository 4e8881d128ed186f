// Package batch decodes many network output matrices in parallel.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ProcessBatch discovers the matrix files under paths and decodes them with
// dec. Unless config.ContinueOnError is set, the first failing file stops
// the batch and is returned as the error alongside the partial result.
func ProcessBatch(ctx context.Context, dec LineDecoder, paths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverMatrixFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover matrix files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoMatrixFiles
	}
	slog.Debug("Discovered matrix files", "count", len(files), "workers", config.Workers)

	var progress ProgressCallback
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgressCallback(os.Stderr, "Decoding: ").WithUpdateInterval(config.ProgressInterval)
	}

	start := time.Now()
	results := processFilesParallel(ctx, dec, files, config.Workers, config.ContinueOnError, progress)
	result := &Result{
		Files:       results,
		Duration:    time.Since(start),
		WorkerCount: min(config.Workers, len(files)),
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if config.OutputDir != "" {
		if err := writeOutputs(config.OutputDir, results, config.Format, config.ConfidencePrecision); err != nil {
			return result, err
		}
	}
	if !config.ContinueOnError {
		if err := result.FirstError(); err != nil {
			return result, fmt.Errorf("batch decoding failed: %w", err)
		}
	}
	return result, nil
}
