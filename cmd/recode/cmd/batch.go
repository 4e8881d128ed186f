package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/batch"
	"github.com/MeKo-Tech/recode/internal/config"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Decode many matrix files in parallel",
		Long: `Decode many network output matrices in parallel.

Directories are scanned for files matching --include (default *.json,
*.txt, *.tsv). Unless --continue-on-error is given, the first file that
cannot be decoded stops the batch.

Examples:
  recode batch lines/*.json
  recode batch lines/ --recursive --workers 8
  recode batch lines/ --format csv --output results.csv
  recode batch lines/ --output-dir decoded/ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.commandConfig(cmd)
			if err != nil {
				return err
			}
			bc := configToBatchConfig(cfg, cmd)

			rec, err := loadRecognizer(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !bc.Quiet && bc.ShowProgress {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Decoding %d inputs...\n", len(args))
			}

			result, batchErr := batch.ProcessBatch(cmd.Context(), rec, args, bc)
			if result == nil {
				return fmt.Errorf("batch decoding failed: %w", batchErr)
			}
			if err := result.SaveResults(out, bc.Format, bc.OutputFile, bc.ConfidencePrecision, bc.Quiet); err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}
			if bc.ShowStats && !bc.Quiet {
				result.PrintStats(cmd.ErrOrStderr())
			}
			return batchErr
		},
	}

	addDecoderFlags(cmd)
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: config or %d)", runtime.NumCPU()))
	f.BoolP("recursive", "r", false, "recursively scan directories")
	f.StringSlice("include", batch.DefaultIncludePatterns, "file patterns to include")
	f.StringSlice("exclude", []string{}, "file patterns to exclude")
	f.String("output-dir", "", "write one result file per input into this directory")
	f.Bool("continue-on-error", false, "keep decoding after a file fails")
	f.Bool("progress", false, "show progress bar")
	f.Bool("quiet", false, "suppress progress output")
	f.Bool("stats", false, "show processing statistics")
	f.Duration("progress-interval", 100*time.Millisecond, "progress update interval")
	return cmd
}

// configToBatchConfig maps the configuration and batch flags to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	f := cmd.Flags()

	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.ConfidencePrecision = cfg.Output.ConfidencePrecision

	bc.Workers = cfg.Batch.Workers
	if f.Changed("workers") {
		bc.Workers, _ = f.GetInt("workers")
	}
	bc.Recursive = cfg.Batch.Recursive
	if f.Changed("recursive") {
		bc.Recursive, _ = f.GetBool("recursive")
	}
	bc.OutputDir = cfg.Batch.OutputDir
	if f.Changed("output-dir") {
		bc.OutputDir, _ = f.GetString("output-dir")
	}
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if f.Changed("continue-on-error") {
		bc.ContinueOnError, _ = f.GetBool("continue-on-error")
	}

	bc.IncludePatterns, _ = f.GetStringSlice("include")
	bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.ShowStats, _ = f.GetBool("stats")
	bc.ProgressInterval, _ = f.GetDuration("progress-interval")
	return bc
}
