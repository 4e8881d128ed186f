package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/batch"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

const stdinName = "-"

func newDecodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [files...]",
		Short: "Decode network output matrices into text",
		Long: `Decode one or more network output matrices into text.

A matrix is either JSON ({"classes":C,"outputs":[[...],...]}) or plain
text with one timestep per line. Rows may hold probabilities or logits.
Use "-" to read a single matrix from standard input.

Examples:
  recode decode line.json
  recode decode --format json --choices line.json
  recode decode --mode greedy a.json b.txt
  cat line.txt | recode decode -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.commandConfig(cmd)
			if err != nil {
				return err
			}
			rec, err := loadRecognizer(cfg)
			if err != nil {
				return err
			}

			precision := cfg.Output.ConfidencePrecision
			results := make([]batch.FileResult, 0, len(args))
			for _, path := range args {
				results = append(results, decodeInput(cmd.Context(), rec, cmd.InOrStdin(), path))
			}

			var out string
			if len(results) == 1 && results[0].Line != nil {
				out, err = batch.FormatLine(results[0].Line, cfg.Output.Format, precision)
			} else {
				res := &batch.Result{Files: results, WorkerCount: 1}
				out, err = res.FormatResults(cfg.Output.Format, precision)
			}
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), cfg.Output.File, out); err != nil {
				return err
			}

			for _, r := range results {
				if r.Failed() {
					return fmt.Errorf("%s: %s", r.File, r.ErrorText())
				}
			}
			return nil
		},
	}
	addDecoderFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// decodeInput reads and decodes the matrix at path, or stdin for "-".
func decodeInput(ctx context.Context, rec *recognizer.Recognizer, stdin io.Reader, path string) (res batch.FileResult) {
	start := time.Now()
	res.File = path
	defer func() { res.DurationMs = float64(time.Since(start).Microseconds()) / 1000 }()

	var (
		m   *netio.Matrix
		err error
	)
	if path == stdinName {
		m, err = readMatrix(stdin)
	} else {
		m, err = netio.LoadFile(path)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer m.Release()

	line, err := rec.RecognizeLine(ctx, m)
	if err != nil {
		res.Error = fmt.Sprintf("decode failed: %v", err)
		return res
	}
	res.Line = line
	return res
}

// readMatrix sniffs r: input starting with '{' is JSON, anything else text.
func readMatrix(r io.Reader) (*netio.Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, netio.ErrEmptyMatrix
	}
	if trimmed[0] == '{' {
		return netio.ReadJSON(bytes.NewReader(trimmed))
	}
	return netio.ReadText(bytes.NewReader(trimmed))
}

// writeOutput writes out to file, or to stdout when file is empty.
func writeOutput(stdout io.Writer, file, out string) error {
	if file == "" {
		_, err := io.WriteString(stdout, out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
