package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/batch"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/unichar"
)

// SymbolCode is the encoding of one symbol of the input text.
type SymbolCode struct {
	Symbol string `json:"symbol"`
	ID     int    `json:"id"`
	Codes  []int  `json:"codes"`
}

// Encoding is the output of the encode command.
type Encoding struct {
	Text      string       `json:"text"`
	CodeRange int          `json:"code_range"`
	Symbols   []SymbolCode `json:"symbols"`
	Codes     []int        `json:"codes"`
}

func newEncodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Show how text maps onto the model's code sequences",
		Long: `Encode text with the model's recoder and print the code sequence of
every symbol. --table dumps the whole encoder instead, and --save writes
the computed recoder so later loads skip the encoding step.

Examples:
  recode encode "hello world"
  recode encode --format json cat
  recode encode --table
  recode encode --save models/recoder.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.commandConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pass-through") {
				cfg.Model.PassThrough, _ = cmd.Flags().GetBool("pass-through")
			}
			model, err := loadModel(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if path, _ := cmd.Flags().GetString("save"); path != "" {
				if err := model.Recoder.Save(path); err != nil {
					return fmt.Errorf("failed to save recoder: %w", err)
				}
				_, _ = fmt.Fprintf(out, "Recoder written to %s (%d symbols, %d codes)\n",
					path, model.Recoder.NumSymbols(), model.Recoder.CodeRange())
			}
			if table, _ := cmd.Flags().GetBool("table"); table {
				_, err := fmt.Fprint(out, model.Recoder.EncodingString(model.Charset))
				return err
			}
			if len(args) == 0 {
				if cmd.Flags().Changed("save") {
					return nil
				}
				return errors.New("requires text to encode, --table or --save")
			}

			enc, err := encodeText(model, strings.Join(args, " "))
			if err != nil {
				return err
			}
			rendered, err := formatEncoding(enc, cfg.Output.Format)
			if err != nil {
				return err
			}
			return writeOutput(out, cfg.Output.File, rendered)
		},
	}
	addOutputFlags(cmd)
	cmd.Flags().Bool("table", false, "print the full symbol to code table")
	cmd.Flags().String("save", "", "write the recoder to this file")
	cmd.Flags().Bool("pass-through", false, "use one code per symbol instead of the compressed encoding")
	return cmd
}

func encodeText(model *recognizer.Model, text string) (*Encoding, error) {
	ids, codes, err := model.EncodeText(text)
	if err != nil {
		return nil, err
	}
	enc := &Encoding{Text: text, CodeRange: model.Recoder.CodeRange(), Codes: codes}
	for _, id := range ids {
		code, _ := model.Recoder.EncodeUnichar(id)
		sym := model.Charset.IDToUnichar(id)
		if id == unichar.SpaceID {
			sym = unichar.SpaceAlias
		}
		enc.Symbols = append(enc.Symbols, SymbolCode{Symbol: sym, ID: id, Codes: code.Codes()})
	}
	return enc, nil
}

func formatEncoding(enc *Encoding, format string) (string, error) {
	switch format {
	case batch.FormatJSON:
		bts, err := json.MarshalIndent(enc, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	case batch.FormatYAML:
		bts, err := batch.ToYAML(enc)
		return string(bts), err
	case batch.FormatText, "":
		var b strings.Builder
		for _, s := range enc.Symbols {
			fmt.Fprintf(&b, "%s\t%d\t%s\n", s.Symbol, s.ID, joinInts(s.Codes))
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format for encode: %s", format)
	}
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
