package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/config"
)

// addDecoderFlags registers the flags that tune model loading and decoding.
func addDecoderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("mode", "beam", "decoder: beam or greedy")
	f.IntSlice("beam-width", nil, "beam size per partial code length (last value repeats)")
	f.Float64("min-confidence", 0, "reject lines below this confidence (0..1)")
	f.Bool("choices", false, "record per-timestep alternatives")
	f.Bool("simple-text", false, "treat every timestep as a new code (no CTC duplicates)")
	f.String("whitelist", "", "only emit these characters")
	f.String("blacklist", "", "never emit these characters")
	f.Bool("pass-through", false, "use one code per symbol instead of the compressed encoding")
	f.Bool("no-dict", false, "ignore the word list and number patterns")
}

// applyDecoderFlags copies changed decoder flags over cfg and validates
// the result.
func applyDecoderFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("mode") {
		cfg.Decoder.Mode, _ = f.GetString("mode")
	}
	if f.Changed("beam-width") {
		cfg.Decoder.BeamWidths, _ = f.GetIntSlice("beam-width")
	}
	if f.Changed("min-confidence") {
		cfg.Decoder.MinConfidence, _ = f.GetFloat64("min-confidence")
	}
	if f.Changed("choices") {
		cfg.Decoder.ChoiceMode, _ = f.GetBool("choices")
	}
	if f.Changed("simple-text") {
		cfg.Decoder.SimpleText, _ = f.GetBool("simple-text")
	}
	if f.Changed("whitelist") {
		cfg.Model.Whitelist, _ = f.GetString("whitelist")
	}
	if f.Changed("blacklist") {
		cfg.Model.Blacklist, _ = f.GetString("blacklist")
	}
	if f.Changed("pass-through") {
		cfg.Model.PassThrough, _ = f.GetBool("pass-through")
	}
	if f.Changed("no-dict") {
		cfg.Model.NoDictionary, _ = f.GetBool("no-dict")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid decoder settings: %w", err)
	}
	return nil
}

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml, csv")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

// applyOutputFlags copies changed output flags over cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		cfg.Output.File, _ = f.GetString("output")
	}
}

// commandConfig returns a copy of the loaded configuration with the
// command's flags applied.
func (a *app) commandConfig(cmd *cobra.Command) (*config.Config, error) {
	base, err := a.config()
	if err != nil {
		return nil, err
	}
	cfg := *base
	if cmd.Flags().Lookup("format") != nil {
		applyOutputFlags(cmd, &cfg)
	}
	if cmd.Flags().Lookup("mode") != nil {
		if err := applyDecoderFlags(cmd, &cfg); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
