package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/recode/internal/compress"
	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recodebeam"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

// Valid values for enumerated settings.
var (
	ValidLogLevels      = []string{"debug", "info", "warn", "error"}
	ValidOutputFormats  = []string{"text", "json", "yaml", "csv"}
	ValidDecodeModes    = []string{string(recognizer.ModeBeam), string(recognizer.ModeGreedy)}
	ValidNormalizeForms = []string{"NFC", "NFKC", "NFD", "NFKD", "NONE"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Verbose:   false,
		Decoder:   defaultDecoderConfig(),
		Output: OutputConfig{
			Format:              "text",
			ConfidencePrecision: 2,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 600,
				RequestsPerHour:   10000,
				MaxRequestsPerDay: 100000,
				MaxDataPerDayMB:   1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
	}
}

// defaultDecoderConfig mirrors recognizer.DefaultConfig.
func defaultDecoderConfig() DecoderConfig {
	cfg := recognizer.DefaultConfig()
	return DecoderConfig{
		Mode:            string(cfg.Mode),
		BeamWidths:      slices.Clone(cfg.Decoder.BeamWidths[:]),
		MinCertainty:    float64(cfg.Decoder.MinCertainty),
		DictRatio:       float64(cfg.Decoder.DictRatio),
		CertOffset:      float64(cfg.Decoder.CertOffset),
		WorstDictCert:   float64(cfg.Decoder.WorstDictCert),
		SimpleText:      cfg.Decoder.SimpleText,
		ChoiceMode:      cfg.ChoiceMode,
		ChoiceThreshold: float64(cfg.Decoder.ChoiceThreshold),
		MinConfidence:   cfg.MinConfidence,
		ScaleFactor:     float64(cfg.ScaleFactor),
		Clean: CleanConfig{
			NormalizeForm:      cfg.Clean.NormalizeForm,
			CollapseWhitespace: cfg.Clean.CollapseWhitespace,
			Trim:               cfg.Clean.Trim,
			RemoveControlChars: cfg.Clean.RemoveControlChars,
			RemoveZeroWidth:    cfg.Clean.RemoveZeroWidth,
			Language:           cfg.Clean.Language,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(ValidLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(ValidLogLevels, ", "))
	}

	if c.Output.Format != "" && !slices.Contains(ValidOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(ValidOutputFormats, ", "))
	}
	if c.Output.ConfidencePrecision < 0 || c.Output.ConfidencePrecision > 6 {
		return fmt.Errorf("invalid confidence precision: %d (must be between 0 and 6)", c.Output.ConfidencePrecision)
	}

	if err := c.validateDecoder(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.RequestsPerMinute <= 0 || rl.RequestsPerHour <= 0) {
		return fmt.Errorf("invalid rate limit: %d/min %d/hour (must be positive)", rl.RequestsPerMinute, rl.RequestsPerHour)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

func (c *Config) validateDecoder() error {
	d := c.Decoder
	if !slices.Contains(ValidDecodeModes, d.Mode) {
		return fmt.Errorf("invalid decoder mode: %s (must be one of: %s)", d.Mode, strings.Join(ValidDecodeModes, ", "))
	}
	if len(d.BeamWidths) == 0 || len(d.BeamWidths) > compress.MaxCodeLen+1 {
		return fmt.Errorf("invalid decoder.beam_widths: %d entries (must be 1 to %d)", len(d.BeamWidths), compress.MaxCodeLen+1)
	}
	for _, w := range d.BeamWidths {
		if w <= 0 {
			return fmt.Errorf("invalid decoder.beam_widths entry: %d (must be positive)", w)
		}
	}
	if d.DictRatio <= 0 {
		return fmt.Errorf("invalid decoder.dict_ratio: %.2f (must be positive)", d.DictRatio)
	}
	if d.MinCertainty > 0 {
		return fmt.Errorf("invalid decoder.min_certainty: %.2f (must not be positive)", d.MinCertainty)
	}
	if d.ScaleFactor <= 0 {
		return fmt.Errorf("invalid decoder.scale_factor: %.2f (must be positive)", d.ScaleFactor)
	}
	if err := validateThreshold(d.ChoiceThreshold, "decoder.choice_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(d.MinConfidence, "decoder.min_confidence"); err != nil {
		return err
	}
	if f := strings.ToUpper(d.Clean.NormalizeForm); f != "" && !slices.Contains(ValidNormalizeForms, f) {
		return fmt.Errorf("invalid decoder.clean.normalize_form: %s (must be one of: %s)",
			d.Clean.NormalizeForm, strings.Join(ValidNormalizeForms, ", "))
	}
	return nil
}

// ToRecognizerConfig converts to recognizer.Config.
func (c *Config) ToRecognizerConfig() recognizer.Config {
	d := c.Decoder
	cfg := recognizer.DefaultConfig()
	cfg.Mode = recognizer.Mode(d.Mode)
	cfg.MinConfidence = d.MinConfidence
	cfg.ChoiceMode = d.ChoiceMode
	cfg.ScaleFactor = float32(d.ScaleFactor)
	cfg.Decoder = c.toSearchConfig()
	cfg.Clean = recognizer.CleanOptions{
		NormalizeForm:      d.Clean.NormalizeForm,
		CollapseWhitespace: d.Clean.CollapseWhitespace,
		Trim:               d.Clean.Trim,
		RemoveControlChars: d.Clean.RemoveControlChars,
		RemoveZeroWidth:    d.Clean.RemoveZeroWidth,
		Language:           d.Clean.Language,
	}
	return cfg
}

// toSearchConfig converts to recodebeam.Config, padding the beam widths.
func (c *Config) toSearchConfig() recodebeam.Config {
	d := c.Decoder
	cfg := recodebeam.DefaultConfig()
	if n := len(d.BeamWidths); n > 0 {
		for i := range cfg.BeamWidths {
			cfg.BeamWidths[i] = d.BeamWidths[min(i, n-1)]
		}
	}
	cfg.MinCertainty = float32(d.MinCertainty)
	cfg.DictRatio = float32(d.DictRatio)
	cfg.CertOffset = float32(d.CertOffset)
	cfg.WorstDictCert = float32(d.WorstDictCert)
	cfg.SimpleText = d.SimpleText
	cfg.TrackChoices = d.ChoiceMode
	cfg.ChoiceThreshold = float32(d.ChoiceThreshold)
	cfg.Debug = d.Debug
	return cfg
}

// ToModelOptions converts to recognizer.ModelOptions.
func (c *Config) ToModelOptions() recognizer.ModelOptions {
	return recognizer.ModelOptions{
		Whitelist:    c.Model.Whitelist,
		Blacklist:    c.Model.Blacklist,
		PassThrough:  c.Model.PassThrough,
		NoDictionary: c.Model.NoDictionary,
		Compounds:    c.Model.Compounds,
	}
}

// Bundle resolves the model bundle the configuration points at.
func (c *Config) Bundle() models.Bundle {
	return models.ResolveBundle(c.ModelsDir, c.Language)
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
