package config

import (
	"testing"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelsDir != models.DefaultModelsDir {
		t.Errorf("Expected models_dir %s, got %s", models.DefaultModelsDir, cfg.ModelsDir)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Decoder.Mode != "beam" {
		t.Errorf("Expected decoder mode 'beam', got %s", cfg.Decoder.Mode)
	}
	if len(cfg.Decoder.BeamWidths) != 10 || cfg.Decoder.BeamWidths[0] != 5 || cfg.Decoder.BeamWidths[1] != 10 {
		t.Errorf("Unexpected default beam widths %v", cfg.Decoder.BeamWidths)
	}
	if cfg.Decoder.DictRatio < 2.24 || cfg.Decoder.DictRatio > 2.26 {
		t.Errorf("Expected dict_ratio 2.25, got %f", cfg.Decoder.DictRatio)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Expected output format 'text', got %s", cfg.Output.Format)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Expected batch workers 4, got %d", cfg.Batch.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestValidate covers each rejected setting.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"output format", func(c *Config) { c.Output.Format = "xml" }},
		{"precision", func(c *Config) { c.Output.ConfidencePrecision = 9 }},
		{"mode", func(c *Config) { c.Decoder.Mode = "viterbi" }},
		{"no beam widths", func(c *Config) { c.Decoder.BeamWidths = nil }},
		{"too many beam widths", func(c *Config) { c.Decoder.BeamWidths = make([]int, 11) }},
		{"zero beam width", func(c *Config) { c.Decoder.BeamWidths = []int{5, 0} }},
		{"dict ratio", func(c *Config) { c.Decoder.DictRatio = 0 }},
		{"min certainty", func(c *Config) { c.Decoder.MinCertainty = 1 }},
		{"scale factor", func(c *Config) { c.Decoder.ScaleFactor = 0 }},
		{"choice threshold", func(c *Config) { c.Decoder.ChoiceThreshold = 2 }},
		{"min confidence", func(c *Config) { c.Decoder.MinConfidence = -0.1 }},
		{"normalize form", func(c *Config) { c.Decoder.Clean.NormalizeForm = "NFX" }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }},
		{"rate limit", func(c *Config) {
			c.Server.RateLimit.Enabled = true
			c.Server.RateLimit.RequestsPerMinute = 0
		}},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

// TestValidate_NormalizeFormCaseInsensitive accepts lower case forms and none.
func TestValidate_NormalizeFormCaseInsensitive(t *testing.T) {
	for _, form := range []string{"", "nfc", "NFKD", "none"} {
		cfg := DefaultConfig()
		cfg.Decoder.Clean.NormalizeForm = form
		if err := cfg.Validate(); err != nil {
			t.Errorf("form %q: unexpected error %v", form, err)
		}
	}
}

// TestToRecognizerConfig verifies the conversion and beam width padding.
func TestToRecognizerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Decoder.Mode = "greedy"
	cfg.Decoder.BeamWidths = []int{3, 7}
	cfg.Decoder.DictRatio = 1.5
	cfg.Decoder.ChoiceMode = true
	cfg.Decoder.MinConfidence = 0.4
	cfg.Decoder.ScaleFactor = 4
	cfg.Decoder.Clean.Language = "de"

	rc := cfg.ToRecognizerConfig()
	if rc.Mode != recognizer.ModeGreedy {
		t.Errorf("Expected greedy mode, got %s", rc.Mode)
	}
	if rc.Decoder.BeamWidths[0] != 3 || rc.Decoder.BeamWidths[1] != 7 || rc.Decoder.BeamWidths[9] != 7 {
		t.Errorf("Unexpected beam widths %v", rc.Decoder.BeamWidths)
	}
	if rc.Decoder.DictRatio != 1.5 {
		t.Errorf("Expected dict ratio 1.5, got %f", rc.Decoder.DictRatio)
	}
	if !rc.ChoiceMode || !rc.Decoder.TrackChoices {
		t.Error("Expected choice mode to enable choice tracking")
	}
	if rc.MinConfidence != 0.4 || rc.ScaleFactor != 4 {
		t.Errorf("Unexpected min confidence %f or scale %f", rc.MinConfidence, rc.ScaleFactor)
	}
	if rc.Clean.Language != "de" {
		t.Errorf("Expected clean language de, got %s", rc.Clean.Language)
	}
	if err := rc.Validate(); err != nil {
		t.Errorf("Converted config should validate: %v", err)
	}
}

// TestToModelOptions verifies the model option conversion.
func TestToModelOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ModelConfig{PassThrough: true, NoDictionary: true, Whitelist: "abc", Blacklist: "x"}
	opts := cfg.ToModelOptions()
	if !opts.PassThrough || !opts.NoDictionary || opts.Whitelist != "abc" || opts.Blacklist != "x" {
		t.Errorf("Unexpected model options %+v", opts)
	}
}

// TestBundle resolves against the configured directory.
func TestBundle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = t.TempDir()
	b := cfg.Bundle()
	if b.Dir != cfg.ModelsDir {
		t.Errorf("Expected bundle dir %s, got %s", cfg.ModelsDir, b.Dir)
	}
	if err := b.Validate(); err == nil {
		t.Error("Expected empty bundle to fail validation")
	}
}
