//nolint:lll
package config

// Config represents the complete configuration for the recode application.
// It includes settings for all commands (decode, batch, encode, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	Language  string `mapstructure:"language" yaml:"language" json:"language"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Model bundle handling
	Model ModelConfig `mapstructure:"model" yaml:"model" json:"model"`

	// Decoder configuration
	Decoder DecoderConfig `mapstructure:"decoder" yaml:"decoder" json:"decoder"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ModelConfig controls how the model bundle is loaded.
type ModelConfig struct {
	PassThrough  bool   `mapstructure:"pass_through" yaml:"pass_through" json:"pass_through"`
	NoDictionary bool   `mapstructure:"no_dictionary" yaml:"no_dictionary" json:"no_dictionary"`
	Compounds    bool   `mapstructure:"compounds" yaml:"compounds" json:"compounds"`
	Whitelist    string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	Blacklist    string `mapstructure:"blacklist" yaml:"blacklist" json:"blacklist"`
}

// DecoderConfig contains beam search and line recognition settings.
type DecoderConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`
	// BeamWidths lists the heap size per partial code length. A shorter list
	// repeats its last entry.
	BeamWidths      []int   `mapstructure:"beam_widths" yaml:"beam_widths" json:"beam_widths"`
	MinCertainty    float64 `mapstructure:"min_certainty" yaml:"min_certainty" json:"min_certainty"`
	DictRatio       float64 `mapstructure:"dict_ratio" yaml:"dict_ratio" json:"dict_ratio"`
	CertOffset      float64 `mapstructure:"cert_offset" yaml:"cert_offset" json:"cert_offset"`
	WorstDictCert   float64 `mapstructure:"worst_dict_cert" yaml:"worst_dict_cert" json:"worst_dict_cert"`
	SimpleText      bool    `mapstructure:"simple_text" yaml:"simple_text" json:"simple_text"`
	ChoiceMode      bool    `mapstructure:"choice_mode" yaml:"choice_mode" json:"choice_mode"`
	ChoiceThreshold float64 `mapstructure:"choice_threshold" yaml:"choice_threshold" json:"choice_threshold"`
	MinConfidence   float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	ScaleFactor     float64 `mapstructure:"scale_factor" yaml:"scale_factor" json:"scale_factor"`
	Debug           bool    `mapstructure:"debug" yaml:"debug" json:"debug"`

	Clean CleanConfig `mapstructure:"clean" yaml:"clean" json:"clean"`
}

// CleanConfig contains decoded text post-processing settings.
type CleanConfig struct {
	NormalizeForm      string `mapstructure:"normalize_form" yaml:"normalize_form" json:"normalize_form"`
	CollapseWhitespace bool   `mapstructure:"collapse_whitespace" yaml:"collapse_whitespace" json:"collapse_whitespace"`
	Trim               bool   `mapstructure:"trim" yaml:"trim" json:"trim"`
	RemoveControlChars bool   `mapstructure:"remove_control_chars" yaml:"remove_control_chars" json:"remove_control_chars"`
	RemoveZeroWidth    bool   `mapstructure:"remove_zero_width" yaml:"remove_zero_width" json:"remove_zero_width"`
	Language           string `mapstructure:"language" yaml:"language" json:"language"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"`
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
}
