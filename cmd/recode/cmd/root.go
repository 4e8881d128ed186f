// Package cmd implements the recode command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/recode/internal/config"
	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/version"
)

// app carries the state shared by one command tree: the configuration
// loader bound to the tree's flags and the configuration it produced.
type app struct {
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the recode command tree.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	rootCmd := &cobra.Command{
		Use:   "recode",
		Short: "Beam search decoder for LSTM line recognition output",
		Long: `recode turns the per-timestep class probabilities of an LSTM line
recognizer into text. It compresses the character set into short code
sequences, searches them with a dictionary-aware beam search and reports
the best line together with word boxes, confidences and alternatives.

Examples:
  recode decode line.json
  recode decode --mode greedy --format json line.txt
  recode batch matrices/ --recursive --workers 8
  recode encode "hello world"
  recode serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			setupLogging(cmd, a.cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				ver, commit, date := version.Info()
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "recode version %s\n", ver)
				_, _ = fmt.Fprintf(out, "Commit: %s\n", commit)
				_, _ = fmt.Fprintf(out, "Date: %s\n", date)
				return nil
			}
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/recode, /etc/recode)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("models-dir", models.DefaultModelsDir,
		"directory containing the model bundle (can also be set via "+models.EnvModelsDir+")")
	flags.String("language", "", "language subdirectory of the models directory")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("models_dir", flags.Lookup("models-dir"))
	_ = v.BindPFlag("language", flags.Lookup("language"))

	rootCmd.AddCommand(
		newDecodeCmd(a),
		newBatchCmd(a),
		newEncodeCmd(a),
		newSynthCmd(a),
		newModelsCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig reads the config file and environment.
func (a *app) initConfig() error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// config returns the loaded configuration, loading it on first use.
func (a *app) config() (*config.Config, error) {
	if a.cfg == nil {
		if err := a.initConfig(); err != nil {
			return nil, err
		}
	}
	return a.cfg, nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// errNoModel is returned when the models directory holds no unicharset.
var errNoModel = errors.New("no model bundle found")

// loadModel loads the configured bundle.
func loadModel(cfg *config.Config) (*recognizer.Model, error) {
	bundle := cfg.Bundle()
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w in %s: %w", errNoModel, bundle.Dir, err)
	}
	model, err := recognizer.LoadModel(bundle, cfg.ToModelOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return model, nil
}

// loadRecognizer loads the configured bundle and wraps it in a recognizer.
func loadRecognizer(cfg *config.Config) (*recognizer.Recognizer, error) {
	model, err := loadModel(cfg)
	if err != nil {
		return nil, err
	}
	rec, err := recognizer.NewRecognizer(model, cfg.ToRecognizerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	return rec, nil
}
