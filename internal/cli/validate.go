package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/internal/platform"
	"github.com/sdejongh/mediakit/pkg/config"
	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/output"
	"github.com/sdejongh/mediakit/pkg/ratelimit"
	"github.com/sdejongh/mediakit/pkg/storage"
)

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config) {
	if globalFlags.Output != "" {
		cfg.Output.Format = globalFlags.Output
	}
	if globalFlags.Bandwidth != "" {
		cfg.Storage.BandwidthLimit = globalFlags.Bandwidth
	}
	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Line-by-line output in verbose mode so log lines are not overdrawn
	if globalFlags.Verbose {
		cfg.Output.Progress = false
	}
}

// consoleLevel maps -v and -q to the console log level
func consoleLevel() logging.Level {
	switch {
	case globalFlags.Verbose:
		return logging.DebugLevel
	case globalFlags.Quiet:
		return logging.ErrorLevel
	default:
		return logging.WarnLevel
	}
}

// createLogger builds the console logger and, when a log file is
// configured, tees it with a rotating file logger
func createLogger(cfg *config.Config) (logging.Logger, error) {
	console := logging.NewConsoleLogger(os.Stderr, consoleLevel())
	if cfg.Logging.File == "" {
		return console, nil
	}

	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}
	file, err := logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      logging.ParseLevel(cfg.Logging.Level),
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, err
	}
	return logging.NewTee(console, file), nil
}

// createFormatter picks the console formatter for the configured output
func createFormatter(cfg *config.Config) (output.Formatter, error) {
	if cfg.Output.Quiet && cfg.Output.Format != "json" {
		return output.Discard{}, nil
	}
	return output.New(cfg.Output.Format, cfg.Output.Progress, os.Stdout)
}

// session bundles what every media command needs
type session struct {
	cfg       *config.Config
	logger    logging.Logger
	formatter output.Formatter
	backend   *storage.Local
}

// newSession loads the configuration and builds logger, formatter and
// filesystem backend. Close must be called when the command ends.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	formatter, err := createFormatter(cfg)
	if err != nil {
		return nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	backend, err := storage.NewLocal(wd)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	// validated above
	bps, _ := ratelimit.ParseRate(cfg.Storage.BandwidthLimit)
	backend.SetBandwidthLimit(ratelimit.NewLimiter(bps))

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &session{cfg: cfg, logger: logger, formatter: formatter, backend: backend}, nil
}

// batchOutput makes a JSON formatter emit a single document for a run over
// several folders. The returned function writes it.
func (s *session) batchOutput(folders int) func() {
	jf, ok := s.formatter.(*output.JSONFormatter)
	if !ok || folders < 2 {
		return func() {}
	}
	jf.Batch()
	return func() {
		if err := jf.Flush(); err != nil {
			s.logger.Error(context.Background(), "Failed to write JSON output", err, nil)
		}
	}
}

// notes returns where plain status lines go: stderr when stdout carries JSON
func (s *session) notes(cmd *cobra.Command) io.Writer {
	if s.cfg.Output.Format == "json" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func (s *session) Close() {
	s.backend.Close()
	s.logger.Close()
}

// resolveDir picks the flag value or the configured fallback and checks it
// names an existing directory
func resolveDir(what, value, fallback string) (string, error) {
	if value == "" {
		value = fallback
	}
	if value == "" {
		return "", fmt.Errorf("no %s folder given and none configured", what)
	}
	value = platform.ExpandHome(value)
	if err := platform.ValidateDir(value); err != nil {
		return "", fmt.Errorf("%s folder: %w", what, err)
	}
	return filepath.Abs(value)
}

// resolveTarget is resolveDir for folders that may not exist yet
func resolveTarget(what, value, fallback string) (string, error) {
	if value == "" {
		value = fallback
	}
	if value == "" {
		return "", fmt.Errorf("no %s folder given and none configured", what)
	}
	value = platform.ExpandHome(value)
	if err := platform.ValidatePath(value); err != nil {
		return "", fmt.Errorf("%s folder: %w", what, err)
	}
	return filepath.Abs(value)
}

// validateSourceTarget rejects a target equal to the source
func validateSourceTarget(source, target string) error {
	if platform.NormalizePath(source) == platform.NormalizePath(target) {
		return fmt.Errorf("source and target cannot be the same: %s", source)
	}
	return nil
}
