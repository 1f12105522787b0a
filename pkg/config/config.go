package config

import (
	"fmt"
	"strings"

	"github.com/sdejongh/mediakit/pkg/catalog"
	"github.com/sdejongh/mediakit/pkg/device"
	"github.com/sdejongh/mediakit/pkg/metadata"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/ratelimit"
	"github.com/sdejongh/mediakit/pkg/transcode"
)

// Config represents the application configuration
type Config struct {
	Catalog   CatalogConfig            `yaml:"catalog"`
	Metadata  MetadataConfig           `yaml:"metadata"`
	Transcode TranscodeConfig          `yaml:"transcode"`
	Dedupe    DedupeConfig             `yaml:"dedupe"`
	Prune     PruneConfig              `yaml:"prune"`
	Devices   map[string]device.Device `yaml:"devices"`
	Pull      PullConfig               `yaml:"pull"`
	Storage   StorageConfig            `yaml:"storage"`
	Output    OutputConfig             `yaml:"output"`
	Logging   LoggingConfig            `yaml:"logging"`
}

// CatalogConfig holds catalog settings
type CatalogConfig struct {
	Source     string   `yaml:"source"`
	Target     string   `yaml:"target"`
	Extensions []string `yaml:"extensions"`
	// Compare decides how a name clash is classified: "hash" or "size"
	Compare string `yaml:"compare"`
}

// MetadataConfig holds capture-date extraction settings
type MetadataConfig struct {
	Reader       string `yaml:"reader"` // "auto", "exiftool" or "goexif"
	ExifToolPath string `yaml:"exiftool_path"`
	Workers      int    `yaml:"workers"` // 0 = number of CPUs
	ChunkSize    int    `yaml:"chunk_size"`
}

// TranscodeConfig holds encoder settings
type TranscodeConfig struct {
	FFmpegPath        string           `yaml:"ffmpeg_path"`
	FFprobePath       string           `yaml:"ffprobe_path"`
	ProgressStep      float64          `yaml:"progress_step"`
	OnCorruptManifest string           `yaml:"on_corrupt_manifest"`
	VideoDirs         []string         `yaml:"video_dirs"`
	AudioDirs         []string         `yaml:"audio_dirs"`
	TrashDir          string           `yaml:"trash_dir"`
	Video             transcode.Params `yaml:"video"`
	Audio             transcode.Params `yaml:"audio"`
}

// DedupeConfig holds keep-raw folders
type DedupeConfig struct {
	ImagesDir     string `yaml:"images_dir"`
	DuplicatesDir string `yaml:"duplicates_dir"`
	TrashedDir    string `yaml:"trashed_dir"`
}

// PruneConfig holds the default prune root
type PruneConfig struct {
	Root string `yaml:"root"`
}

// PullConfig holds device transfer settings
type PullConfig struct {
	SourceDirs []string `yaml:"source_dirs"`
	TargetDir  string   `yaml:"target_dir"`
	ADBPath    string   `yaml:"adb_path"`
}

// StorageConfig holds filesystem settings
type StorageConfig struct {
	// BandwidthLimit caps moves that cross filesystems, e.g. "20M" (empty = unlimited)
	BandwidthLimit string `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars on terminals
	Quiet    bool   `yaml:"quiet"`    // Only errors on the console
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = console only)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Extensions: append([]string(nil), catalog.DefaultExtensions...),
			Compare:    "hash",
		},
		Metadata: MetadataConfig{
			Reader:    metadata.ReaderAuto,
			ChunkSize: metadata.DefaultChunkSize,
		},
		Transcode: TranscodeConfig{
			ProgressStep:      transcode.DefaultProgressStep,
			OnCorruptManifest: transcode.CorruptWarn,
			Video:             transcode.VideoProfile().Params,
			Audio:             transcode.AudioProfile().Params,
		},
		Devices: map[string]device.Device{},
		Pull: PullConfig{
			SourceDirs: append([]string(nil), device.DefaultSourceDirs...),
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for _, ext := range c.Catalog.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return &models.ValidationError{
				Field:   "catalog.extensions",
				Message: fmt.Sprintf("%q must start with a dot", ext),
			}
		}
	}

	validCompare := map[string]bool{"hash": true, "size": true}
	if !validCompare[c.Catalog.Compare] {
		return &models.ValidationError{
			Field:   "catalog.compare",
			Message: "must be 'hash' or 'size'",
		}
	}

	validReaders := map[string]bool{metadata.ReaderAuto: true, metadata.ReaderExifTool: true, metadata.ReaderGoExif: true}
	if !validReaders[c.Metadata.Reader] {
		return &models.ValidationError{
			Field:   "metadata.reader",
			Message: "must be 'auto', 'exiftool', or 'goexif'",
		}
	}

	if c.Metadata.Workers < 0 {
		return &models.ValidationError{
			Field:   "metadata.workers",
			Message: "must not be negative",
		}
	}

	if c.Metadata.ChunkSize < 1 {
		return &models.ValidationError{
			Field:   "metadata.chunk_size",
			Message: "must be at least 1",
		}
	}

	if c.Transcode.ProgressStep < 0 || c.Transcode.ProgressStep > 100 {
		return &models.ValidationError{
			Field:   "transcode.progress_step",
			Message: "must be between 0 and 100",
		}
	}

	validPolicies := map[string]bool{transcode.CorruptWarn: true, transcode.CorruptAbort: true}
	if !validPolicies[c.Transcode.OnCorruptManifest] {
		return &models.ValidationError{
			Field:   "transcode.on_corrupt_manifest",
			Message: "must be 'warn' or 'abort'",
		}
	}

	for name, d := range c.Devices {
		if strings.TrimSpace(d.Serial) == "" {
			return &models.ValidationError{
				Field:   "devices." + name + ".serial",
				Message: "must not be empty",
			}
		}
	}

	if _, err := ratelimit.ParseRate(c.Storage.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "storage.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation settings must not be negative",
		}
	}

	return nil
}

// Profile returns the transcode profile for kind with the configured parameters
func (c *Config) Profile(kind string) (transcode.Profile, error) {
	p, err := transcode.ProfileFor(kind)
	if err != nil {
		return p, err
	}
	switch p.Kind {
	case transcode.KindVideo:
		p.Params = c.Transcode.Video
	case transcode.KindAudio:
		p.Params = c.Transcode.Audio
	}
	return p, nil
}
