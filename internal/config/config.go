// Package config loads and validates the host configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cedricziel/readwhere/internal/imaging"
)

// ThumbnailPreset is one named thumbnail parameter bundle, overridable
// per deployment.
type ThumbnailPreset struct {
	MaxWidth  int `yaml:"max_width" mapstructure:"max_width"`
	MaxHeight int `yaml:"max_height" mapstructure:"max_height"`
	Quality   int `yaml:"quality" mapstructure:"quality"`
}

// ThumbnailConfig holds the four named presets.
type ThumbnailConfig struct {
	Cover ThumbnailPreset `yaml:"cover" mapstructure:"cover"`
	Grid  ThumbnailPreset `yaml:"grid" mapstructure:"grid"`
	Small ThumbnailPreset `yaml:"small" mapstructure:"small"`
	Large ThumbnailPreset `yaml:"large" mapstructure:"large"`
	// Workers bounds the batch thumbnail pool.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	// File enables rotated file logging when set; empty logs to stderr.
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// Config is the host configuration.
type Config struct {
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// DatabasePath is the plugin-storage SQLite file.
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`

	// DataDir is the root under which each plugin gets a private
	// directory; DownloadDir is shared by all plugins.
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	DownloadDir string `yaml:"download_dir" mapstructure:"download_dir"`

	// SealKeyHex is the 64-hex-char key encrypting stored credentials.
	SealKeyHex string `yaml:"seal_key" mapstructure:"seal_key"`

	// FormatPriority orders acquisition formats best-first. The
	// default mirrors the historical fixed order; deployments may
	// reorder it.
	FormatPriority []string `yaml:"format_priority" mapstructure:"format_priority"`

	Thumbnails ThumbnailConfig `yaml:"thumbnails" mapstructure:"thumbnails"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
		DatabasePath:   "readwhere.db",
		DataDir:        "data",
		DownloadDir:    "downloads",
		FormatPriority: []string{"epub", "cbz", "cbr", "pdf"},
		Thumbnails: ThumbnailConfig{
			Cover:   presetFrom(imaging.PresetCover),
			Grid:    presetFrom(imaging.PresetGrid),
			Small:   presetFrom(imaging.PresetSmall),
			Large:   presetFrom(imaging.PresetLarge),
			Workers: 4,
		},
	}
}

func presetFrom(o imaging.Options) ThumbnailPreset {
	return ThumbnailPreset{MaxWidth: o.MaxWidth, MaxHeight: o.MaxHeight, Quality: o.Quality}
}

// Options converts a preset to imaging options.
func (p ThumbnailPreset) Options() imaging.Options {
	return imaging.Options{MaxWidth: p.MaxWidth, MaxHeight: p.MaxHeight, Quality: p.Quality, Format: imaging.ThumbnailJPEG}
}

// Load reads the config file at path, layering it over defaults. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

var knownFormats = map[string]struct{}{"epub": {}, "cbz": {}, "cbr": {}, "pdf": {}}

// Validate checks invariants a running host depends on.
func (c *Config) Validate() error {
	if _, ok := validLogLevels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir cannot be empty")
	}
	if c.SealKeyHex != "" && len(c.SealKeyHex) != 64 {
		return fmt.Errorf("seal_key must be 64 hex characters, got %d", len(c.SealKeyHex))
	}
	if len(c.FormatPriority) == 0 {
		return fmt.Errorf("format_priority cannot be empty")
	}
	seen := map[string]struct{}{}
	for _, f := range c.FormatPriority {
		f = strings.ToLower(f)
		if _, ok := knownFormats[f]; !ok {
			return fmt.Errorf("unknown format %q in format_priority", f)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("duplicate format %q in format_priority", f)
		}
		seen[f] = struct{}{}
	}
	for name, p := range map[string]ThumbnailPreset{
		"cover": c.Thumbnails.Cover,
		"grid":  c.Thumbnails.Grid,
		"small": c.Thumbnails.Small,
		"large": c.Thumbnails.Large,
	} {
		if p.MaxWidth <= 0 || p.MaxHeight <= 0 {
			return fmt.Errorf("thumbnail preset %q must have positive bounds", name)
		}
		if p.Quality < 1 || p.Quality > 100 {
			return fmt.Errorf("thumbnail preset %q quality must be 1-100", name)
		}
	}
	return nil
}

// PreferFormat returns the better of two formats under the configured
// priority order; unknown formats rank last.
func (c *Config) PreferFormat(a, b string) string {
	ra, rb := c.formatRank(a), c.formatRank(b)
	if rb < ra {
		return b
	}
	return a
}

func (c *Config) formatRank(f string) int {
	f = strings.ToLower(strings.TrimPrefix(f, "."))
	for i, known := range c.FormatPriority {
		if strings.ToLower(known) == f {
			return i
		}
	}
	return len(c.FormatPriority)
}
