package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"epub", "cbz", "cbr", "pdf"}, cfg.FormatPriority)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log:
  level: debug
database_path: /tmp/rw.db
format_priority: [cbz, epub, cbr, pdf]
thumbnails:
  cover:
    max_width: 900
    max_height: 1200
    quality: 92
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/rw.db", cfg.DatabasePath)
	assert.Equal(t, []string{"cbz", "epub", "cbr", "pdf"}, cfg.FormatPriority)
	assert.Equal(t, 900, cfg.Thumbnails.Cover.MaxWidth)
	assert.Equal(t, 92, cfg.Thumbnails.Cover.Quality)
	// Untouched presets keep defaults.
	assert.Equal(t, Default().Thumbnails.Grid, cfg.Thumbnails.Grid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.DatabasePath = "" },
			wantErr: "database_path",
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data_dir",
		},
		{
			name:    "bad seal key length",
			mutate:  func(c *Config) { c.SealKeyHex = "abcd" },
			wantErr: "seal_key",
		},
		{
			name:    "empty format priority",
			mutate:  func(c *Config) { c.FormatPriority = nil },
			wantErr: "format_priority cannot be empty",
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.FormatPriority = []string{"cbz", "djvu"} },
			wantErr: "unknown format",
		},
		{
			name:    "duplicate format",
			mutate:  func(c *Config) { c.FormatPriority = []string{"cbz", "cbz"} },
			wantErr: "duplicate format",
		},
		{
			name:    "zero thumbnail bounds",
			mutate:  func(c *Config) { c.Thumbnails.Small.MaxWidth = 0 },
			wantErr: "positive bounds",
		},
		{
			name:    "quality out of range",
			mutate:  func(c *Config) { c.Thumbnails.Large.Quality = 101 },
			wantErr: "quality must be 1-100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.FormatPriority = []string{"cbr", "cbz", "epub", "pdf"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPreferFormat(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "epub", cfg.PreferFormat("epub", "cbz"))
	assert.Equal(t, "epub", cfg.PreferFormat("cbz", "epub"))
	assert.Equal(t, "cbz", cfg.PreferFormat("cbz", "pdf"))
	// Extension-style and case-insensitive inputs.
	assert.Equal(t, ".CBZ", cfg.PreferFormat(".CBZ", "pdf"))
	// Unknown formats rank last.
	assert.Equal(t, "pdf", cfg.PreferFormat("djvu", "pdf"))

	cfg.FormatPriority = []string{"cbr", "cbz", "epub", "pdf"}
	assert.Equal(t, "cbr", cfg.PreferFormat("epub", "cbr"))
}

func TestCheckDirectoryWritable(t *testing.T) {
	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sub", "dir")
		require.NoError(t, CheckDirectoryWritable(dir))
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects file path", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "f")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		err := CheckDirectoryWritable(file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("empty path", func(t *testing.T) {
		require.Error(t, CheckDirectoryWritable(""))
	})
}
