package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckDirectoryWritable ensures path is a directory, creating it when
// missing, and verifies write access with a throwaway file.
func CheckDirectoryWritable(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	switch info, err := os.Stat(absPath); {
	case err == nil && !info.IsDir():
		return fmt.Errorf("path %s exists but is not a directory", absPath)
	case os.IsNotExist(err):
		if err := os.MkdirAll(absPath, 0o755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", absPath, err)
		}
	case err != nil:
		return fmt.Errorf("cannot access directory %s: %w", absPath, err)
	}

	f, err := os.CreateTemp(absPath, ".readwhere-write-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", absPath, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

// CheckFileDirectoryWritable checks if the directory containing a file
// path is writable. An empty path is valid for optional file settings.
func CheckFileDirectoryWritable(filePath string, fileType string) error {
	if filePath == "" {
		return nil
	}
	if err := CheckDirectoryWritable(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("%s file directory check failed: %w", fileType, err)
	}
	return nil
}

// EnsureDirs creates the configured data and download directories and
// verifies they are writable, along with the database and log file
// parents.
func (c *Config) EnsureDirs() error {
	if err := CheckDirectoryWritable(c.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := CheckDirectoryWritable(c.DownloadDir); err != nil {
		return fmt.Errorf("download directory check failed: %w", err)
	}
	if err := CheckFileDirectoryWritable(c.DatabasePath, "database"); err != nil {
		return err
	}
	if err := CheckFileDirectoryWritable(c.Log.File, "log"); err != nil {
		return err
	}
	return nil
}
