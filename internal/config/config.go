package config

import (
	"os"
	"path/filepath"
	"strconv"

	"noema/internal/errors"
)

// Config is the complete, immutable configuration for one pipeline run.
// It is constructed once at startup from flags and environment and threaded
// into the orchestrator as a value; nothing reads ambient process state
// after this point.
type Config struct {
	// DataDir is the input directory scanned for data files.
	DataDir string
	// OutDir is the directory all report artifacts are written to.
	OutDir string
	// FileOverride, when set, restricts the run to a single file resolved
	// relative to DataDir (absolute paths are used as-is).
	FileOverride string
	// ColumnLimit caps the number of kept columns per file. 0 = unlimited.
	ColumnLimit int
	// Clean purges prior artifacts from OutDir before the run, preserving
	// CleanKeep.
	Clean bool
	// CleanKeep lists output filenames that survive a cleanup: the combined
	// report and the persisted document templates.
	CleanKeep []string

	// Report metadata.
	Title  string
	Author string

	// ServeAddr is the listen address for the report server.
	ServeAddr string
}

// Load builds a Config from environment variables with defaults matching
// the original pipeline layout (data/ in, reports/ out).
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:      getEnvOrDefault("NOEMA_DATA_DIR", "data"),
		OutDir:       getEnvOrDefault("NOEMA_OUT_DIR", "reports"),
		FileOverride: "",
		ColumnLimit:  getEnvIntOrDefault("NOEMA_COLUMN_LIMIT", 0),
		Clean:        getEnvBoolOrDefault("NOEMA_CLEAN", false),
		CleanKeep:    []string{"REPORT.md", "noema-report.qd", "dashboard.qd"},
		Title:        getEnvOrDefault("NOEMA_TITLE", "Noema Analysis Report"),
		Author:       getEnvOrDefault("NOEMA_AUTHOR", "Noema-Bot"),
		ServeAddr:    getEnvOrDefault("NOEMA_SERVE_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable for a run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.ConfigInvalid("data directory is required")
	}
	if c.OutDir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if c.ColumnLimit < 0 {
		return errors.ConfigInvalid("column limit cannot be negative")
	}
	return nil
}

// ImgDir returns the directory histogram artifacts are written to.
func (c *Config) ImgDir() string {
	return filepath.Join(c.OutDir, "img")
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
