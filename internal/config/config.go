// Package config loads and validates the application configuration from a
// YAML file and IMAGE_COMPRESSOR_* environment variables via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure.
type Config struct {
	SourceDirectory     string            `mapstructure:"source_directory"`
	TargetDirectory     string            `mapstructure:"target_directory"`
	SupportedExtensions []string          `mapstructure:"supported_extensions"`
	Factor              FactorConfig      `mapstructure:"factor"`
	Processing          ProcessingConfig  `mapstructure:"processing"`
	Performance         PerformanceConfig `mapstructure:"performance"`
	Logging             LoggingConfig     `mapstructure:"logging"`
}

// FactorConfig mirrors the compressor's Factor parameters. The same ranges
// apply: quality in (0, 100], size_ratio in (0, 1].
type FactorConfig struct {
	Quality   float64 `mapstructure:"quality"`
	SizeRatio float64 `mapstructure:"size_ratio"`
}

// ProcessingConfig contains per-file processing settings.
type ProcessingConfig struct {
	DeleteOriginals  bool    `mapstructure:"delete_originals"`
	CopyUnsupported  bool    `mapstructure:"copy_unsupported"`
	PreserveMetadata bool    `mapstructure:"preserve_metadata"`
	SkipDuplicates   bool    `mapstructure:"skip_duplicates"`
	SizeThreshold    float64 `mapstructure:"size_threshold"`
	DryRun           bool    `mapstructure:"dry_run"`
}

// PerformanceConfig contains performance tuning settings.
type PerformanceConfig struct {
	WorkerThreads int `mapstructure:"worker_threads"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		SupportedExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif",
			".bmp", ".tiff", ".tif", ".webp",
		},
		Factor: FactorConfig{
			Quality:   80,
			SizeRatio: 0.8,
		},
		Processing: ProcessingConfig{
			DeleteOriginals:  false,
			CopyUnsupported:  true,
			PreserveMetadata: false,
			SkipDuplicates:   false,
			SizeThreshold:    1.0,
			DryRun:           false,
		},
		Performance: PerformanceConfig{
			WorkerThreads: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "image-compressor.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compressor")
		viper.AddConfigPath("/etc/image-compressor")
	}

	viper.SetEnvPrefix("IMAGE_COMPRESSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults apply.
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates and normalizes the configuration.
func (c *Config) Validate() error {
	// Positive-form checks reject NaN as well as out-of-range values.
	if !(c.Factor.Quality > 0 && c.Factor.Quality <= 100) {
		return fmt.Errorf("factor.quality must be in (0, 100], got %g", c.Factor.Quality)
	}
	if !(c.Factor.SizeRatio > 0 && c.Factor.SizeRatio <= 1) {
		return fmt.Errorf("factor.size_ratio must be in (0, 1], got %g", c.Factor.SizeRatio)
	}

	if c.Processing.SizeThreshold <= 0 {
		c.Processing.SizeThreshold = 1.0
	}

	if c.Performance.WorkerThreads <= 0 {
		c.Performance.WorkerThreads = 4
	}

	c.SupportedExtensions = normalizeExtensions(c.SupportedExtensions)
	if len(c.SupportedExtensions) == 0 {
		return fmt.Errorf("supported_extensions must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// GetTargetDirectory returns the target directory, falling back to the
// source directory for in-place compression.
func (c *Config) GetTargetDirectory() string {
	if c.TargetDirectory != "" {
		return c.TargetDirectory
	}
	return c.SourceDirectory
}

// IsSupportedExtension checks whether files with the extension are picked
// up by the batch pipeline.
func (c *Config) IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range c.SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}
