// Package config provides configuration management for the xsltlens CLI
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with XSLTLENS_ prefix, and validation. It manages analysis
// bounds, scan paths, output formatting, and watch-mode options.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Analysis    AnalysisConfig `yaml:"analysis"`
	Scan        ScanConfig     `yaml:"scan"`
	Output      OutputConfig   `yaml:"output"`
	Watch       WatchConfig    `yaml:"watch"`
	TargetFiles []string       `yaml:"-"` // CLI arguments, not from config file
}

type AnalysisConfig struct {
	// MaxPaths caps execution path enumeration per stylesheet.
	MaxPaths int `yaml:"max_paths"`
	// Timeout bounds path enumeration wall-clock time. Zero picks the
	// 30 second default.
	Timeout time.Duration `yaml:"timeout"`
	// Concurrency limits the batch worker pool. Zero picks a CPU-based
	// default.
	Concurrency int `yaml:"concurrency"`
}

type ScanConfig struct {
	Paths           []string `yaml:"paths"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

type OutputConfig struct {
	Format string `yaml:"format"` // "json" or "yaml"
	Pretty bool   `yaml:"pretty"`
}

type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Underscore keys do not survive viper's Unmarshal field matching, so
	// read them explicitly (workaround for viper key handling).
	if viper.IsSet("analysis.max_paths") {
		config.Analysis.MaxPaths = viper.GetInt("analysis.max_paths")
	}
	if viper.IsSet("analysis.timeout") {
		config.Analysis.Timeout = viper.GetDuration("analysis.timeout")
	}
	if viper.IsSet("analysis.concurrency") {
		config.Analysis.Concurrency = viper.GetInt("analysis.concurrency")
	}
	if viper.IsSet("scan.paths") {
		config.Scan.Paths = viper.GetStringSlice("scan.paths")
	}
	if viper.IsSet("scan.exclude_patterns") {
		config.Scan.ExcludePatterns = viper.GetStringSlice("scan.exclude_patterns")
	}
	if viper.IsSet("output.format") {
		config.Output.Format = viper.GetString("output.format")
	}
	if viper.IsSet("output.pretty") {
		config.Output.Pretty = viper.GetBool("output.pretty")
	} else {
		config.Output.Pretty = true
	}
	if viper.IsSet("watch.debounce_ms") {
		config.Watch.DebounceMs = viper.GetInt("watch.debounce_ms")
	}

	if len(config.Scan.Paths) == 0 {
		config.Scan.Paths = []string{"."}
	}
	if len(config.Scan.ExcludePatterns) == 0 {
		config.Scan.ExcludePatterns = []string{"*.bak", "node_modules", ".git"}
	}
	if config.Analysis.MaxPaths == 0 {
		config.Analysis.MaxPaths = 10000
	}
	if config.Analysis.Timeout == 0 {
		config.Analysis.Timeout = 30 * time.Second
	}
	if config.Output.Format == "" {
		config.Output.Format = "json"
	}
	config.Output.Format = strings.ToLower(config.Output.Format)
	if config.Watch.DebounceMs == 0 {
		config.Watch.DebounceMs = 300
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for correctness.
func validateConfig(config *Config) error {
	if config.Analysis.MaxPaths < 0 {
		return fmt.Errorf("analysis config: max_paths must not be negative, got %d", config.Analysis.MaxPaths)
	}
	if config.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis config: timeout must not be negative, got %s", config.Analysis.Timeout)
	}
	if config.Analysis.Concurrency < 0 {
		return fmt.Errorf("analysis config: concurrency must not be negative, got %d", config.Analysis.Concurrency)
	}

	switch strings.ToLower(config.Output.Format) {
	case "json", "yaml":
	default:
		return fmt.Errorf("output config: unsupported format %q (want json or yaml)", config.Output.Format)
	}

	if config.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch config: debounce_ms must not be negative, got %d", config.Watch.DebounceMs)
	}

	for _, path := range config.Scan.Paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("scan config: empty scan path")
		}
	}

	return nil
}
