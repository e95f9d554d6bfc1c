// Package cmd provides the command-line interface for xsltlens with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --max-paths, etc.) - highest priority
//	2. XSLTLENS_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (XSLTLENS_ANALYSIS_MAX_PATHS, etc.)
//	4. Configuration files (.xsltlens.yml) - lowest priority
//
// Environment Variables:
//
//	XSLTLENS_CONFIG_FILE: Path to custom configuration file
//	XSLTLENS_ANALYSIS_MAX_PATHS: Override the path enumeration cap
//	XSLTLENS_ANALYSIS_TIMEOUT: Override the path enumeration timeout
//	XSLTLENS_OUTPUT_FORMAT: Override the report format (json, yaml)
//	And more following the XSLTLENS_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/xsltlens/internal/config"
	"github.com/conneroisu/xsltlens/internal/coordinator"
	"github.com/conneroisu/xsltlens/internal/execution"
	"github.com/conneroisu/xsltlens/internal/logging"
	"github.com/conneroisu/xsltlens/internal/registry"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xsltlens",
	Short: "Static analysis for XSLT stylesheets",
	Long: `Xsltlens statically analyzes XSLT 1.0/2.0 stylesheets without executing
them, producing structured reports on template structure, transformation
patterns, execution paths, and test prioritization.

Key Features:
  • Template and variable extraction with complexity scoring
  • Semantic pattern detection (value mapping, aggregation, recursion, ...)
  • Execution path enumeration with coverage and test-data requirements
  • Batch analysis with cross-file aggregation
  • Watch mode with debounced re-analysis

Quick Start:
  xsltlens analyze transform.xsl   Analyze a single stylesheet
  xsltlens batch ./stylesheets     Analyze a directory tree
  xsltlens watch ./stylesheets     Re-analyze on change

Documentation: https://github.com/conneroisu/xsltlens`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .xsltlens.yml, can also use XSLTLENS_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("format", "", "output format (json, yaml)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. XSLTLENS_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .xsltlens.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("XSLTLENS_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".xsltlens")
	}

	viper.SetEnvPrefix("XSLTLENS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing or malformed config files fall back to defaults without
	// failing the command.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the resolved log level.
func newLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Format: "text",
		Output: os.Stderr,
	})
}

// newCoordinator wires a coordinator from the loaded configuration.
func newCoordinator(cfg *config.Config, logger logging.Logger, reg *registry.AnalysisRegistry) *coordinator.Coordinator {
	return coordinator.New(coordinator.Options{
		Execution: execution.Options{
			MaxPaths: cfg.Analysis.MaxPaths,
			Timeout:  cfg.Analysis.Timeout,
		},
		Concurrency: cfg.Analysis.Concurrency,
		Logger:      logger,
		Registry:    reg,
	})
}
