package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/xsltlens/internal/config"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:     "analyze <stylesheet>",
	Aliases: []string{"a"},
	Short:   "Analyze a single XSLT stylesheet",
	Long: `Run the full analysis pipeline over one stylesheet: parsing, semantic
pattern detection, and execution path enumeration. The report is written to
stdout in the configured output format.

Examples:
  xsltlens analyze transform.xsl
  xsltlens analyze transform.xsl --format yaml
  xsltlens analyze transform.xsl --max-paths 500`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyzeCommand,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Int("max-paths", 0, "Maximum execution paths to enumerate per stylesheet")
	analyzeCmd.Flags().Duration("timeout", 0, "Wall-clock limit for path enumeration")
	viper.BindPFlag("analysis.max_paths", analyzeCmd.Flags().Lookup("max-paths"))
	viper.BindPFlag("analysis.timeout", analyzeCmd.Flags().Lookup("timeout"))
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger()
	coord := newCoordinator(cfg, logger, nil)

	analysis, err := coord.AnalyzeFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return writeReport(os.Stdout, cfg, analysis)
}
