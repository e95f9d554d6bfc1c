package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/xsltlens/internal/config"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:     "batch [paths...]",
	Aliases: []string{"b"},
	Short:   "Analyze multiple stylesheets with cross-file aggregation",
	Long: `Discover XSLT stylesheets under the given paths (or the configured scan
paths when none are given), analyze them concurrently, and report per-file
results plus cross-file aggregation: templates referenced from multiple
files and patterns shared across files.

One file's failure never stops the batch; failures are reported in the
result's error map.

Examples:
  xsltlens batch ./stylesheets
  xsltlens batch a.xsl b.xsl c.xsl
  xsltlens batch ./stylesheets --concurrency 4`,
	RunE: runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "Number of parallel analysis workers (0 = CPU count, capped at 8)")
	batchCmd.Flags().Int("max-paths", 0, "Maximum execution paths to enumerate per stylesheet")
	batchCmd.Flags().Duration("timeout", 0, "Wall-clock limit for path enumeration per stylesheet")
	viper.BindPFlag("analysis.concurrency", batchCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("analysis.max_paths", batchCmd.Flags().Lookup("max-paths"))
	viper.BindPFlag("analysis.timeout", batchCmd.Flags().Lookup("timeout"))
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	roots := args
	if len(roots) == 0 {
		roots = cfg.Scan.Paths
	}

	paths, err := discoverStylesheets(roots, cfg.Scan.ExcludePatterns)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no stylesheets found under %s", strings.Join(roots, ", "))
	}

	logger := newLogger()
	coord := newCoordinator(cfg, logger, nil)

	batch := coord.AnalyzeBatch(cmd.Context(), paths)

	if err := writeReport(os.Stdout, cfg, batch); err != nil {
		return err
	}

	if len(batch.Errors) > 0 {
		return fmt.Errorf("%d of %d files failed analysis", len(batch.Errors), batch.Summary.FileCount)
	}
	return nil
}

// discoverStylesheets expands the given roots into a sorted, deduplicated
// list of stylesheet files. Files are taken as-is; directories are walked
// recursively for .xsl and .xslt files, skipping excluded names.
func discoverStylesheets(roots, excludePatterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if excluded(path, excludePatterns) {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".xsl", ".xslt":
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func excluded(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if base == pattern {
			return true
		}
	}
	return false
}
