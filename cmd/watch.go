package cmd

import (
	"fmt"
	"hash/crc32"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/xsltlens/internal/config"
	"github.com/conneroisu/xsltlens/internal/registry"
	"github.com/conneroisu/xsltlens/internal/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:     "watch [paths...]",
	Aliases: []string{"w"},
	Short:   "Re-analyze stylesheets on file change",
	Long: `Watch the given paths (or the configured scan paths) for stylesheet
changes and re-run the analysis pipeline on each change batch. Reports are
written to stdout as changes arrive; rapid save bursts are debounced into a
single re-analysis.

Examples:
  xsltlens watch ./stylesheets
  xsltlens watch transform.xsl --format yaml`,
	RunE: runWatchCommand,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	roots := args
	if len(roots) == 0 {
		roots = cfg.Scan.Paths
	}

	logger := newLogger()
	reg := registry.NewAnalysisRegistry()
	coord := newCoordinator(cfg, logger, reg)

	fw, err := watcher.NewFileWatcher(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, logger)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Stop()

	fw.AddFilter(watcher.StylesheetFilter)
	fw.AddFilter(watcher.NoBackupFilter)
	fw.AddFilter(watcher.NoGitFilter)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Editors fire write events without changing content; content hashes
	// gate re-analysis so those are skipped.
	lastHash := make(map[string]string)

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, event := range events {
			switch event.Type {
			case watcher.EventTypeDeleted, watcher.EventTypeRenamed:
				reg.Remove(event.Path)
				delete(lastHash, event.Path)
				continue
			}

			source, err := os.ReadFile(event.Path)
			if err != nil {
				logger.Error(ctx, err, "Reading changed file failed", "file", event.Path)
				continue
			}
			hash := fmt.Sprintf("%x", crc32.ChecksumIEEE(source))
			if lastHash[event.Path] == hash {
				logger.Debug(ctx, "Content unchanged, skipping re-analysis", "file", event.Path)
				continue
			}

			analysis, err := coord.AnalyzeFile(ctx, event.Path)
			if err != nil {
				logger.Error(ctx, err, "Re-analysis failed", "file", event.Path)
				continue
			}
			lastHash[event.Path] = hash
			if err := writeReport(os.Stdout, cfg, analysis); err != nil {
				return err
			}
		}
		return nil
	})

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("stat %s: %w", root, err)
		}
		if info.IsDir() {
			if err := fw.AddRecursive(root); err != nil {
				return fmt.Errorf("watching %s: %w", root, err)
			}
		} else if err := fw.AddPath(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}

	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}

	logger.Info(ctx, "Watching for stylesheet changes", "paths", roots)

	<-ctx.Done()
	return nil
}
