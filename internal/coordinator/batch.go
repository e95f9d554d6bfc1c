package coordinator

import (
	"context"
	"sort"
	"sync"

	"github.com/conneroisu/xsltlens/internal/types"
)

// batchResult carries one file's outcome from a worker back to the
// aggregation step.
type batchResult struct {
	filePath string
	analysis *types.FileAnalysis
	err      error
}

// AnalyzeBatch analyzes every path independently over a worker pool bounded
// by the configured concurrency. One file's failure never stops the others;
// failures land in the result's error map. Cross-file analysis runs after
// all workers have joined and only covers the successful subset.
func (c *Coordinator) AnalyzeBatch(ctx context.Context, paths []string) *types.BatchAnalysis {
	batch := &types.BatchAnalysis{
		Files:  make(map[string]*types.FileAnalysis, len(paths)),
		Errors: make(map[string]string),
	}

	if len(paths) > 0 {
		jobs := make(chan string)
		results := make(chan batchResult, len(paths))

		workers := c.opts.Concurrency
		if workers > len(paths) {
			workers = len(paths)
		}

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for path := range jobs {
					analysis, err := c.AnalyzeFile(ctx, path)
					results <- batchResult{filePath: path, analysis: analysis, err: err}
				}
			}()
		}

		for _, path := range paths {
			jobs <- path
		}
		close(jobs)

		// Join barrier: aggregation must not start before every per-file
		// pipeline has finished.
		wg.Wait()
		close(results)

		for result := range results {
			if result.err != nil {
				batch.Errors[result.filePath] = result.err.Error()
				continue
			}
			batch.Files[result.filePath] = result.analysis
		}
	}

	batch.CrossFile = crossFileAnalysis(batch.Files)
	batch.Summary = summarizeBatch(batch)

	return batch
}

// crossFileAnalysis aggregates template call graphs across files to find
// templates referenced from more than one file, and merges duplicate pattern
// types into a common-pattern report.
func crossFileAnalysis(files map[string]*types.FileAnalysis) types.CrossFileAnalysis {
	cross := types.CrossFileAnalysis{
		SharedTemplates: []types.SharedTemplate{},
		CommonPatterns:  []types.CommonPattern{},
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	callersByTarget := make(map[string][]string)
	filesByPattern := make(map[types.PatternType][]string)

	for _, path := range paths {
		analysis := files[path]

		seenTargets := make(map[string]bool)
		for _, tmpl := range analysis.Stylesheet.Templates {
			for _, target := range tmpl.CallsTemplates {
				if !seenTargets[target] {
					seenTargets[target] = true
					callersByTarget[target] = append(callersByTarget[target], path)
				}
			}
		}

		for _, pattern := range analysis.Semantic.Patterns {
			filesByPattern[pattern.Type] = append(filesByPattern[pattern.Type], path)
		}
	}

	targets := make([]string, 0, len(callersByTarget))
	for target := range callersByTarget {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		callers := callersByTarget[target]
		if len(callers) < 2 {
			continue
		}
		risk := types.RiskMedium
		if len(callers) > 3 {
			risk = types.RiskHigh
		}
		cross.SharedTemplates = append(cross.SharedTemplates, types.SharedTemplate{
			Key:   target,
			Files: callers,
			Risk:  risk,
		})
	}

	patternTypes := make([]string, 0, len(filesByPattern))
	for pt := range filesByPattern {
		patternTypes = append(patternTypes, string(pt))
	}
	sort.Strings(patternTypes)

	for _, pt := range patternTypes {
		affected := filesByPattern[types.PatternType(pt)]
		if len(affected) < 2 {
			continue
		}
		cross.CommonPatterns = append(cross.CommonPatterns, types.CommonPattern{
			Type:  types.PatternType(pt),
			Files: affected,
			Count: len(affected),
		})
	}

	return cross
}

func summarizeBatch(batch *types.BatchAnalysis) types.BatchSummary {
	summary := types.BatchSummary{
		FileCount:   len(batch.Files) + len(batch.Errors),
		FailedCount: len(batch.Errors),
	}

	for _, analysis := range batch.Files {
		summary.TemplateCount += len(analysis.Stylesheet.Templates)
		summary.PatternCount += len(analysis.Semantic.Patterns)
		summary.HotspotCount += len(analysis.Semantic.Hotspots)
	}

	return summary
}
