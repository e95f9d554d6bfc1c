// Package coordinator orchestrates the three analysis stages for single
// files and batches.
//
// A single file runs Parser, Semantic Analyzer and Execution Path Analyzer
// strictly in order; any stage failure aborts that file's run with a
// stage-tagged error and no partial recovery. Batch mode fans files out over
// a bounded worker pool, keeps per-file failures in an error map, joins, and
// then computes cross-file aggregation over the successful subset only.
package coordinator

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	xslterrors "github.com/conneroisu/xsltlens/internal/errors"
	"github.com/conneroisu/xsltlens/internal/execution"
	"github.com/conneroisu/xsltlens/internal/logging"
	"github.com/conneroisu/xsltlens/internal/parser"
	"github.com/conneroisu/xsltlens/internal/registry"
	"github.com/conneroisu/xsltlens/internal/semantic"
	"github.com/conneroisu/xsltlens/internal/types"
)

// Store is the persistence callback the coordinator hands results to. The
// engine only requires that every entity carries a stable natural key; what
// the store does with them is the host's concern.
type Store interface {
	SaveAnalysis(ctx context.Context, fileID string, analysis *types.FileAnalysis) error
}

// Options configures a Coordinator.
type Options struct {
	// Execution bounds path enumeration (max paths, wall-clock timeout).
	Execution execution.Options
	// Concurrency limits the batch worker pool; 0 means NumCPU capped at 8.
	Concurrency int
	// Logger receives stage and batch progress; nil discards logs.
	Logger logging.Logger
	// Store, when set, receives every successful file analysis.
	Store Store
	// Registry, when set, is updated with every successful file analysis.
	Registry *registry.AnalysisRegistry
}

// Coordinator runs the analysis pipeline.
type Coordinator struct {
	parser    *parser.Parser
	semantic  *semantic.Analyzer
	execution *execution.Analyzer
	opts      Options
	logger    logging.Logger
}

// New creates a coordinator with the given options.
func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
		if opts.Concurrency > 8 {
			opts.Concurrency = 8
		}
	}

	return &Coordinator{
		parser:    parser.NewParser(),
		semantic:  semantic.NewAnalyzer(),
		execution: execution.NewAnalyzer(opts.Execution),
		opts:      opts,
		logger:    opts.Logger.WithComponent("coordinator"),
	}
}

// AnalyzeFile runs the full pipeline over the stylesheet at path.
func (c *Coordinator) AnalyzeFile(ctx context.Context, path string) (*types.FileAnalysis, error) {
	started := time.Now()

	sheet, err := c.parser.ParseFile(path)
	if err != nil {
		c.logger.Error(ctx, err, "Parse stage failed", "file", path)
		return nil, err
	}

	return c.finishAnalysis(ctx, sheet, started)
}

// AnalyzeSource runs the full pipeline over raw XSLT source. The name is
// recorded as the result's file path and used in error reporting.
func (c *Coordinator) AnalyzeSource(ctx context.Context, source []byte, name string) (*types.FileAnalysis, error) {
	started := time.Now()

	sheet, err := c.parser.Parse(source, name)
	if err != nil {
		c.logger.Error(ctx, err, "Parse stage failed", "file", name)
		return nil, err
	}

	return c.finishAnalysis(ctx, sheet, started)
}

// finishAnalysis runs the semantic and execution stages over a parsed
// stylesheet, derives recommendations, and hands the aggregate to the
// registry and store.
func (c *Coordinator) finishAnalysis(ctx context.Context, sheet *types.Stylesheet, started time.Time) (*types.FileAnalysis, error) {
	sem, err := c.runSemantic(sheet)
	if err != nil {
		c.logger.Error(ctx, err, "Semantic stage failed", "file", sheet.FilePath)
		return nil, err
	}

	exec, err := c.runExecution(ctx, sheet, sem)
	if err != nil {
		c.logger.Error(ctx, err, "Execution stage failed", "file", sheet.FilePath)
		return nil, err
	}

	analysis := &types.FileAnalysis{
		FilePath:        sheet.FilePath,
		Stylesheet:      sheet,
		Semantic:        sem,
		Execution:       exec,
		Recommendations: c.recommend(sheet, sem, exec),
		AnalyzedAt:      started,
		Duration:        time.Since(started),
	}

	c.logger.Debug(ctx, "Analysis completed",
		"file", sheet.FilePath,
		"templates", len(sheet.Templates),
		"patterns", len(sem.Patterns),
		"paths", len(exec.Paths),
		"duration_ms", analysis.Duration.Milliseconds(),
	)

	if c.opts.Registry != nil {
		c.opts.Registry.Register(analysis)
	}
	if c.opts.Store != nil {
		if err := c.opts.Store.SaveAnalysis(ctx, sheet.FilePath, analysis); err != nil {
			c.logger.Warn(ctx, err, "Persistence callback failed", "file", sheet.FilePath)
		}
	}

	return analysis, nil
}

// runSemantic executes the semantic stage, converting any unexpected panic
// into a stage-tagged analysis error so batch siblings keep running.
func (c *Coordinator) runSemantic(sheet *types.Stylesheet) (result *types.SemanticAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xslterrors.NewAnalysisError("semantic", fmt.Sprintf("unexpected failure: %v", r), nil).
				WithFile(sheet.FilePath, 0)
		}
	}()

	return c.semantic.Analyze(sheet), nil
}

// runExecution executes the execution path stage with the same panic
// containment as runSemantic.
func (c *Coordinator) runExecution(ctx context.Context, sheet *types.Stylesheet, sem *types.SemanticAnalysis) (result *types.ExecutionAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xslterrors.NewAnalysisError("execution", fmt.Sprintf("unexpected failure: %v", r), nil).
				WithFile(sheet.FilePath, 0)
		}
	}()

	return c.execution.Analyze(ctx, sheet, sem.Patterns), nil
}

// recommend produces the prioritization output for one file: templates
// ranked with the hotspot scoring, a risk assessment, and the overall
// test-generation priority.
func (c *Coordinator) recommend(sheet *types.Stylesheet, sem *types.SemanticAnalysis, exec *types.ExecutionAnalysis) types.Recommendations {
	recs := types.Recommendations{
		TestPrioritization: []types.TestPriority{},
		Risk: types.RiskAssessment{
			HighComplexity: []string{},
			Recursive:      []string{},
		},
	}

	for _, tmpl := range sheet.Templates {
		if score, reasons := semantic.ScoreTemplate(tmpl); score >= 5 {
			recs.TestPrioritization = append(recs.TestPrioritization, types.TestPriority{
				Template: tmpl.Key,
				Score:    score,
				Reasons:  reasons,
			})
		}

		if tmpl.ComplexityScore > 15 {
			recs.Risk.HighComplexity = append(recs.Risk.HighComplexity, tmpl.Key)
		}
		if tmpl.IsRecursive {
			recs.Risk.Recursive = append(recs.Risk.Recursive, tmpl.Key)
		}
	}

	sort.SliceStable(recs.TestPrioritization, func(i, j int) bool {
		if recs.TestPrioritization[i].Score != recs.TestPrioritization[j].Score {
			return recs.TestPrioritization[i].Score > recs.TestPrioritization[j].Score
		}
		return recs.TestPrioritization[i].Template < recs.TestPrioritization[j].Template
	})

	recs.OverallPriority = overallPriority(sem, exec)

	return recs
}

// overallPriority maps pattern and path signals to a single priority level.
// A high-confidence pattern has confidence at least 0.8; a high-complexity
// path has a complexity score above 10.
func overallPriority(sem *types.SemanticAnalysis, exec *types.ExecutionAnalysis) types.PriorityLevel {
	confidentPatterns := 0
	for _, p := range sem.Patterns {
		if p.Confidence >= 0.8 {
			confidentPatterns++
		}
	}

	complexPaths := 0
	for _, p := range exec.Paths {
		if p.ComplexityScore > 10 {
			complexPaths++
		}
	}

	switch {
	case confidentPatterns > 3 || complexPaths > 5:
		return types.PriorityHigh
	case confidentPatterns > 1 || complexPaths > 2:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}
