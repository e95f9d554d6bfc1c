package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/conneroisu/xsltlens/internal/types"
)

// enumeratePaths runs a depth-first traversal from every entry node. A path
// ends at a node with no successors, or at the single repetition of a node
// already on the current traversal, which closes cycles without unbounded
// growth. Enumeration is deterministic: entries are visited in order and
// successors in insertion order. The second return value is true when the
// max-path or timeout cutoff stopped enumeration early.
func (a *Analyzer) enumeratePaths(ctx context.Context, graph *types.ExecutionGraph) ([]*types.ExecutionPath, bool) {
	var deadline time.Time
	if a.opts.Timeout > 0 {
		deadline = time.Now().Add(a.opts.Timeout)
	}

	paths := []*types.ExecutionPath{}
	partial := false

	cutoff := func() bool {
		if len(paths) >= a.opts.MaxPaths {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return true
		}
		if ctx.Err() != nil {
			return true
		}
		return false
	}

	record := func(nodes []int) {
		copied := make([]int, len(nodes))
		copy(copied, nodes)
		paths = append(paths, &types.ExecutionPath{Nodes: copied})
	}

	var current []int
	onPath := make(map[int]bool)

	var walk func(node int) bool
	walk = func(node int) bool {
		if cutoff() {
			partial = true
			return false
		}

		current = append(current, node)
		defer func() { current = current[:len(current)-1] }()

		if onPath[node] {
			// Cycle closed: the repeated node is kept once, then the path
			// stops growing.
			record(current)
			return true
		}

		successors := graph.Nodes[node].Successors
		if len(successors) == 0 {
			record(current)
			return true
		}

		onPath[node] = true
		defer delete(onPath, node)

		for _, next := range successors {
			if !walk(next) {
				return false
			}
		}
		return true
	}

	for _, entry := range graph.EntryNodes {
		if !walk(entry) {
			break
		}
	}

	return paths, partial
}

// derivePath fills the path's derived attributes by folding over its node
// sequence, then generates the rule-based test-data requirements.
func derivePath(path *types.ExecutionPath, index int, graph *types.ExecutionGraph) {
	path.ID = fmt.Sprintf("path_%d", index+1)
	path.Conditions = []string{}
	path.VariablesUsed = []string{}
	path.TemplatesInvolved = []string{}
	path.OutputElements = []string{}

	for _, id := range path.Nodes {
		node := graph.Nodes[id]

		path.TemplatesInvolved = appendUnique(path.TemplatesInvolved, node.Template)
		path.ComplexityScore += node.Weight

		if node.Type == types.NodeCondition {
			path.Conditions = append(path.Conditions, node.Condition)
		}
		for _, name := range node.ReadsVariables {
			path.VariablesUsed = appendUnique(path.VariablesUsed, name)
		}
		for _, name := range node.WritesVariables {
			path.VariablesUsed = appendUnique(path.VariablesUsed, name)
		}
		for _, out := range node.OutputElements {
			path.OutputElements = appendUnique(path.OutputElements, out)
		}
	}

	path.Probability = 1.0 / float64(len(path.Conditions)+1)
	path.Requirements = requirements(path)
}

// requirements generates the rule-based test-data requirements for a path.
func requirements(path *types.ExecutionPath) []types.TestDataRequirement {
	reqs := []types.TestDataRequirement{}

	if path.ComplexityScore > 10 || len(path.Conditions) > 3 {
		reqs = append(reqs, types.TestDataRequirement{
			Kind:        types.RequirementCriticalPath,
			Description: fmt.Sprintf("high-complexity path (score %d, %d conditions) needs dedicated coverage", path.ComplexityScore, len(path.Conditions)),
		})
	}
	if len(path.VariablesUsed) > 5 {
		reqs = append(reqs, types.TestDataRequirement{
			Kind:        types.RequirementVariableHeavy,
			Description: fmt.Sprintf("path depends on %d variables", len(path.VariablesUsed)),
			Variables:   path.VariablesUsed,
		})
	}
	for _, cond := range path.Conditions {
		if len(cond) > 30 {
			reqs = append(reqs, types.TestDataRequirement{
				Kind:        types.RequirementComplexConditions,
				Description: "path contains a condition too complex to satisfy by accident",
				Condition:   cond,
			})
			break
		}
	}

	reqs = append(reqs, types.TestDataRequirement{
		Kind:        types.RequirementInputVariables,
		Description: "input data must bind every variable the path reads or writes",
		Variables:   path.VariablesUsed,
	})
	for _, cond := range path.Conditions {
		reqs = append(reqs, types.TestDataRequirement{
			Kind:        types.RequirementConditionData,
			Description: "input data must satisfy the path condition",
			Condition:   cond,
		})
	}
	if len(path.OutputElements) > 0 {
		reqs = append(reqs, types.TestDataRequirement{
			Kind:        types.RequirementOutputCheck,
			Description: "expected output elements must be asserted",
			Outputs:     path.OutputElements,
		})
	}

	return reqs
}

// coverage computes node and template coverage over the enumerated paths and
// lists the uncovered remainder, including conditional expressions no path
// exercises.
func coverage(sheet *types.Stylesheet, graph *types.ExecutionGraph, paths []*types.ExecutionPath, partial bool) types.CoverageStats {
	stats := types.CoverageStats{
		TotalNodes:         len(graph.Nodes),
		TotalTemplates:     len(sheet.Templates),
		UncoveredNodes:     []int{},
		UncoveredTemplates: []string{},
		UntestedConditions: []string{},
		Partial:            partial,
	}

	coveredNodes := make(map[int]bool)
	coveredTemplates := make(map[string]bool)
	coveredConditions := make(map[string]bool)
	for _, path := range paths {
		for _, id := range path.Nodes {
			coveredNodes[id] = true
			coveredTemplates[graph.Nodes[id].Template] = true
		}
		for _, cond := range path.Conditions {
			coveredConditions[cond] = true
		}
	}

	stats.CoveredNodes = len(coveredNodes)
	for id := range graph.Nodes {
		if !coveredNodes[id] {
			stats.UncoveredNodes = append(stats.UncoveredNodes, id)
		}
	}
	if stats.TotalNodes > 0 {
		stats.NodeCoverage = 100 * float64(stats.CoveredNodes) / float64(stats.TotalNodes)
	}

	for _, tmpl := range sheet.Templates {
		if coveredTemplates[tmpl.Key] {
			stats.CoveredTemplates++
		} else {
			stats.UncoveredTemplates = append(stats.UncoveredTemplates, tmpl.Key)
		}

		for _, cond := range tmpl.ConditionalLogic {
			if text := cond.Text(); !coveredConditions[text] {
				stats.UntestedConditions = appendUnique(stats.UntestedConditions, text)
			}
		}
	}
	if stats.TotalTemplates > 0 {
		stats.TemplateCoverage = 100 * float64(stats.CoveredTemplates) / float64(stats.TotalTemplates)
	}

	return stats
}
