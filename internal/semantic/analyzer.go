// Package semantic derives patterns, data-flow relationships and risk
// diagnostics from a parsed stylesheet.
//
// The analyzer is a pure function of the parser's output: it builds a
// template-scoped data-flow graph, classifies the stylesheet against a fixed
// six-pattern taxonomy, reports variable scoping and template interaction
// issues, and ranks complexity hotspots. It never fails for well-formed
// input; absence of data yields empty lists.
package semantic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/xsltlens/internal/types"
)

// aggregationFunctions are the XPath function names whose presence marks a
// data aggregation pattern. Matching is case-insensitive substring.
var aggregationFunctions = []string{"sum", "count", "avg", "max", "min", "distinct-values"}

// errorHandlingMarkers are the content substrings whose presence marks an
// error handling pattern. Matching is case-insensitive.
var errorHandlingMarkers = []string{"error", "exception", "fallback", "default", "fail"}

// Analyzer performs semantic analysis over a parsed stylesheet.
type Analyzer struct{}

// NewAnalyzer creates a new semantic analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs all semantic passes over the stylesheet. As a side effect it
// fills each variable's used_by_templates list, which the parser leaves empty.
func (a *Analyzer) Analyze(sheet *types.Stylesheet) *types.SemanticAnalysis {
	a.resolveVariableUsage(sheet)

	return &types.SemanticAnalysis{
		DataFlow:     a.buildDataFlowGraph(sheet),
		Patterns:     a.detectPatterns(sheet),
		Variables:    a.variableDiagnostics(sheet),
		Interactions: a.interactionDiagnostics(sheet),
		Hotspots:     a.findHotspots(sheet),
	}
}

// resolveVariableUsage fills used_by_templates for every variable from the
// per-template $name references the parser recorded.
func (a *Analyzer) resolveVariableUsage(sheet *types.Stylesheet) {
	for _, v := range sheet.Variables {
		v.UsedByTemplates = []string{}
		for _, tmpl := range sheet.Templates {
			for _, used := range tmpl.UsesVariables {
				if used == v.Name {
					v.UsedByTemplates = append(v.UsedByTemplates, tmpl.Key)
					break
				}
			}
		}
	}
}

// buildDataFlowGraph creates one node per parser fact and links each variable
// assignment to the nodes in the same template whose text references the
// assigned variable. This is an intentionally coarse template-scoped
// approximation; it does not trace actual evaluation order.
func (a *Analyzer) buildDataFlowGraph(sheet *types.Stylesheet) types.DataFlowGraph {
	graph := types.DataFlowGraph{
		Nodes: []types.DataFlowNode{},
		Edges: []types.DataFlowEdge{},
	}

	addNode := func(kind types.DataFlowKind, template, detail string) int {
		id := len(graph.Nodes)
		graph.Nodes = append(graph.Nodes, types.DataFlowNode{
			ID:       id,
			Kind:     kind,
			Template: template,
			Detail:   detail,
		})
		return id
	}

	for _, tmpl := range sheet.Templates {
		first := len(graph.Nodes)
		var assignments []int

		for _, name := range tmpl.DefinesVariables {
			assignments = append(assignments, addNode(types.FlowVariableAssignment, tmpl.Key, name))
		}
		for _, target := range tmpl.CallsTemplates {
			addNode(types.FlowTemplateCall, tmpl.Key, target)
		}
		for _, cond := range tmpl.ConditionalLogic {
			addNode(types.FlowConditional, tmpl.Key, cond.Text())
		}
		for _, expr := range tmpl.XPathExpressions {
			addNode(types.FlowXPathSelection, tmpl.Key, expr)
		}

		for _, from := range assignments {
			name := graph.Nodes[from].Detail
			for to := first; to < len(graph.Nodes); to++ {
				if to == from {
					continue
				}
				if strings.Contains(graph.Nodes[to].Detail, "$"+name) {
					graph.Edges = append(graph.Edges, types.DataFlowEdge{From: from, To: to})
				}
			}
		}
	}

	return graph
}

// detectPatterns runs the six independent heuristic rules. A stylesheet may
// match zero, one or many pattern types; confidence values are fixed per rule.
func (a *Analyzer) detectPatterns(sheet *types.Stylesheet) []types.SemanticPattern {
	patterns := []types.SemanticPattern{}

	var pipeline, conditional, recursive, aggregating, orchestrating, guarded []string

	for _, tmpl := range sheet.Templates {
		if len(tmpl.CallsTemplates) >= 1 && len(tmpl.OutputElements) >= 1 {
			pipeline = append(pipeline, tmpl.Key)
		}
		if len(tmpl.ConditionalLogic) >= 1 {
			conditional = append(conditional, tmpl.Key)
		}
		if tmpl.IsRecursive {
			recursive = append(recursive, tmpl.Key)
		}
		if hasAggregation(tmpl.XPathExpressions) {
			aggregating = append(aggregating, tmpl.Key)
		}
		if len(tmpl.CallsTemplates) >= 2 {
			orchestrating = append(orchestrating, tmpl.Key)
		}
		if hasErrorHandling(tmpl.Content) {
			guarded = append(guarded, tmpl.Key)
		}
	}

	if len(pipeline) >= 2 {
		patterns = append(patterns, types.SemanticPattern{
			Type:        types.PatternTransformationPipeline,
			Description: fmt.Sprintf("%d templates chain calls into output generation", len(pipeline)),
			Templates:   pipeline,
			Confidence:  0.8,
			TestImplications: []string{
				"verify output at each pipeline stage",
				"test with input that exercises every stage transition",
			},
		})
	}
	if len(conditional) >= 1 {
		patterns = append(patterns, types.SemanticPattern{
			Type:        types.PatternConditionalProcessing,
			Description: fmt.Sprintf("%d templates branch on conditional logic", len(conditional)),
			Templates:   conditional,
			Confidence:  0.9,
			TestImplications: []string{
				"cover both outcomes of every condition",
				"include inputs that leave conditional branches untaken",
			},
		})
	}
	if len(recursive) >= 1 {
		patterns = append(patterns, types.SemanticPattern{
			Type:        types.PatternRecursiveProcessing,
			Description: fmt.Sprintf("%d templates call themselves", len(recursive)),
			Templates:   recursive,
			Confidence:  1.0,
			TestImplications: []string{
				"test recursion base case and termination",
				"test with deeply nested input structures",
			},
		})
	}
	if len(aggregating) >= 1 {
		patterns = append(patterns, types.SemanticPattern{
			Type:        types.PatternDataAggregation,
			Description: fmt.Sprintf("%d templates aggregate data with XPath functions", len(aggregating)),
			Templates:   aggregating,
			Confidence:  0.85,
			TestImplications: []string{
				"verify aggregate results against known totals",
				"test with empty node sets",
			},
		})
	}
	if len(orchestrating) >= 1 {
		patterns = append(patterns, types.SemanticPattern{
			Type:        types.PatternTemplateOrchestration,
			Description: fmt.Sprintf("%d templates coordinate multiple called templates", len(orchestrating)),
			Templates:   orchestrating,
			Confidence:  0.7,
			TestImplications: []string{
				"verify call ordering between orchestrated templates",
				"test each called template in isolation",
			},
		})
	}
	if len(guarded) >= 1 {
		patterns = append(patterns, types.SemanticPattern{
			Type:        types.PatternErrorHandling,
			Description: fmt.Sprintf("%d templates contain error handling markers", len(guarded)),
			Templates:   guarded,
			Confidence:  0.6,
			TestImplications: []string{
				"trigger fallback branches with invalid input",
				"verify default values are applied",
			},
		})
	}

	return patterns
}

func hasAggregation(expressions []string) bool {
	for _, expr := range expressions {
		lower := strings.ToLower(expr)
		for _, fn := range aggregationFunctions {
			if strings.Contains(lower, fn) {
				return true
			}
		}
	}
	return false
}

func hasErrorHandling(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range errorHandlingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// variableDiagnostics reports names declared under more than one scope key
// and variables no template uses.
func (a *Analyzer) variableDiagnostics(sheet *types.Stylesheet) types.VariableDiagnostics {
	diags := types.VariableDiagnostics{
		Conflicts: []types.VariableConflict{},
		Unused:    []string{},
	}

	keysByName := make(map[string][]string)
	var order []string
	for _, v := range sheet.Variables {
		if _, ok := keysByName[v.Name]; !ok {
			order = append(order, v.Name)
		}
		keysByName[v.Name] = append(keysByName[v.Name], v.Key)

		if len(v.UsedByTemplates) == 0 {
			diags.Unused = append(diags.Unused, v.Key)
		}
	}

	for _, name := range order {
		if keys := keysByName[name]; len(keys) > 1 {
			diags.Conflicts = append(diags.Conflicts, types.VariableConflict{Name: name, Keys: keys})
		}
	}

	return diags
}

// interactionDiagnostics builds the caller graph, finds call cycles and
// reports orphaned named templates.
func (a *Analyzer) interactionDiagnostics(sheet *types.Stylesheet) types.InteractionDiagnostics {
	diags := types.InteractionDiagnostics{
		CallGraph:            make(map[string][]string, len(sheet.Templates)),
		CircularDependencies: [][]string{},
		OrphanedTemplates:    []string{},
	}

	for _, tmpl := range sheet.Templates {
		callers := make([]string, len(tmpl.CalledByTemplates))
		copy(callers, tmpl.CalledByTemplates)
		diags.CallGraph[tmpl.Key] = callers

		if tmpl.Name != "" && tmpl.Match == "" && len(tmpl.CalledByTemplates) == 0 {
			diags.OrphanedTemplates = append(diags.OrphanedTemplates, tmpl.Key)
		}
	}

	diags.CircularDependencies = detectCycles(sheet.Templates)

	return diags
}

// detectCycles runs a depth-first traversal over calls_templates, restarting
// from each unvisited template, and reports each cycle as the path from its
// first repeated template back to itself (the closing template repeated).
func detectCycles(templates []*types.Template) [][]string {
	byKey := make(map[string]*types.Template, len(templates))
	for _, tmpl := range templates {
		byKey[tmpl.Key] = tmpl
	}

	cycles := [][]string{}
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var dfs func(key string, path []string) []string
	dfs = func(key string, path []string) []string {
		visited[key] = true
		recStack[key] = true
		path = append(path, key)

		tmpl := byKey[key]
		for _, target := range tmpl.CallsTemplates {
			if _, known := byKey[target]; !known {
				continue
			}
			if !visited[target] {
				if cycle := dfs(target, path); cycle != nil {
					return cycle
				}
			} else if recStack[target] {
				start := 0
				for i, p := range path {
					if p == target {
						start = i
						break
					}
				}
				cycle := make([]string, len(path)-start, len(path)-start+1)
				copy(cycle, path[start:])
				return append(cycle, target)
			}
		}

		recStack[key] = false
		return nil
	}

	for _, tmpl := range templates {
		if !visited[tmpl.Key] {
			if cycle := dfs(tmpl.Key, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

// findHotspots applies the additive hotspot score to every template and
// returns the templates scoring at least 5, sorted descending by score.
func (a *Analyzer) findHotspots(sheet *types.Stylesheet) []types.Hotspot {
	hotspots := []types.Hotspot{}

	for _, tmpl := range sheet.Templates {
		score, reasons := ScoreTemplate(tmpl)
		if score < 5 {
			continue
		}

		risk := types.RiskMedium
		if score >= 8 {
			risk = types.RiskHigh
		}
		hotspots = append(hotspots, types.Hotspot{
			Template: tmpl.Key,
			Score:    score,
			Reasons:  reasons,
			Risk:     risk,
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		if hotspots[i].Score != hotspots[j].Score {
			return hotspots[i].Score > hotspots[j].Score
		}
		return hotspots[i].Template < hotspots[j].Template
	})

	return hotspots
}

// ScoreTemplate accumulates the hotspot score for one template together with
// the reason for each contribution. The coordinator reuses the same scoring
// for test prioritization.
func ScoreTemplate(tmpl *types.Template) (int, []string) {
	score := 0
	var reasons []string

	if tmpl.ComplexityScore > 10 {
		score += 3
		reasons = append(reasons, fmt.Sprintf("complexity score %d exceeds 10", tmpl.ComplexityScore))
	}
	if len(tmpl.ConditionalLogic) > 3 {
		score += 2
		reasons = append(reasons, fmt.Sprintf("%d conditional constructs", len(tmpl.ConditionalLogic)))
	}
	if tmpl.IsRecursive {
		score += 3
		reasons = append(reasons, "recursive template")
	}
	if len(tmpl.CallsTemplates) > 5 {
		score += 2
		reasons = append(reasons, fmt.Sprintf("%d template calls", len(tmpl.CallsTemplates)))
	}
	for _, expr := range tmpl.XPathExpressions {
		if len(expr) > 50 {
			score += 2
			reasons = append(reasons, fmt.Sprintf("XPath expression of %d characters", len(expr)))
			break
		}
	}

	return score, reasons
}
