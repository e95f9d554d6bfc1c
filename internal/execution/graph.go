// Package execution builds the execution graph for a parsed stylesheet and
// enumerates finite execution paths through it.
//
// Each template becomes a straight-line chain of nodes (start, variable
// assignments, conditions, calls, output, end); template_call nodes
// additionally edge into the callee's start node, which is where recursion
// turns the graph cyclic. Path enumeration is depth-first and terminates a
// path the moment it revisits a node, so traversal stays finite on cyclic
// graphs without a recursion-depth bound. Choose constructs are kept as a
// single linear condition node rather than true branch fan-out; that
// simplification is part of the engine's contract, not an oversight.
package execution

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/conneroisu/xsltlens/internal/types"
)

// DefaultMaxPaths bounds enumeration when the caller supplies no limit.
// Dense call graphs are finite but potentially exponential in template
// count, so an unbounded run is never allowed.
const DefaultMaxPaths = 10000

// variableRefPattern matches $name references inside expressions.
var variableRefPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_.-]*)`)

// Options bound path enumeration.
type Options struct {
	// MaxPaths stops enumeration after this many paths; 0 means
	// DefaultMaxPaths.
	MaxPaths int
	// Timeout stops enumeration after this wall-clock duration; 0 disables
	// the timeout.
	Timeout time.Duration
}

// Analyzer builds execution graphs and enumerates execution paths.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an execution path analyzer with the given enumeration
// bounds.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.MaxPaths <= 0 {
		opts.MaxPaths = DefaultMaxPaths
	}
	return &Analyzer{opts: opts}
}

// Analyze builds the execution graph, enumerates paths from the detected
// entry points and computes coverage. The semantic pattern list is accepted
// as an advisory hint for pipeline parity; graph construction derives
// everything it needs from the templates directly.
func (a *Analyzer) Analyze(ctx context.Context, sheet *types.Stylesheet, patterns []types.SemanticPattern) *types.ExecutionAnalysis {
	graph := buildGraph(sheet)
	paths, partial := a.enumeratePaths(ctx, graph)

	for i, path := range paths {
		derivePath(path, i, graph)
	}

	return &types.ExecutionAnalysis{
		Graph:    graph,
		Paths:    paths,
		Coverage: coverage(sheet, graph, paths, partial),
	}
}

// buildGraph constructs the node arena. Per template, in fixed order: one
// template_start, one variable_assignment per defined variable, one condition
// per conditional record, one template_call per call target, one
// output_generation when output elements exist, one template_end. Nodes are
// chained in that order; call nodes then edge into the callee's start when
// the target is a known template.
func buildGraph(sheet *types.Stylesheet) *types.ExecutionGraph {
	graph := &types.ExecutionGraph{
		Nodes:       []*types.ExecutionNode{},
		EntryPoints: []string{},
		EntryNodes:  []int{},
	}

	add := func(node *types.ExecutionNode) int {
		node.ID = len(graph.Nodes)
		node.Predecessors = []int{}
		node.Successors = []int{}
		node.Probability = 1.0
		node.Weight = 1
		graph.Nodes = append(graph.Nodes, node)
		return node.ID
	}
	link := func(from, to int) {
		graph.Nodes[from].Successors = append(graph.Nodes[from].Successors, to)
		graph.Nodes[to].Predecessors = append(graph.Nodes[to].Predecessors, from)
	}

	variablesByTemplate := make(map[string][]*types.Variable)
	for _, v := range sheet.Variables {
		if v.Template != "" {
			variablesByTemplate[v.Template] = append(variablesByTemplate[v.Template], v)
		}
	}

	startByTemplate := make(map[string]int, len(sheet.Templates))
	type pendingCall struct {
		node   int
		target string
	}
	var calls []pendingCall

	for _, tmpl := range sheet.Templates {
		start := add(&types.ExecutionNode{
			Type:     types.NodeTemplateStart,
			Template: tmpl.Key,
			Line:     tmpl.LineStart,
		})
		startByTemplate[tmpl.Key] = start
		prev := start

		declared := variablesByTemplate[tmpl.Key]
		for i, name := range tmpl.DefinesVariables {
			node := &types.ExecutionNode{
				Type:            types.NodeVariableAssignment,
				Template:        tmpl.Key,
				Line:            tmpl.LineStart,
				WritesVariables: []string{name},
			}
			if i < len(declared) {
				node.Line = declared[i].Line
				node.ReadsVariables = variableRefs(declared[i].Select)
			}
			id := add(node)
			link(prev, id)
			prev = id
		}

		for _, cond := range tmpl.ConditionalLogic {
			id := add(&types.ExecutionNode{
				Type:           types.NodeCondition,
				Template:       tmpl.Key,
				Line:           cond.Line,
				Condition:      cond.Text(),
				ReadsVariables: variableRefs(cond.Text()),
			})
			link(prev, id)
			prev = id
		}

		for _, target := range tmpl.CallsTemplates {
			id := add(&types.ExecutionNode{
				Type:     types.NodeTemplateCall,
				Template: tmpl.Key,
				Line:     tmpl.LineStart,
			})
			calls = append(calls, pendingCall{node: id, target: target})
			link(prev, id)
			prev = id
		}

		if len(tmpl.OutputElements) > 0 {
			id := add(&types.ExecutionNode{
				Type:           types.NodeOutputGeneration,
				Template:       tmpl.Key,
				Line:           tmpl.LineStart,
				OutputElements: tmpl.OutputElements,
			})
			link(prev, id)
			prev = id
		}

		end := add(&types.ExecutionNode{
			Type:     types.NodeTemplateEnd,
			Template: tmpl.Key,
			Line:     tmpl.LineEnd,
		})
		link(prev, end)
	}

	// Call edges go in after all chains exist so forward references resolve.
	// The chain successor was linked first, so traversal visits the
	// fall-through before descending into the callee.
	for _, call := range calls {
		if start, ok := startByTemplate[call.target]; ok {
			link(call.node, start)
		}
	}

	for _, key := range entryPoints(sheet) {
		graph.EntryPoints = append(graph.EntryPoints, key)
		graph.EntryNodes = append(graph.EntryNodes, startByTemplate[key])
	}

	return graph
}

// entryPoints identifies traversal roots, in priority order, stopping at the
// first non-empty result: match templates, then templates named root, main or
// transform, then templates no other template calls.
func entryPoints(sheet *types.Stylesheet) []string {
	var matched []string
	for _, tmpl := range sheet.Templates {
		if tmpl.Match != "" {
			matched = append(matched, tmpl.Key)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	var named []string
	for _, tmpl := range sheet.Templates {
		switch strings.ToLower(tmpl.Name) {
		case "root", "main", "transform":
			named = append(named, tmpl.Key)
		}
	}
	if len(named) > 0 {
		return named
	}

	var uncalled []string
	for _, tmpl := range sheet.Templates {
		// Self-calls do not count as being called; a lone recursive
		// template is still a traversal root.
		called := false
		for _, caller := range tmpl.CalledByTemplates {
			if caller != tmpl.Key {
				called = true
				break
			}
		}
		if !called {
			uncalled = append(uncalled, tmpl.Key)
		}
	}
	return uncalled
}

func variableRefs(expr string) []string {
	var refs []string
	for _, m := range variableRefPattern.FindAllStringSubmatch(expr, -1) {
		refs = appendUnique(refs, m[1])
	}
	return refs
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
