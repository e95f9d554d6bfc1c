package types

// PatternType is the closed taxonomy of semantic patterns the analyzer
// detects. Consumers switch exhaustively over these values.
type PatternType string

const (
	PatternTransformationPipeline PatternType = "transformation_pipeline"
	PatternConditionalProcessing  PatternType = "conditional_processing"
	PatternRecursiveProcessing    PatternType = "recursive_processing"
	PatternDataAggregation        PatternType = "data_aggregation"
	PatternTemplateOrchestration  PatternType = "template_orchestration"
	PatternErrorHandling          PatternType = "error_handling"
)

// SemanticPattern is one detected pattern instance. Patterns are created once
// per analysis run and never mutated; confidence scores are fixed per
// detection rule, not computed dynamically.
type SemanticPattern struct {
	Type        PatternType `json:"pattern_type"`
	Description string      `json:"description"`
	// Templates lists the keys of the templates involved in the pattern.
	Templates []string `json:"templates"`
	// Confidence is the rule's fixed confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// TestImplications are advisory strings for downstream test generation.
	TestImplications []string `json:"test_implications"`
}

// DataFlowKind tags data-flow graph nodes by the parser fact they represent.
type DataFlowKind string

const (
	FlowVariableAssignment DataFlowKind = "variable_assignment"
	FlowTemplateCall       DataFlowKind = "template_call"
	FlowConditional        DataFlowKind = "conditional"
	FlowXPathSelection     DataFlowKind = "xpath_selection"
)

// DataFlowNode is one node in the data-flow graph. Nodes live in a dense
// slice and are addressed by index; ID always equals the node's position.
type DataFlowNode struct {
	ID       int          `json:"id"`
	Kind     DataFlowKind `json:"kind"`
	Template string       `json:"template"`
	// Detail is the fact text: the variable name for assignments, the call
	// target for calls, the condition text for conditionals, the expression
	// for XPath selections.
	Detail string `json:"detail"`
}

// DataFlowEdge connects a variable-assignment node to a node in the same
// template that uses the assigned variable.
type DataFlowEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// DataFlowGraph is the template-scoped data-flow approximation built by the
// semantic analyzer. It links assignments to uses within a template and does
// not trace actual AST dominance.
type DataFlowGraph struct {
	Nodes []DataFlowNode `json:"nodes"`
	Edges []DataFlowEdge `json:"edges"`
}

// VariableConflict reports a variable name declared under more than one
// scope key.
type VariableConflict struct {
	Name string   `json:"name"`
	Keys []string `json:"keys"`
}

// VariableDiagnostics aggregates variable scoping issues.
type VariableDiagnostics struct {
	Conflicts []VariableConflict `json:"conflicts"`
	// Unused lists keys of variables no template uses.
	Unused []string `json:"unused"`
}

// InteractionDiagnostics aggregates template-interaction issues.
type InteractionDiagnostics struct {
	// CallGraph maps each template key to the templates that call it.
	CallGraph map[string][]string `json:"call_graph"`
	// CircularDependencies lists call cycles; each cycle repeats its closing
	// template at the end.
	CircularDependencies [][]string `json:"circular_dependencies"`
	// OrphanedTemplates lists named templates no other template calls.
	OrphanedTemplates []string `json:"orphaned_templates"`
}

// RiskLevel classifies hotspot and cross-file findings.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Hotspot flags a template as disproportionately complex or risky. Hotspots
// are sorted descending by score.
type Hotspot struct {
	Template string    `json:"template"`
	Score    int       `json:"score"`
	Reasons  []string  `json:"reasons"`
	Risk     RiskLevel `json:"risk_level"`
}

// SemanticAnalysis is the semantic analyzer's complete output for one
// stylesheet.
type SemanticAnalysis struct {
	DataFlow     DataFlowGraph          `json:"data_flow"`
	Patterns     []SemanticPattern      `json:"patterns"`
	Variables    VariableDiagnostics    `json:"variable_diagnostics"`
	Interactions InteractionDiagnostics `json:"template_interactions"`
	Hotspots     []Hotspot              `json:"hotspots"`
}

// HasPattern reports whether a pattern of the given type was detected.
func (a *SemanticAnalysis) HasPattern(pt PatternType) bool {
	for _, p := range a.Patterns {
		if p.Type == pt {
			return true
		}
	}
	return false
}
