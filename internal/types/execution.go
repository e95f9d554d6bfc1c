package types

// ExecutionNodeType is the closed set of execution graph node kinds.
// Consumers switch exhaustively over these values so that adding a kind is a
// compile-time-checked change.
type ExecutionNodeType string

const (
	NodeTemplateStart      ExecutionNodeType = "template_start"
	NodeTemplateEnd        ExecutionNodeType = "template_end"
	NodeCondition          ExecutionNodeType = "condition"
	NodeLoop               ExecutionNodeType = "loop"
	NodeTemplateCall       ExecutionNodeType = "template_call"
	NodeVariableAssignment ExecutionNodeType = "variable_assignment"
	NodeOutputGeneration   ExecutionNodeType = "output_generation"
)

// ExecutionNode is one node in the execution graph. Nodes live in a dense
// arena slice owned by ExecutionGraph; ID always equals the node's index and
// edges are index pairs, so the graph carries no cyclic ownership even when
// the call structure is cyclic.
type ExecutionNode struct {
	ID       int               `json:"id"`
	Type     ExecutionNodeType `json:"node_type"`
	Template string            `json:"template"`
	Line     int               `json:"line"`
	// Condition is the condition text for condition nodes.
	Condition string `json:"condition,omitempty"`
	// ReadsVariables and WritesVariables track variable data flow at this node.
	ReadsVariables  []string `json:"reads_variables,omitempty"`
	WritesVariables []string `json:"writes_variables,omitempty"`
	// OutputElements lists the elements emitted at output nodes.
	OutputElements []string `json:"output_elements,omitempty"`
	Predecessors   []int    `json:"predecessors"`
	Successors     []int    `json:"successors"`
	// Probability is the node execution probability, 1.0 by default.
	Probability float64 `json:"probability"`
	// Weight is the additive complexity weight, 1 by default.
	Weight int `json:"weight"`
}

// ExecutionGraph is the arena of execution nodes for one stylesheet together
// with the identified entry points. Built once per analysis run and never
// mutated afterward.
type ExecutionGraph struct {
	Nodes []*ExecutionNode `json:"nodes"`
	// EntryPoints lists the entry template keys in traversal order.
	EntryPoints []string `json:"entry_points"`
	// EntryNodes lists the template_start node ids for the entry points.
	EntryNodes []int `json:"entry_nodes"`
}

// Node returns the node with the given id, or nil when out of range.
func (g *ExecutionGraph) Node(id int) *ExecutionNode {
	if id < 0 || id >= len(g.Nodes) {
		return nil
	}
	return g.Nodes[id]
}

// RequirementKind tags generated test-data requirements.
type RequirementKind string

const (
	RequirementCriticalPath      RequirementKind = "critical_path"
	RequirementVariableHeavy     RequirementKind = "variable_heavy"
	RequirementComplexConditions RequirementKind = "complex_conditions"
	RequirementInputVariables    RequirementKind = "input_variables"
	RequirementConditionData     RequirementKind = "condition_data"
	RequirementOutputCheck       RequirementKind = "output_verification"
)

// TestDataRequirement is one rule-generated test-data requirement for a path.
type TestDataRequirement struct {
	Kind        RequirementKind `json:"kind"`
	Description string          `json:"description"`
	Variables   []string        `json:"variables,omitempty"`
	Condition   string          `json:"condition,omitempty"`
	Outputs     []string        `json:"output_elements,omitempty"`
}

// ExecutionPath is one start-to-terminal traversal of the execution graph.
// A path ends at a node with no successors or at the single repetition of a
// node already visited in the same traversal, which is how enumeration stays
// finite on cyclic graphs.
type ExecutionPath struct {
	ID    string `json:"id"`
	Nodes []int  `json:"nodes"`
	// Conditions lists the condition texts encountered along the path.
	Conditions        []string `json:"conditions"`
	VariablesUsed     []string `json:"variables_used"`
	TemplatesInvolved []string `json:"templates_involved"`
	OutputElements    []string `json:"output_elements"`
	// Probability is 1 / (len(Conditions) + 1).
	Probability float64 `json:"probability"`
	// ComplexityScore is the sum of node weights along the path.
	ComplexityScore int                   `json:"complexity_score"`
	Requirements    []TestDataRequirement `json:"test_data_requirements"`
}

// CoverageStats reports how much of the execution graph the enumerated paths
// touch. Percentages are in [0,100].
type CoverageStats struct {
	TotalNodes       int     `json:"total_nodes"`
	CoveredNodes     int     `json:"covered_nodes"`
	NodeCoverage     float64 `json:"node_coverage"`
	TotalTemplates   int     `json:"total_templates"`
	CoveredTemplates int     `json:"covered_templates"`
	TemplateCoverage float64 `json:"template_coverage"`
	UncoveredNodes   []int   `json:"uncovered_nodes"`
	// UncoveredTemplates lists template keys no path touches.
	UncoveredTemplates []string `json:"uncovered_templates"`
	// UntestedConditions lists condition texts from the parser's conditional
	// records that appear in no path.
	UntestedConditions []string `json:"untested_conditions"`
	// Partial is true when path enumeration stopped early at a caller-supplied
	// cutoff, so coverage reflects only the paths found so far.
	Partial bool `json:"partial"`
}

// ExecutionAnalysis is the execution path analyzer's complete output.
type ExecutionAnalysis struct {
	Graph    *ExecutionGraph  `json:"graph"`
	Paths    []*ExecutionPath `json:"paths"`
	Coverage CoverageStats    `json:"coverage"`
}
