// Package types provides common type definitions used throughout the xsltlens
// analysis engine. This package contains shared types to avoid circular
// dependencies between the parser, semantic, execution and coordinator packages.
//
// Every type in this package serializes to JSON field-for-field so that
// downstream consumers (test generators, persistence layers) can use analysis
// results without re-deriving anything.
package types

// ConditionalKind distinguishes the two conditional constructs the parser
// records inside a template body.
type ConditionalKind string

const (
	// ConditionalIf is a single-branch xsl:if construct.
	ConditionalIf ConditionalKind = "if"
	// ConditionalChoose is an xsl:choose construct; its when-branch tests are
	// collected into a single record.
	ConditionalChoose ConditionalKind = "choose"
)

// Conditional records one conditional construct found in a template body.
// An "if" record carries a single test expression; a "choose" record carries
// the test expressions of all sibling when branches.
type Conditional struct {
	Kind ConditionalKind `json:"kind"`
	// Condition is the test expression for "if" records.
	Condition string `json:"condition,omitempty"`
	// BranchConditions holds the when tests for "choose" records.
	BranchConditions []string `json:"branch_conditions,omitempty"`
	Line             int      `json:"line"`
}

// Text returns the canonical condition text for this record: the test
// expression for "if" records, the when tests joined with " | " for "choose"
// records. Execution condition nodes, path condition lists and coverage gap
// reporting all use this same canonical form.
func (c Conditional) Text() string {
	if c.Kind == ConditionalChoose {
		text := ""
		for i, branch := range c.BranchConditions {
			if i > 0 {
				text += " | "
			}
			text += branch
		}
		return text
	}
	return c.Condition
}

// Template holds everything the parser extracts for a single xsl:template
// definition, plus the relationship fields filled in by the parser's second
// pass. Templates are immutable once parsing completes.
type Template struct {
	// Key uniquely identifies the template within a stylesheet: the explicit
	// name, else the match pattern (suffixed with "#"+mode when a mode is
	// set), else a synthetic "anonymous_<n>".
	Key string `json:"key"`
	// Name is the explicit name attribute, empty for match templates.
	Name string `json:"name,omitempty"`
	// Match is the match pattern attribute, empty for named templates.
	Match string `json:"match,omitempty"`
	// Mode is the optional mode attribute.
	Mode string `json:"mode,omitempty"`
	// Priority is the optional numeric priority attribute.
	Priority *float64 `json:"priority,omitempty"`
	// LineStart and LineEnd delimit the template's source line range.
	LineStart int `json:"line_start"`
	LineEnd   int `json:"line_end"`
	// Content is the raw serialized template markup.
	Content string `json:"content"`
	// Hash is a CRC32 checksum of Content for change detection.
	Hash string `json:"hash"`
	// ComplexityScore is the additive heuristic complexity score.
	ComplexityScore int `json:"complexity_score"`
	// IsRecursive is true when the template's own key appears in
	// CallsTemplates. Only direct self-calls are detected; mutual recursion
	// across templates surfaces as a circular dependency instead.
	IsRecursive bool `json:"is_recursive"`
	// CallsTemplates lists call targets: call-template names plus synthetic
	// "mode:<m>" / "select:<expr>" pseudo-targets for apply-templates.
	CallsTemplates []string `json:"calls_templates"`
	// CalledByTemplates lists the keys of templates that call this one.
	CalledByTemplates []string `json:"called_by_templates"`
	// UsesVariables lists $name references found anywhere in Content.
	UsesVariables []string `json:"uses_variables"`
	// DefinesVariables lists variables and parameters declared in the body.
	DefinesVariables []string `json:"defines_variables"`
	// XPathExpressions lists select/test/match attribute values in the body.
	XPathExpressions []string `json:"xpath_expressions"`
	// ConditionalLogic lists the if/choose constructs in the body.
	ConditionalLogic []Conditional `json:"conditional_logic"`
	// OutputElements lists literal result element names plus xsl:element names.
	OutputElements []string `json:"output_elements"`
}

// Calls reports whether the template's call list contains the given target.
func (t *Template) Calls(target string) bool {
	for _, call := range t.CallsTemplates {
		if call == target {
			return true
		}
	}
	return false
}

// VariableType distinguishes xsl:variable from xsl:param declarations.
type VariableType string

const (
	VariableTypeVariable  VariableType = "variable"
	VariableTypeParameter VariableType = "parameter"
)

// VariableScope identifies where a variable is declared. The parser emits
// only ScopeGlobal and ScopeTemplate; ScopeLocal is reserved for callers that
// track finer-grained scoping.
type VariableScope string

const (
	ScopeGlobal   VariableScope = "global"
	ScopeTemplate VariableScope = "template"
	ScopeLocal    VariableScope = "local"
)

// Variable describes one xsl:variable or xsl:param declaration. Template-scoped
// variables are keyed by name plus line so that shadowed names remain distinct.
type Variable struct {
	// Key is the scope-disambiguated identity: the name for globals,
	// "name:line" for template-scoped declarations.
	Key  string       `json:"key"`
	Name string       `json:"name"`
	Type VariableType `json:"variable_type"`
	// Select is the select expression, empty when the value is inline content.
	Select string `json:"select,omitempty"`
	// Content is the inline value markup, empty when Select is set.
	Content string        `json:"content,omitempty"`
	Scope   VariableScope `json:"scope"`
	Line    int           `json:"line"`
	// Template is the key of the declaring template for non-global scopes.
	Template string `json:"template,omitempty"`
	// UsedByTemplates is filled by semantic analysis, not the parser.
	UsedByTemplates []string `json:"used_by_templates"`
}

// ParseSummary aggregates per-stylesheet counts produced by the parser.
type ParseSummary struct {
	TemplateCount       int     `json:"template_count"`
	VariableCount       int     `json:"variable_count"`
	AverageComplexity   float64 `json:"average_complexity"`
	MostComplexTemplate string  `json:"most_complex_template,omitempty"`
}

// Stylesheet is the parser's complete output for one XSLT document.
type Stylesheet struct {
	// FilePath is the source path, or a caller-supplied name for raw input.
	FilePath  string       `json:"file_path"`
	Templates []*Template  `json:"templates"`
	Variables []*Variable  `json:"variables"`
	Summary   ParseSummary `json:"summary"`
}

// Template returns the template with the given key, or nil.
func (s *Stylesheet) Template(key string) *Template {
	for _, t := range s.Templates {
		if t.Key == key {
			return t
		}
	}
	return nil
}
