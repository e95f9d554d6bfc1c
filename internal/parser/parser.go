// Package parser extracts the template and variable model from raw XSLT
// markup.
//
// The parser walks the XML token stream into a minimal element tree, then
// enumerates every xsl:template element at any nesting depth and extracts
// its call targets, variable definitions and references, XPath expressions,
// conditional constructs and output elements. A second pass links templates
// to their callers and flags direct self-recursion. Parsing fails only when
// the input is not well-formed XML; semantically incomplete XSLT (unresolved
// call targets, empty bodies, missing attributes) is recorded as-is so that
// downstream analysis always gets a best-effort model.
package parser

import (
	"fmt"
	"hash/crc32"
	"os"
	"regexp"
	"strconv"
	"strings"

	xslterrors "github.com/conneroisu/xsltlens/internal/errors"
	"github.com/conneroisu/xsltlens/internal/types"
)

// xsltNamespace is the XSLT transform namespace URI. Elements are matched by
// resolved namespace, so any prefix bound to this URI works; "xsl" is only
// the conventional spelling.
const xsltNamespace = "http://www.w3.org/1999/XSL/Transform"

// variableRefPattern matches $name variable references anywhere in serialized
// template content.
var variableRefPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_.-]*)`)

// Parser turns raw XSLT source into a Stylesheet model.
type Parser struct{}

// NewParser creates a new stylesheet parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses the stylesheet at the given path.
func (p *Parser) ParseFile(path string) (*types.Stylesheet, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, xslterrors.NewIOError("reading stylesheet", err).WithFile(path, 0)
	}
	return p.Parse(source, path)
}

// Parse parses raw XSLT source. The path is recorded on the result and used
// in error messages; it does not need to exist on disk.
func (p *Parser) Parse(source []byte, path string) (*types.Stylesheet, error) {
	root, err := parseTree(source)
	if err != nil {
		return nil, xslterrors.NewParseError("malformed XML input", err).WithFile(path, 0)
	}

	sheet := &types.Stylesheet{
		FilePath:  path,
		Templates: []*types.Template{},
		Variables: []*types.Variable{},
	}

	// Enumerate template elements at any nesting depth, in document order.
	var templateElems []*element
	root.walk(func(el *element) {
		if el.isXSLT() && el.local == "template" {
			templateElems = append(templateElems, el)
		}
	})

	// Global variables and parameters are direct children of the root.
	for _, child := range root.children {
		if child.isXSLT() && (child.local == "variable" || child.local == "param") {
			if v := newVariable(child, types.ScopeGlobal, ""); v != nil {
				sheet.Variables = append(sheet.Variables, v)
			}
		}
	}

	anonymous := 0
	seen := make(map[string]int)
	for _, el := range templateElems {
		tmpl, vars := p.extractTemplate(el, source, &anonymous)

		// Keys must be unique within a file; duplicate definitions are
		// tolerated and disambiguated rather than rejected.
		if n := seen[tmpl.Key]; n > 0 {
			seen[tmpl.Key] = n + 1
			tmpl.Key = fmt.Sprintf("%s_%d", tmpl.Key, n+1)
		}
		seen[tmpl.Key]++

		for _, v := range vars {
			v.Template = tmpl.Key
		}
		sheet.Templates = append(sheet.Templates, tmpl)
		sheet.Variables = append(sheet.Variables, vars...)
	}

	linkTemplates(sheet.Templates)

	for _, tmpl := range sheet.Templates {
		tmpl.ComplexityScore = complexityScore(tmpl)
	}

	sheet.Summary = summarize(sheet)

	return sheet, nil
}

// extractTemplate builds a Template from one xsl:template element, returning
// the template together with its nested variable declarations.
func (p *Parser) extractTemplate(el *element, source []byte, anonymous *int) (*types.Template, []*types.Variable) {
	name := el.attr("name")
	match := el.attr("match")
	mode := el.attr("mode")

	key := name
	if key == "" && match != "" {
		key = match
		if mode != "" {
			key = match + "#" + mode
		}
	}
	if key == "" {
		*anonymous++
		key = fmt.Sprintf("anonymous_%d", *anonymous)
	}

	content := string(source[el.start:el.end])

	tmpl := &types.Template{
		Key:               key,
		Name:              name,
		Match:             match,
		Mode:              mode,
		LineStart:         el.line,
		LineEnd:           el.line + strings.Count(content, "\n"),
		Content:           content,
		Hash:              fmt.Sprintf("%x", crc32.ChecksumIEEE([]byte(content))),
		CallsTemplates:    []string{},
		CalledByTemplates: []string{},
		UsesVariables:     []string{},
		DefinesVariables:  []string{},
		XPathExpressions:  []string{},
		ConditionalLogic:  []types.Conditional{},
		OutputElements:    []string{},
	}

	if raw := el.attr("priority"); raw != "" {
		if priority, err := strconv.ParseFloat(raw, 64); err == nil {
			tmpl.Priority = &priority
		}
	}

	var vars []*types.Variable

	el.walk(func(child *element) {
		// Any select/test/match attribute on a descendant is an XPath
		// expression, regardless of the owning element.
		for _, attrName := range []string{"select", "test", "match"} {
			if child.hasAttr(attrName) {
				tmpl.XPathExpressions = appendUnique(tmpl.XPathExpressions, child.attr(attrName))
			}
		}

		if !child.isXSLT() {
			// Literal result element.
			tmpl.OutputElements = appendUnique(tmpl.OutputElements, child.local)
			return
		}

		switch child.local {
		case "call-template":
			if target := child.attr("name"); target != "" {
				tmpl.CallsTemplates = appendUnique(tmpl.CallsTemplates, target)
			}
		case "apply-templates":
			// apply-templates has no static target; record pseudo-targets
			// for the mode and select so callers stay visible in the graph.
			if m := child.attr("mode"); m != "" {
				tmpl.CallsTemplates = appendUnique(tmpl.CallsTemplates, "mode:"+m)
			}
			if sel := child.attr("select"); sel != "" {
				tmpl.CallsTemplates = appendUnique(tmpl.CallsTemplates, "select:"+sel)
			}
		case "variable", "param":
			if v := newVariable(child, types.ScopeTemplate, key); v != nil {
				tmpl.DefinesVariables = appendUnique(tmpl.DefinesVariables, v.Name)
				vars = append(vars, v)
			}
		case "if":
			tmpl.ConditionalLogic = append(tmpl.ConditionalLogic, types.Conditional{
				Kind:      types.ConditionalIf,
				Condition: child.attr("test"),
				Line:      child.line,
			})
		case "choose":
			branches := []string{}
			for _, when := range child.children {
				if when.isXSLT() && when.local == "when" {
					branches = append(branches, when.attr("test"))
				}
			}
			tmpl.ConditionalLogic = append(tmpl.ConditionalLogic, types.Conditional{
				Kind:             types.ConditionalChoose,
				BranchConditions: branches,
				Line:             child.line,
			})
		case "element":
			if out := child.attr("name"); out != "" {
				tmpl.OutputElements = appendUnique(tmpl.OutputElements, out)
			}
		}
	})

	for _, m := range variableRefPattern.FindAllStringSubmatch(content, -1) {
		tmpl.UsesVariables = appendUnique(tmpl.UsesVariables, m[1])
	}

	return tmpl, vars
}

// newVariable builds a Variable from an xsl:variable or xsl:param element.
// Returns nil for declarations without a name, which are tolerated but carry
// no identity.
func newVariable(el *element, scope types.VariableScope, template string) *types.Variable {
	name := el.attr("name")
	if name == "" {
		return nil
	}

	v := &types.Variable{
		Key:             name,
		Name:            name,
		Type:            types.VariableTypeVariable,
		Select:          el.attr("select"),
		Scope:           scope,
		Line:            el.line,
		Template:        template,
		UsedByTemplates: []string{},
	}
	if el.local == "param" {
		v.Type = types.VariableTypeParameter
	}
	if scope != types.ScopeGlobal {
		// Template-scoped declarations are keyed by name plus line so a
		// shadowed name stays distinct.
		v.Key = fmt.Sprintf("%s:%d", name, el.line)
	}
	if v.Select == "" {
		v.Content = strings.TrimSpace(el.text)
	}

	return v
}

// linkTemplates runs the second pass: it fills called_by_templates from the
// call lists and flags direct self-recursion. Mutual recursion across two or
// more templates is intentionally not detected here; it surfaces through the
// semantic analyzer's circular dependency check instead.
func linkTemplates(templates []*types.Template) {
	byKey := make(map[string]*types.Template, len(templates))
	for _, tmpl := range templates {
		byKey[tmpl.Key] = tmpl
	}

	for _, caller := range templates {
		for _, target := range caller.CallsTemplates {
			if callee, ok := byKey[target]; ok {
				callee.CalledByTemplates = appendUnique(callee.CalledByTemplates, caller.Key)
			}
		}
		caller.IsRecursive = caller.Calls(caller.Key)
	}
}

// complexityScore computes the additive per-template complexity score.
// The weights are load-bearing for downstream hotspot and recommendation
// thresholds; both length terms apply to content over 1000 characters.
func complexityScore(t *types.Template) int {
	score := 1
	score += 2 * len(t.ConditionalLogic)
	score += len(t.UsesVariables)
	score += len(t.XPathExpressions)
	score += len(t.CallsTemplates)
	if t.IsRecursive {
		score += 5
	}
	if len(t.Content) > 1000 {
		score += 2
	}
	if len(t.Content) > 500 {
		score += 1
	}
	return score
}

func summarize(sheet *types.Stylesheet) types.ParseSummary {
	summary := types.ParseSummary{
		TemplateCount: len(sheet.Templates),
		VariableCount: len(sheet.Variables),
	}

	if len(sheet.Templates) == 0 {
		return summary
	}

	total := 0
	best := sheet.Templates[0]
	for _, tmpl := range sheet.Templates {
		total += tmpl.ComplexityScore
		if tmpl.ComplexityScore > best.ComplexityScore {
			best = tmpl
		}
	}
	summary.AverageComplexity = float64(total) / float64(len(sheet.Templates))
	summary.MostComplexTemplate = best.Key

	return summary
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
