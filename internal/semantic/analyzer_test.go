package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/xsltlens/internal/parser"
	"github.com/conneroisu/xsltlens/internal/types"
)

func parse(t *testing.T, source string) *types.Stylesheet {
	t.Helper()
	sheet, err := parser.NewParser().Parse([]byte(source), "test.xsl")
	require.NoError(t, err)
	return sheet
}

func TestDetectPatterns(t *testing.T) {
	tests := []struct {
		name           string
		source         string
		wantPattern    types.PatternType
		wantConfidence float64
	}{
		{
			name: "conditional processing",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="item">
    <xsl:if test="@ok"><yes/></xsl:if>
  </xsl:template>
</xsl:stylesheet>`,
			wantPattern:    types.PatternConditionalProcessing,
			wantConfidence: 0.9,
		},
		{
			name: "recursive processing",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="walk">
    <xsl:call-template name="walk"/>
  </xsl:template>
</xsl:stylesheet>`,
			wantPattern:    types.PatternRecursiveProcessing,
			wantConfidence: 1.0,
		},
		{
			name: "data aggregation",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="items">
    <total><xsl:value-of select="sum(item/@price)"/></total>
  </xsl:template>
</xsl:stylesheet>`,
			wantPattern:    types.PatternDataAggregation,
			wantConfidence: 0.85,
		},
		{
			name: "template orchestration",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="doc">
    <xsl:call-template name="first"/>
    <xsl:call-template name="second"/>
  </xsl:template>
  <xsl:template name="first"><a/></xsl:template>
  <xsl:template name="second"><b/></xsl:template>
</xsl:stylesheet>`,
			wantPattern:    types.PatternTemplateOrchestration,
			wantConfidence: 0.7,
		},
		{
			name: "error handling",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="item">
    <xsl:if test="not(@id)"><missing>fallback value</missing></xsl:if>
  </xsl:template>
</xsl:stylesheet>`,
			wantPattern:    types.PatternErrorHandling,
			wantConfidence: 0.6,
		},
		{
			name: "transformation pipeline",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="doc">
    <stage-one><xsl:call-template name="mid"/></stage-one>
  </xsl:template>
  <xsl:template name="mid">
    <stage-two><xsl:call-template name="leaf"/></stage-two>
  </xsl:template>
  <xsl:template name="leaf"><done/></xsl:template>
</xsl:stylesheet>`,
			wantPattern:    types.PatternTransformationPipeline,
			wantConfidence: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := parse(t, tt.source)
			analysis := NewAnalyzer().Analyze(sheet)

			require.True(t, analysis.HasPattern(tt.wantPattern),
				"expected pattern %s, got %v", tt.wantPattern, analysis.Patterns)

			for _, p := range analysis.Patterns {
				if p.Type == tt.wantPattern {
					assert.Equal(t, tt.wantConfidence, p.Confidence)
					assert.NotEmpty(t, p.Templates)
					assert.NotEmpty(t, p.TestImplications)
				}
			}
		})
	}
}

func TestPatternsIndependent(t *testing.T) {
	// One stylesheet can match several pattern types at once.
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="walk">
    <xsl:if test="count(item) &gt; 0">
      <xsl:call-template name="walk"/>
    </xsl:if>
  </xsl:template>
</xsl:stylesheet>`

	analysis := NewAnalyzer().Analyze(parse(t, source))

	assert.True(t, analysis.HasPattern(types.PatternRecursiveProcessing))
	assert.True(t, analysis.HasPattern(types.PatternConditionalProcessing))
	assert.True(t, analysis.HasPattern(types.PatternDataAggregation))
}

func TestNoPatternsOnTrivialStylesheet(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="doc"><out/></xsl:template>
</xsl:stylesheet>`

	analysis := NewAnalyzer().Analyze(parse(t, source))
	assert.Empty(t, analysis.Patterns)
}

func TestVariableDiagnostics(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:variable name="shadowed" select="'global'"/>
  <xsl:variable name="orphan" select="'never read'"/>
  <xsl:template match="item">
    <xsl:variable name="shadowed" select="'local'"/>
    <out><xsl:value-of select="$shadowed"/></out>
  </xsl:template>
</xsl:stylesheet>`

	sheet := parse(t, source)
	analysis := NewAnalyzer().Analyze(sheet)

	require.Len(t, analysis.Variables.Conflicts, 1)
	conflict := analysis.Variables.Conflicts[0]
	assert.Equal(t, "shadowed", conflict.Name)
	assert.Len(t, conflict.Keys, 2)

	assert.Equal(t, []string{"orphan"}, analysis.Variables.Unused)

	// Usage resolution fills used_by_templates as a side effect.
	for _, v := range sheet.Variables {
		if v.Name == "shadowed" {
			assert.Equal(t, []string{"item"}, v.UsedByTemplates)
		}
	}
}

func TestInteractionDiagnostics(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="/">
    <xsl:call-template name="used"/>
  </xsl:template>
  <xsl:template name="used"><a/></xsl:template>
  <xsl:template name="orphan"><b/></xsl:template>
</xsl:stylesheet>`

	analysis := NewAnalyzer().Analyze(parse(t, source))

	assert.Equal(t, []string{"/"}, analysis.Interactions.CallGraph["used"])
	assert.Empty(t, analysis.Interactions.CallGraph["/"])
	assert.Equal(t, []string{"orphan"}, analysis.Interactions.OrphanedTemplates)
	assert.Empty(t, analysis.Interactions.CircularDependencies)
}

func TestCircularDependencies(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		wantCycle []string
	}{
		{
			name: "direct self recursion",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="loop"><xsl:call-template name="loop"/></xsl:template>
</xsl:stylesheet>`,
			wantCycle: []string{"loop", "loop"},
		},
		{
			name: "mutual recursion",
			source: `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="ping"><xsl:call-template name="pong"/></xsl:template>
  <xsl:template name="pong"><xsl:call-template name="ping"/></xsl:template>
</xsl:stylesheet>`,
			wantCycle: []string{"ping", "pong", "ping"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := parse(t, tt.source)
			analysis := NewAnalyzer().Analyze(sheet)

			require.Len(t, analysis.Interactions.CircularDependencies, 1)
			assert.Equal(t, tt.wantCycle, analysis.Interactions.CircularDependencies[0])
		})
	}
}

func TestMutualRecursionNotFlaggedOnTemplate(t *testing.T) {
	// is_recursive covers direct self-calls only; mutual recursion surfaces
	// through the circular dependency check instead.
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="ping"><xsl:call-template name="pong"/></xsl:template>
  <xsl:template name="pong"><xsl:call-template name="ping"/></xsl:template>
</xsl:stylesheet>`

	sheet := parse(t, source)
	for _, tmpl := range sheet.Templates {
		assert.False(t, tmpl.IsRecursive)
	}

	analysis := NewAnalyzer().Analyze(sheet)
	assert.Len(t, analysis.Interactions.CircularDependencies, 1)
}

func TestFindHotspots(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="/">
    <xsl:call-template name="busy"/>
  </xsl:template>
  <xsl:template name="busy">
    <xsl:param name="depth" select="0"/>
    <level><xsl:value-of select="$depth"/></level>
    <xsl:if test="$depth &lt; 10">
      <xsl:call-template name="busy"/>
    </xsl:if>
  </xsl:template>
</xsl:stylesheet>`

	sheet := parse(t, source)
	analysis := NewAnalyzer().Analyze(sheet)

	require.Len(t, analysis.Hotspots, 1)
	hotspot := analysis.Hotspots[0]
	assert.Equal(t, "busy", hotspot.Template)
	assert.GreaterOrEqual(t, hotspot.Score, 5)
	assert.NotEmpty(t, hotspot.Reasons)
}

func TestHotspotBoundaryOnConditionHeavyTemplate(t *testing.T) {
	// Four conditionals with no calls: complexity crosses 10 and the
	// conditional count crosses 3, which is exactly the 5-point threshold.
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="row">
    <xsl:if test="@a"><a/></xsl:if>
    <xsl:if test="@b"><b/></xsl:if>
    <xsl:if test="@c"><c/></xsl:if>
    <xsl:if test="@d"><d/></xsl:if>
  </xsl:template>
</xsl:stylesheet>`

	sheet := parse(t, source)
	require.Equal(t, 13, sheet.Templates[0].ComplexityScore)

	analysis := NewAnalyzer().Analyze(sheet)
	assert.True(t, analysis.HasPattern(types.PatternConditionalProcessing))
	require.Len(t, analysis.Hotspots, 1)
	assert.Equal(t, 5, analysis.Hotspots[0].Score)
	assert.Equal(t, types.RiskMedium, analysis.Hotspots[0].Risk)
}

func TestScoreTemplate(t *testing.T) {
	tests := []struct {
		name      string
		template  *types.Template
		wantScore int
	}{
		{
			name:      "plain template scores zero",
			template:  &types.Template{Key: "plain", ComplexityScore: 3},
			wantScore: 0,
		},
		{
			name: "complexity over ten",
			template: &types.Template{
				Key:             "complex",
				ComplexityScore: 11,
			},
			wantScore: 3,
		},
		{
			name: "recursive with many conditionals",
			template: &types.Template{
				Key:             "heavy",
				ComplexityScore: 12,
				IsRecursive:     true,
				ConditionalLogic: []types.Conditional{
					{Kind: types.ConditionalIf}, {Kind: types.ConditionalIf},
					{Kind: types.ConditionalIf}, {Kind: types.ConditionalIf},
				},
			},
			wantScore: 8,
		},
		{
			name: "long xpath counted once",
			template: &types.Template{
				Key: "xpath",
				XPathExpressions: []string{
					"//orders/order[status = 'open' and total > 1000]/customer/name",
					"//orders/order[status = 'closed' and total > 5000]/customer/name",
				},
			},
			wantScore: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasons := ScoreTemplate(tt.template)
			assert.Equal(t, tt.wantScore, score)
			if score > 0 {
				assert.NotEmpty(t, reasons)
			}
		})
	}
}

func TestDataFlowGraph(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="item">
    <xsl:variable name="total" select="sum(line/@amount)"/>
    <xsl:if test="$total &gt; 0">
      <sum><xsl:value-of select="$total"/></sum>
    </xsl:if>
  </xsl:template>
</xsl:stylesheet>`

	analysis := NewAnalyzer().Analyze(parse(t, source))
	graph := analysis.DataFlow

	var assignment *types.DataFlowNode
	for i := range graph.Nodes {
		if graph.Nodes[i].Kind == types.FlowVariableAssignment {
			assignment = &graph.Nodes[i]
		}
	}
	require.NotNil(t, assignment)
	assert.Equal(t, "total", assignment.Detail)
	assert.Equal(t, "item", assignment.Template)

	// The assignment must flow into every node that references $total.
	edgesFrom := 0
	for _, edge := range graph.Edges {
		if edge.From == assignment.ID {
			edgesFrom++
		}
	}
	assert.GreaterOrEqual(t, edgesFrom, 2)
}

func TestAnalyzeEmptyStylesheet(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform"/>`

	analysis := NewAnalyzer().Analyze(parse(t, source))

	assert.Empty(t, analysis.Patterns)
	assert.Empty(t, analysis.Hotspots)
	assert.Empty(t, analysis.DataFlow.Nodes)
	assert.Empty(t, analysis.Variables.Conflicts)
	assert.Empty(t, analysis.Interactions.CircularDependencies)
}
