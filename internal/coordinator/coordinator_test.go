package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xslterrors "github.com/conneroisu/xsltlens/internal/errors"
	"github.com/conneroisu/xsltlens/internal/registry"
	"github.com/conneroisu/xsltlens/internal/types"
)

const invoiceStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:variable name="taxRate" select="0.2"/>
  <xsl:template match="/">
    <invoice>
      <xsl:call-template name="lines"/>
      <xsl:call-template name="footer"/>
    </invoice>
  </xsl:template>
  <xsl:template name="lines">
    <xsl:variable name="total" select="sum(//line/@amount)"/>
    <xsl:if test="$total &gt; 0">
      <total><xsl:value-of select="$total * (1 + $taxRate)"/></total>
    </xsl:if>
  </xsl:template>
  <xsl:template name="footer">
    <generated/>
  </xsl:template>
</xsl:stylesheet>`

func TestAnalyzeSourcePipeline(t *testing.T) {
	coord := New(Options{})

	analysis, err := coord.AnalyzeSource(context.Background(), []byte(invoiceStylesheet), "invoice.xsl")
	require.NoError(t, err)

	assert.Equal(t, "invoice.xsl", analysis.FilePath)
	require.NotNil(t, analysis.Stylesheet)
	require.NotNil(t, analysis.Semantic)
	require.NotNil(t, analysis.Execution)

	assert.Len(t, analysis.Stylesheet.Templates, 3)
	assert.True(t, analysis.Semantic.HasPattern(types.PatternConditionalProcessing))
	assert.True(t, analysis.Semantic.HasPattern(types.PatternDataAggregation))
	assert.NotEmpty(t, analysis.Execution.Paths)
	assert.False(t, analysis.AnalyzedAt.IsZero())
}

func TestAnalyzeSourceHelperCallWiring(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="mainB" match="/">
    <xsl:call-template name="helperA"/>
  </xsl:template>
  <xsl:template name="helperA"><out/></xsl:template>
</xsl:stylesheet>`

	coord := New(Options{})
	analysis, err := coord.AnalyzeSource(context.Background(), []byte(source), "pair.xsl")
	require.NoError(t, err)

	main := analysis.Stylesheet.Template("mainB")
	helper := analysis.Stylesheet.Template("helperA")
	require.NotNil(t, main)
	require.NotNil(t, helper)

	assert.Equal(t, []string{"helperA"}, main.CallsTemplates)
	assert.Equal(t, []string{"mainB"}, helper.CalledByTemplates)
	assert.Equal(t, []string{"mainB"}, analysis.Execution.Graph.EntryPoints)
	assert.Empty(t, analysis.Semantic.Hotspots)
}

func TestAnalyzeSourceParseFailureAbortsPipeline(t *testing.T) {
	coord := New(Options{})

	analysis, err := coord.AnalyzeSource(context.Background(), []byte("<broken"), "broken.xsl")
	require.Error(t, err)
	assert.Nil(t, analysis)
	assert.True(t, xslterrors.IsParseError(err))
	assert.Equal(t, "parser", xslterrors.Stage(err))
}

func TestAnalyzeFileRegistersResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.xsl")
	require.NoError(t, os.WriteFile(path, []byte(invoiceStylesheet), 0644))

	reg := registry.NewAnalysisRegistry()
	coord := New(Options{Registry: reg})

	analysis, err := coord.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	stored, ok := reg.Get(path)
	require.True(t, ok)
	assert.Equal(t, analysis, stored)
}

type recordingStore struct {
	mu    sync.Mutex
	saved map[string]*types.FileAnalysis
	fail  bool
}

func (s *recordingStore) SaveAnalysis(ctx context.Context, fileID string, analysis *types.FileAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	if s.saved == nil {
		s.saved = make(map[string]*types.FileAnalysis)
	}
	s.saved[fileID] = analysis
	return nil
}

func TestAnalyzeSourcePersistsToStore(t *testing.T) {
	store := &recordingStore{}
	coord := New(Options{Store: store})

	_, err := coord.AnalyzeSource(context.Background(), []byte(invoiceStylesheet), "invoice.xsl")
	require.NoError(t, err)

	require.Contains(t, store.saved, "invoice.xsl")
}

func TestStoreFailureDoesNotFailAnalysis(t *testing.T) {
	store := &recordingStore{fail: true}
	coord := New(Options{Store: store})

	analysis, err := coord.AnalyzeSource(context.Background(), []byte(invoiceStylesheet), "invoice.xsl")
	require.NoError(t, err)
	assert.NotNil(t, analysis)
}

func TestRecommendations(t *testing.T) {
	source := `<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="/">
    <xsl:call-template name="walk"/>
  </xsl:template>
  <xsl:template name="walk">
    <xsl:param name="depth" select="0"/>
    <xsl:if test="$depth &lt; 5"><xsl:call-template name="walk"/></xsl:if>
    <xsl:if test="$depth = 0"><first/></xsl:if>
    <xsl:if test="$depth = 1"><second/></xsl:if>
    <xsl:if test="$depth = 2"><third/></xsl:if>
    <level/>
  </xsl:template>
</xsl:stylesheet>`

	coord := New(Options{})
	analysis, err := coord.AnalyzeSource(context.Background(), []byte(source), "walk.xsl")
	require.NoError(t, err)

	recs := analysis.Recommendations

	require.NotEmpty(t, recs.TestPrioritization)
	assert.Equal(t, "walk", recs.TestPrioritization[0].Template)
	assert.NotEmpty(t, recs.TestPrioritization[0].Reasons)

	assert.Contains(t, recs.Risk.Recursive, "walk")
	assert.Contains(t, recs.Risk.HighComplexity, "walk")
	assert.NotEqual(t, types.PriorityLevel(""), recs.OverallPriority)
}

func TestOverallPriority(t *testing.T) {
	tests := []struct {
		name     string
		patterns []types.SemanticPattern
		paths    []*types.ExecutionPath
		want     types.PriorityLevel
	}{
		{
			name: "low with nothing notable",
			want: types.PriorityLow,
		},
		{
			name: "medium on two confident patterns",
			patterns: []types.SemanticPattern{
				{Confidence: 0.9}, {Confidence: 0.85},
			},
			want: types.PriorityMedium,
		},
		{
			name: "high on many confident patterns",
			patterns: []types.SemanticPattern{
				{Confidence: 0.9}, {Confidence: 0.9},
				{Confidence: 0.85}, {Confidence: 1.0},
			},
			want: types.PriorityHigh,
		},
		{
			name: "high on many complex paths",
			paths: []*types.ExecutionPath{
				{ComplexityScore: 11}, {ComplexityScore: 12}, {ComplexityScore: 13},
				{ComplexityScore: 14}, {ComplexityScore: 15}, {ComplexityScore: 16},
			},
			want: types.PriorityHigh,
		},
		{
			name: "low confidence patterns do not count",
			patterns: []types.SemanticPattern{
				{Confidence: 0.7}, {Confidence: 0.6}, {Confidence: 0.7},
			},
			want: types.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sem := &types.SemanticAnalysis{Patterns: tt.patterns}
			exec := &types.ExecutionAnalysis{Paths: tt.paths}
			assert.Equal(t, tt.want, overallPriority(sem, exec))
		})
	}
}
