package types

import "time"

// PriorityLevel is the coordinator's overall test-generation priority.
type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
)

// TestPriority ranks one template for test generation, with the score
// reasons spelled out the same way hotspot reasons are.
type TestPriority struct {
	Template string   `json:"template"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
}

// RiskAssessment lists the templates the coordinator flags as risky.
type RiskAssessment struct {
	// HighComplexity lists templates with complexity score above 15.
	HighComplexity []string `json:"high_complexity"`
	// Recursive lists self-recursive templates.
	Recursive []string `json:"recursive"`
}

// Recommendations is the coordinator's prioritization output for one file.
type Recommendations struct {
	TestPrioritization []TestPriority `json:"test_prioritization"`
	Risk               RiskAssessment `json:"risk_assessment"`
	OverallPriority    PriorityLevel  `json:"overall_priority"`
}

// FileAnalysis is the unified result aggregate for one stylesheet: the output
// of all three pipeline stages plus recommendations. This is the object
// handed to external consumers and persistence callbacks.
type FileAnalysis struct {
	FilePath        string             `json:"file_path"`
	Stylesheet      *Stylesheet        `json:"stylesheet"`
	Semantic        *SemanticAnalysis  `json:"semantic"`
	Execution       *ExecutionAnalysis `json:"execution"`
	Recommendations Recommendations    `json:"recommendations"`
	AnalyzedAt      time.Time          `json:"analyzed_at"`
	Duration        time.Duration      `json:"duration"`
}

// SharedTemplate reports a template key referenced from more than one file in
// a batch run.
type SharedTemplate struct {
	Key string `json:"key"`
	// Files lists the analyzed files whose templates call this key.
	Files []string  `json:"files"`
	Risk  RiskLevel `json:"risk"`
}

// CommonPattern reports a pattern type detected in more than one file.
type CommonPattern struct {
	Type  PatternType `json:"pattern_type"`
	Files []string    `json:"files"`
	Count int         `json:"count"`
}

// CrossFileAnalysis aggregates findings across the successful files of a
// batch run.
type CrossFileAnalysis struct {
	SharedTemplates []SharedTemplate `json:"shared_templates"`
	CommonPatterns  []CommonPattern  `json:"common_patterns"`
}

// BatchSummary holds batch-level counts.
type BatchSummary struct {
	FileCount     int `json:"file_count"`
	FailedCount   int `json:"failed_count"`
	TemplateCount int `json:"template_count"`
	PatternCount  int `json:"pattern_count"`
	HotspotCount  int `json:"hotspot_count"`
}

// BatchAnalysis is the result of analyzing multiple files. One file's failure
// does not remove the others; Errors keeps the per-file failure messages and
// CrossFile is computed over the successful subset only.
type BatchAnalysis struct {
	Files     map[string]*FileAnalysis `json:"files"`
	Errors    map[string]string        `json:"errors"`
	CrossFile CrossFileAnalysis        `json:"cross_file"`
	Summary   BatchSummary             `json:"summary"`
}
