package domain

// Severity grades a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue kinds emitted by the rule-based validator.
const (
	KindMissingClause      = "missing_clause"
	KindClauseFormat       = "clause_format"
	KindMissingPrice       = "missing_price"
	KindFoundationMismatch = "foundation_mismatch"
	KindMissingRequisites  = "missing_requisites"
)

// Issue kinds substituted for a failed external analysis.
const (
	KindAPIError   = "api_error"
	KindParseError = "parse_error"
)

// Risk statuses of the report summary.
const (
	StatusHighRisk   = "high_risk"
	StatusMediumRisk = "medium_risk"
	StatusLowRisk    = "low_risk"
)

// Issue is a single validator finding.
type Issue struct {
	Kind     string   `json:"type"`
	Clause   string   `json:"clause,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// PriceInfo describes the contract price found in a text.
// NumericValue is set if and only if Found is true.
type PriceInfo struct {
	Found          bool     `json:"found"`
	RawText        string   `json:"raw_text,omitempty"`
	NumericValue   *float64 `json:"numeric_value,omitempty"`
	ContextSnippet string   `json:"context_snippet,omitempty"`
}

// ValidationReport is the outcome of the rule-based clause check.
type ValidationReport struct {
	Errors                  []Issue   `json:"errors"`
	Warnings                []Issue   `json:"warnings"`
	MandatoryClausesChecked []string  `json:"mandatory_clauses_checked"`
	Price                   PriceInfo `json:"price"`
}

// Mismatch is one parameter that differs between a contract and its notice.
type Mismatch struct {
	Parameter     string `json:"parameter"`
	ContractValue string `json:"contract_value"`
	NoticeValue   string `json:"notice_value"`
	Message       string `json:"message"`
}

// ComparisonReport lists contract/notice mismatches.
type ComparisonReport struct {
	Mismatches         []Mismatch `json:"mismatches"`
	ParametersCompared []string   `json:"parameters_compared"`
}

// AIIssue is a finding reported by the external analysis service.
type AIIssue struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	LawReference   string `json:"law_reference"`
	Recommendation string `json:"recommendation"`
}

// AIAnalysis is the structured answer of the external analysis service.
type AIAnalysis struct {
	Issues          []AIIssue `json:"issues"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
}

// LawContext describes which statute articles were handed to the analysis.
type LawContext struct {
	RelevantArticlesCount int          `json:"relevant_articles_count"`
	StatuteID             string       `json:"statute_id"`
	Articles              []ArticleRef `json:"articles"`
}

// Summary is the derived risk rollup of a report.
type Summary struct {
	TotalIssues     int      `json:"total_issues"`
	CriticalIssues  int      `json:"critical_issues"`
	Recommendations []string `json:"recommendations"`
	Status          string   `json:"status"`
}

// Report aggregates every partial result of one contract analysis.
type Report struct {
	ID            string           `json:"id"`
	BasicAnalysis ValidationReport `json:"basic_analysis"`
	Comparison    ComparisonReport `json:"comparison"`
	AIAnalysis    AIAnalysis       `json:"ai_analysis"`
	LawContext    LawContext       `json:"law_context"`
	Summary       Summary          `json:"summary"`
	Timestamp     string           `json:"timestamp"`
	HasNotice     bool             `json:"has_notice"`
}
