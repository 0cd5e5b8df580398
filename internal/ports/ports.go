package ports

import (
	"context"
	"errors"

	"ContractAuditor/internal/domain"
)

// TextExtractor turns a document on disk into plain text. It never fails:
// problems are reported as human-readable text instead.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) string
}

// PageSource reads the text of every page of a statute document.
// Pages that cannot be decoded are skipped by the implementation.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

// ArticleStore is the backing store of the statute cache.
type ArticleStore interface {
	Get(ctx context.Context, statuteID string) ([]domain.Article, bool, error)
	Put(ctx context.Context, statuteID string, articles []domain.Article) error
}

// StatuteReader exposes the parsed articles of a statute in source order.
type StatuteReader interface {
	Articles(ctx context.Context, statuteID string) []domain.Article
}

// ErrMalformedAnalysis marks an analysis answer that could not be decoded.
var ErrMalformedAnalysis = errors.New("analysis response is malformed")

// AnalysisRequest is the payload handed to the external analysis service.
type AnalysisRequest struct {
	ContractText string
	NoticeText   string
	StatuteID    string
	LawContext   string
}

// Analyzer performs narrative issue detection with an external LLM.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (domain.AIAnalysis, error)
}

// Assistant answers free-form questions about a contract.
type Assistant interface {
	Ask(ctx context.Context, question, details string) (string, error)
}

// ArticleRanker orders statute articles by relevance to a contract.
type ArticleRanker interface {
	Rank(ctx context.Context, contractText, statuteID string) []domain.RankedArticle
}

// ClauseValidator runs the rule-based contract checks.
type ClauseValidator interface {
	Validate(contractText, lawType string) domain.ValidationReport
}

// NoticeComparator reports contract parameters that disagree with the notice.
type NoticeComparator interface {
	Compare(contractText, noticeText string) domain.ComparisonReport
}
