package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/metrics"
	"ContractAuditor/internal/ports"
)

// TimestampLayout formats report timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	// ErrContractNotFound means the contract document is missing.
	ErrContractNotFound = errors.New("contract file not found")
	// ErrNoticeNotFound means a notice path was given but the file is missing.
	ErrNoticeNotFound = errors.New("notice file not found")
	// ErrAnalyzerUnavailable means no external analysis service is configured.
	ErrAnalyzerUnavailable = errors.New("analysis service is not configured")
)

// Limits bounds the payload handed to the external analysis.
type Limits struct {
	ContractRunes       int
	NoticeRunes         int
	ContextArticles     int
	ContextContentRunes int
	AnalyzerTimeout     time.Duration
}

// DefaultLimits returns the budgets used when PipelineDeps.Limits is zero.
func DefaultLimits() Limits {
	return Limits{
		ContractRunes:       12000,
		NoticeRunes:         8000,
		ContextArticles:     5,
		ContextContentRunes: 500,
		AnalyzerTimeout:     60 * time.Second,
	}
}

// PipelineDeps wires all driven adapters into the analysis pipeline.
type PipelineDeps struct {
	Extractor  ports.TextExtractor
	Ranker     ports.ArticleRanker
	Validator  ports.ClauseValidator
	Comparator ports.NoticeComparator
	// Analyzer may be nil; reports then carry an api_error issue.
	Analyzer  ports.Analyzer
	Assistant ports.Assistant
	Limits    Limits
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Request names the documents to analyse.
type Request struct {
	ContractPath string
	// NoticePath is optional.
	NoticePath string
	StatuteID  string
}

// Pipeline implements the contract analysis workflow.
type Pipeline struct {
	extractor  ports.TextExtractor
	ranker     ports.ArticleRanker
	validator  ports.ClauseValidator
	comparator ports.NoticeComparator
	analyzer   ports.Analyzer
	assistant  ports.Assistant
	limits     Limits
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	limits := deps.Limits
	defaults := DefaultLimits()
	if limits.ContractRunes <= 0 {
		limits.ContractRunes = defaults.ContractRunes
	}
	if limits.NoticeRunes <= 0 {
		limits.NoticeRunes = defaults.NoticeRunes
	}
	if limits.ContextArticles <= 0 {
		limits.ContextArticles = defaults.ContextArticles
	}
	if limits.ContextContentRunes <= 0 {
		limits.ContextContentRunes = defaults.ContextContentRunes
	}
	if limits.AnalyzerTimeout <= 0 {
		limits.AnalyzerTimeout = defaults.AnalyzerTimeout
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		extractor:  deps.Extractor,
		ranker:     deps.Ranker,
		validator:  deps.Validator,
		comparator: deps.Comparator,
		analyzer:   deps.Analyzer,
		assistant:  deps.Assistant,
		limits:     limits,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        now,
	}
}

// Analyze runs every check on the contract and merges the results into one
// report. Only missing input documents are returned as errors; a failing
// external analysis degrades into a flagged issue.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*domain.Report, error) {
	if err := checkInputs(req); err != nil {
		return nil, err
	}

	contractText := p.extractor.ExtractText(ctx, req.ContractPath)
	hasNotice := req.NoticePath != ""
	var noticeText string
	if hasNotice {
		noticeText = p.extractor.ExtractText(ctx, req.NoticePath)
	}
	p.debug("documents extracted",
		"statute", req.StatuteID,
		"contract_runes", utf8.RuneCountInString(contractText),
		"notice_runes", utf8.RuneCountInString(noticeText),
	)

	var ranked []domain.RankedArticle
	if p.ranker != nil {
		ranked = p.ranker.Rank(ctx, contractText, req.StatuteID)
	}

	basic := p.validator.Validate(contractText, req.StatuteID)

	comparison := domain.ComparisonReport{Mismatches: []domain.Mismatch{}, ParametersCompared: []string{}}
	if hasNotice && p.comparator != nil {
		comparison = p.comparator.Compare(contractText, noticeText)
	}

	contextArticles := ranked
	if len(contextArticles) > p.limits.ContextArticles {
		contextArticles = contextArticles[:p.limits.ContextArticles]
	}

	ai := p.externalAnalysis(ctx, ports.AnalysisRequest{
		ContractText: truncateRunes(contractText, p.limits.ContractRunes),
		NoticeText:   truncateRunes(noticeText, p.limits.NoticeRunes),
		StatuteID:    req.StatuteID,
		LawContext:   buildLawContext(req.StatuteID, contextArticles, p.limits.ContextContentRunes),
	})

	report := &domain.Report{
		ID:            uuid.NewString(),
		BasicAnalysis: basic,
		Comparison:    comparison,
		AIAnalysis:    ai,
		LawContext: domain.LawContext{
			RelevantArticlesCount: len(ranked),
			StatuteID:             req.StatuteID,
			Articles:              articleRefs(contextArticles),
		},
		Summary:   summarize(basic, comparison, ai),
		Timestamp: p.now().Format(TimestampLayout),
		HasNotice: hasNotice,
	}

	p.metrics.ObserveAnalysis(report.Summary.Status)
	p.info("analysis completed",
		"report", report.ID,
		"statute", req.StatuteID,
		"status", report.Summary.Status,
		"total_issues", report.Summary.TotalIssues,
	)
	return report, nil
}

// Ask forwards a free-form question about a contract to the assistant.
func (p *Pipeline) Ask(ctx context.Context, question, details string) (string, error) {
	if p.assistant == nil {
		return "", ErrAnalyzerUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, p.limits.AnalyzerTimeout)
	defer cancel()

	answer, err := p.assistant.Ask(ctx, question, details)
	if err != nil {
		return "", fmt.Errorf("ask assistant: %w", err)
	}
	return answer, nil
}

func checkInputs(req Request) error {
	if req.ContractPath == "" {
		return ErrContractNotFound
	}
	if _, err := os.Stat(req.ContractPath); err != nil {
		return fmt.Errorf("%w: %s", ErrContractNotFound, req.ContractPath)
	}
	if req.NoticePath != "" {
		if _, err := os.Stat(req.NoticePath); err != nil {
			return fmt.Errorf("%w: %s", ErrNoticeNotFound, req.NoticePath)
		}
	}
	return nil
}

func (p *Pipeline) externalAnalysis(ctx context.Context, req ports.AnalysisRequest) domain.AIAnalysis {
	if p.analyzer == nil {
		p.metrics.ObserveAnalyzerFailure(domain.KindAPIError)
		return apiErrorAnalysis(ErrAnalyzerUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, p.limits.AnalyzerTimeout)
	defer cancel()

	ai, err := p.analyzer.Analyze(ctx, req)
	switch {
	case err == nil:
		if ai.Issues == nil {
			ai.Issues = []domain.AIIssue{}
		}
		if ai.Recommendations == nil {
			ai.Recommendations = []string{}
		}
		return ai
	case errors.Is(err, ports.ErrMalformedAnalysis):
		p.warn("external analysis returned malformed output", "error", err)
		p.metrics.ObserveAnalyzerFailure(domain.KindParseError)
		return parseErrorAnalysis()
	default:
		p.warn("external analysis failed", "error", err)
		p.metrics.ObserveAnalyzerFailure(domain.KindAPIError)
		return apiErrorAnalysis(err)
	}
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
