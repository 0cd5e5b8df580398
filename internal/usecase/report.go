package usecase

import (
	"fmt"
	"strings"

	"ContractAuditor/internal/domain"
)

const highRiskAbove = 5

// buildLawContext renders the top-ranked articles as prompt context.
func buildLawContext(statuteID string, articles []domain.RankedArticle, contentRunes int) string {
	if len(articles) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Релевантные статьи %s:\n", statuteID)
	for _, ranked := range articles {
		article := ranked.Article
		fmt.Fprintf(&b, "\nСтатья %s. %s\n%s\n", article.Number, article.Title,
			truncateRunes(article.Content, contentRunes))
	}
	return b.String()
}

func articleRefs(articles []domain.RankedArticle) []domain.ArticleRef {
	refs := make([]domain.ArticleRef, 0, len(articles))
	for _, ranked := range articles {
		refs = append(refs, domain.ArticleRef{
			Number: ranked.Article.Number,
			Title:  ranked.Article.Title,
			Score:  ranked.Score,
		})
	}
	return refs
}

// summarize derives the risk rollup. Only validator errors count as critical.
func summarize(basic domain.ValidationReport, comparison domain.ComparisonReport, ai domain.AIAnalysis) domain.Summary {
	total := len(basic.Errors) + len(comparison.Mismatches) + len(ai.Issues)

	critical := 0
	for _, issue := range basic.Errors {
		if issue.Severity == domain.SeverityCritical {
			critical++
		}
	}

	status := domain.StatusLowRisk
	switch {
	case total > highRiskAbove:
		status = domain.StatusHighRisk
	case total > 0:
		status = domain.StatusMediumRisk
	}

	recommendations := ai.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	return domain.Summary{
		TotalIssues:     total,
		CriticalIssues:  critical,
		Recommendations: recommendations,
		Status:          status,
	}
}

func apiErrorAnalysis(err error) domain.AIAnalysis {
	return domain.AIAnalysis{
		Issues: []domain.AIIssue{{
			Type:           domain.KindAPIError,
			Severity:       string(domain.SeverityWarning),
			Description:    fmt.Sprintf("Ошибка подключения к AI сервису: %v", err),
			LawReference:   "",
			Recommendation: "Проверьте подключение и учетные данные сервиса анализа",
		}},
		Recommendations: []string{"Проведите ручную проверку контракта"},
		Summary:         "AI анализ временно недоступен",
	}
}

func parseErrorAnalysis() domain.AIAnalysis {
	return domain.AIAnalysis{
		Issues: []domain.AIIssue{{
			Type:           domain.KindParseError,
			Severity:       string(domain.SeverityWarning),
			Description:    "Не удалось распознать структурированный ответ",
			LawReference:   "",
			Recommendation: "Проверьте контракт вручную",
		}},
		Recommendations: []string{"Проведите дополнительную проверку"},
		Summary:         "Требуется ручная проверка",
	}
}
