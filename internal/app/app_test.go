package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractAuditor/internal/config"
	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/logging"
	"ContractAuditor/internal/usecase"
)

const sampleContract = `ГОСУДАРСТВЕННЫЙ КОНТРАКТ № 17
Предмет контракта: поставка канцелярских товаров.
Цена контракта составляет 450 000,00 рублей.
Контракт заключен на основании п. 4 ч. 1 ст. 93 Федерального закона.
ИНН 7701234567 КПП 770101001 р/с 40702810900000000001 БИК 044525225`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Logging: config.LoggingConfig{Level: "error"},
		HTTP:    config.HTTPConfig{Addr: "127.0.0.1:0", UploadDir: filepath.Join(dir, "uploads"), MaxUploadBytes: 1 << 20},
		Statutes: config.StatuteConfig{
			Default: "44-ФЗ",
			Sources: map[string]string{"44-ФЗ": filepath.Join(dir, "missing-44.pdf")},
		},
		Database: config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(dir, "articles.db")},
		LLM:      config.LLMConfig{Timeout: 1},
		Analysis: config.AnalysisConfig{
			FoundationThreshold: 100000,
			ContractBudget:      12000,
			NoticeBudget:        8000,
			ContextArticles:     5,
			ContextContentRunes: 500,
		},
		Ranking: config.RankingConfig{MinScore: 0.3, Limit: 10},
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.ContractBudget = 0

	_, err := New(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	contractPath := filepath.Join(t.TempDir(), "contract.txt")
	require.NoError(t, os.WriteFile(contractPath, []byte(sampleContract), 0o644))

	report, err := application.Analyze(context.Background(), contractPath, "", "")
	require.NoError(t, err)

	assert.Equal(t, "44-ФЗ", report.LawContext.StatuteID)
	assert.Zero(t, report.LawContext.RelevantArticlesCount, "statute source is missing")
	assert.False(t, report.HasNotice)

	require.True(t, report.BasicAnalysis.Price.Found)
	assert.Equal(t, "450 000,00", report.BasicAnalysis.Price.RawText)

	var foundation bool
	for _, issue := range report.BasicAnalysis.Errors {
		if issue.Kind == domain.KindFoundationMismatch {
			foundation = true
		}
	}
	assert.True(t, foundation, "price above the threshold contradicts the small-purchase foundation")

	require.Len(t, report.AIAnalysis.Issues, 1)
	assert.Equal(t, domain.KindAPIError, report.AIAnalysis.Issues[0].Type)
	assert.NotEqual(t, domain.StatusLowRisk, report.Summary.Status)
}

func TestAnalyzeMissingContract(t *testing.T) {
	application, err := New(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	_, err = application.Analyze(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"), "", "44-ФЗ")
	assert.ErrorIs(t, err, usecase.ErrContractNotFound)
}

func TestStatuteLookupWithoutSource(t *testing.T) {
	application, err := New(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	assert.Empty(t, application.Statutes().Articles(context.Background(), "223-ФЗ"))
	assert.Equal(t, "44-ФЗ", application.DefaultStatute())
}
