package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractAuditor/internal/config"
	"ContractAuditor/internal/ports"
)

func chatServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		if status >= http.StatusBadRequest {
			_, _ = w.Write([]byte(content))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(endpoint string) *Client {
	return NewClient(config.LLMConfig{
		Endpoint: endpoint,
		Model:    "GigaChat-2-Max",
		APIKey:   "secret",
		Timeout:  5 * time.Second,
	}, nil)
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	t.Parallel()

	answer := "Вот результат анализа:\n```json\n{\n  \"issues\": [\n    {\"type\": \"deadline\", \"severity\": \"Warning\", \"description\": \"Срок не указан\", \"recommendation\": \"Укажите срок\"},\n  ],\n  \"recommendations\": [\"Уточнить сроки\"],\n  \"summary\": \"Есть замечания\"\n}\n```"
	var seen chatRequest
	client := newTestClient(chatServer(t, http.StatusOK, answer, &seen).URL)

	analysis, err := client.Analyze(context.Background(), ports.AnalysisRequest{
		ContractText: "Текст контракта",
		NoticeText:   "Текст извещения",
		StatuteID:    "44-ФЗ",
		LawContext:   "Статья 34. Контракт",
	})
	require.NoError(t, err)

	require.Len(t, analysis.Issues, 1)
	issue := analysis.Issues[0]
	assert.Equal(t, "deadline", issue.Type)
	assert.Equal(t, "warning", issue.Severity)
	assert.Equal(t, "", issue.LawReference)
	assert.Equal(t, []string{"Уточнить сроки"}, analysis.Recommendations)
	assert.Equal(t, "Есть замечания", analysis.Summary)

	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "GigaChat-2-Max", seen.Model)
	prompt := seen.Messages[1].Content
	assert.Contains(t, prompt, "эксперт по государственным закупкам 44-ФЗ")
	assert.Contains(t, prompt, "Статья 34. Контракт")
	assert.Contains(t, prompt, "ИЗВЕЩЕНИЕ О ЗАКУПКЕ:\nТекст извещения")
}

func TestAnalyzeRejectsProse(t *testing.T) {
	t.Parallel()

	client := newTestClient(chatServer(t, http.StatusOK, "Контракт выглядит нормально.", nil).URL)

	_, err := client.Analyze(context.Background(), ports.AnalysisRequest{ContractText: "x", StatuteID: "44-ФЗ"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResponseInvalid))
}

func TestAnalyzeHTTPError(t *testing.T) {
	t.Parallel()

	client := newTestClient(chatServer(t, http.StatusUnauthorized, `{"message":"token expired"}`, nil).URL)

	_, err := client.Analyze(context.Background(), ports.AnalysisRequest{ContractText: "x", StatuteID: "44-ФЗ"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrResponseInvalid))
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "token expired")
}

func TestClientNotConfigured(t *testing.T) {
	t.Parallel()

	client := NewClient(config.LLMConfig{Endpoint: "http://localhost", Model: "m"}, nil)
	assert.False(t, client.Configured())

	_, err := client.Analyze(context.Background(), ports.AnalysisRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.Ask(context.Background(), "Какой срок?", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAsk(t *testing.T) {
	t.Parallel()

	var seen chatRequest
	client := newTestClient(chatServer(t, http.StatusOK, "  Срок поставки - 30 дней.\n", &seen).URL)

	answer, err := client.Ask(context.Background(), "Какой срок поставки?", "Поставка в течение 30 дней")
	require.NoError(t, err)
	assert.Equal(t, "Срок поставки - 30 дней.", answer)
	assert.True(t, strings.HasSuffix(seen.Messages[1].Content, "Вопрос: Какой срок поставки?\n\nОтвет:"))
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bare object", content: `{"summary": "ok"}`, want: `{"summary": "ok"}`},
		{name: "surrounded by prose", content: "Ответ: {\"summary\": \"ok\"} Конец.", want: `{"summary": "ok"}`},
		{name: "fenced without language", content: "```\n{\"a\": [1, 2,]}\n```", want: `{"a": [1, 2]}`},
		{name: "no object", content: "нет данных", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}

func TestAnalysisPromptWithoutNotice(t *testing.T) {
	t.Parallel()

	prompt := analysisPrompt(ports.AnalysisRequest{ContractText: "КОНТРАКТ №1", StatuteID: "223-ФЗ"})

	assert.Contains(t, prompt, "Анализ на соответствие 223-ФЗ")
	assert.NotContains(t, prompt, "ИЗВЕЩЕНИЕ")
	assert.Contains(t, prompt, `"law_reference"`)
}
