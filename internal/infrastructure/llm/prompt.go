package llm

import (
	"fmt"
	"strings"

	"ContractAuditor/internal/ports"
)

const answerSchema = `Ответ в формате JSON:
{
  "issues": [
    {
      "type": "тип_проблемы",
      "severity": "critical|warning|info",
      "description": "конкретное описание проблемы со ссылкой на статью закона",
      "law_reference": "ссылка на статью закона",
      "recommendation": "практическая рекомендация по исправлению"
    }
  ],
  "recommendations": ["общие рекомендации"],
  "summary": "объективная оценка с учетом законодательства"
}`

func analysisPrompt(req ports.AnalysisRequest) string {
	lawContext := strings.TrimSpace(req.LawContext)
	if lawContext == "" {
		lawContext = "Анализ на соответствие " + req.StatuteID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ты - эксперт по государственным закупкам %s.\n", req.StatuteID)
	b.WriteString("Проанализируй контракт на соответствие законодательству.\n\n")
	b.WriteString(lawContext)
	b.WriteString("\n\nКОНТРАКТ:\n")
	b.WriteString(req.ContractText)
	b.WriteString("\n\n")

	if req.NoticeText != "" {
		b.WriteString("ИЗВЕЩЕНИЕ О ЗАКУПКЕ:\n")
		b.WriteString(req.NoticeText)
		b.WriteString("\n\n")
	}

	b.WriteString("Проведи тщательный анализ и найди РЕАЛЬНЫЕ проблемы.\n")
	fmt.Fprintf(&b, "Обрати внимание на соответствие конкретным статьям %s, указанным выше.\n\n", req.StatuteID)
	b.WriteString("ВАЖНО: Ссылайся на конкретные статьи закона при выявлении нарушений!\n")
	if req.NoticeText != "" {
		b.WriteString("Не выдумывай проблемы! Анализируй только то, что есть в тексте.\n\n")
	} else {
		b.WriteString("Анализируй только то, что есть в тексте контракта.\n\n")
	}
	b.WriteString(answerSchema)
	return b.String()
}

func questionPrompt(question, details string) string {
	return fmt.Sprintf("Ответь на вопрос о контракте на основе контекста.\n\nКонтекст: %s\nВопрос: %s\n\nОтвет:",
		strings.TrimSpace(details), strings.TrimSpace(question))
}
