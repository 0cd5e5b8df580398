package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ContractAuditor/internal/domain"
)

var (
	// jsonBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches the outermost braces (greedy).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSON pulls a JSON object out of free-form model output.
func extractJSON(content string) string {
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := jsonObjectPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

func cleanJSON(raw string) string {
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// parseAnalysis decodes the analysis object; missing lists become empty.
func parseAnalysis(answer string) (domain.AIAnalysis, error) {
	raw := extractJSON(answer)
	if raw == "" {
		return domain.AIAnalysis{}, fmt.Errorf("%w: no JSON object", ErrResponseInvalid)
	}

	var analysis domain.AIAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return domain.AIAnalysis{}, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	if analysis.Issues == nil {
		analysis.Issues = []domain.AIIssue{}
	}
	if analysis.Recommendations == nil {
		analysis.Recommendations = []string{}
	}
	for i := range analysis.Issues {
		analysis.Issues[i].Severity = strings.ToLower(strings.TrimSpace(analysis.Issues[i].Severity))
	}
	return analysis, nil
}
