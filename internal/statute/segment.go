package statute

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"ContractAuditor/internal/domain"
)

const (
	minContentRunes         = 30
	minFallbackContentRunes = 50
	maxContentRunes         = 2000
	maxTitleRunes           = 100
	fallbackBelow           = 15

	defaultTitle  = "Общие положения"
	fallbackTitle = "Извлеченная статья"
)

var (
	articleMarker     = regexp.MustCompile(`(?i)Статья\s+(\d+(?:[.,]\d+)?)`)
	articleBoundary   = regexp.MustCompile(`(?i)Статья\s+\d`)
	shortMarker       = regexp.MustCompile(`(?i)Ст\.\s*(\d+(?:[.,]\d+)?)`)
	shortBoundary     = regexp.MustCompile(`(?i)Ст\.\s*\d|Статья\s+\d`)
	articleNumberExpr = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

	titledBody   = regexp.MustCompile(`(?s)^\.?\s*([^.]{5,80}?)(?:\s+(1\.\s.*)|\.\s*(.*))$`)
	untitledBody = regexp.MustCompile(`(?s)^\.\s*(.+)$`)
	looseBody    = regexp.MustCompile(`(?s)^[\s.]*(.+)$`)
	headingBody  = regexp.MustCompile(`(?s)^[\s.]*([^.]{5,50})[.\s]*(.+)$`)
)

// boilerplate is removed from article content in this order.
var boilerplate = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Федеральный закон.*?№\s*\d+[^-]*-ФЗ`),
	regexp.MustCompile(`(?i)\d+\s*страниц?а?\s*\d*`),
	regexp.MustCompile(`(?i)Раздел\s+[IVXLCDM]+.*`),
	regexp.MustCompile(`(?i)Глава\s+\d+.*`),
	regexp.MustCompile(`\([^)]*\)\s*\([^)]*\)`),
	regexp.MustCompile(`(?i)\d+\s*-\s*ФЗ`),
	regexp.MustCompile(`(?i)Принят.*Государственной Думой`),
	regexp.MustCompile(`(?i)Одобрен.*Советом Федерации`),
}

// tocPhrases mark table-of-contents and section-header fragments.
var tocPhrases = []string{
	"оглавление",
	"содержание",
	"приложение",
	"глава",
	"раздел",
	"статья статья",
	"часть первая",
	"часть вторая",
}

// strategy is one article extraction pattern. start captures the article
// number; the body runs until the next boundary match or the end of text.
type strategy struct {
	name     string
	start    *regexp.Regexp
	boundary *regexp.Regexp
	parse    func(body string) (title, content string, ok bool)
}

// strategies are ordered from the most to the least specific.
var strategies = []strategy{
	{name: "titled", start: articleMarker, boundary: articleBoundary, parse: parseTitled},
	{name: "untitled", start: articleMarker, boundary: articleBoundary, parse: parseUntitled},
	{name: "short", start: shortMarker, boundary: shortBoundary, parse: parseShort},
	{name: "heading", start: articleMarker, boundary: articleBoundary, parse: parseHeading},
}

type candidate struct {
	article domain.Article
	pos     int
}

// Segment splits whitespace-normalized statute text into articles ordered by
// their position in the text. The first valid article for a number wins.
func Segment(statuteID, text string) []domain.Article {
	found := map[string]candidate{}

	for _, s := range strategies {
		for _, c := range s.apply(statuteID, text) {
			if _, ok := found[c.article.Number]; ok {
				continue
			}
			found[c.article.Number] = c
		}
	}

	if len(found) < fallbackBelow {
		for _, c := range fallbackSegments(statuteID, text) {
			if _, ok := found[c.article.Number]; ok {
				continue
			}
			found[c.article.Number] = c
		}
	}

	ordered := make([]candidate, 0, len(found))
	for _, c := range found {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].pos != ordered[j].pos {
			return ordered[i].pos < ordered[j].pos
		}
		return ordered[i].article.Number < ordered[j].article.Number
	})

	articles := make([]domain.Article, 0, len(ordered))
	for _, c := range ordered {
		articles = append(articles, c.article)
	}
	return articles
}

func (s strategy) apply(statuteID, text string) []candidate {
	var out []candidate
	for _, loc := range s.start.FindAllStringSubmatchIndex(text, -1) {
		number := normalizeNumber(text[loc[2]:loc[3]])
		body := text[loc[1]:nextBoundary(s.boundary, text, loc[1])]

		title, content, ok := s.parse(body)
		if !ok {
			continue
		}
		content = cleanContent(content)
		if !validArticle(number, content, minContentRunes) || hasTOCPhrase(content) {
			continue
		}

		title = strings.TrimSpace(title)
		if title == "" {
			title = defaultTitle
		}
		out = append(out, candidate{
			article: domain.Article{
				Number:    number,
				Title:     truncateRunes(title, maxTitleRunes),
				Content:   truncateRunes(content, maxContentRunes),
				StatuteID: statuteID,
			},
			pos: loc[0],
		})
	}
	return out
}

// fallbackSegments pairs every "Статья N" marker with the text up to the next one.
func fallbackSegments(statuteID, text string) []candidate {
	var out []candidate
	for _, loc := range articleMarker.FindAllStringSubmatchIndex(text, -1) {
		number := normalizeNumber(text[loc[2]:loc[3]])
		body := text[loc[1]:nextBoundary(articleBoundary, text, loc[1])]
		content := cleanContent(truncateRunes(body, maxContentRunes))
		if !validArticle(number, content, minFallbackContentRunes) {
			continue
		}
		out = append(out, candidate{
			article: domain.Article{
				Number:    number,
				Title:     fallbackTitle,
				Content:   content,
				StatuteID: statuteID,
			},
			pos: loc[0],
		})
	}
	return out
}

func nextBoundary(boundary *regexp.Regexp, text string, from int) int {
	if loc := boundary.FindStringIndex(text[from:]); loc != nil {
		return from + loc[0]
	}
	return len(text)
}

func parseTitled(body string) (string, string, bool) {
	m := titledBody.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	content := m[2]
	if content == "" {
		content = m[3]
	}
	return m[1], content, true
}

func parseUntitled(body string) (string, string, bool) {
	m := untitledBody.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return "", m[1], true
}

func parseShort(body string) (string, string, bool) {
	m := looseBody.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return "", m[1], true
}

func parseHeading(body string) (string, string, bool) {
	m := headingBody.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// cleanContent strips statute boilerplate and collapses whitespace.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}
	for _, expr := range boilerplate {
		content = expr.ReplaceAllString(content, "")
	}
	return normalizeSpace(content)
}

func validArticle(number, content string, minRunes int) bool {
	if number == "" || content == "" {
		return false
	}
	if !articleNumberExpr.MatchString(number) {
		return false
	}
	return utf8.RuneCountInString(content) >= minRunes
}

func hasTOCPhrase(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range tocPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func normalizeNumber(number string) string {
	return strings.ReplaceAll(strings.TrimSpace(number), ",", ".")
}

// normalizeSpace collapses every run of Unicode whitespace into one space.
func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit]))
}
