// Package ranking orders statute articles by their relevance to a contract.
package ranking

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/ports"
)

const (
	extraKeywordBonus = 0.3
	priorityBonus     = 0.8
	sharedNumberBonus = 0.5
	sharedWordBonus   = 0.1

	minWordRunes   = 4
	minNumberDigit = 4
	maxNumberDigit = 7

	// DefaultMinScore is the exclusive lower bound for a relevant article.
	DefaultMinScore = 0.3
	// DefaultLimit caps the number of ranked articles.
	DefaultLimit = 10
)

// Topic groups keyword stems under a weight and a list of articles that
// matter most for the subject.
type Topic struct {
	Name             string
	Weight           float64
	Keywords         []string
	PriorityArticles []string
}

// DefaultTopics returns the built-in topic table for procurement contracts.
func DefaultTopics() []Topic {
	return []Topic{
		{
			Name:             "price",
			Weight:           2.0,
			Keywords:         []string{"цена", "стоимость", "рубл", "сумма", "бюджет", "оплат", "финанс"},
			PriorityArticles: []string{"34", "22", "19"},
		},
		{
			Name:             "deadlines",
			Weight:           1.5,
			Keywords:         []string{"срок", "период", "дата", "время", "исполнен", "поставк", "выполнен"},
			PriorityArticles: []string{"34", "35", "36"},
		},
		{
			Name:             "responsibility",
			Weight:           1.8,
			Keywords:         []string{"ответственность", "штраф", "пеня", "неустойка", "нарушен", "санкц"},
			PriorityArticles: []string{"34", "37"},
		},
		{
			Name:             "requirements",
			Weight:           1.3,
			Keywords:         []string{"требован", "услов", "правил", "норм", "стандарт", "качеств", "гарант"},
			PriorityArticles: []string{"33", "34", "32"},
		},
		{
			Name:             "changes",
			Weight:           1.2,
			Keywords:         []string{"изменен", "расторжен", "прекращен", "пересмотр", "корректировк"},
			PriorityArticles: []string{"95", "34", "36"},
		},
	}
}

// Options tunes a Ranker. Zero values select the defaults.
type Options struct {
	Topics   []Topic
	MinScore float64
	Limit    int
}

// Ranker scores the articles of a statute against contract text.
type Ranker struct {
	statutes ports.StatuteReader
	topics   []Topic
	minScore float64
	limit    int
	logger   *slog.Logger
}

// NewRanker constructs a ranker over the given statute reader.
func NewRanker(statutes ports.StatuteReader, opts Options, logger *slog.Logger) *Ranker {
	topics := opts.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ranker{
		statutes: statutes,
		topics:   topics,
		minScore: minScore,
		limit:    limit,
		logger:   logger,
	}
}

// Rank returns at most Limit articles of statuteID scoring above MinScore,
// best first. Ties keep the statute's article order.
func (r *Ranker) Rank(ctx context.Context, contractText, statuteID string) []domain.RankedArticle {
	articles := r.statutes.Articles(ctx, statuteID)
	if len(articles) == 0 {
		return nil
	}

	contract := newProfile(contractText)

	var ranked []domain.RankedArticle
	for _, article := range articles {
		score := r.score(contract, article)
		if score > r.minScore {
			ranked = append(ranked, domain.RankedArticle{Article: article, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}

	r.debug("articles ranked", "statute", statuteID, "candidates", len(articles), "relevant", len(ranked))
	return ranked
}

func (r *Ranker) score(contract profile, article domain.Article) float64 {
	text := newProfile(article.Title + " " + article.Content)

	var score float64
	for _, topic := range r.topics {
		if !containsAny(contract.text, topic.Keywords) || !containsAny(text.text, topic.Keywords) {
			continue
		}
		score += topic.Weight

		shared := 0
		for _, keyword := range topic.Keywords {
			if strings.Contains(contract.text, keyword) && strings.Contains(text.text, keyword) {
				shared++
			}
		}
		if shared > 1 {
			score += extraKeywordBonus * float64(shared-1)
		}

		if slices.Contains(topic.PriorityArticles, article.Number) {
			score += priorityBonus
		}
	}

	score += sharedNumberBonus * float64(overlap(contract.numbers, text.numbers))
	score += sharedWordBonus * float64(overlap(contract.words, text.words))
	return score
}

// profile is the lowercased, whitespace-collapsed form of a text together
// with its distinct significant words and numeric literals.
type profile struct {
	text    string
	words   map[string]struct{}
	numbers map[string]struct{}
}

func newProfile(raw string) profile {
	text := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	p := profile{
		text:    text,
		words:   map[string]struct{}{},
		numbers: map[string]struct{}{},
	}

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	for _, token := range tokens {
		switch {
		case isCyrillicWord(token):
			p.words[token] = struct{}{}
		case isNumberLiteral(token):
			p.numbers[token] = struct{}{}
		}
	}
	return p
}

// isCyrillicWord accepts tokens made only of а-я with at least four letters.
func isCyrillicWord(token string) bool {
	if utf8.RuneCountInString(token) < minWordRunes {
		return false
	}
	for _, r := range token {
		if r < 'а' || r > 'я' {
			return false
		}
	}
	return true
}

func isNumberLiteral(token string) bool {
	if len(token) < minNumberDigit || len(token) > maxNumberDigit {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for key := range a {
		if _, ok := b[key]; ok {
			n++
		}
	}
	return n
}

func (r *Ranker) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
