package domain

// Article is a numbered unit of statutory text parsed from a statute source.
// Identity is the pair (StatuteID, Number).
type Article struct {
	Number    string `json:"number"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	StatuteID string `json:"statute_id"`
}

// RankedArticle pairs an article with its relevance score for one contract.
// Scores are only comparable within a single ranking call.
type RankedArticle struct {
	Article Article `json:"article"`
	Score   float64 `json:"score"`
}

// ArticleRef is the short form of a ranked article carried in reports.
type ArticleRef struct {
	Number string  `json:"number"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}
