// Package statute turns statute PDFs into addressable articles and keeps
// them in a process-wide cache.
package statute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/metrics"
	"ContractAuditor/internal/ports"
)

// RepositoryDeps wires the statute sources and collaborators.
type RepositoryDeps struct {
	// Sources maps statute identifiers to source files.
	Sources map[string]string
	// DefaultID names the source used for unknown identifiers.
	DefaultID string
	Pages     ports.PageSource
	Cache     *Cache
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Repository loads statutes on first use and serves their articles.
type Repository struct {
	sources   map[string]string
	defaultID string
	pages     ports.PageSource
	cache     *Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

var _ ports.StatuteReader = (*Repository)(nil)

// NewRepository constructs a repository; a nil cache gets a memory-only one.
func NewRepository(deps RepositoryDeps) *Repository {
	cache := deps.Cache
	if cache == nil {
		cache = NewCache(nil, deps.Logger)
	}
	return &Repository{
		sources:   deps.Sources,
		defaultID: deps.DefaultID,
		pages:     deps.Pages,
		cache:     cache,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// Load returns the articles of a statute keyed by article number.
// It never fails: a missing or unreadable source yields an empty mapping.
func (r *Repository) Load(ctx context.Context, statuteID string) map[string]domain.Article {
	articles := r.Articles(ctx, statuteID)
	byNumber := make(map[string]domain.Article, len(articles))
	for _, article := range articles {
		byNumber[article.Number] = article
	}
	return byNumber
}

// Articles returns a copy of the articles of a statute in source order.
func (r *Repository) Articles(ctx context.Context, statuteID string) []domain.Article {
	return r.cache.GetOrLoad(ctx, statuteID, func(ctx context.Context) ([]domain.Article, error) {
		return r.parse(ctx, statuteID)
	})
}

// Article looks up a single article by number.
func (r *Repository) Article(ctx context.Context, statuteID, number string) (domain.Article, bool) {
	article, ok := r.Load(ctx, statuteID)[normalizeNumber(number)]
	return article, ok
}

// Search returns articles whose title or content contains query, ignoring case,
// ordered by article number.
func (r *Repository) Search(ctx context.Context, statuteID, query string) []domain.Article {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	var matches []domain.Article
	for _, article := range r.Articles(ctx, statuteID) {
		haystack := strings.ToLower(article.Title + " " + article.Content)
		if strings.Contains(haystack, needle) {
			matches = append(matches, article)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return numberLess(matches[i].Number, matches[j].Number)
	})
	return matches
}

// SourcePath resolves the file backing a statute identifier. Unknown
// identifiers fall back to the default statute's source.
func (r *Repository) SourcePath(statuteID string) string {
	if path, ok := r.sources[statuteID]; ok {
		return path
	}
	return r.sources[r.defaultID]
}

// parse reads and segments a statute source. Missing or unreadable sources
// yield no articles and no error; only an interrupted extraction is an error.
func (r *Repository) parse(ctx context.Context, statuteID string) ([]domain.Article, error) {
	path := r.SourcePath(statuteID)
	if path == "" {
		r.warn("no statute source configured", "statute", statuteID)
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		r.warn("statute source unavailable", "statute", statuteID, "path", path, "error", err)
		return nil, nil
	}
	if r.pages == nil {
		r.warn("statute page source is not configured", "statute", statuteID)
		return nil, nil
	}

	started := time.Now()
	pages, err := r.pages.Pages(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("extract statute %s: %w", statuteID, err)
		}
		r.warn("statute extraction failed", "statute", statuteID, "path", path, "error", err)
		return nil, nil
	}

	normalized := make([]string, 0, len(pages))
	for _, page := range pages {
		if page = normalizeSpace(page); page != "" {
			normalized = append(normalized, page)
		}
	}

	articles := Segment(statuteID, strings.Join(normalized, " "))
	r.metrics.ObserveStatuteLoad(statuteID, time.Since(started), len(articles))
	r.debug("statute parsed", "statute", statuteID, "pages", len(pages), "articles", len(articles))
	return articles, nil
}

// numberLess orders "9" before "10" and "10" before "10.1".
func numberLess(a, b string) bool {
	ai, af := splitNumber(a)
	bi, bf := splitNumber(b)
	if ai != bi {
		return ai < bi
	}
	return af < bf
}

func splitNumber(number string) (int, int) {
	whole, frac, _ := strings.Cut(number, ".")
	i, _ := strconv.Atoi(whole)
	f, _ := strconv.Atoi(frac)
	return i, f
}

func (r *Repository) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Repository) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
