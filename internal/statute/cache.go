package statute

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/ports"
)

// Cache maps statute identifiers to their parsed articles. Entries are
// written once and never invalidated; concurrent loads of the same
// identifier share a single parse.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]domain.Article
	group   singleflight.Group
	store   ports.ArticleStore
	logger  *slog.Logger
}

// NewCache wires an optional backing store; nil keeps entries in memory only.
func NewCache(store ports.ArticleStore, logger *slog.Logger) *Cache {
	return &Cache{
		entries: map[string][]domain.Article{},
		store:   store,
		logger:  logger,
	}
}

// GetOrLoad returns the cached articles for id, calling load at most once
// per identifier for the lifetime of the cache. load runs detached from the
// caller's cancellation so waiters sharing the call are not cut short. A load
// that fails is not remembered and the next caller retries it. The returned
// slice is a copy.
func (c *Cache) GetOrLoad(ctx context.Context, id string, load func(ctx context.Context) ([]domain.Article, error)) []domain.Article {
	if articles, ok := c.lookup(id); ok {
		return slices.Clone(articles)
	}

	v, _, _ := c.group.Do(id, func() (any, error) {
		if articles, ok := c.lookup(id); ok {
			return articles, nil
		}

		loadCtx := context.WithoutCancel(ctx)
		if articles, ok := c.fromStore(loadCtx, id); ok {
			c.remember(id, articles)
			stored, _ := c.lookup(id)
			return stored, nil
		}

		articles, err := load(loadCtx)
		if err != nil {
			c.warn("statute load interrupted", "statute", id, "error", err)
			return articles, nil
		}
		c.remember(id, articles)
		if len(articles) > 0 {
			c.toStore(loadCtx, id, articles)
		}
		stored, _ := c.lookup(id)
		return stored, nil
	})

	articles, _ := v.([]domain.Article)
	return slices.Clone(articles)
}

// Loaded reports whether id already has an entry.
func (c *Cache) Loaded(id string) bool {
	_, ok := c.lookup(id)
	return ok
}

func (c *Cache) lookup(id string) ([]domain.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	articles, ok := c.entries[id]
	return articles, ok
}

func (c *Cache) remember(id string, articles []domain.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	c.entries[id] = articles
}

func (c *Cache) fromStore(ctx context.Context, id string) ([]domain.Article, bool) {
	if c.store == nil {
		return nil, false
	}
	articles, ok, err := c.store.Get(ctx, id)
	if err != nil {
		c.warn("article store read failed", "statute", id, "error", err)
		return nil, false
	}
	if !ok || len(articles) == 0 {
		return nil, false
	}
	return articles, true
}

func (c *Cache) toStore(ctx context.Context, id string, articles []domain.Article) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, id, articles); err != nil {
		c.warn("article store write failed", "statute", id, "error", err)
	}
}

func (c *Cache) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
