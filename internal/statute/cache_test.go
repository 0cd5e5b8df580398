package statute

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractAuditor/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]domain.Article
	puts    int
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]domain.Article{}}
}

func (s *memoryStore) Get(_ context.Context, statuteID string) ([]domain.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, false, errors.New("connection refused")
	}
	articles, ok := s.data[statuteID]
	return articles, ok, nil
}

func (s *memoryStore) Put(_ context.Context, statuteID string, articles []domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.data[statuteID] = articles
	return nil
}

func sampleArticles() []domain.Article {
	return []domain.Article{{Number: "34", Title: "Контракт", Content: "Контракт заключается на условиях извещения.", StatuteID: "44-ФЗ"}}
}

func loadSample(context.Context) ([]domain.Article, error) {
	return sampleArticles(), nil
}

func TestCacheLoadsOncePerIdentifier(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil, nil)
	var calls atomic.Int32
	load := func(context.Context) ([]domain.Article, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return sampleArticles(), nil
	}

	var wg sync.WaitGroup
	results := make([][]domain.Article, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetOrLoad(context.Background(), "44-ФЗ", load)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, got := range results {
		assert.Equal(t, sampleArticles(), got)
	}
	assert.True(t, cache.Loaded("44-ФЗ"))
	assert.False(t, cache.Loaded("223-ФЗ"))
}

func TestCacheRemembersEmptyResult(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	cache := NewCache(store, nil)
	var calls int
	load := func(context.Context) ([]domain.Article, error) {
		calls++
		return nil, nil
	}

	first := cache.GetOrLoad(context.Background(), "44-ФЗ", load)
	second := cache.GetOrLoad(context.Background(), "44-ФЗ", load)

	require.NotNil(t, first)
	assert.Empty(t, first)
	assert.Empty(t, second)
	assert.Equal(t, 1, calls)
	assert.Zero(t, store.puts, "empty parses are kept in memory only")
}

func TestCacheReadsThroughStore(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.data["44-ФЗ"] = sampleArticles()
	cache := NewCache(store, nil)

	got := cache.GetOrLoad(context.Background(), "44-ФЗ", func(context.Context) ([]domain.Article, error) {
		t.Fatal("load must not run when the store has the statute")
		return nil, nil
	})
	assert.Equal(t, sampleArticles(), got)
	assert.Zero(t, store.puts)
}

func TestCacheStoreErrorFallsBackToLoad(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.failGet = true
	cache := NewCache(store, nil)

	got := cache.GetOrLoad(context.Background(), "44-ФЗ", loadSample)
	assert.Equal(t, sampleArticles(), got)
	assert.Equal(t, 1, store.puts)
}

func TestCacheFailedLoadIsRetried(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	cache := NewCache(store, nil)
	var calls int
	load := func(context.Context) ([]domain.Article, error) {
		calls++
		if calls == 1 {
			return nil, context.Canceled
		}
		return sampleArticles(), nil
	}

	assert.Empty(t, cache.GetOrLoad(context.Background(), "44-ФЗ", load))
	assert.False(t, cache.Loaded("44-ФЗ"), "interrupted load must not be remembered")

	got := cache.GetOrLoad(context.Background(), "44-ФЗ", load)
	assert.Equal(t, sampleArticles(), got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, store.puts)
}

func TestCacheLoadIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := cache.GetOrLoad(ctx, "44-ФЗ", func(ctx context.Context) ([]domain.Article, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sampleArticles(), nil
	})
	assert.Equal(t, sampleArticles(), got)
	assert.True(t, cache.Loaded("44-ФЗ"))
}

func TestCacheReturnsCopies(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil, nil)
	first := cache.GetOrLoad(context.Background(), "44-ФЗ", loadSample)
	require.Len(t, first, 1)
	first[0].Title = "Изменено"
	first[0].Number = "1"

	second := cache.GetOrLoad(context.Background(), "44-ФЗ", loadSample)
	assert.Equal(t, sampleArticles(), second)
}
