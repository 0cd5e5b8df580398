package statute

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractAuditor/internal/domain"
)

type fakePages struct {
	pages []string
	err   error
	calls atomic.Int32
	paths sync.Map
}

func (f *fakePages) Pages(_ context.Context, path string) ([]string, error) {
	f.calls.Add(1)
	f.paths.Store(path, true)
	return f.pages, f.err
}

// ctxPages fails like the PDF decoder when its context is done.
type ctxPages struct {
	pages   []string
	calls   atomic.Int32
	release chan struct{}
}

func (f *ctxPages) Pages(ctx context.Context, _ string) ([]string, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.pages, nil
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func newTestRepository(t *testing.T, pages *fakePages, store *memoryStore) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	path44 := touch(t, dir, "44fz_.pdf")
	path223 := touch(t, dir, "223fz_.pdf")

	var cache *Cache
	if store != nil {
		cache = NewCache(store, nil)
	}
	repo := NewRepository(RepositoryDeps{
		Sources:   map[string]string{"44-ФЗ": path44, "223-ФЗ": path223},
		DefaultID: "44-ФЗ",
		Pages:     pages,
		Cache:     cache,
	})
	return repo, path44
}

func statutePages() []string {
	return []string{
		"Статья 1. Сфера применения закона\n1. Настоящий закон регулирует отношения, направленные на обеспечение нужд заказчиков.",
		"",
		"Статья 34. Контракт\n1. Контракт заключается на условиях, предусмотренных извещением, цена контракта является твердой.",
		"Статья 93. Осуществление закупки у единственного поставщика 1. Закупка у единственного поставщика может осуществляться заказчиком в случае закупки на сумму не более 100000 рублей.",
	}
}

func TestRepositoryLoadParsesAndCaches(t *testing.T) {
	t.Parallel()

	pages := &fakePages{pages: statutePages()}
	repo, _ := newTestRepository(t, pages, nil)
	ctx := context.Background()

	first := repo.Load(ctx, "44-ФЗ")
	require.Len(t, first, 3)
	assert.Equal(t, "Контракт", first["34"].Title)
	assert.Equal(t, "44-ФЗ", first["93"].StatuteID)

	second := repo.Load(ctx, "44-ФЗ")
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, pages.calls.Load(), "second load must hit the cache")
}

func TestRepositoryArticlesKeepSourceOrder(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, &fakePages{pages: statutePages()}, nil)

	articles := repo.Articles(context.Background(), "44-ФЗ")
	require.Len(t, articles, 3)
	assert.Equal(t, []string{"1", "34", "93"}, []string{articles[0].Number, articles[1].Number, articles[2].Number})
}

func TestRepositoryUnknownStatuteUsesDefaultSource(t *testing.T) {
	t.Parallel()

	pages := &fakePages{pages: statutePages()}
	repo, path44 := newTestRepository(t, pages, nil)

	articles := repo.Load(context.Background(), "неизвестный")
	require.Len(t, articles, 3)
	assert.Equal(t, "неизвестный", articles["1"].StatuteID)

	_, used := pages.paths.Load(path44)
	assert.True(t, used)
	assert.Equal(t, path44, repo.SourcePath("неизвестный"))
}

func TestRepositoryMissingSourceIsEmpty(t *testing.T) {
	t.Parallel()

	pages := &fakePages{pages: statutePages()}
	repo := NewRepository(RepositoryDeps{
		Sources:   map[string]string{"44-ФЗ": filepath.Join(t.TempDir(), "absent.pdf")},
		DefaultID: "44-ФЗ",
		Pages:     pages,
	})

	articles := repo.Load(context.Background(), "44-ФЗ")
	assert.NotNil(t, articles)
	assert.Empty(t, articles)
	assert.EqualValues(t, 0, pages.calls.Load())
}

func TestRepositoryExtractionErrorIsEmpty(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, &fakePages{err: errors.New("broken xref table")}, nil)
	assert.Empty(t, repo.Load(context.Background(), "44-ФЗ"))
}

func TestRepositoryCancelledFirstLoadDoesNotEmptyStatute(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pages := &ctxPages{pages: statutePages()}
	repo := NewRepository(RepositoryDeps{
		Sources:   map[string]string{"44-ФЗ": touch(t, dir, "44fz_.pdf")},
		DefaultID: "44-ФЗ",
		Pages:     pages,
	})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	repo.Load(cancelled, "44-ФЗ")

	articles := repo.Load(context.Background(), "44-ФЗ")
	require.Len(t, articles, 3)
	assert.Equal(t, "Контракт", articles["34"].Title)
}

func TestRepositoryWaitersSurviveCancelledLeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pages := &ctxPages{pages: statutePages(), release: make(chan struct{})}
	repo := NewRepository(RepositoryDeps{
		Sources:   map[string]string{"44-ФЗ": touch(t, dir, "44fz_.pdf")},
		DefaultID: "44-ФЗ",
		Pages:     pages,
	})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan int, 1)
	go func() { leader <- len(repo.Load(leaderCtx, "44-ФЗ")) }()
	require.Eventually(t, func() bool { return pages.calls.Load() == 1 }, time.Second, time.Millisecond)

	waiter := make(chan int, 1)
	go func() { waiter <- len(repo.Load(context.Background(), "44-ФЗ")) }()

	cancel()
	close(pages.release)

	assert.Equal(t, 3, <-leader)
	assert.Equal(t, 3, <-waiter)
	assert.EqualValues(t, 1, pages.calls.Load())
}

func TestRepositoryInterruptedExtractionIsNotCached(t *testing.T) {
	t.Parallel()

	pages := &fakePages{err: context.DeadlineExceeded}
	repo, _ := newTestRepository(t, pages, nil)

	assert.Empty(t, repo.Load(context.Background(), "44-ФЗ"))
	assert.Empty(t, repo.Load(context.Background(), "44-ФЗ"))
	assert.EqualValues(t, 2, pages.calls.Load(), "interrupted extraction is retried")
}

func TestRepositoryArticlesAreCopies(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, &fakePages{pages: statutePages()}, nil)
	ctx := context.Background()

	first := repo.Articles(ctx, "44-ФЗ")
	require.Len(t, first, 3)
	sort.Slice(first, func(i, j int) bool { return first[i].Number > first[j].Number })
	first[0].Content = ""

	second := repo.Articles(ctx, "44-ФЗ")
	require.Len(t, second, 3)
	assert.Equal(t, []string{"1", "34", "93"}, []string{second[0].Number, second[1].Number, second[2].Number})
	assert.NotEmpty(t, second[2].Content)
}

func TestRepositoryArticleAndSearch(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, &fakePages{pages: statutePages()}, nil)
	ctx := context.Background()

	article, ok := repo.Article(ctx, "44-ФЗ", "93")
	require.True(t, ok)
	assert.Contains(t, article.Content, "единственного поставщика")

	_, ok = repo.Article(ctx, "44-ФЗ", "500")
	assert.False(t, ok)

	found := repo.Search(ctx, "44-ФЗ", "ЦЕНА КОНТРАКТА")
	require.Len(t, found, 1)
	assert.Equal(t, "34", found[0].Number)

	assert.Nil(t, repo.Search(ctx, "44-ФЗ", "  "))
}

func TestRepositoryUsesBackingStore(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.data["223-ФЗ"] = []domain.Article{{Number: "3", Title: "Правовые основы", Content: "Содержимое статьи из общего хранилища статей закона.", StatuteID: "223-ФЗ"}}

	pages := &fakePages{pages: statutePages()}
	repo, _ := newTestRepository(t, pages, store)
	ctx := context.Background()

	articles := repo.Load(ctx, "223-ФЗ")
	require.Len(t, articles, 1)
	assert.EqualValues(t, 0, pages.calls.Load(), "stored statute is not re-parsed")

	repo.Load(ctx, "44-ФЗ")
	assert.Len(t, store.data["44-ФЗ"], 3, "fresh parse is written through")
}

func TestNumberLess(t *testing.T) {
	t.Parallel()

	assert.True(t, numberLess("9", "10"))
	assert.True(t, numberLess("10", "10.1"))
	assert.False(t, numberLess("34", "34"))
}
