package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractAuditor/internal/domain"
)

func newSQLiteStore(t *testing.T) *ArticleStore {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewArticleStore(db, DriverSQLite)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migration is idempotent")
	return store
}

func TestArticleStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newSQLiteStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "44-ФЗ")
	require.NoError(t, err)
	assert.False(t, ok)

	articles := []domain.Article{
		{Number: "93", Title: "Единственный поставщик", Content: "Закупка у единственного поставщика.", StatuteID: "44-ФЗ"},
		{Number: "1", Title: "Сфера применения", Content: "Настоящий закон регулирует отношения.", StatuteID: "44-ФЗ"},
		{Number: "34.1", Title: "Контракт", Content: "Контракт заключается на условиях извещения.", StatuteID: "44-ФЗ"},
	}
	require.NoError(t, store.Put(ctx, "44-ФЗ", articles))

	got, ok, err := store.Get(ctx, "44-ФЗ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, articles, got, "insertion order is preserved")

	_, ok, err = store.Get(ctx, "223-ФЗ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArticleStoreFirstWriterWins(t *testing.T) {
	t.Parallel()

	store := newSQLiteStore(t)
	ctx := context.Background()

	first := []domain.Article{{Number: "1", Title: "Первый", Content: "Первая версия статьи.", StatuteID: "44-ФЗ"}}
	second := []domain.Article{{Number: "2", Title: "Второй", Content: "Вторая версия статьи.", StatuteID: "44-ФЗ"}}

	require.NoError(t, store.Put(ctx, "44-ФЗ", first))
	require.NoError(t, store.Put(ctx, "44-ФЗ", second))
	require.NoError(t, store.Put(ctx, "44-ФЗ", nil))

	got, _, err := store.Get(ctx, "44-ФЗ")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestArticleStoreBatchesLargeStatutes(t *testing.T) {
	t.Parallel()

	store := newSQLiteStore(t)
	ctx := context.Background()

	articles := make([]domain.Article, insertBatch+37)
	for i := range articles {
		articles[i] = domain.Article{
			Number:    fmt.Sprint(i + 1),
			Title:     "Статья",
			Content:   "Содержание статьи номер " + fmt.Sprint(i+1),
			StatuteID: "223-ФЗ",
		}
	}
	require.NoError(t, store.Put(ctx, "223-ФЗ", articles))

	got, ok, err := store.Get(ctx, "223-ФЗ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, len(articles))
	assert.Equal(t, "1", got[0].Number)
	assert.Equal(t, fmt.Sprint(len(articles)), got[len(got)-1].Number)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "root@/db")
	assert.Error(t, err)
}

func TestPlaceholderFormat(t *testing.T) {
	t.Parallel()

	for driver, want := range map[string]string{
		DriverSQLite:   "WHERE statute_id = ?",
		DriverPostgres: "WHERE statute_id = $1",
	} {
		query, args, err := NewArticleStore(nil, driver).builder.
			Select("number").
			From(articlesTable).
			Where(sq.Eq{"statute_id": "44-ФЗ"}).
			ToSql()
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(query, want), query)
		assert.Equal(t, []interface{}{"44-ФЗ"}, args)
	}
}
