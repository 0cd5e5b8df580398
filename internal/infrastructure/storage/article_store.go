package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/ports"
)

const (
	articlesTable = "statute_articles"
	insertBatch   = 500
)

const createArticlesTable = `CREATE TABLE IF NOT EXISTS statute_articles (
    statute_id TEXT    NOT NULL,
    ord        INTEGER NOT NULL,
    number     TEXT    NOT NULL,
    title      TEXT    NOT NULL,
    content    TEXT    NOT NULL,
    PRIMARY KEY (statute_id, number)
)`

// ArticleStore persists parsed statute articles so that several processes
// share one parse per statute.
type ArticleStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleStore = (*ArticleStore)(nil)

// NewArticleStore wires a sql.DB opened with the given driver name.
func NewArticleStore(db *sql.DB, driver string) *ArticleStore {
	return &ArticleStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder(driver)),
	}
}

// Migrate creates the articles table when it does not exist yet.
func (s *ArticleStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createArticlesTable); err != nil {
		return fmt.Errorf("create %s: %w", articlesTable, err)
	}
	return nil
}

// Get returns the stored articles of a statute in source order.
func (s *ArticleStore) Get(ctx context.Context, statuteID string) ([]domain.Article, bool, error) {
	if s.db == nil {
		return nil, false, nil
	}

	query, args, err := s.builder.
		Select("number", "title", "content").
		From(articlesTable).
		Where(sq.Eq{"statute_id": statuteID}).
		OrderBy("ord").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("query articles: %w", err)
	}

	var articles []domain.Article
	for rows.Next() {
		article := domain.Article{StatuteID: statuteID}
		if err := rows.Scan(&article.Number, &article.Title, &article.Content); err != nil {
			_ = rows.Close()
			return nil, false, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, false, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, false, fmt.Errorf("close rows: %w", closeErr)
	}

	return articles, len(articles) > 0, nil
}

// Put stores the articles of a statute unless another writer stored them first.
func (s *ArticleStore) Put(ctx context.Context, statuteID string, articles []domain.Article) error {
	if s.db == nil || len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := s.exists(ctx, tx, statuteID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	for start := 0; start < len(articles); start += insertBatch {
		end := min(start+insertBatch, len(articles))

		insert := s.builder.
			Insert(articlesTable).
			Columns("statute_id", "ord", "number", "title", "content")
		for i, article := range articles[start:end] {
			insert = insert.Values(statuteID, start+i, article.Number, article.Title, article.Content)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert articles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit articles: %w", err)
	}
	return nil
}

func (s *ArticleStore) exists(ctx context.Context, tx *sql.Tx, statuteID string) (bool, error) {
	query, args, err := s.builder.
		Select("COUNT(*)").
		From(articlesTable).
		Where(sq.Eq{"statute_id": statuteID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build count: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count articles: %w", err)
	}
	return count > 0, nil
}
