package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsFlow/internal/domain"
	"NewsFlow/internal/ports"
)

const articlesTable = "processed_articles"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresWriter persists processed articles into the knowledge base.
// The upsert is atomic (ON CONFLICT), so repeated identical writes leave the
// table unchanged and concurrent writers to one key resolve last-write-wins.
// Re-runs over overlapping windows may still rewrite translated fields when
// the transform backend is non-deterministic; the record stays unique.
type PostgresWriter struct {
	db *sql.DB
}

var _ ports.DestinationWriter = (*PostgresWriter)(nil)

// NewPostgresWriter wires a sql.DB implementation.
func NewPostgresWriter(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// Exists returns which of the given source URLs already have a record.
func (w *PostgresWriter) Exists(ctx context.Context, sourceURLs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(sourceURLs))
	if w.db == nil || len(sourceURLs) == 0 {
		return result, nil
	}

	query, args, err := existsQuery(sourceURLs)
	if err != nil {
		return nil, fmt.Errorf("build exists query: %w", err)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan source url: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Upsert inserts the article or overwrites the existing record for its
// source URL.
func (w *PostgresWriter) Upsert(ctx context.Context, article domain.ProcessedArticle) error {
	if w.db == nil {
		return domain.NewStageError(domain.KindWrite, "upsert", fmt.Errorf("destination database is not configured"))
	}

	query, args, err := upsertQuery(article)
	if err != nil {
		return domain.NewStageError(domain.KindWrite, "upsert", fmt.Errorf("build upsert query: %w", err))
	}

	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewStageError(domain.KindWrite, "upsert", fmt.Errorf("upsert article: %w", err))
	}

	return nil
}

func existsQuery(sourceURLs []string) (string, []interface{}, error) {
	return psql.Select("source_url").
		From(articlesTable).
		Where(sq.Eq{"source_url": sourceURLs}).
		ToSql()
}

func upsertQuery(article domain.ProcessedArticle) (string, []interface{}, error) {
	return psql.Insert(articlesTable).
		Columns(
			"source_url",
			"title",
			"translated_body",
			"translated_summary",
			"service_tags",
			"reference_urls",
			"published_at",
			"processed_at",
		).
		Values(
			article.SourceURL,
			article.Title,
			article.TranslatedBody,
			article.TranslatedSummary,
			pq.Array(article.ServiceTags),
			pq.Array(article.ReferenceURLs),
			article.PublishedAt,
			article.ProcessedAt,
		).
		Suffix(`ON CONFLICT (source_url) DO UPDATE
            SET title = EXCLUDED.title,
                translated_body = EXCLUDED.translated_body,
                translated_summary = EXCLUDED.translated_summary,
                service_tags = EXCLUDED.service_tags,
                reference_urls = EXCLUDED.reference_urls,
                published_at = EXCLUDED.published_at,
                processed_at = EXCLUDED.processed_at`).
		ToSql()
}
