package storage

import (
	"strings"
	"testing"
	"time"

	"NewsFlow/internal/domain"
)

func TestUpsertQueryShape(t *testing.T) {
	t.Parallel()

	article := domain.ProcessedArticle{
		SourceURL:         "https://aws.amazon.com/new/a",
		Title:             "Amazon EC2 update",
		TranslatedBody:    "本文",
		TranslatedSummary: "- 要点",
		ServiceTags:       []string{"Amazon Elastic Compute Cloud"},
		ReferenceURLs:     []string{"https://docs.aws.amazon.com/"},
		PublishedAt:       time.Now().UTC(),
		ProcessedAt:       time.Now().UTC(),
	}

	query, args, err := upsertQuery(article)
	if err != nil {
		t.Fatalf("upsertQuery error: %v", err)
	}

	if !strings.Contains(query, "ON CONFLICT (source_url) DO UPDATE") {
		t.Fatalf("upsert is not keyed on source_url: %s", query)
	}
	if strings.Count(query, "EXCLUDED.") != 7 {
		t.Fatalf("expected every non-key column updated, got: %s", query)
	}
	if len(args) != 8 {
		t.Fatalf("expected 8 args, got %d", len(args))
	}
	if !strings.Contains(query, "$8") {
		t.Fatalf("expected dollar placeholders: %s", query)
	}
}

func TestExistsQueryShape(t *testing.T) {
	t.Parallel()

	query, args, err := existsQuery([]string{"a", "b"})
	if err != nil {
		t.Fatalf("existsQuery error: %v", err)
	}

	if !strings.Contains(query, "source_url IN ($1,$2)") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}
