package ports

import (
	"context"
	"time"

	"NewsFlow/internal/domain"
)

// FeedSource lists candidate articles published within the trailing window,
// newest first. An empty result is valid; a retrieval failure is fatal to
// the run.
type FeedSource interface {
	Fetch(ctx context.Context, windowDays int) ([]domain.Candidate, error)
}

// ContentExtractor retrieves an article page and strips it down to the
// substantive body text.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (domain.Content, error)
}

// Transformer translates extracted text and produces a short summary of the
// translation. The concrete backend is a black box with its own availability.
type Transformer interface {
	Transform(ctx context.Context, text string) (translated string, summary string, err error)
}

// ServiceTable exposes the canonical-name to aliases mapping. Read-only
// during a run; loaded once and shared across all tasks.
type ServiceTable interface {
	GetAll(ctx context.Context) (map[string][]string, error)
}

// DestinationWriter commits processed articles keyed by source URL.
// Upsert must be idempotent: a repeated identical write leaves the
// destination unchanged.
type DestinationWriter interface {
	Exists(ctx context.Context, sourceURLs []string) (map[string]bool, error)
	Upsert(ctx context.Context, article domain.ProcessedArticle) error
}

// SecretStore resolves parameter names to secret values at startup.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
}

// Notifier publishes the run report after a run finishes.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
