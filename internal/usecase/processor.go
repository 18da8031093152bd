package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsFlow/internal/domain"
	"NewsFlow/internal/ports"
	"NewsFlow/internal/tagging"
)

// Outcome is the single completion record a processor invocation reports
// back to the orchestrator. Err is nil on success.
type Outcome struct {
	SourceURL string
	Err       *domain.StageError
}

// ProcessorDeps wires the driven adapters a processor needs.
type ProcessorDeps struct {
	Extractor   ports.ContentExtractor
	Transformer ports.Transformer
	Writer      ports.DestinationWriter
	Logger      *slog.Logger
}

// ProcessorOptions bounds the local retry behavior.
type ProcessorOptions struct {
	FetchRetries     int
	TransformRetries int
	RetryBackoff     time.Duration
}

// Processor converts one candidate into one processed article and commits
// it, or fails cleanly for that article alone. Failures never escape the
// Process boundary; they come back as tagged outcomes.
type Processor struct {
	extractor   ports.ContentExtractor
	transformer ports.Transformer
	writer      ports.DestinationWriter
	logger      *slog.Logger
	opts        ProcessorOptions
	now         func() time.Time
}

// NewProcessor constructs the per-article stage.
func NewProcessor(deps ProcessorDeps, opts ProcessorOptions) *Processor {
	if opts.FetchRetries < 0 {
		opts.FetchRetries = 0
	}
	if opts.TransformRetries < 0 {
		opts.TransformRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	return &Processor{
		extractor:   deps.Extractor,
		transformer: deps.Transformer,
		writer:      deps.Writer,
		logger:      deps.Logger,
		opts:        opts,
		now:         time.Now,
	}
}

// Process runs extract, tag, transform, upsert in order, each step gated on
// the previous step's success.
func (p *Processor) Process(ctx context.Context, candidate domain.Candidate, table map[string][]string) Outcome {
	content, err := p.extract(ctx, candidate)
	if err != nil {
		return p.failed(candidate, "extract", err, domain.KindExtraction)
	}

	tags := tagging.Resolve(candidate.Title, table)

	translated, summary, err := p.transform(ctx, content.Text)
	if err != nil {
		return p.failed(candidate, "transform", err, domain.KindTransform)
	}

	article := domain.ProcessedArticle{
		SourceURL:         candidate.SourceURL,
		Title:             candidate.Title,
		TranslatedBody:    translated,
		TranslatedSummary: summary,
		ServiceTags:       tags,
		ReferenceURLs:     content.ReferenceURLs,
		PublishedAt:       candidate.PublishedAt,
		ProcessedAt:       p.now().UTC(),
	}

	// destination failures are not retried here; the orchestrator reports them
	if err := p.writer.Upsert(ctx, article); err != nil {
		return p.failed(candidate, "upsert", err, domain.KindWrite)
	}

	p.debug("article processed", "url", candidate.SourceURL, "tags", len(tags))
	return Outcome{SourceURL: candidate.SourceURL}
}

// extract retries fetch failures up to the configured bound with exponential
// backoff; extraction failures are permanent and fail immediately.
func (p *Processor) extract(ctx context.Context, candidate domain.Candidate) (domain.Content, error) {
	var content domain.Content

	operation := func() error {
		c, err := p.extractor.Extract(ctx, candidate.SourceURL)
		if err != nil {
			if domain.KindOf(err) == domain.KindFetch {
				p.debug("fetch failed, may retry", "url", candidate.SourceURL, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		content = c
		return nil
	}

	if err := backoff.Retry(operation, p.policy(uint64(p.opts.FetchRetries), ctx)); err != nil {
		return domain.Content{}, err
	}
	return content, nil
}

func (p *Processor) transform(ctx context.Context, text string) (string, string, error) {
	var translated, summary string

	operation := func() error {
		tr, sum, err := p.transformer.Transform(ctx, text)
		if err != nil {
			return err
		}
		translated, summary = tr, sum
		return nil
	}

	if err := backoff.Retry(operation, p.policy(uint64(p.opts.TransformRetries), ctx)); err != nil {
		return "", "", err
	}
	return translated, summary, nil
}

func (p *Processor) policy(maxRetries uint64, ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.RetryBackoff
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

func (p *Processor) failed(candidate domain.Candidate, stage string, err error, fallback domain.ErrorKind) Outcome {
	tagged := domain.Tag(err, stage, fallback)
	if p.logger != nil {
		p.logger.Warn("article failed",
			"url", candidate.SourceURL,
			"stage", tagged.Stage,
			"kind", tagged.Kind,
			"error", err,
		)
	}
	return Outcome{SourceURL: candidate.SourceURL, Err: tagged}
}

func (p *Processor) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
