package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsFlow/internal/domain"
	"NewsFlow/internal/ports"
)

// articleProcessor lets tests drive the fan-out with a stub.
type articleProcessor interface {
	Process(ctx context.Context, candidate domain.Candidate, table map[string][]string) Outcome
}

// OrchestratorDeps wires the run-level collaborators.
type OrchestratorDeps struct {
	Source    ports.FeedSource
	Table     ports.ServiceTable
	Writer    ports.DestinationWriter
	Processor articleProcessor
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

// OrchestratorOptions bounds one run.
type OrchestratorOptions struct {
	WindowDays     int
	MaxConcurrency int
	// RunTimeout stops waiting for outstanding tasks; zero means wait for all.
	// Abandoned tasks are reported as incomplete, not interrupted.
	RunTimeout time.Duration
}

// Orchestrator drives one run: fetch candidates, fan out bounded concurrent
// per-article tasks, fan results back in. One article's failure never
// prevents processing of the remaining candidates.
type Orchestrator struct {
	source    ports.FeedSource
	table     ports.ServiceTable
	writer    ports.DestinationWriter
	processor articleProcessor
	notifier  ports.Notifier
	logger    *slog.Logger
	opts      OrchestratorOptions
	now       func() time.Time
}

// NewOrchestrator constructs the run driver.
func NewOrchestrator(deps OrchestratorDeps, opts OrchestratorOptions) *Orchestrator {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 5
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &Orchestrator{
		source:    deps.Source,
		table:     deps.Table,
		writer:    deps.Writer,
		processor: deps.Processor,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Run executes one pipeline run and returns its aggregate result. The
// returned error is non-nil only for the fatal feed failure; per-article
// failures live in the result.
func (o *Orchestrator) Run(ctx context.Context) (domain.RunResult, error) {
	result := domain.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: o.now().UTC(),
	}
	logger := o.logger
	if logger != nil {
		logger = logger.With("run_id", result.RunID)
	}

	candidates, err := o.source.Fetch(ctx, o.opts.WindowDays)
	if err != nil {
		tagged := domain.Tag(err, "feed", domain.KindSourceUnavailable)
		result.Status = domain.RunFailed
		result.FinishedAt = o.now().UTC()
		if logger != nil {
			logger.Error("feed unavailable, run aborted", "error", err)
		}
		return result, tagged
	}
	result.Total = len(candidates)

	table := o.loadTable(ctx, logger)
	pending := o.dedupe(ctx, candidates, &result, logger)

	o.fanOut(ctx, pending, table, &result, logger)

	result.FinishedAt = o.now().UTC()
	if len(result.Failed) == 0 && len(result.Incomplete) == 0 {
		result.Status = domain.RunSucceeded
	} else {
		result.Status = domain.RunPartial
	}

	if logger != nil {
		logger.Info("run finished",
			"status", result.Status,
			"total", result.Total,
			"succeeded", len(result.Succeeded),
			"failed", len(result.Failed),
			"skipped", len(result.Skipped),
			"incomplete", len(result.Incomplete),
		)
	}

	o.notify(ctx, result, logger)
	return result, nil
}

// loadTable reads the abbreviation table once per run. A read failure is not
// fatal: tagging degrades to empty sets rather than stopping the run.
func (o *Orchestrator) loadTable(ctx context.Context, logger *slog.Logger) map[string][]string {
	if o.table == nil {
		return nil
	}
	table, err := o.table.GetAll(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("service table unavailable, articles will be untagged", "error", err)
		}
		return nil
	}
	return table
}

// dedupe drops candidates that already have a destination record. A lookup
// failure disables skipping for the run; the upsert stays idempotent anyway.
func (o *Orchestrator) dedupe(ctx context.Context, candidates []domain.Candidate, result *domain.RunResult, logger *slog.Logger) []domain.Candidate {
	if o.writer == nil || len(candidates) == 0 {
		return candidates
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.SourceURL
	}

	existing, err := o.writer.Exists(ctx, urls)
	if err != nil {
		if logger != nil {
			logger.Warn("dedupe lookup failed, processing all candidates", "error", err)
		}
		return candidates
	}

	pending := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if existing[c.SourceURL] {
			result.Skipped = append(result.Skipped, c.SourceURL)
			continue
		}
		pending = append(pending, c)
	}
	return pending
}

// fanOut dispatches one task per candidate through a bounded worker pool and
// collects completions. The result accumulator is only touched here, on the
// Run goroutine, so completion recording needs no further synchronization.
func (o *Orchestrator) fanOut(ctx context.Context, pending []domain.Candidate, table map[string][]string, result *domain.RunResult, logger *slog.Logger) {
	if len(pending) == 0 {
		return
	}

	work := make(chan domain.Candidate, len(pending))
	for _, c := range pending {
		work <- c
	}
	close(work)

	// buffered so an abandoned worker can still deliver and exit
	outcomes := make(chan Outcome, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < o.opts.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range work {
				outcomes <- o.processor.Process(ctx, candidate, table)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var deadline <-chan time.Time
	if o.opts.RunTimeout > 0 {
		timer := time.NewTimer(o.opts.RunTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	done := map[string]bool{}
	for completed := 0; completed < len(pending); {
		select {
		case outcome := <-outcomes:
			completed++
			done[outcome.SourceURL] = true
			if outcome.Err == nil {
				result.Succeeded = append(result.Succeeded, outcome.SourceURL)
			} else {
				result.Failed = append(result.Failed, domain.Failure{
					SourceURL: outcome.SourceURL,
					Kind:      outcome.Err.Kind,
					Stage:     outcome.Err.Stage,
					Message:   outcome.Err.Error(),
				})
			}
		case <-deadline:
			o.abandon(pending, done, result, logger, "run timeout reached")
			return
		case <-ctx.Done():
			o.abandon(pending, done, result, logger, "run context canceled")
			return
		}
	}
}

func (o *Orchestrator) abandon(pending []domain.Candidate, done map[string]bool, result *domain.RunResult, logger *slog.Logger, reason string) {
	for _, c := range pending {
		if !done[c.SourceURL] {
			result.Incomplete = append(result.Incomplete, c.SourceURL)
		}
	}
	if logger != nil {
		logger.Warn(reason, "incomplete", len(result.Incomplete))
	}
}

func (o *Orchestrator) notify(ctx context.Context, result domain.RunResult, logger *slog.Logger) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.PublishReport(ctx, FormatReport(result)); err != nil && logger != nil {
		logger.Warn("run report not delivered", "error", err)
	}
}

// FormatReport renders a run result as a plain-text digest.
func FormatReport(result domain.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NewsFlow run %s: %s\n", result.RunID, result.Status)
	fmt.Fprintf(&b, "candidates: %d, succeeded: %d, failed: %d, skipped: %d, incomplete: %d\n",
		result.Total, len(result.Succeeded), len(result.Failed), len(result.Skipped), len(result.Incomplete))
	for _, failure := range result.Failed {
		fmt.Fprintf(&b, "- %s (%s at %s)\n", failure.SourceURL, failure.Kind, failure.Stage)
	}
	return b.String()
}
