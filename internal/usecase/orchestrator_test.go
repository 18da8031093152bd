package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"NewsFlow/internal/domain"
)

type fakeSource struct {
	candidates []domain.Candidate
	err        error
}

func (f *fakeSource) Fetch(context.Context, int) ([]domain.Candidate, error) {
	return f.candidates, f.err
}

type fakeTable struct {
	table map[string][]string
	err   error
}

func (f *fakeTable) GetAll(context.Context) (map[string][]string, error) {
	return f.table, f.err
}

// stubProcessor records invocations and fails the configured URLs.
type stubProcessor struct {
	mu        sync.Mutex
	processed []string
	failURLs  map[string]domain.ErrorKind
	delay     time.Duration
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
}

func (s *stubProcessor) Process(_ context.Context, candidate domain.Candidate, _ map[string][]string) Outcome {
	current := s.inFlight.Add(1)
	for {
		seen := s.maxSeen.Load()
		if current <= seen || s.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.inFlight.Add(-1)

	s.mu.Lock()
	s.processed = append(s.processed, candidate.SourceURL)
	s.mu.Unlock()

	if kind, ok := s.failURLs[candidate.SourceURL]; ok {
		return Outcome{
			SourceURL: candidate.SourceURL,
			Err:       domain.NewStageError(kind, "extract", fmt.Errorf("forced")),
		}
	}
	return Outcome{SourceURL: candidate.SourceURL}
}

func (s *stubProcessor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

func candidates(n int) []domain.Candidate {
	list := make([]domain.Candidate, n)
	for i := range list {
		list[i] = domain.Candidate{
			SourceURL:   fmt.Sprintf("https://aws.amazon.com/new/%d", i),
			Title:       fmt.Sprintf("Announcement %d", i),
			PublishedAt: time.Now().UTC(),
		}
	}
	return list
}

func newTestOrchestrator(source *fakeSource, processor *stubProcessor, writer *fakeWriter, opts OrchestratorOptions) *Orchestrator {
	if opts.MaxConcurrency == 0 {
		opts.MaxConcurrency = 4
	}
	deps := OrchestratorDeps{
		Source:    source,
		Table:     &fakeTable{},
		Processor: processor,
	}
	if writer != nil {
		deps.Writer = writer
	}
	return NewOrchestrator(deps, opts)
}

func TestRunEveryCandidateGetsOneOutcome(t *testing.T) {
	t.Parallel()

	list := candidates(7)
	processor := &stubProcessor{failURLs: map[string]domain.ErrorKind{
		list[2].SourceURL: domain.KindTransform,
		list[5].SourceURL: domain.KindWrite,
	}}
	o := newTestOrchestrator(&fakeSource{candidates: list}, processor, nil, OrchestratorOptions{})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if result.Total != 7 {
		t.Fatalf("expected 7 total, got %d", result.Total)
	}
	if got := len(result.Succeeded) + len(result.Failed); got != 7 {
		t.Fatalf("expected 7 outcomes, got %d", got)
	}
	if processor.count() != 7 {
		t.Fatalf("expected 7 dispatches, got %d", processor.count())
	}
	if result.Status != domain.RunPartial {
		t.Fatalf("expected partial status, got %s", result.Status)
	}

	kinds := map[string]domain.ErrorKind{}
	for _, failure := range result.Failed {
		kinds[failure.SourceURL] = failure.Kind
	}
	if kinds[list[2].SourceURL] != domain.KindTransform || kinds[list[5].SourceURL] != domain.KindWrite {
		t.Fatalf("unexpected failure kinds: %v", kinds)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	t.Parallel()

	list := candidates(4)
	processor := &stubProcessor{failURLs: map[string]domain.ErrorKind{
		list[0].SourceURL: domain.KindFetch,
	}}
	o := newTestOrchestrator(&fakeSource{candidates: list}, processor, nil, OrchestratorOptions{})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(result.Succeeded) != 3 {
		t.Fatalf("siblings must succeed despite one failure, got %d successes", len(result.Succeeded))
	}
	if len(result.Failed) != 1 || result.Failed[0].Kind != domain.KindFetch {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}
}

func TestRunSourceUnavailableAborts(t *testing.T) {
	t.Parallel()

	source := &fakeSource{err: domain.NewStageError(domain.KindSourceUnavailable, "feed", fmt.Errorf("down"))}
	processor := &stubProcessor{}
	o := newTestOrchestrator(source, processor, nil, OrchestratorOptions{})

	result, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.KindOf(err) != domain.KindSourceUnavailable {
		t.Fatalf("expected source_unavailable, got %v", err)
	}
	if result.Status != domain.RunFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
	if processor.count() != 0 {
		t.Fatalf("expected zero dispatches, got %d", processor.count())
	}
}

func TestRunEmptyFeedSucceeds(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(&fakeSource{}, &stubProcessor{}, nil, OrchestratorOptions{})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != domain.RunSucceeded || result.Total != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunSkipsExistingArticles(t *testing.T) {
	t.Parallel()

	list := candidates(3)
	writer := &fakeWriter{existing: map[string]bool{list[1].SourceURL: true}}
	processor := &stubProcessor{}
	o := newTestOrchestrator(&fakeSource{candidates: list}, processor, writer, OrchestratorOptions{})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(result.Skipped) != 1 || result.Skipped[0] != list[1].SourceURL {
		t.Fatalf("unexpected skipped: %v", result.Skipped)
	}
	if processor.count() != 2 {
		t.Fatalf("skipped candidate must not be dispatched, got %d dispatches", processor.count())
	}
	if result.Status != domain.RunSucceeded {
		t.Fatalf("unexpected status: %s", result.Status)
	}
}

func TestRunBoundedConcurrency(t *testing.T) {
	t.Parallel()

	processor := &stubProcessor{delay: 20 * time.Millisecond}
	o := newTestOrchestrator(&fakeSource{candidates: candidates(8)}, processor, nil, OrchestratorOptions{MaxConcurrency: 2})

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if max := processor.maxSeen.Load(); max > 2 {
		t.Fatalf("in-flight tasks exceeded bound: %d", max)
	}
}

func TestRunTimeoutReportsIncomplete(t *testing.T) {
	t.Parallel()

	processor := &stubProcessor{delay: 200 * time.Millisecond}
	o := newTestOrchestrator(&fakeSource{candidates: candidates(4)}, processor, nil, OrchestratorOptions{
		MaxConcurrency: 1,
		RunTimeout:     50 * time.Millisecond,
	})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(result.Incomplete) == 0 {
		t.Fatal("expected incomplete tasks after run timeout")
	}
	if result.Status != domain.RunPartial {
		t.Fatalf("expected partial status, got %s", result.Status)
	}
	if got := len(result.Succeeded) + len(result.Failed) + len(result.Incomplete); got != 4 {
		t.Fatalf("every candidate must be accounted for, got %d", got)
	}
}

func TestFormatReport(t *testing.T) {
	t.Parallel()

	result := domain.RunResult{
		RunID:     "run-1",
		Status:    domain.RunPartial,
		Total:     2,
		Succeeded: []string{"https://aws.amazon.com/new/0"},
		Failed: []domain.Failure{{
			SourceURL: "https://aws.amazon.com/new/1",
			Kind:      domain.KindExtraction,
			Stage:     "extract",
		}},
	}

	report := FormatReport(result)
	if !strings.Contains(report, "succeeded: 1, failed: 1") {
		t.Fatalf("unexpected report: %s", report)
	}
	if !strings.Contains(report, "extraction_error") {
		t.Fatalf("failure kind missing from report: %s", report)
	}
}
