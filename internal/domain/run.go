package domain

import "time"

// RunStatus summarizes how an orchestrator run ended.
type RunStatus string

const (
	// RunSucceeded means every dispatched article completed successfully.
	RunSucceeded RunStatus = "succeeded"
	// RunPartial means the run finished but some articles failed or were
	// abandoned at the run deadline.
	RunPartial RunStatus = "partial"
	// RunFailed means the feed could not be fetched; nothing was dispatched.
	RunFailed RunStatus = "failed"
)

// Failure ties a candidate to the stage error that stopped it.
type Failure struct {
	SourceURL string
	Kind      ErrorKind
	Stage     string
	Message   string
}

// RunResult aggregates one orchestrator run. Succeeded and Failed are ordered
// by task completion; Skipped and Incomplete keep candidate order.
type RunResult struct {
	RunID      string
	Status     RunStatus
	Total      int
	Succeeded  []string
	Failed     []Failure
	Skipped    []string
	Incomplete []string
	StartedAt  time.Time
	FinishedAt time.Time
}
