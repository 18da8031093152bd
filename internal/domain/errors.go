package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for reporting and retry decisions.
type ErrorKind string

const (
	// KindSourceUnavailable means the feed itself could not be retrieved.
	// The only kind that aborts a whole run.
	KindSourceUnavailable ErrorKind = "source_unavailable"
	// KindFetch is a transport/HTTP failure while fetching an article page.
	// Plausibly transient; retried locally by the processor.
	KindFetch ErrorKind = "fetch_error"
	// KindExtraction means the page was retrieved but no article body was
	// found. Permanent; never retried.
	KindExtraction ErrorKind = "extraction_error"
	// KindTransform is a translate/summarize failure. Retried once.
	KindTransform ErrorKind = "transform_error"
	// KindWrite is a destination upsert failure. Surfaced as-is.
	KindWrite ErrorKind = "write_error"
)

// StageError tags a failure with the pipeline stage and kind that produced it.
type StageError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with a stage name and error kind.
func NewStageError(kind ErrorKind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the error kind carried by err, or "" when it has none.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Tag returns the StageError carried by err, filling in the stage when it is
// missing. Errors without a kind are wrapped with the fallback kind, so the
// orchestrator only ever observes classified outcomes.
func Tag(err error, stage string, fallback ErrorKind) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		if se.Stage == "" {
			se.Stage = stage
		}
		return se
	}
	return NewStageError(fallback, stage, err)
}
