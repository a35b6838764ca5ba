package hoard

import (
	"fmt"
	"time"
)

// Status classifies the overall outcome of one run.
type Status string

const (
	// StatusFullSuccess means no item failed and no fetch aborted. A run that
	// fetched zero items from a legitimately empty remote collection is still
	// a full success.
	StatusFullSuccess Status = "full-success"
	// StatusPartialSuccess means some items failed (or a fetch pass aborted)
	// while others were archived.
	StatusPartialSuccess Status = "partial-success"
	// StatusTotalFailure means nothing was archived and at least one failure
	// occurred, including the case of zero items fetched due to an upstream
	// error.
	StatusTotalFailure Status = "total-failure"
)

// Outcome is the per-item result recorded by the sync engine.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
)

// String returns the outcome name used in logs and reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SourceTally accumulates the outcome counts of one source (or one Paymo
// endpoint, which is its own source after wiring).
type SourceTally struct {
	Source  string
	Created int
	Updated int
	Skipped int
	Failed  int

	// FetchFailed marks a source whose enumeration aborted; its counts then
	// cover only items recorded before the abort (normally none).
	FetchFailed bool
}

// RunSummary accumulates per-item outcomes during a sync pass and is
// finalized by the run reporter. Items are recorded in fetch-emission order.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Created int
	Updated int
	Skipped int
	Failed  int

	// Sources holds one tally per source in the order they were synced.
	Sources []*SourceTally

	// FailedNames lists the identifiers of items that failed to sync,
	// in the order they were attempted.
	FailedNames []string

	// FetchFailures lists sources whose fetch pass aborted before any of
	// their items could be considered.
	FetchFailures []string

	ArchiveBytes int64
}

// NewRunSummary creates a summary for a run starting now.
func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{RunID: runID, StartedAt: startedAt}
}

// tally returns the running tally for source, creating it on first use.
func (s *RunSummary) tally(source string) *SourceTally {
	for _, t := range s.Sources {
		if t.Source == source {
			return t
		}
	}
	t := &SourceTally{Source: source}
	s.Sources = append(s.Sources, t)
	return t
}

// Record adds one item outcome to the summary, under the source it came from.
func (s *RunSummary) Record(source, name string, outcome Outcome) {
	t := s.tally(source)
	switch outcome {
	case OutcomeCreated:
		s.Created++
		t.Created++
	case OutcomeUpdated:
		s.Updated++
		t.Updated++
	case OutcomeSkipped:
		s.Skipped++
		t.Skipped++
	case OutcomeFailed:
		s.Failed++
		t.Failed++
		s.FailedNames = append(s.FailedNames, name)
	}
}

// RecordFetchFailure notes that an entire fetch pass for a source aborted.
func (s *RunSummary) RecordFetchFailure(source string) {
	s.tally(source).FetchFailed = true
	s.FetchFailures = append(s.FetchFailures, source)
}

// Total returns the number of items that received an outcome.
func (s *RunSummary) Total() int {
	return s.Created + s.Updated + s.Skipped + s.Failed
}

// Succeeded returns the number of items that were archived or deliberately
// skipped. Skips are successes: a filtered item is an expected no-op.
func (s *RunSummary) Succeeded() int {
	return s.Created + s.Updated + s.Skipped
}

// Duration returns the wall-clock duration of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Status derives the final run status.
//
// A run with no failures of any kind is a full success even when zero items
// were fetched (the remote collection was legitimately empty). When every
// source failed to fetch, or every attempted item failed, nothing was
// archived and the run is a total failure. Anything in between is partial.
func (s *RunSummary) Status() Status {
	if s.Failed == 0 && len(s.FetchFailures) == 0 {
		return StatusFullSuccess
	}
	if s.Succeeded() == 0 {
		return StatusTotalFailure
	}
	return StatusPartialSuccess
}

// OneLine returns a compact human-readable form of the summary, used in logs
// and as a notification fallback when the full report cannot be rendered.
func (s *RunSummary) OneLine() string {
	return fmt.Sprintf("%s: %d created, %d updated, %d skipped, %d failed, %d fetch failures in %s",
		s.Status(), s.Created, s.Updated, s.Skipped, s.Failed, len(s.FetchFailures),
		s.Duration().Truncate(time.Millisecond))
}
