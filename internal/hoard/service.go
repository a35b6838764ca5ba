package hoard

import (
	"context"
	"fmt"
)

// Source couples a fetcher with the archiver its items are written to.
// A GitHub source is one Source; a Paymo source expands into one Source per
// endpoint at wiring time, so a fetch failure on one endpoint never blocks
// the remaining endpoints.
type Source struct {
	Name     string
	Fetcher  Fetcher
	Archiver Archiver
	Filter   Filter
}

// HoardService is the orchestration layer that coordinates one full sync
// run: fetch each source, classify and archive every item, finalize the
// summary, persist the report and run record, and notify once.
type HoardService struct {
	sources  []Source
	store    RunStore
	reports  ReportSink
	notifier Notifier
	logger   Logger
	clock    Clock
	runID    string
	dryRun   bool
}

// NewHoardService creates a new HoardService with the provided dependencies.
// runID identifies this run in logs, the report and the run store.
// When dryRun is true, items are fetched and classified but never stored.
func NewHoardService(sources []Source, store RunStore, reports ReportSink, notifier Notifier, logger Logger, clock Clock, runID string, dryRun bool) *HoardService {
	return &HoardService{
		sources:  sources,
		store:    store,
		reports:  reports,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		runID:    runID,
		dryRun:   dryRun,
	}
}

// Run executes one complete sync pass over all sources.
//
// Per-item and per-source failures are absorbed into the summary; an error
// is returned only for precondition failures that prevent the run from being
// recorded at all. The caller maps the summary status to the process exit
// code.
func (s *HoardService) Run(ctx context.Context) (*RunSummary, error) {
	sum := NewRunSummary(s.runID, s.clock.Now())

	rec, err := s.store.CreateRun(s.runID, sum.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	s.logger.Info("run started", "run", s.runID, "sources", len(s.sources), "dry_run", s.dryRun)

	for _, src := range s.sources {
		if ctx.Err() != nil {
			break
		}
		s.syncSource(ctx, src, sum)
	}

	sum.FinishedAt = s.clock.Now()

	if size, err := s.reports.ArchiveSize(); err != nil {
		s.logger.Warn("measuring archive size", "error", err)
	} else {
		sum.ArchiveBytes = size
	}

	if err := s.store.FinishRun(rec.ID, sum); err != nil {
		s.logger.Error("finishing run record", "error", err)
	}

	body := sum.OneLine()
	if path, rendered, err := s.reports.Write(sum); err != nil {
		s.logger.Error("writing run report", "error", err)
	} else {
		body = rendered
		s.logger.Info("run report written", "path", path)
	}

	s.notify(sum, body)

	s.logger.Info("run finished", "run", s.runID, "status", string(sum.Status()),
		"created", sum.Created, "updated", sum.Updated, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}

// syncSource fetches one source and feeds its items through the sync engine.
// A fetch failure aborts only this source's pass: partial page results are
// discarded so a truncated enumeration is never archived as complete.
func (s *HoardService) syncSource(ctx context.Context, src Source, sum *RunSummary) {
	items, err := src.Fetcher.FetchAll(ctx)
	if err != nil {
		sum.RecordFetchFailure(src.Name)
		s.logger.Error("fetch failed", "source", src.Name, "partial_items", len(items), "error", err)
		return
	}

	s.logger.Info("fetch complete", "source", src.Name, "items", len(items))
	s.syncItems(ctx, src, items, sum)
}

// notify sends the run report exactly once, with a subject line per final
// status. Delivery failure is logged and deliberately never propagated.
func (s *HoardService) notify(sum *RunSummary, body string) {
	var subject string
	switch sum.Status() {
	case StatusFullSuccess:
		subject = fmt.Sprintf("hoard sync OK: %d items archived", sum.Succeeded())
	case StatusPartialSuccess:
		subject = fmt.Sprintf("hoard sync completed with %d failure(s)", sum.Failed+len(sum.FetchFailures))
	case StatusTotalFailure:
		subject = "hoard sync FAILED"
	}

	if err := s.notifier.Send(subject, body); err != nil {
		s.logger.Warn("notification failed", "error", err)
	}
}
