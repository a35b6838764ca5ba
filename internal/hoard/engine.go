package hoard

import "context"

// Filter holds the predicates evaluated before an item is archived.
// A filtered item is recorded as SKIPPED, never as failed.
type Filter struct {
	// IncludeForks archives forked repositories too. Archived repositories
	// are always excluded.
	IncludeForks bool
}

// Excluded returns the skip reason and true when the item should not be
// archived.
func (f Filter) Excluded(item RemoteItem) (string, bool) {
	if item.Archived {
		return "archived", true
	}
	if item.Fork && !f.IncludeForks {
		return "fork", true
	}
	return "", false
}

// syncItems runs every fetched item through filter, classification and
// store, recording exactly one outcome per item. A failure on one item never
// aborts the remaining items: this is a partial-failure-tolerant batch.
// Items are processed strictly in fetch-emission order, so two items with
// the same derived on-disk path cannot race.
func (s *HoardService) syncItems(ctx context.Context, src Source, items []RemoteItem, sum *RunSummary) {
	for _, item := range items {
		if ctx.Err() != nil {
			s.logger.Warn("sync interrupted", "source", src.Name)
			return
		}

		if reason, skip := src.Filter.Excluded(item); skip {
			sum.Record(src.Name, item.Name, OutcomeSkipped)
			s.logger.Info("item skipped", "source", src.Name, "item", item.Name, "reason", reason)
			continue
		}

		outcome := OutcomeCreated
		if src.Archiver.Exists(item.Name) {
			outcome = OutcomeUpdated
		}

		if s.dryRun {
			sum.Record(src.Name, item.Name, outcome)
			s.logger.Info("item classified (dry run)", "source", src.Name, "item", item.Name, "outcome", outcome.String())
			continue
		}

		if err := src.Archiver.Store(ctx, item); err != nil {
			sum.Record(src.Name, item.Name, OutcomeFailed)
			s.logger.Error("item sync failed", "source", src.Name, "item", item.Name, "error", err)
			continue
		}

		sum.Record(src.Name, item.Name, outcome)
		s.logger.Info("item synced", "source", src.Name, "item", item.Name, "outcome", outcome.String())
	}
}
