package fetch

import (
	"fmt"

	"hoard-go/internal/hoard"
)

// DefaultMaxPages bounds a pagination walk. A remote that keeps returning
// full pages past this point has violated its own API contract, and the walk
// aborts instead of looping forever.
const DefaultMaxPages = 500

// fetchPages walks a paginated collection: successive pages are requested
// until one comes back with fewer than perPage items (an empty page counts).
// Page ordering from the remote is preserved in emission order.
//
// A duplicate identifier across pages is a defect in the remote enumeration
// and aborts the pass; silently collapsing duplicates could hide item loss.
// On any error the items gathered so far are returned alongside it so the
// caller can report how far the pass got.
func fetchPages(perPage, maxPages int, fetchPage func(page int) ([]hoard.RemoteItem, error)) ([]hoard.RemoteItem, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []hoard.RemoteItem
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		if page > maxPages {
			return all, fmt.Errorf("pagination did not terminate within %d pages", maxPages)
		}

		items, err := fetchPage(page)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}

		for _, item := range items {
			if seen[item.Name] {
				return all, fmt.Errorf("duplicate item %q across pages", item.Name)
			}
			seen[item.Name] = true
			all = append(all, item)
		}

		if len(items) < perPage {
			return all, nil
		}
	}
}
