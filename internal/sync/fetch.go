package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/citeassist/engine/internal/citeerr"
)

// politenessSleep is the minimum per-page delay spec.md §4.12 requires
// ("per-page sleep >= 100 ms for rate-limit politeness"), enforced via
// golang.org/x/time/rate.Limiter.Wait — the same rate-limit library C9's
// gateway would use for a token-bucket law, wired here for its originally
// intended purpose.
const politenessSleep = 100 * time.Millisecond

// libraryFetch is one library's fetched items, split into paper-like items
// and their PDF attachments indexed by parent item key.
type libraryFetch struct {
	papers      []Item
	attachments map[string][]Item
}

// fetchLibrary pages through libraryID's items, dropping notes, collecting
// PDF attachments by parent key, and keeping paper-like items that satisfy
// the collection filter (nil filter means no restriction).
func fetchLibrary(ctx context.Context, client *Client, libraryID string, since time.Time, collectionFilter []string) (libraryFetch, error) {
	limiter := rate.NewLimiter(rate.Every(politenessSleep), 1)
	// Spend the initial burst token so the first page boundary also waits.
	limiter.Allow()
	filter := make(map[string]struct{}, len(collectionFilter))
	for _, c := range collectionFilter {
		filter[c] = struct{}{}
	}

	result := libraryFetch{attachments: map[string][]Item{}}
	start := 0
	for {
		items, total, err := client.FetchItemsPage(ctx, libraryID, start, since)
		if err != nil {
			return libraryFetch{}, err
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			switch {
			case item.Data.ItemType == "attachment":
				if item.Data.ContentType == "application/pdf" && item.Data.ParentItem != "" {
					result.attachments[item.Data.ParentItem] = append(result.attachments[item.Data.ParentItem], item)
				}
			case item.Data.ItemType == "note":
				// dropped, per spec.md §4.12
			case len(filter) > 0 && !anyCollectionMatches(item.Data.Collections, filter):
				// filtered out: item isn't in any selected collection
			default:
				result.papers = append(result.papers, item)
			}
		}

		start += len(items)
		if start >= total {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return libraryFetch{}, citeerr.New(citeerr.Transient, "sync_client", libraryID, err)
		}
	}
	return result, nil
}

func anyCollectionMatches(itemCollections []string, filter map[string]struct{}) bool {
	for _, c := range itemCollections {
		if _, ok := filter[c]; ok {
			return true
		}
	}
	return false
}
