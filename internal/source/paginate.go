package source

import (
	"context"
	"iter"
	"log/slog"

	"github.com/rickgao/market-pulse/pkg/hashset"
)

// Page is one upstream listing page. Next is the cursor for the following
// page, empty when the provider signals the end.
type Page[T any] struct {
	Items []T
	Next  string

	Malformed int   // Records dropped because they failed to decode
	DecodeErr error // First decode failure when Malformed > 0
}

// FetchFunc requests the page identified by cursor. The first call receives
// an empty cursor.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Pager describes a paginated listing.
type Pager[T any] struct {
	Name     string         // Used in logs
	Fetch    FetchFunc[T]
	Key      func(T) string // Primary key for the duplicate-page guard
	MaxPages int            // 0 = unlimited
	Logger   *slog.Logger
}

// PageStats records how a listing ended.
type PageStats struct {
	Requests  int
	Items     int
	Malformed int   // Records dropped by DecodeRecords
	Overlap   bool  // Stopped on a page with an already-seen key
	Truncated bool  // Stopped on a fetch error
	Err       error // The fetch error when Truncated
}

// Paginate yields every item of the listing exactly once.
//
// It stops on a page with no records, an empty next cursor, the MaxPages
// cap, or the first page that repeats a key already yielded; the unseen
// items of that page are still yielded. A page whose records all failed to
// decode is not empty. A fetch error ends the listing as if no more data
// existed and is recorded in stats. stats may be nil.
func Paginate[T any](ctx context.Context, p Pager[T], stats *PageStats) iter.Seq[T] {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(yield func(T) bool) {
		var st PageStats
		defer func() {
			if stats != nil {
				*stats = st
			}
		}()

		seen := hashset.New[string]()
		cursor := ""

		for {
			if p.MaxPages > 0 && st.Requests >= p.MaxPages {
				logger.Warn("pagination page cap reached", "listing", p.Name, "pages", st.Requests)
				return
			}
			if err := ctx.Err(); err != nil {
				st.Truncated, st.Err = true, err
				return
			}

			st.Requests++
			page, err := p.Fetch(ctx, cursor)
			if err != nil {
				st.Truncated, st.Err = true, err
				logger.Warn("pagination truncated",
					"listing", p.Name,
					"page", st.Requests,
					"items", st.Items,
					"error", err,
				)
				return
			}
			if page.Malformed > 0 {
				st.Malformed += page.Malformed
				logger.Warn("dropped malformed records",
					"listing", p.Name,
					"page", st.Requests,
					"count", page.Malformed,
					"error", page.DecodeErr,
				)
			}
			if len(page.Items) == 0 && page.Malformed == 0 {
				return
			}

			for _, item := range page.Items {
				// Keyless items are passed through for the normalizer to reject.
				if k := p.Key(item); k != "" && !seen.Add(k) {
					st.Overlap = true
					continue
				}
				st.Items++
				if !yield(item) {
					return
				}
			}

			if st.Overlap {
				logger.Debug("pagination stopped on repeated page", "listing", p.Name, "page", st.Requests)
				return
			}
			if page.Next == "" || page.Next == cursor {
				return
			}
			cursor = page.Next
		}
	}
}
