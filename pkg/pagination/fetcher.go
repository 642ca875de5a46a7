package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrFetch is wrapped by every FetchError.
var ErrFetch = errors.New("paged fetch failed")

// Cursor is implemented by page responses. NextPageCursor returns "" on the
// last page and must be safe to call on a nil page.
type Cursor interface {
	NextPageCursor() string
}

// Strategy supplies the collection-specific half of a paged fetch: how to
// request the first page, how to request the page behind a cursor, and how to
// pull the items out of a page.
type Strategy[C any, R Cursor, V any] interface {
	FirstPage(ctx context.Context, client C) (R, error)
	PageAt(ctx context.Context, client C, cursor string) (R, error)
	Items(page R) []V
}

// Named strategies label their metrics with a collection name.
type Named interface {
	Collection() string
}

// FetchError reports the page request that aborted a fetch.
type FetchError struct {
	// Page is the 1-based number of the page that failed.
	Page int
	// Cursor is the cursor used for the failed request ("" for the first page).
	Cursor string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("%v: page %d: %v", ErrFetch, e.Page, e.Err)
	}
	return fmt.Sprintf("%v: page %d (cursor %q): %v", ErrFetch, e.Page, e.Cursor, e.Err)
}

// Unwrap exposes both ErrFetch and the underlying cause to errors.Is/As.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// FetchAll retrieves every page of a collection and returns the concatenated
// items. On success the result is never nil. On failure no items are
// returned.
func FetchAll[C any, R Cursor, V any](ctx context.Context, client C, strategy Strategy[C, R, V]) ([]V, error) {
	collection := collectionOf(strategy)
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	}()

	items := make([]V, 0)

	page, err := strategy.FirstPage(ctx, client)
	if err != nil {
		fetchFailures.WithLabelValues(collection).Inc()
		return nil, &FetchError{Page: 1, Err: err}
	}
	pages := 1
	items = append(items, strategy.Items(page)...)

	for cursor := page.NextPageCursor(); cursor != ""; cursor = page.NextPageCursor() {
		pages++
		page, err = strategy.PageAt(ctx, client, cursor)
		if err != nil {
			fetchFailures.WithLabelValues(collection).Inc()
			return nil, &FetchError{Page: pages, Cursor: cursor, Err: err}
		}
		items = append(items, strategy.Items(page)...)
	}

	pagesFetched.WithLabelValues(collection).Add(float64(pages))
	itemsFetched.WithLabelValues(collection).Add(float64(len(items)))

	return items, nil
}

func collectionOf(strategy any) string {
	if n, ok := strategy.(Named); ok {
		return n.Collection()
	}
	return "unknown"
}
