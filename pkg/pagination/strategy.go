package pagination

import "context"

// Page is a generic page response for sources without their own envelope.
type Page[V any] struct {
	Items []V
	Next  string
}

// NextPageCursor implements Cursor.
func (p *Page[V]) NextPageCursor() string {
	if p == nil {
		return ""
	}
	return p.Next
}

// Funcs adapts plain functions to a Strategy.
type Funcs[C any, R Cursor, V any] struct {
	Name    string
	First   func(ctx context.Context, client C) (R, error)
	At      func(ctx context.Context, client C, cursor string) (R, error)
	Extract func(page R) []V
}

// FirstPage calls First.
func (f Funcs[C, R, V]) FirstPage(ctx context.Context, client C) (R, error) {
	return f.First(ctx, client)
}

// PageAt calls At.
func (f Funcs[C, R, V]) PageAt(ctx context.Context, client C, cursor string) (R, error) {
	return f.At(ctx, client, cursor)
}

// Items calls Extract.
func (f Funcs[C, R, V]) Items(page R) []V {
	return f.Extract(page)
}

// Collection implements Named.
func (f Funcs[C, R, V]) Collection() string {
	if f.Name == "" {
		return "unknown"
	}
	return f.Name
}
