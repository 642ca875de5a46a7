package graph

import "github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"

// CollectionResponse is one page of a Graph collection.
type CollectionResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
	Count    *int64 `json:"@odata.count,omitempty"`
}

// NextPageCursor implements pagination.Cursor.
func (r *CollectionResponse[T]) NextPageCursor() string {
	if r == nil {
		return ""
	}
	return r.NextLink
}

// Items returns the page's entities, nil for a nil page.
func (r *CollectionResponse[T]) Items() []T {
	if r == nil {
		return nil
	}
	return r.Value
}

// GroupPage is a page of the /groups collection.
type GroupPage = CollectionResponse[*directory.Group]

// UserPage is a page of the /users collection.
type UserPage = CollectionResponse[*directory.User]
