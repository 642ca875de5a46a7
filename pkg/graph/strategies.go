package graph

import (
	"context"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/pagination"
)

// Collection paths below the service root.
const (
	GroupsCollection = "groups"
	UsersCollection  = "users"
)

// getPage fetches one collection page. A 2xx response without a body
// decodes as an error, not an empty page.
func getPage[T any](ctx context.Context, c *Client, rawURL string) (*CollectionResponse[T], error) {
	var page CollectionResponse[T]
	if err := c.GetJSON(ctx, rawURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// nextPage follows a next link after checking it stays on the Graph host.
func nextPage[T any](ctx context.Context, c *Client, link string) (*CollectionResponse[T], error) {
	if err := c.checkNextLink(link); err != nil {
		return nil, err
	}
	return getPage[T](ctx, c, link)
}

// GroupsStrategy walks the /groups collection.
type GroupsStrategy struct{}

// FirstPage implements pagination.Strategy.
func (GroupsStrategy) FirstPage(ctx context.Context, c *Client) (*GroupPage, error) {
	return getPage[*directory.Group](ctx, c, c.CollectionURL(GroupsCollection))
}

// PageAt implements pagination.Strategy. The cursor is an @odata.nextLink.
func (GroupsStrategy) PageAt(ctx context.Context, c *Client, cursor string) (*GroupPage, error) {
	return nextPage[*directory.Group](ctx, c, cursor)
}

// Items implements pagination.Strategy.
func (GroupsStrategy) Items(page *GroupPage) []*directory.Group {
	return page.Items()
}

// Collection implements pagination.Named.
func (GroupsStrategy) Collection() string {
	return GroupsCollection
}

// UsersStrategy walks the /users collection.
type UsersStrategy struct{}

// FirstPage implements pagination.Strategy.
func (UsersStrategy) FirstPage(ctx context.Context, c *Client) (*UserPage, error) {
	return getPage[*directory.User](ctx, c, c.CollectionURL(UsersCollection))
}

// PageAt implements pagination.Strategy. The cursor is an @odata.nextLink.
func (UsersStrategy) PageAt(ctx context.Context, c *Client, cursor string) (*UserPage, error) {
	return nextPage[*directory.User](ctx, c, cursor)
}

// Items implements pagination.Strategy.
func (UsersStrategy) Items(page *UserPage) []*directory.User {
	return page.Items()
}

// Collection implements pagination.Named.
func (UsersStrategy) Collection() string {
	return UsersCollection
}

// Groups fetches every group in the tenant.
func (c *Client) Groups(ctx context.Context) ([]*directory.Group, error) {
	var s pagination.Strategy[*Client, *GroupPage, *directory.Group] = GroupsStrategy{}
	return pagination.FetchAll(ctx, c, s)
}

// Users fetches every user in the tenant.
func (c *Client) Users(ctx context.Context) ([]*directory.User, error) {
	var s pagination.Strategy[*Client, *UserPage, *directory.User] = UsersStrategy{}
	return pagination.FetchAll(ctx, c, s)
}
