package ldapdir

import (
	"context"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/pagination"
)

// UsersStrategy walks the users below Config.BaseDN.
type UsersStrategy struct {
	Config Config
}

// FirstPage implements pagination.Strategy.
func (s UsersStrategy) FirstPage(ctx context.Context, conn Searcher) (*Page, error) {
	cfg := s.Config.WithDefaults()
	return searchPage(ctx, conn, cfg, cfg.UserFilter, userAttributes, nil)
}

// PageAt implements pagination.Strategy.
func (s UsersStrategy) PageAt(ctx context.Context, conn Searcher, cursor string) (*Page, error) {
	cookie, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	cfg := s.Config.WithDefaults()
	return searchPage(ctx, conn, cfg, cfg.UserFilter, userAttributes, cookie)
}

// Items implements pagination.Strategy.
func (s UsersStrategy) Items(page *Page) []*directory.User {
	if page == nil {
		return nil
	}
	users := make([]*directory.User, 0, len(page.Entries))
	for _, e := range page.Entries {
		users = append(users, UserFromEntry(e))
	}
	return users
}

// Collection implements pagination.Named.
func (s UsersStrategy) Collection() string {
	return "ldap_users"
}

// GroupsStrategy walks the groups below Config.BaseDN.
type GroupsStrategy struct {
	Config Config
}

// FirstPage implements pagination.Strategy.
func (s GroupsStrategy) FirstPage(ctx context.Context, conn Searcher) (*Page, error) {
	cfg := s.Config.WithDefaults()
	return searchPage(ctx, conn, cfg, cfg.GroupFilter, groupAttributes, nil)
}

// PageAt implements pagination.Strategy.
func (s GroupsStrategy) PageAt(ctx context.Context, conn Searcher, cursor string) (*Page, error) {
	cookie, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	cfg := s.Config.WithDefaults()
	return searchPage(ctx, conn, cfg, cfg.GroupFilter, groupAttributes, cookie)
}

// Items implements pagination.Strategy.
func (s GroupsStrategy) Items(page *Page) []*directory.Group {
	if page == nil {
		return nil
	}
	groups := make([]*directory.Group, 0, len(page.Entries))
	for _, e := range page.Entries {
		groups = append(groups, GroupFromEntry(e))
	}
	return groups
}

// Collection implements pagination.Named.
func (s GroupsStrategy) Collection() string {
	return "ldap_groups"
}

// Source fetches entities from a connected directory.
type Source struct {
	conn   Searcher
	config Config
}

// NewSource wraps an established connection.
func NewSource(conn Searcher, cfg Config) *Source {
	return &Source{conn: conn, config: cfg.WithDefaults()}
}

// Groups fetches every group matching Config.GroupFilter.
func (s *Source) Groups(ctx context.Context) ([]*directory.Group, error) {
	var st pagination.Strategy[Searcher, *Page, *directory.Group] = GroupsStrategy{Config: s.config}
	return pagination.FetchAll(ctx, s.conn, st)
}

// Users fetches every user matching Config.UserFilter.
func (s *Source) Users(ctx context.Context) ([]*directory.User, error) {
	var st pagination.Strategy[Searcher, *Page, *directory.User] = UsersStrategy{Config: s.config}
	return pagination.FetchAll(ctx, s.conn, st)
}
